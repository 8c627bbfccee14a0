package delivery

import (
	"context"
	"embed"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"bookfinder/internal/middleware"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/parser"
	"bookfinder/internal/query"
	"bookfinder/internal/search"
)

//go:embed static/index.html
var static embed.FS

const requestTimeout = 15 * time.Second

// Server holds the web adapter's HTTP and WebSocket handlers.
type Server struct {
	Log      *logrus.Logger
	Service  *search.Service
	Debounce time.Duration
	// Metrics exposes /metrics when set.
	Metrics bool
}

// Routes builds the full handler with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.Index)
	mux.HandleFunc("GET /ws", s.Session)
	mux.HandleFunc("GET /health", s.Health)
	mux.HandleFunc("GET /api/fields", s.Fields)
	mux.HandleFunc("GET /api/search", s.Search)
	mux.HandleFunc("GET /api/works/{id}", s.Work)
	if s.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return middleware.Chain(mux,
		middleware.CORS,
		middleware.RequestLogger(s.Log),
		middleware.Metrics(routeLabel),
	)
}

// routeLabel reads the pattern the mux matched, keeping label cardinality bounded.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

func (s *Server) Index(w http.ResponseWriter, _ *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, CodeInternal, "index page missing", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Fields lists the filter vocabulary for search bars.
func (s *Server) Fields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fields": query.SearchableFields()})
}

// Search serves one page: GET /api/search?title=Dune&page=2, or
// GET /api/search?input=author:Herbert dune to use the shell syntax.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := 1
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "page must be a positive integer", p)
			return
		}
		page = n
	}

	var filters query.FilterSet
	if input := q.Get("input"); input != "" {
		filters = parser.Parse(input)
	} else {
		m := make(map[string]string, len(q))
		for k := range q {
			if k == "page" {
				continue
			}
			m[k] = q.Get(k)
		}
		fs, err := query.FromMap(m)
		if err != nil {
			WriteError(w, http.StatusBadRequest, CodeBadRequest, "invalid search parameters", err.Error())
			return
		}
		filters = fs
	}
	if filters.IsEmpty() {
		WriteError(w, http.StatusBadRequest, CodeBadRequest, "at least one search field is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	res, err := s.Service.Search(ctx, filters, page)
	if err != nil {
		s.Log.WithError(err).WithField("filters", filters.String()).Error("search.failed")
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filters": filters,
		"page":    res.Page,
		"total":   res.Total,
		"books":   res.Books,
		"hasMore": res.Total == nil || (res.Page-1)*s.Service.PageSize()+len(res.Books) < *res.Total,
	})
}

// WorkView is the detail payload: the work plus its cover.
type WorkView struct {
	*openlibrary.Work
	ID       string `json:"id"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// Work serves GET /api/works/{id}.
func (s *Server) Work(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	work, err := s.Service.Work(ctx, r.PathValue("id"))
	if err != nil {
		if !openlibrary.IsNotFound(err) {
			s.Log.WithError(err).WithField("id", r.PathValue("id")).Warn("work.failed")
		}
		writeUpstreamError(w, err)
		return
	}
	id, _ := openlibrary.NormalizeWorkID(work.Key)
	writeJSON(w, http.StatusOK, WorkView{
		Work:     work,
		ID:       id,
		CoverURL: s.Service.CoverURL(work.CoverID(), openlibrary.CoverLarge),
	})
}
