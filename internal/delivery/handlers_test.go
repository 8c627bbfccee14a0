package delivery

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookfinder/internal/config"
	"bookfinder/internal/openlibrary"
	"bookfinder/internal/search"
)

func newTestServer(t *testing.T, upstream http.HandlerFunc) *httptest.Server {
	t.Helper()
	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	cfg := config.Default().OpenLibrary
	cfg.BaseURL = up.URL
	cfg.RatePerSecond = 0

	log := logrus.New()
	log.SetOutput(io.Discard)

	s := &Server{
		Log:      log,
		Service:  search.NewService(openlibrary.New(cfg, log), 15),
		Debounce: 50 * time.Millisecond,
		Metrics:  true,
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return res
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	var body map[string]any
	res := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestIndexServesPage(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	res, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	page, _ := io.ReadAll(res.Body)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.True(t, bytes.Contains(page, []byte(`new WebSocket`)))
}

func TestUnknownPathIs404(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	res, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestFields(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	var body struct {
		Fields []struct {
			Field string `json:"field"`
			Label string `json:"label"`
		} `json:"fields"`
	}
	getJSON(t, ts.URL+"/api/fields", &body)
	require.Len(t, body.Fields, 8)
	assert.Equal(t, "q", body.Fields[0].Field)
}

func TestSearchEndpoint(t *testing.T) {
	var gotQuery string
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"numFound":16,"docs":[{"key":"/works/OL1W","title":"Dune","author_name":["Frank Herbert"]}]}`))
	})

	var body struct {
		Page    int              `json:"page"`
		Total   *int             `json:"total"`
		HasMore bool             `json:"hasMore"`
		Books   []search.BookDTO `json:"books"`
	}
	res := getJSON(t, ts.URL+"/api/search?title=Dune&language=eng&page=2", &body)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "title=Dune&page=2&limit=15", gotQuery, "language is not forwarded")
	assert.Equal(t, 2, body.Page)
	require.NotNil(t, body.Total)
	assert.Equal(t, 16, *body.Total)
	assert.False(t, body.HasMore)
	require.Len(t, body.Books, 1)
	assert.Equal(t, "Frank Herbert", body.Books[0].FullAuthors)
}

func TestSearchEndpointParsesInput(t *testing.T) {
	var gotQuery string
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
	})
	res := getJSON(t, ts.URL+"/api/search?input=author%3AHerbert", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "author=Herbert&page=1&limit=15", gotQuery)
}

func TestSearchEndpointBadRequests(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {
		t.Error("upstream must not be called")
	})
	for _, q := range []string{"", "?page=1", "?title=x&page=0", "?title=x&page=abc", "?colour=red"} {
		var env ErrorEnvelope
		res := getJSON(t, ts.URL+"/api/search"+q, &env)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, q)
		assert.Equal(t, CodeBadRequest, env.Error.Code, q)
	}
}

func TestSearchEndpointUpstreamFailure(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	var env ErrorEnvelope
	res := getJSON(t, ts.URL+"/api/search?q=go", &env)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, CodeUpstream, env.Error.Code)
	assert.Contains(t, env.Error.Details, "HTTP 503")
}

func TestSearchEndpointParseFailure(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"docs":"nope"}`))
	})
	var env ErrorEnvelope
	res := getJSON(t, ts.URL+"/api/search?q=go", &env)
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "open library returned an unexpected response", env.Error.Message)
}

func TestWorkEndpoint(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/works/OL45883W.json":
			_, _ = w.Write([]byte(`{"key":"/works/OL45883W","title":"The Hobbit","covers":[14625765],
				"description":{"type":"/type/text","value":"In a hole in the ground"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	var view struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		CoverURL    string `json:"coverUrl"`
	}
	res := getJSON(t, ts.URL+"/api/works/OL45883W", &view)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "OL45883W", view.ID)
	assert.Equal(t, "The Hobbit", view.Title)
	assert.Equal(t, "In a hole in the ground", view.Description)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/14625765-L.jpg", view.CoverURL)

	var env ErrorEnvelope
	res = getJSON(t, ts.URL+"/api/works/OL1W", &env)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, CodeNotFound, env.Error.Code)

	res = getJSON(t, ts.URL+"/api/works/banana", &env)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	getJSON(t, ts.URL+"/health", nil)

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	assert.Contains(t, string(body), `bookfinder_gateway_requests_total{method="GET",path="GET /health",status="200"}`)
}

func TestCORSPreflightOnAPI(t *testing.T) {
	ts := newTestServer(t, func(http.ResponseWriter, *http.Request) {})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/search", nil)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}
