package openlibrary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"bookfinder/internal/config"
	"bookfinder/internal/logger"
	"bookfinder/internal/metrics"
	"bookfinder/internal/query"
)

const (
	endpointSearch = "search"
	endpointWork   = "work"

	maxBodyBytes = 8 << 20
)

var workIDPattern = regexp.MustCompile(`^OL[0-9]+W$`)

// Client talks to the Open Library search and works APIs.
type Client struct {
	cfg     config.OpenLibraryConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// New builds a client. A nil logger uses the logrus standard logger.
func New(cfg config.OpenLibraryConfig, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		client:  newHTTPClient(cfg),
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
	}
}

func newHTTPClient(cfg config.OpenLibraryConfig) *http.Client {
	t := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		MaxIdleConns:       100,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
		ForceAttemptHTTP2:  true,
	}
	return &http.Client{Transport: t, Timeout: cfg.Timeout}
}

// BaseURL is the API root the client talks to.
func (c *Client) BaseURL() string { return strings.TrimRight(c.cfg.BaseURL, "/") }

// CoverURL builds a cover URL on the configured covers host.
func (c *Client) CoverURL(coverID int, size CoverSize) string {
	base := c.cfg.CoversURL
	if base == "" {
		base = DefaultCoversURL
	}
	return coverURL(base, coverID, size)
}

// Search performs exactly one search request.
func (c *Client) Search(ctx context.Context, req query.Request) (*ResultPage, error) {
	body, err := c.get(ctx, endpointSearch, req.URL(c.BaseURL()))
	if err != nil {
		return nil, err
	}
	page, err := decodeSearch(body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpointSearch, metrics.OutcomeParse).Inc()
		return nil, &ParseError{Endpoint: endpointSearch, Err: err}
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpointSearch, metrics.OutcomeOK).Inc()
	return page, nil
}

// NormalizeWorkID accepts "OL45883W", "/works/OL45883W" or "works/OL45883W".
func NormalizeWorkID(id string) (string, error) {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimPrefix(id, "works/")
	id = strings.TrimSuffix(id, ".json")
	if !workIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

// Work fetches one work by id.
func (c *Client) Work(ctx context.Context, id string) (*Work, error) {
	id, err := NormalizeWorkID(id)
	if err != nil {
		return nil, err
	}
	u := c.BaseURL() + "/works/" + url.PathEscape(id) + ".json"
	body, err := c.get(ctx, endpointWork, u)
	if err != nil {
		return nil, err
	}
	w, err := decodeWork(body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpointWork, metrics.OutcomeParse).Inc()
		return nil, &ParseError{Endpoint: endpointWork, Err: err}
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpointWork, metrics.OutcomeOK).Inc()
	return w, nil
}

func (c *Client) get(ctx context.Context, endpoint, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	log := c.entry(ctx)
	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		log.WithFields(logrus.Fields{"endpoint": endpoint, "url": u}).Debug("openlibrary.request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	start := time.Now()
	res, err := c.client.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeStatus).Inc()
		te := &TransportError{Endpoint: endpoint, StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected status %s", res.Status)}
		if res.StatusCode == http.StatusNotFound {
			te.Err = ErrNotFound
		}
		return nil, te
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeTransport).Inc()
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}

	if c.logger.IsLevelEnabled(logrus.DebugLevel) {
		log.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   res.StatusCode,
			"bytes":    len(data),
			"took":     time.Since(start),
		}).Debug("openlibrary.response")
	}
	return data, nil
}

func (c *Client) entry(ctx context.Context) *logrus.Entry {
	e := logrus.NewEntry(c.logger)
	if id := logger.IDFrom(ctx); id != "" {
		e = e.WithField("request_id", id)
	}
	return e
}
