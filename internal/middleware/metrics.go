package middleware

import (
	"net/http"
	"strconv"
	"time"

	"bookfinder/internal/metrics"
)

// Metrics records request counts and latency. label maps a request to a
// low-cardinality route name.
func Metrics(label func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newRecorder(w)

			next.ServeHTTP(rec, r)

			path := label(r)
			metrics.HttpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.Status())).Inc()
			metrics.HttpRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		})
	}
}
