package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"bookfinder/internal/logger"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an id and logs it at the INFO level.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = logger.NewID()
			}
			w.Header().Set(RequestIDHeader, id)
			r = r.WithContext(logger.ContextWithID(r.Context(), id))
			rec := newRecorder(w)

			next.ServeHTTP(rec, r)

			log.WithFields(logrus.Fields{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"query":      r.URL.RawQuery,
				"status":     rec.Status(),
				"bytes":      rec.bytes,
				"remote":     r.RemoteAddr,
				"agent":      r.UserAgent(),
				"took":       time.Since(start),
			}).Info("http.request")
		})
	}
}
