package middleware

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// RequestObserver is notified of every completed request.
type RequestObserver interface {
	ObserveRequest(path string, code int)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Logging logs each request at debug level, or warn for 4xx/5xx, and reports
// it to obs when non-nil.
func Logging(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)

			entry := log.WithFields(log.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"code":     rec.code,
				"client":   getClientIP(r),
				"duration": time.Since(start),
			})
			if rec.code >= http.StatusBadRequest {
				entry.Warn("Request failed")
			} else {
				entry.Debug("Request handled")
			}
			if obs != nil {
				obs.ObserveRequest(r.URL.Path, rec.code)
			}
		})
	}
}
