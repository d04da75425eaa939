package middleware

import (
	"net/http"
	"time"

	"fraternitybase/registry/internal/logging"
)

// Logging writes one line per request. Bodies and query strings are never
// logged; roster uploads and exports carry member data.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lw, r)

		logging.Info("HTTP request completed",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"endpoint", routePattern(r),
			"status_code", lw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
