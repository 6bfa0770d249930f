package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/mobility/internal/metrics"
)

// Metrics records request count and latency per chi route pattern.
// A nil recorder disables it.
func Metrics(rec *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapResponseWriter(w)
			next.ServeHTTP(ww, r)
			rec.ObserveHTTPRequest(r.Method, routePattern(r), ww.status, time.Since(start))
		})
	}
}
