package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit allows requestLimit requests per client IP per window.
// onLimited writes the response for a rejected request; nil keeps the
// httprate default. Retry-After is set before onLimited runs.
func RateLimit(requestLimit int, window time.Duration, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	opts := []httprate.Option{httprate.WithKeyFuncs(keyByClientIP)}
	if onLimited != nil {
		opts = append(opts, httprate.WithLimitHandler(onLimited))
	}
	return httprate.Limit(requestLimit, window, opts...)
}

// keyByClientIP keys on the address TrustedRealIP settled on, without the port.
func keyByClientIP(r *http.Request) (string, error) {
	return clientIP(r), nil
}
