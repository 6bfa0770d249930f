package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// BearerToken requires "Authorization: Bearer <token>" when token is
// non-empty. An empty token lets every request through.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				slog.Warn("auth: rejected bearer token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"present", ok,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="metrics"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
