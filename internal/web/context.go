package web

import (
	"net/http"

	"github.com/JonMunkholm/mobility/internal/session"
)

// session returns the caller's session, starting one and setting the cookie
// when the request carries no live session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(s.cfg.Session.CookieName); err == nil {
		id = c.Value
	}

	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     s.cfg.Session.CookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}
