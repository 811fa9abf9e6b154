package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/Tomlord1122/join/internal/session"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessions.Load(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionCtxKey, sess)))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionCtxKey).(*session.Session)
	return sess
}

// requireUser answers 401 on the API and redirects pages to the login.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := sessionFrom(r.Context()); sess == nil || !sess.LoggedIn() {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				respondWithError(w, http.StatusUnauthorized, "Not logged in")
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// saveSession must run before the response body is written.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.sessions.Save(w, r, sess); err != nil {
		s.logger.WithError(err).WithField("session", sess.ID).Error("save session failed")
	}
}
