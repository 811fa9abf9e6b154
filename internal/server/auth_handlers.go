package server

import (
	"net/http"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/validate"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.auth.Signup(r.Context(), validate.SignupInput(req))
	if err != nil {
		s.respondWithServiceError(w, err, "signup")
		return
	}
	s.logIn(w, r, user, "You Signed Up successfully", http.StatusCreated)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondWithServiceError(w, err, "login")
		return
	}
	s.logIn(w, r, user, "", http.StatusOK)
}

func (s *Server) guestHandler(w http.ResponseWriter, r *http.Request) {
	s.logIn(w, r, s.auth.Guest(), "", http.StatusOK)
}

// logIn attaches user to the session. A pending toast is shown on the next
// page render.
func (s *Server) logIn(w http.ResponseWriter, r *http.Request, user domain.CurrentUser, toast string, code int) {
	sess := sessionFrom(r.Context())
	s.pages.drop(sess.ID)
	s.sessions.Renew(r, sess)
	sess.CurrentUser = &user
	if toast != "" {
		sess.Push(notify.Success(toast))
	}
	s.saveSession(w, r, sess)
	s.logger.WithField("user", user.Key).Info("logged in")
	respondWithJSON(w, code, user)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.pages.drop(sess.ID)
	if err := s.sessions.Logout(w, r, sess); err != nil {
		s.logger.WithError(err).Error("logout failed")
		respondWithError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.LoggedIn() {
		respondWithError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	respondWithJSON(w, http.StatusOK, sess.CurrentUser)
}
