// Package session keeps the per-browser state: the logged-in user and the
// toasts waiting for the next render. The browser only holds the ID cookie.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
)

// CookieName carries the session ID.
const CookieName = "join_session"

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID          string              `json:"id"`
	CurrentUser *domain.CurrentUser `json:"currentUser,omitempty"`
	Toasts      []notify.Toast      `json:"toasts,omitempty"`
}

// Push queues a toast for the next render.
func (s *Session) Push(t notify.Toast) {
	s.Toasts = append(s.Toasts, t)
}

// Drain returns and forgets the queued toasts.
func (s *Session) Drain() []notify.Toast {
	out := s.Toasts
	s.Toasts = nil
	return out
}

// LoggedIn reports whether a user is attached.
func (s *Session) LoggedIn() bool { return s.CurrentUser != nil }

type Store interface {
	// Get returns ErrNotFound for unknown or expired IDs.
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

func NewID() string { return uuid.NewString() }

// Manager binds a Store to the session cookie.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	logger *logrus.Logger
}

func NewManager(store Store, ttl time.Duration, secure bool, logger *logrus.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, secure: secure, logger: logger}
}

// Load returns the request's session, or a fresh unsaved one when the cookie
// is missing, malformed or unknown to the store. Unknown IDs are never
// adopted.
func (m *Manager) Load(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return &Session{ID: NewID()}
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return &Session{ID: NewID()}
	}
	s, err := m.store.Get(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.WithError(err).Error("load session failed")
		}
		return &Session{ID: NewID()}
	}
	return s
}

// Save persists s and refreshes the cookie.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, s *Session) error {
	if err := m.store.Save(r.Context(), s); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Renew moves s to a fresh ID and deletes the record under the old one.
// Call it whenever the user behind s changes.
func (m *Manager) Renew(r *http.Request, s *Session) {
	old := s.ID
	s.ID = NewID()
	if err := m.store.Delete(r.Context(), old); err != nil {
		m.logger.WithError(err).Warn("delete replaced session failed")
	}
}

// TTL is how long an idle session lives.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Logout removes the current user but keeps the session for pending toasts.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request, s *Session) error {
	s.CurrentUser = nil
	return m.Save(w, r, s)
}
