package server

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/Tomlord1122/join/internal/board"
	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/editor"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/session"
	"github.com/Tomlord1122/join/internal/workspace"
)

// pageState is everything one browser session has open: the hydrated
// workspace plus the controllers living on top of it.
type pageState struct {
	mu       sync.Mutex
	userKey  string
	ws       *workspace.Workspace
	board    *board.Controller
	form     *editor.TaskForm
	selected editor.Selection
	details  map[string]*editor.SubtaskEditor

	// lastSeen is guarded by the registry's mutex.
	lastSeen time.Time
}

// sweepEvery bounds how often acquire scans for idle pages.
const sweepEvery = time.Minute

// pageRegistry holds the page state of every active session. Pages idle for
// longer than ttl are evicted, matching the lifetime of the session record.
type pageRegistry struct {
	mu        sync.Mutex
	pages     map[string]*pageState
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func newPageRegistry(ttl time.Duration) *pageRegistry {
	return &pageRegistry{pages: map[string]*pageState{}, ttl: ttl, now: time.Now}
}

// acquire returns the locked page state of a session, building a new one
// when none exists or another user logged in meanwhile.
func (r *pageRegistry) acquire(sessionID string, user domain.CurrentUser, build func() *pageState) *pageState {
	r.mu.Lock()
	now := r.now()
	r.sweep(now)
	p, ok := r.pages[sessionID]
	if !ok || p.userKey != user.Key {
		p = build()
		r.pages[sessionID] = p
	}
	p.lastSeen = now
	r.mu.Unlock()
	p.mu.Lock()
	return p
}

// sweep drops idle pages. r.mu must be held.
func (r *pageRegistry) sweep(now time.Time) {
	if r.ttl <= 0 || now.Sub(r.lastSweep) < sweepEvery {
		return
	}
	r.lastSweep = now
	for id, p := range r.pages {
		if now.Sub(p.lastSeen) > r.ttl {
			delete(r.pages, id)
		}
	}
}

func (r *pageRegistry) drop(sessionID string) {
	r.mu.Lock()
	delete(r.pages, sessionID)
	r.mu.Unlock()
}

func (r *pageRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}

func (s *Server) newPage(user domain.CurrentUser) *pageState {
	p := &pageState{userKey: user.Key, ws: workspace.New(user)}
	s.mount(p)
	return p
}

// mount resets the controllers, as on a fresh page load.
func (s *Server) mount(p *pageState) {
	p.board = board.NewController(p.ws, s.todos, s.renderer, s.logger)
	p.form = editor.NewTaskForm(domain.StateTodo)
	p.selected = editor.NewSelection()
	p.details = map[string]*editor.SubtaskEditor{}
}

// openDetail creates the subtask editor of a todo's detail modal. Its
// toggles are stored with a PATCH per click.
func (s *Server) openDetail(p *pageState, todo domain.Todo) *editor.SubtaskEditor {
	ws, id := p.ws, todo.ID
	e := editor.NewSubtaskEditor(todo.Subtasks, func(ctx context.Context, subtaskID string, st domain.Subtask) error {
		return s.todoService.SetSubtaskCompleted(ctx, ws, id, subtaskID, st.Completed)
	})
	p.details[id] = e
	return e
}

// withPage runs fn with the session's locked page state. load marks a page
// load: the controllers are remounted and the workspace re-read. API calls
// only hydrate a workspace that was never loaded.
func (s *Server) withPage(w http.ResponseWriter, r *http.Request, load bool, fn func(p *pageState, sess *session.Session)) {
	sess := sessionFrom(r.Context())
	p := s.pages.acquire(sess.ID, *sess.CurrentUser, func() *pageState { return s.newPage(*sess.CurrentUser) })
	defer p.mu.Unlock()

	if load {
		s.mount(p)
	}
	if load || !p.ws.Hydrated() {
		if err := p.ws.Hydrate(r.Context(), s.contacts, s.todos); err != nil {
			s.logger.WithError(err).WithField("user", p.userKey).Error("hydrate workspace failed")
			toast, _ := notify.FromError(err)
			if !load {
				respondWithJSON(w, http.StatusBadGateway, fragment{Toast: &toast})
				return
			}
			sess.Push(toast)
		}
	}
	fn(p, sess)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sess *session.Session, title, active string, body template.HTML) {
	toasts := sess.Drain()
	if len(toasts) > 0 {
		s.saveSession(w, r, sess)
	}
	html, err := s.renderer.Page(render.PageData{
		Title:    title,
		Active:   active,
		UserName: sess.CurrentUser.Name,
		Body:     body,
		Toasts:   toasts,
	})
	if err != nil {
		s.renderFailed(w, err)
		return
	}
	respondWithHTML(w, http.StatusOK, html)
}

func (s *Server) renderFailed(w http.ResponseWriter, err error) {
	s.logger.WithError(err).Error("render failed")
	respondWithError(w, http.StatusInternalServerError, "Failed to render page")
}

func (s *Server) summaryPageHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, true, func(p *pageState, sess *session.Session) {
		body, err := s.renderer.Summary(s.todoService.Summary(p.ws), sess.CurrentUser.Name)
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		s.renderPage(w, r, sess, "Summary", "summary", body)
	})
}

func (s *Server) boardPageHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, true, func(p *pageState, sess *session.Session) {
		if _, err := p.board.Render(r.URL.Query().Get("q")); err != nil {
			s.renderFailed(w, err)
			return
		}
		body, err := p.board.Board()
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		s.renderPage(w, r, sess, "Board", "board", body)
	})
}

func (s *Server) contactsPageHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, true, func(p *pageState, sess *session.Session) {
		list, detail, err := s.contactPanels(p)
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		body, err := s.renderer.ContactsPage(list, detail)
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		s.renderPage(w, r, sess, "Contacts", "contacts", body)
	})
}

// loginPageHandler shows the login or sign-up page, or sends logged-in
// users to the summary.
func (s *Server) loginPageHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess.LoggedIn() {
		http.Redirect(w, r, "/summary", http.StatusSeeOther)
		return
	}
	toasts := sess.Drain()
	if len(toasts) > 0 {
		s.saveSession(w, r, sess)
	}
	html, err := s.renderer.Login(render.LoginView{Mode: r.URL.Query().Get("mode"), Toasts: toasts})
	if err != nil {
		s.renderFailed(w, err)
		return
	}
	respondWithHTML(w, http.StatusOK, html)
}
