package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Tomlord1122/join/internal/config"
	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/logging"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/remote"
	"github.com/Tomlord1122/join/internal/remote/remotetest"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/session"
	"github.com/Tomlord1122/join/internal/validate"
)

type apiFragment struct {
	HTML     string            `json:"html"`
	Detail   string            `json:"detail"`
	Columns  map[string]string `json:"columns"`
	Toast    *notify.Toast     `json:"toast"`
	Warnings validate.Errors   `json:"warnings"`
	Data     json.RawMessage   `json:"data"`
	Error    string            `json:"error"`
}

type testEnv struct {
	srv    *httptest.Server
	store  *remotetest.Recorder
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	logger := logging.Discard()
	store := remotetest.New()
	cfg := config.Config{Port: 8080, CORSOrigins: []string{"http://*"}}
	s := New(cfg, Deps{
		Store:     store,
		Sessions:  session.NewManager(session.NewMemoryStore(time.Hour), time.Hour, false, logger),
		Renderer:  renderer,
		Validator: validate.New(3 * time.Second),
		Logger:    logger,
	})

	srv := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, store: store, client: client}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (e *testEnv) api(t *testing.T, method, path string, body any, wantStatus int) apiFragment {
	t.Helper()
	resp, data := e.do(t, method, path, body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d: %s", method, path, resp.StatusCode, wantStatus, data)
	}
	var f apiFragment
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
	}
	return f
}

func (e *testEnv) loginGuest(t *testing.T) {
	t.Helper()
	e.api(t, http.MethodPost, "/api/auth/guest", nil, http.StatusOK)
}

func (e *testEnv) createTodo(t *testing.T, body map[string]any) domain.Todo {
	t.Helper()
	f := e.api(t, http.MethodPost, "/api/todos", body, http.StatusCreated)
	var todo domain.Todo
	if err := json.Unmarshal(f.Data, &todo); err != nil {
		t.Fatalf("decode todo: %v", err)
	}
	return todo
}

func (e *testEnv) sessionCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	return ""
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, data := e.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"store":"up"`) {
		t.Fatalf("unexpected health %d %s", resp.StatusCode, data)
	}

	e.store.ReadErr = errors.New("unreachable")
	resp, data = e.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(data), `"status":"down"`) {
		t.Fatalf("unexpected health %d %s", resp.StatusCode, data)
	}
}

func TestRequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodGet, "/board", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect to login, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	e.api(t, http.MethodGet, "/api/todos", nil, http.StatusUnauthorized)
	e.api(t, http.MethodGet, "/api/auth/me", nil, http.StatusUnauthorized)

	resp, data := e.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "Guest Log in") {
		t.Fatalf("expected login page, got %d", resp.StatusCode)
	}
}

func TestBoardPageShowsPlaceholders(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)

	resp, data := e.do(t, http.MethodGet, "/board", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	for _, st := range domain.States {
		if !strings.Contains(string(data), "No tasks "+st.Label()) {
			t.Fatalf("missing placeholder for %s", st)
		}
	}

	resp, _ = e.do(t, http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/summary" {
		t.Fatalf("logged-in users should skip the login page, got %d", resp.StatusCode)
	}
}

func TestDragAndDrop(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)
	todo := e.createTodo(t, map[string]any{"title": "Ship", "dueDate": "2026-12-01", "category": "User Story"})
	e.store.Reset()

	start := e.api(t, http.MethodPost, "/api/board/drag", map[string]string{"id": todo.ID}, http.StatusOK)
	if !strings.Contains(start.Columns["todo"], "card dragging") {
		t.Fatalf("dragged card not marked: %s", start.Columns["todo"])
	}
	over := e.api(t, http.MethodPost, "/api/board/dragover", map[string]string{"column": "done"}, http.StatusOK)
	if !strings.Contains(over.Columns["done"], "drag-area-highlight") {
		t.Fatalf("target column not highlighted")
	}

	drop := e.api(t, http.MethodPost, "/api/board/drop", map[string]string{"column": "done"}, http.StatusOK)
	for st, html := range drop.Columns {
		if got := strings.Contains(html, "todo-"+todo.ID); got != (st == "done") {
			t.Fatalf("card in %s = %v", st, got)
		}
	}
	if drop.Toast == nil || drop.Toast.Level != notify.LevelSuccess {
		t.Fatalf("expected success toast, got %+v", drop.Toast)
	}
	if puts := e.store.Writes(remote.ModePut); len(puts) != 1 || puts[0].Path != "guest/todos" {
		t.Fatalf("expected a full collection push, got %+v", puts)
	}

	end := e.api(t, http.MethodPost, "/api/board/dragend", nil, http.StatusOK)
	if !strings.Contains(string(end.Data), "dropped") {
		t.Fatalf("unexpected dragend outcome %s", end.Data)
	}
	e.api(t, http.MethodPost, "/api/board/drop", map[string]string{"column": "done"}, http.StatusConflict)
}

func TestDropFailureKeepsMoveUntilReload(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)
	todo := e.createTodo(t, map[string]any{"title": "Ship", "dueDate": "2026-12-01", "category": "User Story"})
	e.store.WriteErr = errors.New("503")

	f := e.api(t, http.MethodPost, "/api/todos/"+todo.ID+"/move", map[string]string{"column": "feedback"}, http.StatusOK)
	if f.Toast == nil || f.Toast.Message != notify.Generic {
		t.Fatalf("expected generic error toast, got %+v", f.Toast)
	}
	if !strings.Contains(f.Columns["feedback"], "todo-"+todo.ID) {
		t.Fatalf("board must show the optimistic move")
	}

	// A page load re-reads the store, which never saw the move.
	e.store.WriteErr = nil
	resp, data := e.do(t, http.MethodGet, "/board", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "No tasks Await feedback") {
		t.Fatalf("reload should show the stored state")
	}
}

func TestStrictJSONDecoding(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)
	f := e.api(t, http.MethodPost, "/api/board/drop", map[string]string{"col": "done"}, http.StatusBadRequest)
	if !strings.Contains(f.Error, "unknown field") {
		t.Fatalf("unexpected error %q", f.Error)
	}
	f = e.api(t, http.MethodPost, "/api/board/drag", `{"id":`, http.StatusBadRequest)
	if !strings.Contains(f.Error, "badly-formed") {
		t.Fatalf("unexpected error %q", f.Error)
	}
	e.api(t, http.MethodPost, "/api/board/drag", map[string]string{"id": "missing"}, http.StatusNotFound)
	e.api(t, http.MethodPost, "/api/board/dragover", map[string]string{"column": "archive"}, http.StatusBadRequest)
}

func TestToggleSubtaskPatchesEachClick(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)
	todo := e.createTodo(t, map[string]any{
		"title": "Ship", "dueDate": "2026-12-01", "category": "Technical Task",
		"subtasks": map[string]any{"s1": map[string]any{"text": "tests"}},
	})
	detail := e.api(t, http.MethodGet, "/api/todos/"+todo.ID, nil, http.StatusOK)
	if !strings.Contains(detail.HTML, `data-action="toggle-subtask"`) {
		t.Fatalf("detail should offer checkboxes: %s", detail.HTML)
	}
	e.store.Reset()

	first := e.api(t, http.MethodPost, "/api/todos/"+todo.ID+"/subtasks/s1/toggle", nil, http.StatusOK)
	if !strings.Contains(first.Columns["todo"], "1/1 Subtasks") {
		t.Fatalf("card progress not updated: %s", first.Columns["todo"])
	}
	second := e.api(t, http.MethodPost, "/api/todos/"+todo.ID+"/subtasks/s1/toggle", nil, http.StatusOK)
	var st domain.Subtask
	if err := json.Unmarshal(second.Data, &st); err != nil || st.Completed {
		t.Fatalf("expected original state, got %+v (%v)", st, err)
	}
	if patches := e.store.Writes(remote.ModePatch); len(patches) != 2 {
		t.Fatalf("expected two patches, got %+v", patches)
	}
	e.api(t, http.MethodPost, "/api/todos/"+todo.ID+"/subtasks/nope/toggle", nil, http.StatusNotFound)
}

func TestTaskFormFlow(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)

	f := e.api(t, http.MethodPost, "/api/forms/task/open?state=progress", nil, http.StatusOK)
	if !strings.Contains(f.HTML, "prio prio-medium selected") {
		t.Fatalf("medium priority should be preselected")
	}
	f = e.api(t, http.MethodPost, "/api/forms/task/subtasks", map[string]string{"text": "   "}, http.StatusOK)
	if strings.Contains(f.HTML, "data-subtask=") {
		t.Fatalf("blank subtask must not be added")
	}
	f = e.api(t, http.MethodPost, "/api/forms/task/subtasks", map[string]string{"text": "draft"}, http.StatusOK)
	if strings.Count(f.HTML, "data-subtask=") != 1 {
		t.Fatalf("expected one subtask row")
	}
	f = e.api(t, http.MethodPost, "/api/forms/task/priority", map[string]string{"priority": "high"}, http.StatusOK)
	if !strings.Contains(f.HTML, "prio prio-high selected") {
		t.Fatalf("priority not selected")
	}
	e.api(t, http.MethodPost, "/api/forms/task/category", map[string]string{"category": "Chores"}, http.StatusBadRequest)

	invalid := e.api(t, http.MethodPost, "/api/forms/task/submit", map[string]string{"title": "", "description": "", "dueDate": ""}, http.StatusUnprocessableEntity)
	for _, field := range []string{"title", "dueDate", "category"} {
		if _, ok := invalid.Warnings.For(field); !ok {
			t.Fatalf("missing warning for %s: %+v", field, invalid.Warnings)
		}
	}
	if !strings.Contains(invalid.HTML, `data-clear-after="3000"`) {
		t.Fatalf("form should render self-clearing warnings")
	}
	if len(e.store.Writes()) != 0 {
		t.Fatalf("invalid submit must not write")
	}

	e.api(t, http.MethodPost, "/api/forms/task/category", map[string]string{"category": "User Story"}, http.StatusOK)
	done := e.api(t, http.MethodPost, "/api/forms/task/submit", map[string]string{"title": "Plan", "description": "**bold**", "dueDate": "2026-12-01"}, http.StatusCreated)
	var todo domain.Todo
	if err := json.Unmarshal(done.Data, &todo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if todo.State != domain.StateProgress || todo.Priority != domain.PriorityHigh || len(todo.Subtasks) != 1 {
		t.Fatalf("unexpected todo %+v", todo)
	}
	if !strings.Contains(done.Columns["progress"], "todo-"+todo.ID) || done.Toast == nil {
		t.Fatalf("board should show the new task with a toast")
	}
	if strings.Contains(done.HTML, "data-subtask=") || strings.Contains(done.HTML, `value="Plan"`) {
		t.Fatalf("form should be reset after submit")
	}

	edit := e.api(t, http.MethodPost, "/api/forms/task/edit/"+todo.ID, nil, http.StatusOK)
	if !strings.Contains(edit.HTML, `data-mode="edit"`) || !strings.Contains(edit.HTML, `value="Plan"`) {
		t.Fatalf("edit form not loaded: %s", edit.HTML)
	}
	updated := e.api(t, http.MethodPost, "/api/forms/task/submit", map[string]string{"title": "Plan v2", "description": "", "dueDate": "2026-12-02"}, http.StatusOK)
	if !strings.Contains(string(updated.Data), "Plan v2") {
		t.Fatalf("update not applied: %s", updated.Data)
	}
}

func TestContacts(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)

	ada := map[string]string{"name": "Ada Lovelace", "email": "ada@example.com", "phone": "+44 20 1234 5678"}
	created := e.api(t, http.MethodPost, "/api/contacts", ada, http.StatusCreated)
	if !strings.Contains(created.HTML, "contact-row selected") || !strings.Contains(created.Detail, "Ada Lovelace") {
		t.Fatalf("new contact should be selected and shown")
	}
	var c domain.Contact
	if err := json.Unmarshal(created.Data, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	e.store.Reset()

	dup := map[string]string{"name": "Ada King", "email": "ADA@example.com", "phone": "+1 555 0100"}
	f := e.api(t, http.MethodPost, "/api/contacts", dup, http.StatusConflict)
	if f.Toast == nil || f.Toast.Message != "This contact already exists" {
		t.Fatalf("unexpected toast %+v", f.Toast)
	}
	if w := e.store.Writes(); len(w) != 0 {
		t.Fatalf("duplicate must not be written: %+v", w)
	}

	invalid := e.api(t, http.MethodPost, "/api/contacts", map[string]string{"name": "", "email": "x", "phone": "1"}, http.StatusUnprocessableEntity)
	if len(invalid.Warnings) != 3 || invalid.Toast != nil {
		t.Fatalf("expected inline warnings only, got %+v", invalid)
	}

	sel := e.api(t, http.MethodPost, "/api/contacts/"+c.ID+"/select", nil, http.StatusOK)
	if !strings.Contains(sel.Detail, "ada@example.com") {
		t.Fatalf("detail missing")
	}
	e.api(t, http.MethodDelete, "/api/contacts/"+c.ID, nil, http.StatusOK)
	e.api(t, http.MethodPost, "/api/contacts/"+c.ID+"/select", nil, http.StatusNotFound)

	resp, data := e.do(t, http.MethodGet, "/contacts", nil)
	if resp.StatusCode != http.StatusOK || strings.Contains(string(data), "Ada Lovelace") {
		t.Fatalf("deleted contact still listed")
	}
}

func TestSignupLoginLogout(t *testing.T) {
	e := newTestEnv(t)
	signup := map[string]string{"name": "Ada Lovelace", "email": "ada@example.com", "password": "secret1", "confirm": "secret1"}
	e.api(t, http.MethodPost, "/api/auth/signup", signup, http.StatusCreated)
	e.api(t, http.MethodPost, "/api/auth/signup", signup, http.StatusConflict)

	resp, data := e.do(t, http.MethodGet, "/summary", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(string(data), "You Signed Up successfully") || !strings.Contains(string(data), "Ada Lovelace") {
		t.Fatalf("summary should greet the user and drain the toast")
	}
	_, data = e.do(t, http.MethodGet, "/summary", nil)
	if strings.Contains(string(data), "You Signed Up successfully") {
		t.Fatalf("toast shown twice")
	}

	resp, _ = e.do(t, http.MethodPost, "/api/auth/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status %d", resp.StatusCode)
	}
	e.api(t, http.MethodGet, "/api/auth/me", nil, http.StatusUnauthorized)

	bad := e.api(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "wrong12"}, http.StatusUnauthorized)
	if _, ok := bad.Warnings.For("password"); !ok {
		t.Fatalf("expected inline password warning")
	}
	e.api(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ada@example.com", "password": "secret1"}, http.StatusOK)
	e.api(t, http.MethodGet, "/api/auth/me", nil, http.StatusOK)
}

func TestCreateTodoUnknownColumnIsInlineWarning(t *testing.T) {
	e := newTestEnv(t)
	e.loginGuest(t)
	e.store.Reset()

	body := map[string]any{"title": "x", "dueDate": "2030-01-01", "category": "User Story", "state": "bogus"}
	f := e.api(t, http.MethodPost, "/api/todos", body, http.StatusUnprocessableEntity)
	if _, ok := f.Warnings.For("state"); !ok {
		t.Fatalf("expected a state warning, got %+v", f.Warnings)
	}
	if f.Toast != nil {
		t.Fatalf("validation must not toast, got %+v", f.Toast)
	}

	body["state"] = "done"
	body["subtasks"] = map[string]any{"a.b": map[string]any{"text": "x"}}
	f = e.api(t, http.MethodPost, "/api/todos", body, http.StatusUnprocessableEntity)
	if _, ok := f.Warnings.For("subtasks"); !ok {
		t.Fatalf("expected a subtasks warning, got %+v", f.Warnings)
	}
	if w := e.store.Writes(); len(w) != 0 {
		t.Fatalf("rejected todos must not be written: %+v", w)
	}
}

func TestLoginRotatesSessionCookie(t *testing.T) {
	e := newTestEnv(t)
	planted := "11111111-2222-3333-4444-555555555555"
	u, err := url.Parse(e.srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	e.client.Jar.SetCookies(u, []*http.Cookie{{Name: session.CookieName, Value: planted, Path: "/"}})

	e.loginGuest(t)
	first := e.sessionCookie(t)
	if first == "" || first == planted {
		t.Fatalf("login kept the planted session ID %q", first)
	}

	// Another browser presenting the planted value stays anonymous.
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	jar.SetCookies(u, []*http.Cookie{{Name: session.CookieName, Value: planted, Path: "/"}})
	other := &testEnv{srv: e.srv, store: e.store, client: &http.Client{Jar: jar}}
	other.api(t, http.MethodGet, "/api/auth/me", nil, http.StatusUnauthorized)

	e.loginGuest(t)
	if second := e.sessionCookie(t); second == first {
		t.Fatalf("second login kept session ID %q", second)
	}
	e.api(t, http.MethodGet, "/api/auth/me", nil, http.StatusOK)
}
