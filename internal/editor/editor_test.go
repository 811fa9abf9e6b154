package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/logging"
	"github.com/Tomlord1122/join/internal/remote"
	"github.com/Tomlord1122/join/internal/remote/remotetest"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/validate"
	"github.com/Tomlord1122/join/internal/workspace"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("st%d", n)
	}
}

func TestSubtaskAdd(t *testing.T) {
	e := NewSubtaskEditor(nil, nil)
	e.newID = sequentialIDs()

	for _, blank := range []string{"", "   ", "\t\n"} {
		if _, ok := e.Add(blank); ok {
			t.Fatalf("blank %q must not add", blank)
		}
	}
	if e.Len() != 0 {
		t.Fatalf("expected no subtasks, got %d", e.Len())
	}

	id, ok := e.Add("  write tests ")
	if !ok || e.Len() != 1 {
		t.Fatalf("expected exactly one subtask, got %d", e.Len())
	}
	st, _ := e.Get(id)
	if st.Text != "write tests" || st.Completed {
		t.Fatalf("unexpected subtask %+v", st)
	}
}

func TestSubtaskAddSkipsTakenIDs(t *testing.T) {
	e := NewSubtaskEditor(map[string]domain.Subtask{"st1": {Text: "existing"}}, nil)
	e.newID = sequentialIDs()

	id, _ := e.Add("new")
	if id != "st2" || e.Len() != 2 {
		t.Fatalf("expected st2 and two rows, got %q and %d", id, e.Len())
	}
}

func TestSubtaskAccept(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantDeleted bool
		wantText    string
	}{
		{"non-empty updates text", " renamed ", false, "renamed"},
		{"empty deletes", "", true, ""},
		{"whitespace deletes", "   ", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewSubtaskEditor(map[string]domain.Subtask{"s1": {Text: "orig", Completed: true}}, nil)
			if err := e.BeginEdit("s1"); err != nil {
				t.Fatalf("BeginEdit: %v", err)
			}
			if !e.Editing("s1") {
				t.Fatalf("row should be editing")
			}

			deleted, err := e.Accept("s1", tt.text)
			if err != nil {
				t.Fatalf("Accept: %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Fatalf("deleted = %v, want %v", deleted, tt.wantDeleted)
			}
			st, ok := e.Get("s1")
			if tt.wantDeleted {
				if ok || e.Len() != 0 {
					t.Fatalf("subtask should be gone")
				}
				return
			}
			if st.Text != tt.wantText || !st.Completed {
				t.Fatalf("expected text %q with completion kept, got %+v", tt.wantText, st)
			}
			if e.Editing("s1") {
				t.Fatalf("row should be back in display mode")
			}
		})
	}
}

func TestSubtaskUnknownID(t *testing.T) {
	e := NewSubtaskEditor(nil, nil)
	if err := e.BeginEdit("x"); !errors.Is(err, ErrUnknownSubtask) {
		t.Fatalf("BeginEdit: %v", err)
	}
	if _, err := e.Accept("x", "t"); !errors.Is(err, ErrUnknownSubtask) {
		t.Fatalf("Accept: %v", err)
	}
	if err := e.Delete("x"); !errors.Is(err, ErrUnknownSubtask) {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.Toggle(context.Background(), "x"); !errors.Is(err, ErrUnknownSubtask) {
		t.Fatalf("Toggle: %v", err)
	}
	if e.Subtasks() != nil {
		t.Fatalf("empty editor should report nil subtasks")
	}
}

func TestSubtaskDeleteWhileEditing(t *testing.T) {
	e := NewSubtaskEditor(map[string]domain.Subtask{"a": {Text: "1"}, "b": {Text: "2"}}, nil)
	_ = e.BeginEdit("a")
	if err := e.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rows := e.Rows(false)
	if len(rows) != 1 || rows[0].ID != "b" || rows[0].Editing {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestSubtaskToggleTwiceThroughService(t *testing.T) {
	ctx := context.Background()
	store := remotetest.New()
	todos := repository.NewTodoRepository(store)
	svc := service.NewTodoService(todos, validate.New(time.Second), logging.Discard())
	ws := workspace.New(domain.CurrentUser{Key: domain.GuestKey})

	todo := domain.Todo{ID: "TT1", Title: "x", State: domain.StateProgress, Subtasks: map[string]domain.Subtask{"s1": {Text: "a"}}}
	ws.PutTodo(todo)
	if err := todos.Put(ctx, ws.Namespace(), todo); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.Reset()

	e := NewSubtaskEditor(todo.Subtasks, func(ctx context.Context, id string, st domain.Subtask) error {
		return svc.SetSubtaskCompleted(ctx, ws, todo.ID, id, st.Completed)
	})
	for i := 0; i < 2; i++ {
		if _, err := e.Toggle(ctx, "s1"); err != nil {
			t.Fatalf("Toggle %d: %v", i, err)
		}
	}

	if patches := store.Writes(remote.ModePatch); len(patches) != 2 {
		t.Fatalf("expected two patches, got %+v", patches)
	}
	st, _ := e.Get("s1")
	if st != todo.Subtasks["s1"] {
		t.Fatalf("expected original subtask, got %+v", st)
	}
	stored, _ := todos.All(ctx, ws.Namespace())
	if stored["TT1"].Subtasks["s1"].Completed {
		t.Fatalf("remote should hold the original flag")
	}
}

func TestSubtaskToggleFailureKeepsFlip(t *testing.T) {
	boom := errors.New("offline")
	e := NewSubtaskEditor(map[string]domain.Subtask{"s1": {Text: "a"}}, func(context.Context, string, domain.Subtask) error {
		return boom
	})
	st, err := e.Toggle(context.Background(), "s1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if !st.Completed {
		t.Fatalf("flip must not be rolled back")
	}
	if got, _ := e.Get("s1"); !got.Completed {
		t.Fatalf("stored flag must stay flipped")
	}
}

func TestSelection(t *testing.T) {
	s := NewSelection("b")
	if !s.Toggle("a") || s.Toggle("b") {
		t.Fatalf("unexpected toggle results")
	}
	if got := strings.Join(s.IDs(), ","); got != "a" {
		t.Fatalf("IDs = %q", got)
	}
	s.Only("c")
	if s.Has("a") || !s.Has("c") || len(s) != 1 {
		t.Fatalf("Only should leave c alone, got %v", s.IDs())
	}
	s.Only("")
	if len(s) != 0 {
		t.Fatalf("Only(\"\") should clear")
	}
	s.Toggle("x")
	s.Clear()
	if s.Has("x") {
		t.Fatalf("Clear should empty the set")
	}
}

func TestTaskFormDefaultsAndRequest(t *testing.T) {
	f := NewTaskForm(domain.StateFeedback)
	if f.Mode() != ModeCreate || f.Priority() != domain.PriorityMedium || f.State() != domain.StateFeedback {
		t.Fatalf("unexpected defaults: %s %s %s", f.Mode(), f.Priority(), f.State())
	}

	f.SetPriority(domain.PriorityHigh)
	f.SetPriority(domain.PriorityHigh)
	if f.Priority() != domain.PriorityHigh {
		t.Fatalf("choosing the selected priority again must keep it")
	}
	if err := f.SetCategory("Chores"); err == nil {
		t.Fatalf("expected unknown category error")
	}
	if err := f.SetCategory("User Story"); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	f.ToggleAssignee("c2")
	f.ToggleAssignee("c1")
	f.ToggleAssignee("c3")
	f.ToggleAssignee("c3")
	f.SetFields("Title", "Desc", "2026-05-01")
	f.Subtasks().Add("one")

	req := f.Request()
	if req.Title != "Title" || req.Priority != "high" || req.Category != "User Story" || req.State != "feedback" {
		t.Fatalf("unexpected request %+v", req)
	}
	if strings.Join(req.Assignees, ",") != "c1,c2" {
		t.Fatalf("unexpected assignees %v", req.Assignees)
	}
	if len(req.Subtasks) != 1 {
		t.Fatalf("unexpected subtasks %v", req.Subtasks)
	}

	f.Reset()
	if f.Title != "" || f.Subtasks().Len() != 0 || len(f.Assignees()) != 0 || f.State() != domain.StateFeedback {
		t.Fatalf("Reset should clear fields but keep the column")
	}
}

func TestTaskFormLoadAndView(t *testing.T) {
	contacts := []domain.Contact{
		{ID: "c1", Name: "Ada Lovelace", Color: "#FF7A00"},
		{ID: "c2", Name: "Grace Hopper", Color: "#6E52FF"},
	}
	todo := domain.Todo{
		ID:       "US1",
		Title:    "Edit me",
		DueDate:  "2026-05-01",
		Priority: domain.PriorityLow,
		Category: "User Story",
		State:    domain.StateProgress,
		Assigned: map[string]domain.ContactSnapshot{"Grace Hopper": {Name: "Grace Hopper"}, "Gone": {Name: "Gone"}},
		Subtasks: map[string]domain.Subtask{"s1": {Text: "keep", Completed: true}},
	}

	f := NewTaskForm("")
	f.Load(todo, contacts)
	if f.Mode() != ModeEdit || f.TodoID() != "US1" || f.State() != domain.StateProgress {
		t.Fatalf("unexpected edit state")
	}
	if !f.Assignees().Has("c2") || f.Assignees().Has("c1") || len(f.Assignees()) != 1 {
		t.Fatalf("unexpected assignees %v", f.Assignees().IDs())
	}

	f.SetWarnings(validate.Errors{{Field: "title", Message: "This field is required"}})
	r, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	view, err := f.View(r, contacts)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Mode != ModeEdit || len(view.Contacts) != 2 || view.Contacts[0].Selected || !view.Contacts[1].Selected {
		t.Fatalf("unexpected view %+v", view)
	}
	if !strings.Contains(string(view.Subtasks), "keep") {
		t.Fatalf("subtasks not rendered: %s", view.Subtasks)
	}
	if _, ok := view.Warnings.For("title"); !ok {
		t.Fatalf("warnings not passed through")
	}

	req := f.Request()
	if !req.Subtasks["s1"].Completed {
		t.Fatalf("loaded subtask completion lost")
	}
}
