// Package workspace holds the per-page snapshot of a user's contacts and
// todos. Renderers and handlers receive the Workspace explicitly instead of
// reading shared globals.
package workspace

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/repository"
)

// Workspace is not safe for concurrent use; callers serialise access.
type Workspace struct {
	user     domain.CurrentUser
	contacts map[string]domain.Contact
	todos    map[string]domain.Todo
	hydrated bool
}

func New(user domain.CurrentUser) *Workspace {
	return &Workspace{
		user:     user,
		contacts: map[string]domain.Contact{},
		todos:    map[string]domain.Todo{},
	}
}

func (w *Workspace) User() domain.CurrentUser { return w.user }

// Namespace is the store path prefix for this user's collections.
func (w *Workspace) Namespace() string { return w.user.Key }

func (w *Workspace) Hydrated() bool { return w.hydrated }

// Hydrate replaces both collections with a fresh copy from the store.
func (w *Workspace) Hydrate(ctx context.Context, contacts repository.ContactRepository, todos repository.TodoRepository) error {
	c, err := contacts.All(ctx, w.Namespace())
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	t, err := todos.All(ctx, w.Namespace())
	if err != nil {
		return fmt.Errorf("load todos: %w", err)
	}
	w.contacts = c
	w.todos = t
	w.hydrated = true
	return nil
}

// Todo returns a copy of the todo with the given ID.
func (w *Workspace) Todo(id string) (domain.Todo, bool) {
	t, ok := w.todos[id]
	if !ok {
		return domain.Todo{}, false
	}
	return t.Clone(), true
}

func (w *Workspace) PutTodo(t domain.Todo) {
	w.todos[t.ID] = t.Clone()
}

func (w *Workspace) RemoveTodo(id string) {
	delete(w.todos, id)
}

// SetState moves a todo to another column in memory.
func (w *Workspace) SetState(id string, state domain.State) bool {
	t, ok := w.todos[id]
	if !ok {
		return false
	}
	t.State = state
	w.todos[id] = t
	return true
}

// Todos returns every todo ordered by creation.
func (w *Workspace) Todos() []domain.Todo {
	out := make([]domain.Todo, 0, len(w.todos))
	for _, t := range w.todos {
		out = append(out, t.Clone())
	}
	domain.SortTodos(out)
	return out
}

// TodosIn returns the todos of one column whose title or description
// contains query (case-insensitive); an empty query matches everything.
func (w *Workspace) TodosIn(state domain.State, query string) []domain.Todo {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []domain.Todo
	for _, t := range w.todos {
		if t.State != state {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		out = append(out, t.Clone())
	}
	domain.SortTodos(out)
	return out
}

// TodoMap returns a copy of the whole collection keyed by ID, ready to push.
func (w *Workspace) TodoMap() map[string]domain.Todo {
	out := make(map[string]domain.Todo, len(w.todos))
	for id, t := range w.todos {
		out[id] = t.Clone()
	}
	return out
}

func (w *Workspace) Contact(id string) (domain.Contact, bool) {
	c, ok := w.contacts[id]
	return c, ok
}

// ContactByName resolves an assignee name; dangling names are not found.
func (w *Workspace) ContactByName(name string) (domain.Contact, bool) {
	for _, c := range w.contacts {
		if c.Name == name {
			return c, true
		}
	}
	return domain.Contact{}, false
}

func (w *Workspace) PutContact(c domain.Contact) {
	w.contacts[c.ID] = c
}

func (w *Workspace) RemoveContact(id string) {
	delete(w.contacts, id)
}

// Contacts returns all contacts sorted by name.
func (w *Workspace) Contacts() []domain.Contact {
	out := make([]domain.Contact, 0, len(w.contacts))
	for _, c := range w.contacts {
		out = append(out, c)
	}
	domain.SortContacts(out)
	return out
}
