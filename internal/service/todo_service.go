package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/remote"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/validate"
	"github.com/Tomlord1122/join/internal/workspace"
)

var (
	// ErrNotFound is returned when an ID is not part of the workspace.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateContact rejects a contact whose email or phone is taken.
	ErrDuplicateContact = &notify.Conflict{Message: "This contact already exists"}
)

// TodoRequest carries the add/edit task form. Assignees are contact IDs.
type TodoRequest struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	DueDate     string                    `json:"dueDate"`
	Priority    string                    `json:"priority"`
	Category    string                    `json:"category"`
	State       string                    `json:"state,omitempty"`
	Assignees   []string                  `json:"assignees,omitempty"`
	Subtasks    map[string]domain.Subtask `json:"subtasks,omitempty"`
}

// TodoService defines the operations on a user's todos. Every method works
// on the caller's workspace snapshot and the remote store together.
type TodoService interface {
	// CreateTodo validates the form, stores the todo and adds it to ws.
	CreateTodo(ctx context.Context, ws *workspace.Workspace, req TodoRequest) (*domain.Todo, error)

	// UpdateTodo replaces the editable fields of an existing todo.
	UpdateTodo(ctx context.Context, ws *workspace.Workspace, id string, req TodoRequest) (*domain.Todo, error)

	DeleteTodo(ctx context.Context, ws *workspace.Workspace, id string) error

	// SetSubtaskCompleted stores one completion flag with a PATCH.
	SetSubtaskCompleted(ctx context.Context, ws *workspace.Workspace, todoID, subtaskID string, completed bool) error

	Summary(ws *workspace.Workspace) domain.Summary
}

type todoService struct {
	repo      repository.TodoRepository
	validator *validate.Validator
	logger    *logrus.Logger
	now       func() time.Time
}

func NewTodoService(repo repository.TodoRepository, v *validate.Validator, logger *logrus.Logger) TodoService {
	return &todoService{
		repo:      repo,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *todoService) CreateTodo(ctx context.Context, ws *workspace.Workspace, req TodoRequest) (*domain.Todo, error) {
	var warnings validate.Errors
	todo, err := s.build(ws, req)
	if err != nil && !errors.As(err, &warnings) {
		return nil, err
	}

	state := domain.StateTodo
	if req.State != "" {
		parsed, err := domain.ParseState(req.State)
		if err != nil {
			warnings = append(warnings, s.warning("state", "Please choose a board column"))
		} else {
			state = parsed
		}
	}
	if len(warnings) > 0 {
		return nil, warnings
	}

	now := s.now()
	todo.ID = domain.NewTodoID(todo.Category, now)
	for {
		if _, taken := ws.Todo(todo.ID); !taken {
			break
		}
		now = now.Add(time.Millisecond)
		todo.ID = domain.NewTodoID(todo.Category, now)
	}
	todo.State = state
	todo.CreatedAt = now.UnixMilli()

	if err := s.repo.Put(ctx, ws.Namespace(), todo); err != nil {
		s.logger.WithError(err).WithField("todo", todo.ID).Error("create todo failed")
		return nil, fmt.Errorf("create todo: %w", err)
	}
	ws.PutTodo(todo)
	return &todo, nil
}

func (s *todoService) UpdateTodo(ctx context.Context, ws *workspace.Workspace, id string, req TodoRequest) (*domain.Todo, error) {
	existing, ok := ws.Todo(id)
	if !ok {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	todo, err := s.build(ws, req)
	if err != nil {
		return nil, err
	}
	todo.ID = existing.ID
	todo.State = existing.State
	todo.CreatedAt = existing.CreatedAt
	// Snapshots of deleted or renamed contacts cannot be picked in the form
	// and stay on the todo.
	for name, snap := range existing.Assigned {
		if _, ok := ws.ContactByName(name); ok {
			continue
		}
		if todo.Assigned == nil {
			todo.Assigned = map[string]domain.ContactSnapshot{}
		}
		todo.Assigned[name] = snap
	}

	if err := s.repo.Put(ctx, ws.Namespace(), todo); err != nil {
		s.logger.WithError(err).WithField("todo", id).Error("update todo failed")
		return nil, fmt.Errorf("update todo: %w", err)
	}
	ws.PutTodo(todo)
	return &todo, nil
}

func (s *todoService) DeleteTodo(ctx context.Context, ws *workspace.Workspace, id string) error {
	if _, ok := ws.Todo(id); !ok {
		return fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	if err := s.repo.Delete(ctx, ws.Namespace(), id); err != nil {
		s.logger.WithError(err).WithField("todo", id).Error("delete todo failed")
		return fmt.Errorf("delete todo: %w", err)
	}
	ws.RemoveTodo(id)
	return nil
}

func (s *todoService) SetSubtaskCompleted(ctx context.Context, ws *workspace.Workspace, todoID, subtaskID string, completed bool) error {
	todo, ok := ws.Todo(todoID)
	if !ok {
		return fmt.Errorf("todo %s: %w", todoID, ErrNotFound)
	}
	st, ok := todo.Subtasks[subtaskID]
	if !ok {
		return fmt.Errorf("subtask %s of %s: %w", subtaskID, todoID, ErrNotFound)
	}

	// Memory first: the board shows the new progress even if the patch fails.
	st.Completed = completed
	todo.Subtasks[subtaskID] = st
	ws.PutTodo(todo)

	err := s.repo.PatchSubtask(ctx, ws.Namespace(), todoID, subtaskID, map[string]any{"completed": completed})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"todo": todoID, "subtask": subtaskID}).Error("subtask patch failed")
		return fmt.Errorf("update subtask: %w", err)
	}
	return nil
}

func (s *todoService) Summary(ws *workspace.Workspace) domain.Summary {
	return domain.Summarize(ws.Todos(), s.now())
}

// build validates req and maps it onto a todo without identity fields.
func (s *todoService) build(ws *workspace.Workspace, req TodoRequest) (domain.Todo, error) {
	in := validate.TodoInput{
		Title:    req.Title,
		DueDate:  req.DueDate,
		Category: req.Category,
		Priority: strings.ToLower(strings.TrimSpace(req.Priority)),
	}
	var warnings validate.Errors
	if err := s.validator.Todo(in); err != nil && !errors.As(err, &warnings) {
		return domain.Todo{}, err
	}
	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		if _, reported := warnings.For("priority"); !reported {
			warnings = append(warnings, s.warning("priority", "Please choose one of: low, medium, high"))
		}
	}
	for id, st := range req.Subtasks {
		if id == "" || strings.TrimSpace(st.Text) == "" {
			continue
		}
		if segs, err := remote.Segments(id); err != nil || len(segs) != 1 || segs[0] != id {
			warnings = append(warnings, s.warning("subtasks", "Subtask IDs must not contain . # $ [ ] or /"))
			break
		}
	}
	if len(warnings) > 0 {
		return domain.Todo{}, warnings
	}

	todo := domain.Todo{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		DueDate:     strings.TrimSpace(req.DueDate),
		Priority:    priority,
		Category:    strings.TrimSpace(req.Category),
	}
	for _, id := range req.Assignees {
		c, ok := ws.Contact(id)
		if !ok {
			s.logger.WithField("contact", id).Debug("ignoring unknown assignee")
			continue
		}
		if todo.Assigned == nil {
			todo.Assigned = map[string]domain.ContactSnapshot{}
		}
		todo.Assigned[c.Name] = c.Snapshot()
	}
	for id, st := range req.Subtasks {
		st.Text = strings.TrimSpace(st.Text)
		if st.Text == "" || id == "" {
			continue
		}
		if todo.Subtasks == nil {
			todo.Subtasks = map[string]domain.Subtask{}
		}
		todo.Subtasks[id] = st
	}
	return todo, nil
}

func (s *todoService) warning(field, msg string) validate.Warning {
	return validate.Warning{Field: field, Message: msg, ClearAfterMs: s.validator.ClearAfter().Milliseconds()}
}
