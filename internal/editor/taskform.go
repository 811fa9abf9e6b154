package editor

import (
	"errors"
	"fmt"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/validate"
)

const (
	ModeCreate = "create"
	ModeEdit   = "edit"
)

var ErrUnknownCategory = errors.New("unknown category")

// TaskForm is the add/edit task modal: plain fields plus the priority,
// category and assignee pickers and a draft subtask list.
type TaskForm struct {
	Title       string
	Description string
	DueDate     string

	mode      string
	todoID    string
	state     domain.State
	priority  domain.Priority
	category  string
	assignees Selection
	subtasks  *SubtaskEditor
	warnings  validate.Errors
}

// NewTaskForm opens an empty form that will create a todo in state.
func NewTaskForm(state domain.State) *TaskForm {
	f := &TaskForm{}
	f.reset(state)
	return f
}

func (f *TaskForm) reset(state domain.State) {
	if state == "" {
		state = domain.StateTodo
	}
	*f = TaskForm{
		mode:      ModeCreate,
		state:     state,
		priority:  domain.PriorityMedium,
		assignees: NewSelection(),
		subtasks:  NewSubtaskEditor(nil, nil),
	}
}

// Reset clears the form but keeps the target column.
func (f *TaskForm) Reset() { f.reset(f.state) }

// Load switches the form into edit mode for t.
func (f *TaskForm) Load(t domain.Todo, contacts []domain.Contact) {
	f.reset(t.State)
	f.mode = ModeEdit
	f.todoID = t.ID
	f.Title = t.Title
	f.Description = t.Description
	f.DueDate = t.DueDate
	if t.Priority != "" {
		f.priority = t.Priority
	}
	f.category = t.Category
	for _, c := range contacts {
		if _, ok := t.Assigned[c.Name]; ok {
			f.assignees[c.ID] = struct{}{}
		}
	}
	f.subtasks = NewSubtaskEditor(t.Subtasks, nil)
}

func (f *TaskForm) Mode() string { return f.mode }
func (f *TaskForm) TodoID() string { return f.todoID }
func (f *TaskForm) State() domain.State { return f.state }
func (f *TaskForm) Priority() domain.Priority { return f.priority }
func (f *TaskForm) Category() string { return f.category }
func (f *TaskForm) Assignees() Selection { return f.assignees }
func (f *TaskForm) Subtasks() *SubtaskEditor { return f.subtasks }

// SetPriority selects p. Picking the selected priority again keeps it.
func (f *TaskForm) SetPriority(p domain.Priority) {
	f.priority = p
}

func (f *TaskForm) SetCategory(c string) error {
	for _, known := range domain.Categories {
		if known == c {
			f.category = c
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownCategory, c)
}

// ToggleAssignee flips a contact in the assignee selection.
func (f *TaskForm) ToggleAssignee(contactID string) bool {
	return f.assignees.Toggle(contactID)
}

func (f *TaskForm) SetFields(title, description, dueDate string) {
	f.Title = title
	f.Description = description
	f.DueDate = dueDate
}

// SetWarnings stores the last validation result for rendering.
func (f *TaskForm) SetWarnings(w validate.Errors) { f.warnings = w }

// Request converts the form into a create/update request.
func (f *TaskForm) Request() service.TodoRequest {
	return service.TodoRequest{
		Title:       f.Title,
		Description: f.Description,
		DueDate:     f.DueDate,
		Priority:    string(f.priority),
		Category:    f.category,
		State:       string(f.state),
		Assignees:   f.assignees.IDs(),
		Subtasks:    f.subtasks.Subtasks(),
	}
}

// View prepares the template data. contacts is the full contact list.
func (f *TaskForm) View(r *render.Renderer, contacts []domain.Contact) (render.TaskFormView, error) {
	subtasks, err := r.Subtasks(f.subtasks.Rows(false))
	if err != nil {
		return render.TaskFormView{}, err
	}
	view := render.TaskFormView{
		Mode:        f.mode,
		TodoID:      f.todoID,
		Title:       f.Title,
		Description: f.Description,
		DueDate:     f.DueDate,
		Priorities:  render.PriorityOptions(f.priority),
		Categories:  render.CategoryOptions(f.category),
		Subtasks:    subtasks,
		Warnings:    f.warnings,
	}
	for _, c := range contacts {
		view.Contacts = append(view.Contacts, render.TaskFormContact{
			ID:       c.ID,
			Avatar:   render.ContactAvatar(c),
			Selected: f.assignees.Has(c.ID),
		})
	}
	return view, nil
}
