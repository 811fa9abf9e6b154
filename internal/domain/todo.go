package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// State is both a todo attribute and a board column.
type State string

const (
	StateTodo     State = "todo"
	StateProgress State = "progress"
	StateFeedback State = "feedback"
	StateDone     State = "done"
)

// States lists the board columns left to right.
var States = []State{StateTodo, StateProgress, StateFeedback, StateDone}

var stateLabels = map[State]string{
	StateTodo:     "To do",
	StateProgress: "In progress",
	StateFeedback: "Await feedback",
	StateDone:     "Done",
}

// Returned by ParseState and ParsePriority for values outside the enums.
var (
	ErrUnknownState    = errors.New("unknown column")
	ErrUnknownPriority = errors.New("unknown priority")
)

func ParseState(s string) (State, error) {
	st := State(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := stateLabels[st]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownState, s)
	}
	return st, nil
}

// Label is the column heading shown on the board.
func (s State) Label() string {
	if l, ok := stateLabels[s]; ok {
		return l
	}
	return string(s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownPriority, s)
	}
}

// Categories selectable in the task form.
var Categories = []string{"Technical Task", "User Story"}

// DateLayout is the due date format used on the wire and in forms.
const DateLayout = "2006-01-02"

// Subtask is keyed by its ID inside Todo.Subtasks.
type Subtask struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// ContactSnapshot is the copy of a contact stored on a todo at assignment time.
type ContactSnapshot struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Color string `json:"color,omitempty"`
}

type Todo struct {
	ID          string                     `json:"id"`
	Title       string                     `json:"title"`
	Description string                     `json:"description,omitempty"`
	DueDate     string                     `json:"dueDate"`
	Priority    Priority                   `json:"priority"`
	Category    string                     `json:"category"`
	State       State                      `json:"state"`
	Assigned    map[string]ContactSnapshot `json:"assigned,omitempty"`
	Subtasks    map[string]Subtask         `json:"subtasks,omitempty"`
	CreatedAt   int64                      `json:"createdAt,omitempty"`
}

// Due parses DueDate; the zero time is returned for an empty value.
func (t Todo) Due() (time.Time, error) {
	if t.DueDate == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, t.DueDate)
}

// SubtaskIDs returns subtask keys in a stable order.
func (t Todo) SubtaskIDs() []string {
	ids := make([]string, 0, len(t.Subtasks))
	for id := range t.Subtasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Progress reports completed and total subtasks.
func (t Todo) Progress() (done, total int) {
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// AssignedNames returns the assignee names sorted alphabetically.
func (t Todo) AssignedNames() []string {
	names := make([]string, 0, len(t.Assigned))
	for name := range t.Assigned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone deep-copies the maps so callers can mutate the result freely.
func (t Todo) Clone() Todo {
	c := t
	if t.Assigned != nil {
		c.Assigned = make(map[string]ContactSnapshot, len(t.Assigned))
		for k, v := range t.Assigned {
			c.Assigned[k] = v
		}
	}
	if t.Subtasks != nil {
		c.Subtasks = make(map[string]Subtask, len(t.Subtasks))
		for k, v := range t.Subtasks {
			c.Subtasks[k] = v
		}
	}
	return c
}

// NewTodoID derives an identifier from the category initials and the creation time.
func NewTodoID(category string, now time.Time) string {
	return Initials(category) + strconv.FormatInt(now.UnixMilli(), 10)
}

// SortTodos orders todos by creation time, then ID.
func SortTodos(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		if todos[i].CreatedAt != todos[j].CreatedAt {
			return todos[i].CreatedAt < todos[j].CreatedAt
		}
		return todos[i].ID < todos[j].ID
	})
}
