// Package editor holds the small state machines behind the task modals:
// inline subtask editing, selection sets and the add/edit task form.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/render"
)

// ErrUnknownSubtask is returned for IDs not present in the editor.
var ErrUnknownSubtask = errors.New("unknown subtask")

// CommitFunc persists a completion change. Drafts have none.
type CommitFunc func(ctx context.Context, id string, st domain.Subtask) error

var subtaskSeq atomic.Uint64

// NewSubtaskID returns an identifier unique within the process.
func NewSubtaskID() string {
	return fmt.Sprintf("st%d%03d", time.Now().UnixMilli(), subtaskSeq.Add(1)%1000)
}

// SubtaskEditor manages subtask rows that switch between display and editing.
// There is no undo.
type SubtaskEditor struct {
	subtasks map[string]domain.Subtask
	order    []string
	editing  map[string]bool
	commit   CommitFunc
	newID    func() string
}

// NewSubtaskEditor starts with a copy of initial. commit may be nil.
func NewSubtaskEditor(initial map[string]domain.Subtask, commit CommitFunc) *SubtaskEditor {
	e := &SubtaskEditor{
		subtasks: make(map[string]domain.Subtask, len(initial)),
		editing:  map[string]bool{},
		commit:   commit,
		newID:    NewSubtaskID,
	}
	for id, st := range initial {
		e.subtasks[id] = st
		e.order = append(e.order, id)
	}
	sort.Strings(e.order)
	return e
}

func (e *SubtaskEditor) Len() int { return len(e.subtasks) }

// Add appends a subtask. Blank text is ignored and reports false.
func (e *SubtaskEditor) Add(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	id := e.newID()
	for _, exists := e.subtasks[id]; exists; _, exists = e.subtasks[id] {
		id = e.newID()
	}
	e.subtasks[id] = domain.Subtask{Text: text}
	e.order = append(e.order, id)
	return id, true
}

// BeginEdit swaps the row into editing mode.
func (e *SubtaskEditor) BeginEdit(id string) error {
	if _, ok := e.subtasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubtask, id)
	}
	e.editing[id] = true
	return nil
}

// Editing reports whether the row is in editing mode.
func (e *SubtaskEditor) Editing(id string) bool { return e.editing[id] }

// Accept commits the edited text and returns the row to display mode. Blank
// text deletes the subtask; deleted reports that case.
func (e *SubtaskEditor) Accept(id, text string) (deleted bool, err error) {
	st, ok := e.subtasks[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSubtask, id)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		e.remove(id)
		return true, nil
	}
	st.Text = text
	e.subtasks[id] = st
	delete(e.editing, id)
	return false, nil
}

// Delete removes the subtask whatever mode its row is in.
func (e *SubtaskEditor) Delete(id string) error {
	if _, ok := e.subtasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubtask, id)
	}
	e.remove(id)
	return nil
}

func (e *SubtaskEditor) remove(id string) {
	delete(e.subtasks, id)
	delete(e.editing, id)
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Toggle flips the completion flag and hands the result to the commit hook.
// The local flag stays flipped even when the commit fails.
func (e *SubtaskEditor) Toggle(ctx context.Context, id string) (domain.Subtask, error) {
	st, ok := e.subtasks[id]
	if !ok {
		return domain.Subtask{}, fmt.Errorf("%w: %s", ErrUnknownSubtask, id)
	}
	st.Completed = !st.Completed
	e.subtasks[id] = st
	if e.commit != nil {
		if err := e.commit(ctx, id, st); err != nil {
			return st, err
		}
	}
	return st, nil
}

// Get returns one subtask.
func (e *SubtaskEditor) Get(id string) (domain.Subtask, bool) {
	st, ok := e.subtasks[id]
	return st, ok
}

// Subtasks returns a copy of the current map, nil when empty.
func (e *SubtaskEditor) Subtasks() map[string]domain.Subtask {
	if len(e.subtasks) == 0 {
		return nil
	}
	out := make(map[string]domain.Subtask, len(e.subtasks))
	for id, st := range e.subtasks {
		out[id] = st
	}
	return out
}

// Rows lists the rows in insertion order, ready for render.Subtasks.
func (e *SubtaskEditor) Rows(toggle bool) []render.SubtaskRow {
	rows := make([]render.SubtaskRow, 0, len(e.order))
	for _, id := range e.order {
		st := e.subtasks[id]
		rows = append(rows, render.SubtaskRow{
			ID:        id,
			Text:      st.Text,
			Completed: st.Completed,
			Editing:   e.editing[id],
			Toggle:    toggle,
		})
	}
	return rows
}
