// Package board implements the drag-and-drop controller of the Kanban board.
// A drop moves the todo in memory, pushes the whole collection and renders
// every column again from memory whatever the store answered.
package board

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/workspace"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseDropped
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseDropped:
		return "dropped"
	case PhaseCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	ErrUnknownTodo = errors.New("unknown todo")
	ErrNotDragging = errors.New("no drag in progress")
)

// Result carries re-rendered columns keyed by state and an optional toast.
type Result struct {
	Columns map[domain.State]template.HTML `json:"columns"`
	Toast   *notify.Toast                  `json:"toast,omitempty"`
	// StoreErr is the failed push of a drop, already turned into Toast.
	StoreErr error `json:"-"`
}

// Controller owns the drag state of one board page. It is not safe for
// concurrent use.
type Controller struct {
	ws       *workspace.Workspace
	repo     repository.TodoRepository
	renderer *render.Renderer
	logger   *logrus.Logger

	phase     Phase
	dragged   string
	origin    domain.State
	highlight domain.State
	query     string
}

func NewController(ws *workspace.Workspace, repo repository.TodoRepository, r *render.Renderer, logger *logrus.Logger) *Controller {
	return &Controller{ws: ws, repo: repo, renderer: r, logger: logger}
}

func (c *Controller) Phase() Phase { return c.phase }

// Dragged is the ID of the todo being dragged, empty when idle.
func (c *Controller) Dragged() string { return c.dragged }

// Highlighted is the column currently under the pointer.
func (c *Controller) Highlighted() domain.State { return c.highlight }

// Query is the active search filter.
func (c *Controller) Query() string { return c.query }

// StartDrag records id as the dragged item and renders its column with the
// dragging visual. A drag that never saw its dragend is replaced.
func (c *Controller) StartDrag(id string) (Result, error) {
	t, ok := c.ws.Todo(id)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTodo, id)
	}
	c.phase = PhaseDragging
	c.dragged = id
	c.origin = t.State
	c.highlight = ""
	return c.columns(t.State)
}

// DragOver highlights column. It has no effect on the data.
func (c *Controller) DragOver(column string) (Result, error) {
	state, err := domain.ParseState(column)
	if err != nil {
		return Result{}, err
	}
	prev := c.highlight
	c.highlight = state
	if prev != "" && prev != state {
		return c.columns(prev, state)
	}
	return c.columns(state)
}

// DragLeave removes the highlight from column.
func (c *Controller) DragLeave(column string) (Result, error) {
	state, err := domain.ParseState(column)
	if err != nil {
		return Result{}, err
	}
	if c.highlight == state {
		c.highlight = ""
	}
	return c.columns(state)
}

// Drop moves the dragged todo to column. The in-memory change is kept even
// if the push fails; the returned columns always reflect memory.
func (c *Controller) Drop(ctx context.Context, column string) (Result, error) {
	if c.phase != PhaseDragging {
		return Result{}, ErrNotDragging
	}
	state, err := domain.ParseState(column)
	if err != nil {
		return Result{}, err
	}
	id := c.dragged
	if !c.ws.SetState(id, state) {
		c.reset(PhaseCancelled)
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTodo, id)
	}
	c.phase = PhaseDropped
	c.dragged = ""
	c.highlight = ""

	var toast notify.Toast
	storeErr := c.repo.ReplaceAll(ctx, c.ws.Namespace(), c.ws.TodoMap())
	if storeErr != nil {
		c.logger.WithError(storeErr).WithFields(logrus.Fields{"todo": id, "state": state}).Error("board push failed")
		toast, _ = notify.FromError(storeErr)
	} else {
		c.logger.WithFields(logrus.Fields{"todo": id, "from": c.origin, "to": state}).Info("todo moved")
		toast = notify.Success("Task moved to " + state.Label())
	}

	res, err := c.columns(domain.States...)
	if err != nil {
		return Result{}, err
	}
	res.Toast = &toast
	res.StoreErr = storeErr
	return res, nil
}

// EndDrag handles dragend. Without a preceding drop the drag is cancelled:
// only the dragging visual is cleared. Returns the final phase of the drag.
func (c *Controller) EndDrag() (Phase, Result, error) {
	outcome := c.phase
	var touched []domain.State
	switch c.phase {
	case PhaseDragging:
		outcome = PhaseCancelled
		touched = append(touched, c.origin)
		if c.highlight != "" && c.highlight != c.origin {
			touched = append(touched, c.highlight)
		}
	case PhaseIdle:
		return PhaseIdle, Result{Columns: map[domain.State]template.HTML{}}, nil
	}
	c.reset(PhaseIdle)
	res, err := c.columns(touched...)
	return outcome, res, err
}

// Move is a drag and drop in one step, for keyboard and touch clients.
func (c *Controller) Move(ctx context.Context, id, column string) (Result, error) {
	if _, err := domain.ParseState(column); err != nil {
		return Result{}, err
	}
	if _, err := c.StartDrag(id); err != nil {
		return Result{}, err
	}
	res, err := c.Drop(ctx, column)
	c.reset(PhaseIdle)
	return res, err
}

// Render sets the search filter and renders all four columns.
func (c *Controller) Render(query string) (Result, error) {
	c.query = query
	return c.columns(domain.States...)
}

// Board renders the whole board section with the current filter.
func (c *Controller) Board() (template.HTML, error) {
	res, err := c.columns(domain.States...)
	if err != nil {
		return "", err
	}
	return c.renderer.Board(res.Columns, c.query)
}

func (c *Controller) reset(p Phase) {
	c.phase = p
	c.dragged = ""
	c.origin = ""
	c.highlight = ""
}

func (c *Controller) columns(states ...domain.State) (Result, error) {
	res := Result{Columns: make(map[domain.State]template.HTML, len(states))}
	for _, st := range states {
		if _, done := res.Columns[st]; done {
			continue
		}
		todos := c.ws.TodosIn(st, c.query)
		cards := make([]template.HTML, 0, len(todos))
		for _, t := range todos {
			card, err := c.renderer.Card(t, c.ws, c.phase == PhaseDragging && t.ID == c.dragged)
			if err != nil {
				return Result{}, err
			}
			cards = append(cards, card)
		}
		col, err := c.renderer.Column(st, cards, st == c.highlight)
		if err != nil {
			return Result{}, err
		}
		res.Columns[st] = col
	}
	return res, nil
}
