package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/editor"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/session"
	"github.com/Tomlord1122/join/internal/validate"
)

type fieldsRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
}

type priorityRequest struct {
	Priority string `json:"priority"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

type textRequest struct {
	Text string `json:"text"`
}

// respondWithForm renders the task form of p with the given status.
func (s *Server) respondWithForm(w http.ResponseWriter, p *pageState, code int, f fragment) {
	view, err := p.form.View(s.renderer, p.ws.Contacts())
	if err != nil {
		s.renderFailed(w, err)
		return
	}
	html, err := s.renderer.TaskForm(view)
	if err != nil {
		s.renderFailed(w, err)
		return
	}
	f.HTML = html
	respondWithJSON(w, code, f)
}

// formAction runs a task form mutation and answers with the new form.
func (s *Server) formAction(w http.ResponseWriter, r *http.Request, op string, fn func(p *pageState) error) {
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		if err := fn(p); err != nil {
			s.respondWithServiceError(w, err, op)
			return
		}
		s.respondWithForm(w, p, http.StatusOK, fragment{})
	})
}

// openTaskFormHandler opens an empty form; ?state= picks the target column.
func (s *Server) openTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	s.formAction(w, r, "open task form", func(p *pageState) error {
		state := domain.StateTodo
		if q := r.URL.Query().Get("state"); q != "" {
			var err error
			if state, err = domain.ParseState(q); err != nil {
				return err
			}
		}
		p.form = editor.NewTaskForm(state)
		return nil
	})
}

func (s *Server) editTaskFormHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.formAction(w, r, "edit task form", func(p *pageState) error {
		todo, ok := p.ws.Todo(id)
		if !ok {
			return fmt.Errorf("todo %s: %w", id, service.ErrNotFound)
		}
		p.form.Load(todo, p.ws.Contacts())
		return nil
	})
}

func (s *Server) taskFormFieldsHandler(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.formAction(w, r, "task form fields", func(p *pageState) error {
		p.form.SetFields(req.Title, req.Description, req.DueDate)
		return nil
	})
}

func (s *Server) taskFormPriorityHandler(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.formAction(w, r, "task form priority", func(p *pageState) error {
		prio, err := domain.ParsePriority(req.Priority)
		if err != nil {
			return err
		}
		p.form.SetPriority(prio)
		return nil
	})
}

func (s *Server) taskFormCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.formAction(w, r, "task form category", func(p *pageState) error {
		return p.form.SetCategory(req.Category)
	})
}

func (s *Server) taskFormAssigneeHandler(w http.ResponseWriter, r *http.Request) {
	contactID := chi.URLParam(r, "contactID")
	s.formAction(w, r, "task form assignee", func(p *pageState) error {
		if _, ok := p.ws.Contact(contactID); !ok {
			return fmt.Errorf("contact %s: %w", contactID, service.ErrNotFound)
		}
		p.form.ToggleAssignee(contactID)
		return nil
	})
}

// taskFormAddSubtaskHandler ignores blank text.
func (s *Server) taskFormAddSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.formAction(w, r, "add subtask", func(p *pageState) error {
		p.form.Subtasks().Add(req.Text)
		return nil
	})
}

func (s *Server) taskFormEditSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.formAction(w, r, "edit subtask", func(p *pageState) error {
		return p.form.Subtasks().BeginEdit(sid)
	})
}

func (s *Server) taskFormAcceptSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sid := chi.URLParam(r, "sid")
	s.formAction(w, r, "accept subtask", func(p *pageState) error {
		_, err := p.form.Subtasks().Accept(sid, req.Text)
		return err
	})
}

func (s *Server) taskFormDeleteSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.formAction(w, r, "delete subtask", func(p *pageState) error {
		return p.form.Subtasks().Delete(sid)
	})
}

func (s *Server) taskFormResetHandler(w http.ResponseWriter, r *http.Request) {
	s.formAction(w, r, "reset task form", func(p *pageState) error {
		p.form.Reset()
		return nil
	})
}

// taskFormSubmitHandler creates or updates the todo behind the form.
// Validation failures come back as inline warnings on the re-rendered form.
func (s *Server) taskFormSubmitHandler(w http.ResponseWriter, r *http.Request) {
	var req fieldsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		p.form.SetFields(req.Title, req.Description, req.DueDate)
		todoReq := p.form.Request()

		var (
			todo *domain.Todo
			err  error
			msg  string
			code = http.StatusCreated
		)
		if p.form.Mode() == editor.ModeEdit {
			todo, err = s.todoService.UpdateTodo(r.Context(), p.ws, p.form.TodoID(), todoReq)
			msg, code = "Task updated", http.StatusOK
		} else {
			todo, err = s.todoService.CreateTodo(r.Context(), p.ws, todoReq)
			msg = "Task added to board"
		}

		var warnings validate.Errors
		if errors.As(err, &warnings) {
			p.form.SetWarnings(warnings)
			s.respondWithForm(w, p, http.StatusUnprocessableEntity, fragment{Warnings: warnings})
			return
		}
		if err != nil {
			s.respondWithServiceError(w, err, "submit task form")
			return
		}

		if p.form.Mode() == editor.ModeEdit {
			s.openDetail(p, *todo)
		}
		p.form.Reset()
		res, err := p.board.Render(p.board.Query())
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		toast := notify.Success(msg)
		s.respondWithForm(w, p, code, fragment{Columns: res.Columns, Toast: &toast, Data: todo})
	})
}
