package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/join/internal/editor"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/session"
)

func (s *Server) getAllTodosHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		respondWithJSON(w, http.StatusOK, p.ws.Todos())
	})
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.TodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		todo, err := s.todoService.CreateTodo(r.Context(), p.ws, req)
		if err != nil {
			s.respondWithServiceError(w, err, "create todo")
			return
		}
		s.respondWithBoard(w, p, http.StatusCreated, fragment{Data: todo}, notify.Success("Task added to board"))
	})
}

func (s *Server) getTodoByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		todo, ok := p.ws.Todo(id)
		if !ok {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("todo %s not found", id))
			return
		}
		s.openDetail(p, todo)
		html, err := s.renderer.Detail(todo, p.ws)
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{HTML: html, Data: todo})
	})
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.TodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		todo, err := s.todoService.UpdateTodo(r.Context(), p.ws, id, req)
		if err != nil {
			s.respondWithServiceError(w, err, "update todo")
			return
		}
		s.openDetail(p, *todo)
		detail, err := s.renderer.Detail(*todo, p.ws)
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		s.respondWithBoard(w, p, http.StatusOK, fragment{Detail: detail, Data: todo}, notify.Success("Task updated"))
	})
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		if err := s.todoService.DeleteTodo(r.Context(), p.ws, id); err != nil {
			s.respondWithServiceError(w, err, "delete todo")
			return
		}
		delete(p.details, id)
		s.respondWithBoard(w, p, http.StatusOK, fragment{}, notify.Success("Task deleted"))
	})
}

// toggleSubtaskHandler flips a checkbox of the detail modal. A failed PATCH
// keeps the flip and is reported as a toast.
func (s *Server) toggleSubtaskHandler(w http.ResponseWriter, r *http.Request) {
	id, sid := chi.URLParam(r, "id"), chi.URLParam(r, "sid")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		e, ok := p.details[id]
		if !ok {
			todo, found := p.ws.Todo(id)
			if !found {
				respondWithError(w, http.StatusNotFound, fmt.Sprintf("todo %s not found", id))
				return
			}
			e = s.openDetail(p, todo)
		}

		st, err := e.Toggle(r.Context(), sid)
		if errors.Is(err, editor.ErrUnknownSubtask) || errors.Is(err, service.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		var toast *notify.Toast
		if err != nil {
			s.logger.WithError(err).WithField("todo", id).Error("toggle subtask failed")
			t, _ := notify.FromError(err)
			toast = &t
		}

		rows, rerr := s.renderer.Subtasks(e.Rows(true))
		if rerr != nil {
			s.renderFailed(w, rerr)
			return
		}
		res, rerr := p.board.Render(p.board.Query())
		if rerr != nil {
			s.renderFailed(w, rerr)
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{HTML: rows, Columns: res.Columns, Toast: toast, Data: st})
	})
}

// respondWithBoard adds all re-rendered columns and a toast to f.
func (s *Server) respondWithBoard(w http.ResponseWriter, p *pageState, code int, f fragment, toast notify.Toast) {
	res, err := p.board.Render(p.board.Query())
	if err != nil {
		s.renderFailed(w, err)
		return
	}
	f.Columns = res.Columns
	f.Toast = &toast
	respondWithJSON(w, code, f)
}
