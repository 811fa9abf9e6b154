package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Tomlord1122/join/internal/session"
)

type dragRequest struct {
	ID string `json:"id"`
}

type columnRequest struct {
	Column string `json:"column"`
}

func (s *Server) boardHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		res, err := p.board.Render(r.URL.Query().Get("q"))
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		html, err := p.board.Board()
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{HTML: html, Columns: res.Columns})
	})
}

func (s *Server) dragHandler(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		res, err := p.board.StartDrag(req.ID)
		if err != nil {
			s.respondWithServiceError(w, err, "start drag")
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{Columns: res.Columns})
	})
}

func (s *Server) dragOverHandler(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		res, err := p.board.DragOver(req.Column)
		if err != nil {
			s.respondWithServiceError(w, err, "drag over")
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{Columns: res.Columns})
	})
}

func (s *Server) dragLeaveHandler(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		res, err := p.board.DragLeave(req.Column)
		if err != nil {
			s.respondWithServiceError(w, err, "drag leave")
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{Columns: res.Columns})
	})
}

// dropHandler answers 200 even when the store rejected the push: the board
// keeps the move and the toast reports the failure.
func (s *Server) dropHandler(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		res, err := p.board.Drop(r.Context(), req.Column)
		if err != nil {
			s.respondWithServiceError(w, err, "drop")
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{Columns: res.Columns, Toast: res.Toast})
	})
}

func (s *Server) dragEndHandler(w http.ResponseWriter, r *http.Request) {
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		phase, res, err := p.board.EndDrag()
		if err != nil {
			s.renderFailed(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{Columns: res.Columns, Data: map[string]string{"phase": phase.String()}})
	})
}

func (s *Server) moveTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req columnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	s.withPage(w, r, false, func(p *pageState, _ *session.Session) {
		res, err := p.board.Move(r.Context(), id, req.Column)
		if err != nil {
			s.respondWithServiceError(w, err, "move todo")
			return
		}
		respondWithJSON(w, http.StatusOK, fragment{Columns: res.Columns, Toast: res.Toast})
	})
}
