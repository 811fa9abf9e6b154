package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/auth"
	"github.com/Tomlord1122/join/internal/board"
	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/editor"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/validate"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.loginPageHandler)
		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/signup", s.signupHandler)
			r.Post("/login", s.loginHandler)
			r.Post("/guest", s.guestHandler)
			r.Post("/logout", s.logoutHandler)
			r.Get("/me", s.meHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.Get("/summary", s.summaryPageHandler)
			r.Get("/board", s.boardPageHandler)
			r.Get("/contacts", s.contactsPageHandler)

			r.Route("/api/board", func(r chi.Router) {
				r.Get("/", s.boardHandler)
				r.Post("/drag", s.dragHandler)
				r.Post("/dragover", s.dragOverHandler)
				r.Post("/dragleave", s.dragLeaveHandler)
				r.Post("/drop", s.dropHandler)
				r.Post("/dragend", s.dragEndHandler)
			})

			r.Route("/api/todos", func(r chi.Router) {
				r.Post("/", s.createTodoHandler)
				r.Get("/", s.getAllTodosHandler)
				r.Get("/{id}", s.getTodoByIDHandler)
				r.Put("/{id}", s.updateTodoHandler)
				r.Delete("/{id}", s.deleteTodoHandler)
				r.Post("/{id}/move", s.moveTodoHandler)
				r.Post("/{id}/subtasks/{sid}/toggle", s.toggleSubtaskHandler)
			})

			r.Route("/api/forms/task", func(r chi.Router) {
				r.Post("/open", s.openTaskFormHandler)
				r.Post("/edit/{id}", s.editTaskFormHandler)
				r.Post("/fields", s.taskFormFieldsHandler)
				r.Post("/priority", s.taskFormPriorityHandler)
				r.Post("/category", s.taskFormCategoryHandler)
				r.Post("/assignees/{contactID}/toggle", s.taskFormAssigneeHandler)
				r.Post("/subtasks", s.taskFormAddSubtaskHandler)
				r.Post("/subtasks/{sid}/edit", s.taskFormEditSubtaskHandler)
				r.Post("/subtasks/{sid}/accept", s.taskFormAcceptSubtaskHandler)
				r.Delete("/subtasks/{sid}", s.taskFormDeleteSubtaskHandler)
				r.Post("/reset", s.taskFormResetHandler)
				r.Post("/submit", s.taskFormSubmitHandler)
			})

			r.Route("/api/contacts", func(r chi.Router) {
				r.Get("/", s.getAllContactsHandler)
				r.Post("/", s.createContactHandler)
				r.Put("/{id}", s.updateContactHandler)
				r.Delete("/{id}", s.deleteContactHandler)
				r.Post("/{id}/select", s.selectContactHandler)
			})
		})
	})

	return r
}

// fragment is the JSON envelope of every API answer that updates markup.
type fragment struct {
	HTML     template.HTML                  `json:"html,omitempty"`
	Detail   template.HTML                  `json:"detail,omitempty"`
	Columns  map[domain.State]template.HTML `json:"columns,omitempty"`
	Toast    *notify.Toast                  `json:"toast,omitempty"`
	Warnings validate.Errors                `json:"warnings,omitempty"`
	Data     any                            `json:"data,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats := map[string]any{"status": "up"}
	down := false
	if _, err := s.store.Read(ctx, "health"); err != nil {
		stats["store"] = "down: " + err.Error()
		down = true
	} else {
		stats["store"] = "up"
	}
	if s.db != nil {
		dbStats := s.db.Health()
		stats["database"] = dbStats
		if dbStats["status"] == "down" {
			down = true
		}
	}
	if s.sessionPing != nil {
		if err := s.sessionPing(ctx); err != nil {
			stats["sessions"] = "down: " + err.Error()
			down = true
		} else {
			stats["sessions"] = "up"
		}
	}

	if down {
		stats["status"] = "down"
		respondWithJSON(w, http.StatusServiceUnavailable, stats)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// decodeJSON reads a strict JSON body into dst and answers 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &syntaxError) {
		msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.Is(err, io.ErrUnexpectedEOF) {
		msg := "Request body contains badly-formed JSON"
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.As(err, &unmarshalTypeError) {
		msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if strings.HasPrefix(err.Error(), "json: unknown field ") {
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
		respondWithError(w, http.StatusBadRequest, msg)
	} else if errors.Is(err, io.EOF) {
		msg := "Request body must not be empty"
		respondWithError(w, http.StatusBadRequest, msg)
	} else {
		logrus.WithError(err).Error("decode request body")
		respondWithError(w, http.StatusInternalServerError, "Error processing request")
	}
	return false
}

// respondWithServiceError maps the error taxonomy to a status code, inline
// warnings or a toast.
func (s *Server) respondWithServiceError(w http.ResponseWriter, err error, op string) {
	var warnings validate.Errors
	var conflict *notify.Conflict
	switch {
	case errors.As(err, &warnings):
		respondWithJSON(w, http.StatusUnprocessableEntity, fragment{Warnings: warnings})
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondWithJSON(w, http.StatusUnauthorized, fragment{Warnings: validate.Errors{{
			Field:        "password",
			Message:      "Check your email and password. Please try again.",
			ClearAfterMs: s.validator.ClearAfter().Milliseconds(),
		}}})
	case errors.As(err, &conflict):
		toast, _ := notify.FromError(err)
		respondWithJSON(w, http.StatusConflict, fragment{Toast: &toast})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, board.ErrUnknownTodo), errors.Is(err, editor.ErrUnknownSubtask):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, board.ErrNotDragging):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnknownState), errors.Is(err, domain.ErrUnknownPriority), errors.Is(err, editor.ErrUnknownCategory):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, notify.ErrInline):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.WithError(err).Errorf("%s failed", op)
		toast, _ := notify.FromError(err)
		respondWithJSON(w, http.StatusBadGateway, fragment{Toast: &toast})
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("marshal JSON response")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithHTML(w http.ResponseWriter, code int, html template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, string(html))
}
