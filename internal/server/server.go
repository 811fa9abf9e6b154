package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/auth"
	"github.com/Tomlord1122/join/internal/config"
	"github.com/Tomlord1122/join/internal/database"
	"github.com/Tomlord1122/join/internal/remote"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/session"
	"github.com/Tomlord1122/join/internal/validate"
)

// Deps are the collaborators built by cmd/api.
type Deps struct {
	Store    remote.Store
	DB       database.Service // nil unless the postgres backend is used
	Sessions *session.Manager
	// SessionPing checks the session backend for /health; optional.
	SessionPing func(ctx context.Context) error
	Renderer    *render.Renderer
	Validator   *validate.Validator
	Logger      *logrus.Logger
}

type Server struct {
	port        int
	corsOrigins []string

	todoService    service.TodoService
	contactService service.ContactService
	auth           *auth.Service
	todos          repository.TodoRepository
	contacts       repository.ContactRepository

	store       remote.Store
	db          database.Service
	sessions    *session.Manager
	sessionPing func(ctx context.Context) error
	renderer    *render.Renderer
	validator   *validate.Validator
	logger      *logrus.Logger

	pages *pageRegistry
}

// New wires the services on top of deps.
func New(cfg config.Config, deps Deps) *Server {
	todos := repository.NewTodoRepository(deps.Store)
	contacts := repository.NewContactRepository(deps.Store)
	users := repository.NewUserRepository(deps.Store)

	return &Server{
		port:           cfg.Port,
		corsOrigins:    cfg.CORSOrigins,
		todoService:    service.NewTodoService(todos, deps.Validator, deps.Logger),
		contactService: service.NewContactService(contacts, deps.Validator, deps.Logger),
		auth:           auth.NewService(users, deps.Validator, deps.Logger),
		todos:          todos,
		contacts:       contacts,
		store:          deps.Store,
		db:             deps.DB,
		sessions:       deps.Sessions,
		sessionPing:    deps.SessionPing,
		renderer:       deps.Renderer,
		validator:      deps.Validator,
		logger:         deps.Logger,
		pages:          newPageRegistry(deps.Sessions.TTL()),
	}
}

// NewServer returns the configured http.Server.
func NewServer(cfg config.Config, deps Deps) *http.Server {
	appServer := New(cfg, deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
