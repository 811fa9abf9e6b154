package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Tomlord1122/join/internal/config"
	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/logging"
	"github.com/Tomlord1122/join/internal/render"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/server"
	"github.com/Tomlord1122/join/internal/service"
	"github.com/Tomlord1122/join/internal/validate"
)

func gracefulShutdown(apiServer *http.Server, b *backends, logger *logrus.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The server has 5 seconds to finish the requests it is currently handling.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	b.Close()

	logger.Info("Server exiting")
	done <- true
}

func newRootCmd() *cobra.Command {
	var cfg config.Config
	var logger *logrus.Logger

	root := &cobra.Command{
		Use:          "join",
		Short:        "Join kanban board server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			logger, err = logging.New(cfg.Log)
			return err
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	var namespace string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Replace the contacts and tasks of a namespace with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), cfg, logger, namespace)
		},
	}
	seed.Flags().StringVar(&namespace, "namespace", domain.GuestKey, "user namespace to seed")

	root.AddCommand(serve, seed)
	// No subcommand => serve.
	root.RunE = serve.RunE
	return root
}

func runServe(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}

	renderer, err := render.New()
	if err != nil {
		b.Close()
		return err
	}

	apiServer := server.NewServer(cfg, server.Deps{
		Store:       b.store,
		DB:          b.db,
		Sessions:    b.sessions,
		SessionPing: b.sessionPing,
		Renderer:    renderer,
		Validator:   validate.New(cfg.WarningDelay),
		Logger:      logger,
	})

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, b, logger, done)

	logger.WithFields(logrus.Fields{
		"addr":    apiServer.Addr,
		"backend": cfg.Store.Backend,
	}).Info("Starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-done
	logger.Info("Graceful shutdown complete.")
	return nil
}

func runSeed(ctx context.Context, cfg config.Config, logger *logrus.Logger, namespace string) error {
	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	err = service.SeedDemo(ctx, namespace,
		repository.NewContactRepository(b.store),
		repository.NewTodoRepository(b.store),
		time.Now())
	if err != nil {
		return err
	}
	logger.WithField("namespace", namespace).Info("demo data written")
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
