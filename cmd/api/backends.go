package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Tomlord1122/join/internal/config"
	"github.com/Tomlord1122/join/internal/database"
	"github.com/Tomlord1122/join/internal/remote"
	"github.com/Tomlord1122/join/internal/session"
)

// backends holds the store and session connections opened for one command.
type backends struct {
	store       remote.Store
	db          database.Service
	redis       *redis.Client
	sessions    *session.Manager
	sessionPing func(ctx context.Context) error
	logger      *logrus.Logger
}

func openBackends(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*backends, error) {
	b := &backends{logger: logger}

	switch cfg.Store.Backend {
	case config.BackendFirebase:
		client, err := remote.NewClient(remote.ClientConfig{
			BaseURL: cfg.Store.FirebaseURL,
			Auth:    cfg.Store.FirebaseAuth,
			Timeout: cfg.Store.Timeout,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		b.store = client
	case config.BackendPostgres:
		db, err := database.New(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		docs := database.NewDocumentStore(db.GetDB())
		if err := docs.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate documents: %w", err)
		}
		b.db, b.store = db, docs
	default:
		logger.Warn("Using the in-memory store, data is lost on exit")
		b.store = remote.NewMemory()
	}

	var store session.Store
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rs := session.NewRedisStore(b.redis, cfg.Redis.SessionTTL)
		if err := rs.Ping(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store, b.sessionPing = rs, rs.Ping
	} else {
		store = session.NewMemoryStore(cfg.Redis.SessionTTL)
	}
	b.sessions = session.NewManager(store, cfg.Redis.SessionTTL, cfg.Secure, logger)
	return b, nil
}

// Close releases the database pool and the redis client.
func (b *backends) Close() {
	if b.db != nil {
		b.logger.Info("Closing database connection pool...")
		if err := b.db.Close(); err != nil {
			b.logger.WithError(err).Error("Error closing database connection pool")
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.WithError(err).Error("Error closing redis client")
		}
	}
}
