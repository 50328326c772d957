package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/rorsim/gfxbridge/internal/config"
	"github.com/rorsim/gfxbridge/internal/database"
	gormstorage "github.com/rorsim/gfxbridge/internal/storage/gorm"
	"github.com/rorsim/gfxbridge/internal/storage/memory"
	sqlitestorage "github.com/rorsim/gfxbridge/internal/storage/sqlite"
	"github.com/rorsim/gfxbridge/internal/storage/websocket"
)

// Dependencies are the loggers handed to the backends.
type Dependencies struct {
	Logger   *slog.Logger
	DBLogger zerolog.Logger
	// FallbackName names the in-memory SQLite database used when Postgres
	// is unreachable.
	FallbackName string
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	switch cfg.Type {
	case "memory":
		return memory.New(cfg.Memory), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, deps.Logger)
	case "postgres":
		m := database.NewManager(deps.DBLogger)
		name := deps.FallbackName
		if name == "" {
			name = "gfxbridge"
		}
		if err := m.Connect(cfg.Postgres, name); err != nil {
			return nil, fmt.Errorf("postgres backend: %w", err)
		}
		return gormstorage.New(gormstorage.Dependencies{DB: m.DB, Logger: deps.Logger}), nil
	case "websocket":
		return websocket.New(cfg.WebSocket, deps.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}
