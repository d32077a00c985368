// Package sqlite implements the storage.Backend interface on a SQLite file.
// It wraps the GORM backend; the only SQLite-specific concern is opening
// the database.
package sqlite

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/database"
	"github.com/figureboard/figureboard/internal/storage/gormstore"
)

// Backend wraps the GORM backend for SQLite.
type Backend struct {
	*gormstore.Backend
	mgr *database.Manager
}

// New opens the SQLite database at cfg.SQLite.Path. An empty path uses a
// shared in-memory database.
func New(cfg config.StorageConfig, log zerolog.Logger) (*Backend, error) {
	cfg.Type = "sqlite"
	mgr := database.NewManager(log)
	if err := mgr.Connect(cfg); err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{DB: mgr.DB, Logger: log}),
		mgr:     mgr,
	}, nil
}

// Close flushes the GORM backend and closes the database.
func (b *Backend) Close() error {
	err := b.Backend.Close()
	if cerr := b.mgr.Close(); err == nil {
		err = cerr
	}
	return err
}
