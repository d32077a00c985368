// Package postgres implements the storage.Backend interface on PostgreSQL
// through the GORM backend.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/database"
	"github.com/figureboard/figureboard/internal/storage/gormstore"
)

// Backend wraps the GORM backend for PostgreSQL.
type Backend struct {
	*gormstore.Backend
	mgr *database.Manager
}

// New connects to the database described by cfg.DB.
func New(cfg config.StorageConfig, log zerolog.Logger) (*Backend, error) {
	cfg.Type = "postgres"
	mgr := database.NewManager(log)
	if err := mgr.Connect(cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &Backend{
		Backend: gormstore.New(gormstore.Dependencies{DB: mgr.DB, Logger: log}),
		mgr:     mgr,
	}, nil
}

// Close flushes the GORM backend and closes the connection pool.
func (b *Backend) Close() error {
	err := b.Backend.Close()
	if cerr := b.mgr.Close(); err == nil {
		err = cerr
	}
	return err
}
