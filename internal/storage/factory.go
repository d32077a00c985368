package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/storage/memory"
	"github.com/figureboard/figureboard/internal/storage/postgres"
	"github.com/figureboard/figureboard/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg, log)
	case "sqlite":
		return sqlite.New(cfg, log)
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
