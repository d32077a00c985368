package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/figureboard/figureboard/internal/authority"
	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/influx"
	"github.com/figureboard/figureboard/internal/logging"
	"github.com/figureboard/figureboard/internal/storage"
)

func runServe(ctx context.Context) error {
	sess, err := startLogging("figureboard", false)
	if err != nil {
		return err
	}
	defer sess.close()
	logger := sess.Logger
	logger.Info("Starting up...")

	level := config.GetString("logLevel")
	storeLog := logging.NewZerolog(os.Stdout, level).With().Str("component", "storage").Logger()

	storageCfg := config.GetStorageConfig()
	store, err := storage.NewBackend(storageCfg, storeLog)
	if err != nil {
		logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := store.Init(); err != nil {
		logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	var metrics authority.IntentRecorder
	influxLog := logging.NewZerolog(os.Stdout, level).With().Str("component", "influx").Logger()
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	backupPath := filepath.Join(logsDir, "influx_backup.log.gz")
	im := influx.NewManager(config.GetInfluxConfig(), influxLog, backupPath)
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
		logger.Debug("InfluxDB disabled")
	case err != nil:
		logger.Warn("InfluxDB unavailable", "error", err)
	default:
		metrics = im
		defer func() {
			if err := im.Close(); err != nil {
				logger.Warn("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	srv, err := authority.New(config.GetServerConfig(), authority.Dependencies{
		Store:   store,
		Metrics: metrics,
		Fs:      afero.NewOsFs(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start authority: %w", err)
	}
	defer srv.Close()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("Authority stopped", "error", err)
		return err
	}
	logger.Info("Shut down cleanly")
	return nil
}
