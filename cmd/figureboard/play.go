package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/figureboard/figureboard/internal/catalog"
	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/engine"
	"github.com/figureboard/figureboard/internal/syncchannel"
	"github.com/figureboard/figureboard/internal/tui"
)

func runPlay(ctx context.Context) error {
	sess, err := startLogging("figureboard-play", true)
	if err != nil {
		return err
	}
	defer sess.close()
	logger := sess.Logger

	cfg := config.GetClientConfig()
	endpoint, err := syncchannel.EndpointURL(cfg.ServerURL, cfg.WSPath)
	if err != nil {
		return err
	}

	ch, err := syncchannel.Dial(ctx, endpoint, syncchannel.Options{
		ReadLimit: cfg.MaxFrameBytes,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to connect to authority", "url", endpoint, "error", err)
		return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	defer ch.Close()

	eng, err := engine.New(ch, engine.Options{
		ZoomStep:     cfg.ZoomStep,
		FigureName:   cfg.FigureName,
		FigureWidth:  cfg.FigureWidth,
		FigureHeight: cfg.FigureHeight,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	cat := catalog.New(catalog.NewClient(cfg.ServerURL, afero.NewOsFs()), ch, logger)
	m := tui.New(eng, cat, ch.Inbound(), ch.Err, tui.Options{
		CellWidth:  cfg.CellWidth,
		CellHeight: cfg.CellHeight,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("client stopped: %w", err)
	}
	logger.Info("Client closed")
	return nil
}
