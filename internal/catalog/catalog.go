// Package catalog keeps the list of background maps the authority offers and
// turns a selection into a set_map intent.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/figureboard/figureboard/pkg/streaming"
)

// ErrUploadFailed wraps every failed map upload.
var ErrUploadFailed = errors.New("map upload failed")

// Source is the request/response side of the authority.
type Source interface {
	ListMaps(ctx context.Context) ([]string, error)
	Upload(ctx context.Context, filePath string) (string, error)
}

// Sender delivers an intent to the authority.
type Sender interface {
	Send(msgType string, payload any) error
}

// Catalog is the client's view of the available maps.
type Catalog struct {
	source Source
	sender Sender
	maps   []string
	logger *slog.Logger
}

// New creates an empty catalog.
func New(source Source, sender Sender, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{source: source, sender: sender, logger: logger}
}

// Maps returns a copy of the last fetched list, in authority order.
func (c *Catalog) Maps() []string {
	out := make([]string, len(c.maps))
	copy(out, c.maps)
	return out
}

// Refresh replaces the list with the authority's current one. On failure the
// previous list is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	maps, err := c.source.ListMaps(ctx)
	if err != nil {
		return fmt.Errorf("refresh map catalog: %w", err)
	}
	c.maps = maps
	c.logger.Debug("Map catalog refreshed", "count", len(maps))
	return nil
}

// Select asks the authority to switch the background map. The map is not
// required to be in the list.
func (c *Catalog) Select(mapID string) error {
	if mapID == "" {
		return errors.New("select map: empty map identifier")
	}
	return c.sender.Send(streaming.TypeSetMap, streaming.SetMapPayload{Map: mapID})
}

// Next returns the map after current in the list, wrapping around. An
// unknown current selects the first map.
func (c *Catalog) Next(current string) (string, bool) {
	if len(c.maps) == 0 {
		return "", false
	}
	for i, m := range c.maps {
		if m == current {
			return c.maps[(i+1)%len(c.maps)], true
		}
	}
	return c.maps[0], true
}

// Upload sends a map file to the authority and refreshes the list. A failed
// upload leaves the list unchanged.
func (c *Catalog) Upload(ctx context.Context, filePath string) (string, error) {
	mapID, err := c.source.Upload(ctx, filePath)
	if err != nil {
		c.logger.Warn("Map upload failed", "file", filePath, "error", err)
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	c.logger.Info("Map uploaded", "file", filePath, "map", mapID)

	if err := c.Refresh(ctx); err != nil {
		return mapID, err
	}
	return mapID, nil
}
