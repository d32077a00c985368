// Package memory keeps the board in process memory, optionally exported to a
// JSON file on Close and read back on Load.
package memory

import (
	"sort"
	"sync"

	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/pkg/core"
)

// Backend stores the board in memory.
type Backend struct {
	cfg        config.MemoryConfig
	figures    map[string]core.Figure
	currentMap string
	intents    []core.IntentRecord
	mu         sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		figures: make(map[string]core.Figure),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close writes the export file when one is configured.
func (b *Backend) Close() error {
	if b.cfg.ExportPath == "" {
		return nil
	}
	return b.exportJSON(b.cfg.ExportPath)
}

// Load returns the board. On first call it reads the export file, if any.
func (b *Backend) Load() (core.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.ExportPath != "" && len(b.figures) == 0 && b.currentMap == "" {
		exp, ok, err := readExport(b.cfg.ExportPath)
		if err != nil {
			return core.Snapshot{}, err
		}
		if ok {
			b.currentMap = exp.CurrentMap
			for _, f := range exp.Figures {
				b.figures[f.ID] = f
			}
		}
	}

	return core.Snapshot{CurrentMap: b.currentMap, Figures: b.sortedFigures()}, nil
}

// SaveFigure inserts or replaces a figure.
func (b *Backend) SaveFigure(f core.Figure) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.figures[f.ID] = f
	return nil
}

// DeleteFigure removes a figure. Unknown ids are ignored.
func (b *Backend) DeleteFigure(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.figures, id)
	return nil
}

// SaveCurrentMap stores the map shown to every client.
func (b *Backend) SaveCurrentMap(m string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentMap = m
	return nil
}

// RecordIntent appends to the audit log.
func (b *Backend) RecordIntent(r core.IntentRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intents = append(b.intents, r)
	return nil
}

// Intents returns a copy of the audit log.
func (b *Backend) Intents() []core.IntentRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.IntentRecord, len(b.intents))
	copy(out, b.intents)
	return out
}

func (b *Backend) sortedFigures() []core.Figure {
	out := make([]core.Figure, 0, len(b.figures))
	for _, f := range b.figures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
