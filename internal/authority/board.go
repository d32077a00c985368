// Package authority is the server side of the board: it owns the figures
// and the current map, applies client intents and broadcasts snapshots.
package authority

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/figureboard/figureboard/pkg/core"
)

// ErrUnknownFigure is returned for an intent naming a figure the board does
// not hold.
var ErrUnknownFigure = errors.New("unknown figure")

// Defaults applied to an added figure.
const (
	DefaultColor = "#000000"
	DefaultLives = 3
)

// Board is the authoritative state. Safe for concurrent use.
type Board struct {
	mu         sync.RWMutex
	figures    map[string]core.Figure
	currentMap string
	newID      func() string
}

// NewBoard seeds a board from a persisted snapshot. An empty CurrentMap
// falls back to defaultMap.
func NewBoard(seed core.Snapshot, defaultMap string) *Board {
	b := &Board{
		figures:    make(map[string]core.Figure, len(seed.Figures)),
		currentMap: seed.CurrentMap,
		newID:      uuid.NewString,
	}
	if b.currentMap == "" {
		b.currentMap = defaultMap
	}
	for _, f := range seed.Figures {
		if f.ID != "" {
			b.figures[f.ID] = f
		}
	}
	return b
}

// AddFigure stores f, assigning an id when it has none and filling color and
// lives defaults. It returns the stored figure.
func (b *Board) AddFigure(f core.Figure) core.Figure {
	b.mu.Lock()
	defer b.mu.Unlock()

	if f.ID == "" {
		f.ID = b.newID()
	}
	if f.Color == "" {
		f.Color = DefaultColor
	}
	if f.Lives == 0 {
		f.Lives = DefaultLives
	}
	b.figures[f.ID] = f
	return f
}

// MoveFigure sets the position of an existing figure.
func (b *Board) MoveFigure(id string, x, y float64) (core.Figure, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.figures[id]
	if !ok {
		return core.Figure{}, fmt.Errorf("%w: %q", ErrUnknownFigure, id)
	}
	f.X, f.Y = x, y
	b.figures[id] = f
	return f, nil
}

// UpdateLives sets the lives of an existing figure.
func (b *Board) UpdateLives(id string, lives int) (core.Figure, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.figures[id]
	if !ok {
		return core.Figure{}, fmt.Errorf("%w: %q", ErrUnknownFigure, id)
	}
	f.Lives = lives
	b.figures[id] = f
	return f, nil
}

// RemoveFigure deletes a figure. It reports whether one was removed.
func (b *Board) RemoveFigure(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.figures[id]
	delete(b.figures, id)
	return ok
}

// SetMap changes the map shown to every client.
func (b *Board) SetMap(m string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentMap = m
}

// Len returns the number of figures.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.figures)
}

// Snapshot returns the full board with figures sorted by id.
func (b *Board) Snapshot() core.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	figs := make([]core.Figure, 0, len(b.figures))
	for _, f := range b.figures {
		figs = append(figs, f)
	}
	sort.Slice(figs, func(i, j int) bool { return figs[i].ID < figs[j].ID })
	return core.Snapshot{CurrentMap: b.currentMap, Figures: figs}
}
