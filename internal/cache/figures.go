package cache

import (
	"sort"

	"github.com/figureboard/figureboard/pkg/core"
)

// FigureStore holds the last authoritative figure list, keyed by id.
// It is replaced wholesale by every snapshot and carries no interaction
// state. Not safe for concurrent use; the engine owns it.
type FigureStore struct {
	figures map[string]core.Figure
	order   []string
}

// NewFigureStore creates an empty FigureStore.
func NewFigureStore() *FigureStore {
	return &FigureStore{
		figures: make(map[string]core.Figure),
	}
}

// ApplySnapshot replaces the entire store contents with figures.
// Ids missing from figures are dropped. A repeated id keeps its last entry.
func (s *FigureStore) ApplySnapshot(figures []core.Figure) {
	next := make(map[string]core.Figure, len(figures))
	for _, f := range figures {
		next[f.ID] = f
	}

	order := make([]string, 0, len(next))
	for id := range next {
		order = append(order, id)
	}
	sort.Strings(order)

	s.figures = next
	s.order = order
}

// Get retrieves a figure by id.
func (s *FigureStore) Get(id string) (core.Figure, bool) {
	f, ok := s.figures[id]
	return f, ok
}

// Has reports whether id is present in the last snapshot.
func (s *FigureStore) Has(id string) bool {
	_, ok := s.figures[id]
	return ok
}

// All returns the figures ordered by id.
func (s *FigureStore) All() []core.Figure {
	out := make([]core.Figure, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.figures[id])
	}
	return out
}

// IDs returns the figure ids in render order.
func (s *FigureStore) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of figures.
func (s *FigureStore) Len() int {
	return len(s.figures)
}
