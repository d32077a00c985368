// Package render reconciles the figure store into a set of positioned
// view elements. Elements are authored in logical units; the pan/zoom
// transform lives only on the scene container.
package render

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/figureboard/figureboard/internal/cache"
	"github.com/figureboard/figureboard/internal/transform"
	"github.com/figureboard/figureboard/pkg/core"
)

// Element is the view handle for one figure.
type Element struct {
	ID           string
	Name         string
	Bounds       core.Rect // logical units
	Color        string
	Lives        int
	LabelVisible bool
	// Optimistic is set while the element shows a locally dragged position
	// the authority has not confirmed yet.
	Optimistic bool
}

// Label returns the text shown for the element, or "" when hidden.
func (e *Element) Label() string {
	if !e.LabelVisible {
		return ""
	}
	return e.Name
}

// Container is the outer layer that carries the view transform and the
// map background.
type Container struct {
	Transform  transform.State
	Background string
}

// Stats describes what one Render call changed.
type Stats struct {
	Added   int
	Updated int
	Removed int
}

// Scene owns every element, keyed by figure id.
// Not safe for concurrent use.
type Scene struct {
	container Container
	elements  map[string]*Element
	order     []string
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{
		container: Container{Transform: transform.New().State()},
		elements:  make(map[string]*Element),
	}
}

// Render reconciles the scene with the store. It can run any number of
// times: existing elements are updated in place, stale ones removed, and an
// id never gets a second element. Every element is reset to the
// authoritative position, which drops any optimistic drag offset.
func (s *Scene) Render(figures *cache.FigureStore, view *transform.Model, prefs *cache.PreferenceStore, background string) Stats {
	var stats Stats

	ids := figures.IDs()
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}

	for id := range s.elements {
		if _, ok := live[id]; !ok {
			delete(s.elements, id)
			stats.Removed++
		}
	}

	for _, id := range ids {
		f, _ := figures.Get(id)
		el, ok := s.elements[id]
		if !ok {
			el = &Element{ID: id}
			s.elements[id] = el
			stats.Added++
		} else {
			stats.Updated++
		}
		el.Name = f.Name
		el.Bounds = f.Bounds()
		el.Color = f.Color
		el.Lives = f.Lives
		el.LabelVisible = prefs.Get(id).LabelVisible
		el.Optimistic = false
	}

	s.order = ids
	s.container.Background = background
	s.SyncTransform(view)
	return stats
}

// SyncTransform copies the view transform onto the container. Elements are
// left untouched.
func (s *Scene) SyncTransform(view *transform.Model) {
	s.container.Transform = view.State()
}

// Container returns the container state.
func (s *Scene) Container() Container {
	return s.container
}

// Element returns the handle for id.
func (s *Scene) Element(id string) (*Element, bool) {
	el, ok := s.elements[id]
	return el, ok
}

// Elements returns copies of all elements in paint order.
func (s *Scene) Elements() []Element {
	out := make([]Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.elements[id])
	}
	return out
}

// Len returns the number of elements.
func (s *Scene) Len() int {
	return len(s.elements)
}

// MoveElement places the element for id at a logical position without
// touching the store. It returns false when no such element exists.
func (s *Scene) MoveElement(id string, pos core.Point) bool {
	el, ok := s.elements[id]
	if !ok {
		return false
	}
	el.Bounds.X = pos.X
	el.Bounds.Y = pos.Y
	el.Optimistic = true
	return true
}

// SetLabelVisible updates a single element's label through its handle.
func (s *Scene) SetLabelVisible(id string, visible bool) bool {
	el, ok := s.elements[id]
	if !ok {
		return false
	}
	el.LabelVisible = visible
	return true
}

// HitTest returns the topmost element containing the logical point.
// Edges count as inside.
func (s *Scene) HitTest(logical core.Point) (string, bool) {
	xy := geom.XY{X: logical.X, Y: logical.Y}
	for i := len(s.order) - 1; i >= 0; i-- {
		el := s.elements[s.order[i]]
		if envelope(el.Bounds).Contains(xy) {
			return el.ID, true
		}
	}
	return "", false
}

// ScreenBounds returns the element rectangle after the container transform.
func (s *Scene) ScreenBounds(id string) (core.Rect, bool) {
	el, ok := s.elements[id]
	if !ok {
		return core.Rect{}, false
	}
	t := s.container.Transform
	return core.Rect{
		X:      el.Bounds.X*t.Zoom + t.PanX,
		Y:      el.Bounds.Y*t.Zoom + t.PanY,
		Width:  el.Bounds.Width * t.Zoom,
		Height: el.Bounds.Height * t.Zoom,
	}, true
}

func envelope(r core.Rect) geom.Envelope {
	return geom.NewEnvelope(
		geom.XY{X: r.X, Y: r.Y},
		geom.XY{X: r.X + r.Width, Y: r.Y + r.Height},
	)
}
