// Package transform owns the view's pan offset and zoom factor and converts
// between screen and logical map coordinates.
package transform

import (
	"math"

	"github.com/figureboard/figureboard/pkg/core"
)

const (
	MinZoom = 1.0
	MaxZoom = 3.0
)

// State is the pan/zoom pair. It never leaves the client.
type State struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// Model is the single owner of the view transform.
// It is not safe for concurrent use.
type Model struct {
	pan  core.Point
	zoom float64
}

// New returns a model at zoom 1 with no pan.
func New() *Model {
	return &Model{zoom: MinZoom}
}

// State returns a copy of the current transform.
func (m *Model) State() State {
	return State{PanX: m.pan.X, PanY: m.pan.Y, Zoom: m.zoom}
}

// Zoom returns the current zoom factor.
func (m *Model) Zoom() float64 {
	return m.zoom
}

// PanOffset returns the current pan offset in screen units.
func (m *Model) PanOffset() core.Point {
	return m.pan
}

// ToLogical maps a screen point to logical map coordinates.
func (m *Model) ToLogical(screen core.Point) core.Point {
	return screen.Sub(m.pan).Scale(1 / m.zoom)
}

// ToScreen maps a logical point to screen coordinates.
func (m *Model) ToScreen(logical core.Point) core.Point {
	return logical.Scale(m.zoom).Add(m.pan)
}

// Pan shifts the view by delta screen units. There is no bound on how far
// the map can be panned. A non-finite delta is ignored.
func (m *Model) Pan(delta core.Point) {
	if !finite(delta) {
		return
	}
	m.pan = m.pan.Add(delta)
}

// SetPan places the pan offset directly. A non-finite offset is ignored.
func (m *Model) SetPan(offset core.Point) {
	if !finite(offset) {
		return
	}
	m.pan = offset
}

// SetZoomAboutPoint changes the zoom factor while keeping anchor (a screen
// point) over the same logical point. A non-finite anchor is replaced by
// the screen origin.
func (m *Model) SetZoomAboutPoint(raw float64, anchor core.Point) {
	if !finite(anchor) {
		anchor = core.Point{}
	}
	anchorLogical := m.ToLogical(anchor)
	m.zoom = Clamp(raw)
	m.pan = anchor.Sub(anchorLogical.Scale(m.zoom))
}

// Clamp bounds a zoom factor to [MinZoom, MaxZoom]. NaN maps to MinZoom.
func Clamp(z float64) float64 {
	switch {
	case math.IsNaN(z):
		return MinZoom
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	default:
		return z
	}
}

func finite(p core.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
