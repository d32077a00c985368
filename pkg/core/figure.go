// pkg/core/figure.go
package core

// Figure is a movable token on the shared map.
// ID is assigned by the authority; clients send an empty ID on creation.
// Position and size are in logical map units, independent of zoom.
type Figure struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
	Lives  int     `json:"lives"`
}

// Position returns the figure origin in logical coordinates.
func (f Figure) Position() Point {
	return Point{X: f.X, Y: f.Y}
}

// Bounds returns the logical rectangle covered by the figure.
func (f Figure) Bounds() Rect {
	return Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// Snapshot is the authority's complete description of the board.
type Snapshot struct {
	CurrentMap string
	Figures    []Figure
}
