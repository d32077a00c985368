// Package interaction turns raw pointer input into view changes and
// outbound intents.
//
// The controller is a three-state machine: Idle, Dragging and Panning.
// A gesture registers its pointer-move and pointer-up handlers when it
// starts and removes both when it ends, so repeated gestures never stack
// handlers.
package interaction

import (
	"fmt"
	"math"

	"github.com/figureboard/figureboard/internal/render"
	"github.com/figureboard/figureboard/internal/transform"
	"github.com/figureboard/figureboard/pkg/core"
)

// Mode is the controller state.
type Mode int

const (
	Idle Mode = iota
	Dragging
	Panning
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Panning:
		return "panning"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Intents receives the figure changes a gesture asks the authority for.
type Intents interface {
	MoveFigure(id string, pos core.Point) error
	RemoveFigure(id string) error
}

// DragSession is the state of an active figure drag.
type DragSession struct {
	TargetID string
	// PointerOffset is the logical distance from the figure origin to the
	// pointer, fixed at gesture start.
	PointerOffset core.Point
	// Position is the last optimistic logical position.
	Position core.Point
}

// PanSession is the state of an active background pan.
type PanSession struct {
	PointerStart core.Point
	PanOrigin    core.Point
}

// Controller owns the gesture state for one view.
// Not safe for concurrent use.
type Controller struct {
	view     *transform.Model
	scene    *render.Scene
	intents  Intents
	handlers *Registry

	mode     Mode
	drag     DragSession
	pan      PanSession
	viewport core.Point
	// last is the most recent finite pointer position of the active gesture.
	last core.Point

	gesture []Handle
}

// New creates an idle controller.
func New(view *transform.Model, scene *render.Scene, intents Intents) *Controller {
	return &Controller{
		view:     view,
		scene:    scene,
		intents:  intents,
		handlers: NewRegistry(),
	}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Drag returns the active drag session, if any.
func (c *Controller) Drag() (DragSession, bool) {
	return c.drag, c.mode == Dragging
}

// Pan returns the active pan session, if any.
func (c *Controller) Pan() (PanSession, bool) {
	return c.pan, c.mode == Panning
}

// Handlers exposes the gesture handler registry.
func (c *Controller) Handlers() *Registry {
	return c.handlers
}

// SetViewport records the viewport size in screen units. Its center is the
// zoom anchor when no pointer position is known.
func (c *Controller) SetViewport(width, height float64) {
	c.viewport = core.Point{X: width, Y: height}
}

// ViewportCenter returns the center of the viewport in screen units.
func (c *Controller) ViewportCenter() core.Point {
	return c.viewport.Scale(0.5)
}

// PointerDown starts a drag when the pointer is over a figure and a pan
// otherwise. A figure hit consumes the event, so one press never starts
// both. Presses during an active gesture are ignored: the gesture only
// ends on pointer-up.
func (c *Controller) PointerDown(screen core.Point) Mode {
	if c.mode != Idle {
		return c.mode
	}

	screen = c.pointer(screen)
	logical := c.view.ToLogical(screen)
	if id, ok := c.scene.HitTest(logical); ok {
		c.startDrag(id, logical)
		return c.mode
	}
	c.startPan(screen)
	return c.mode
}

// PointerMove forwards a move to the active gesture.
func (c *Controller) PointerMove(screen core.Point) error {
	return c.handlers.Emit(EventPointerMove, c.pointer(screen))
}

// PointerUp ends the active gesture.
func (c *Controller) PointerUp(screen core.Point) error {
	return c.handlers.Emit(EventPointerUp, c.pointer(screen))
}

// SecondaryClick asks the authority to remove the figure under the pointer.
// Nothing changes locally; the figure stays until a snapshot omits it. A
// non-finite position hits nothing.
func (c *Controller) SecondaryClick(screen core.Point) (string, bool, error) {
	if !finitePoint(screen) {
		return "", false, nil
	}
	id, ok := c.scene.HitTest(c.view.ToLogical(screen))
	if !ok {
		return "", false, nil
	}
	return id, true, c.intents.RemoveFigure(id)
}

// Zoom sets the zoom factor about anchor. A nil or non-finite anchor falls
// back to the viewport center.
func (c *Controller) Zoom(raw float64, anchor *core.Point) {
	a := c.ViewportCenter()
	if anchor != nil && finitePoint(*anchor) {
		a = *anchor
	}
	c.view.SetZoomAboutPoint(raw, a)
	c.scene.SyncTransform(c.view)
}

func (c *Controller) startDrag(id string, pointerLogical core.Point) {
	el, _ := c.scene.Element(id)
	origin := el.Bounds.Origin()

	c.mode = Dragging
	c.drag = DragSession{
		TargetID:      id,
		PointerOffset: pointerLogical.Sub(origin),
		Position:      origin,
	}
	c.enter(c.onDragMove, c.onDragEnd)
}

func (c *Controller) onDragMove(screen core.Point) error {
	c.dragTo(screen)
	return nil
}

func (c *Controller) onDragEnd(screen core.Point) error {
	c.dragTo(screen)
	session := c.drag
	c.exit()
	return c.intents.MoveFigure(session.TargetID, session.Position)
}

// dragTo renders the optimistic position; the store is left alone.
func (c *Controller) dragTo(screen core.Point) {
	pos := c.view.ToLogical(screen).Sub(c.drag.PointerOffset)
	c.drag.Position = pos
	c.scene.MoveElement(c.drag.TargetID, pos)
}

func (c *Controller) startPan(screen core.Point) {
	c.mode = Panning
	c.pan = PanSession{
		PointerStart: screen,
		PanOrigin:    c.view.PanOffset(),
	}
	c.enter(c.onPanMove, c.onPanEnd)
}

func (c *Controller) onPanMove(screen core.Point) error {
	target := c.pan.PanOrigin.Add(screen.Sub(c.pan.PointerStart))
	c.view.Pan(target.Sub(c.view.PanOffset()))
	c.scene.SyncTransform(c.view)
	return nil
}

func (c *Controller) onPanEnd(screen core.Point) error {
	err := c.onPanMove(screen)
	c.exit()
	return err
}

func (c *Controller) enter(move, up PointerHandler) {
	c.gesture = []Handle{
		c.handlers.On(EventPointerMove, move),
		c.handlers.On(EventPointerUp, up),
	}
}

func (c *Controller) exit() {
	for _, h := range c.gesture {
		h.Remove()
	}
	c.gesture = nil
	c.mode = Idle
	c.drag = DragSession{}
	c.pan = PanSession{}
}

// pointer replaces a non-finite screen position with the last finite one of
// the active gesture, or with the viewport center when idle.
func (c *Controller) pointer(screen core.Point) core.Point {
	switch {
	case finitePoint(screen):
		c.last = screen
	case c.mode == Idle:
		c.last = c.ViewportCenter()
	}
	return c.last
}

func finitePoint(p core.Point) bool {
	return finite(p.X) && finite(p.Y)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
