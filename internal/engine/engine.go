// Package engine ties the figure store, the preference store, the view
// transform, the scene and the interaction controller into one owned unit.
//
// An Engine is driven by a single event loop: inbound frames, pointer events
// and user commands must all be delivered from the same goroutine. Nothing in
// here locks.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/figureboard/figureboard/internal/cache"
	"github.com/figureboard/figureboard/internal/dispatcher"
	"github.com/figureboard/figureboard/internal/interaction"
	"github.com/figureboard/figureboard/internal/logging"
	"github.com/figureboard/figureboard/internal/render"
	"github.com/figureboard/figureboard/internal/transform"
	"github.com/figureboard/figureboard/pkg/core"
	"github.com/figureboard/figureboard/pkg/streaming"
)

var (
	// ErrUnknownFigure is returned for an id the last snapshot did not contain.
	ErrUnknownFigure = errors.New("unknown figure")
	// ErrInvalidLives is returned for a negative life count.
	ErrInvalidLives = errors.New("invalid lives")
	// ErrMalformedSnapshot is returned for a snapshot that was rejected whole.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

const (
	DefaultZoomStep     = 0.1
	DefaultFigureName   = "Figure"
	DefaultFigureWidth  = 50
	DefaultFigureHeight = 50
)

// fallbackSpawn is where new figures go when no viewport is known.
var fallbackSpawn = core.Point{X: 100, Y: 100}

// Sender delivers an intent to the authority.
type Sender interface {
	Send(msgType string, payload any) error
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	ZoomStep     float64
	FigureName   string
	FigureWidth  float64
	FigureHeight float64
	Logger       *slog.Logger
}

// Engine is the client-side view of one shared board.
type Engine struct {
	figures *cache.FigureStore
	prefs   *cache.PreferenceStore
	view    *transform.Model
	scene   *render.Scene
	ctrl    *interaction.Controller
	inbound *dispatcher.Dispatcher
	sender  Sender
	metrics *metrics

	opts       Options
	currentMap string
	snapshots  uint64
	viewport   core.Point
	logger     *slog.Logger
}

// New creates an engine that sends its intents through sender.
func New(sender Sender, opts Options) (*Engine, error) {
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = DefaultZoomStep
	}
	if opts.FigureName == "" {
		opts.FigureName = DefaultFigureName
	}
	if opts.FigureWidth <= 0 {
		opts.FigureWidth = DefaultFigureWidth
	}
	if opts.FigureHeight <= 0 {
		opts.FigureHeight = DefaultFigureHeight
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		figures: cache.NewFigureStore(),
		prefs:   cache.NewPreferenceStore(),
		view:    transform.New(),
		scene:   render.NewScene(),
		sender:  sender,
		opts:    opts,
	}
	e.logger = slog.New(logging.NewContextHandler(opts.Logger.Handler(), e.LogContext)).With("component", "engine")
	e.ctrl = interaction.New(e.view, e.scene, e)

	var err error
	if e.metrics, err = newMetrics(); err != nil {
		return nil, err
	}

	if e.inbound, err = dispatcher.New(e.logger); err != nil {
		return nil, fmt.Errorf("creating inbound dispatcher: %w", err)
	}
	e.inbound.Register(streaming.TypeStateUpdate, e.handleStateUpdate, dispatcher.Logged())

	return e, nil
}

// HandleFrame processes one inbound frame. Frames that fail to decode, carry
// an unknown type or describe an invalid snapshot are logged and dropped
// without touching any state.
func (e *Engine) HandleFrame(raw []byte) error {
	if err := e.inbound.DispatchFrame(raw, ""); err != nil {
		e.metrics.frameIgnored()
		e.logger.Warn("Ignoring inbound frame", "error", err, "bytes", len(raw))
		return err
	}
	return nil
}

func (e *Engine) handleStateUpdate(ev dispatcher.Event) error {
	update, err := streaming.DecodeStateUpdate(ev.Raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	return e.ApplySnapshot(update.Snapshot())
}

// ApplySnapshot replaces the board with an authoritative snapshot and
// re-renders. A snapshot with any figure lacking an id is rejected whole.
func (e *Engine) ApplySnapshot(s core.Snapshot) error {
	for i, f := range s.Figures {
		if f.ID == "" {
			return fmt.Errorf("%w: figure %d has no id", ErrMalformedSnapshot, i)
		}
	}

	e.figures.ApplySnapshot(s.Figures)
	e.currentMap = s.CurrentMap
	stats := e.scene.Render(e.figures, e.view, e.prefs, e.currentMap)
	e.snapshots++
	e.metrics.snapshotApplied()

	e.logger.Debug("Snapshot applied",
		"figures", e.figures.Len(),
		"added", stats.Added,
		"updated", stats.Updated,
		"removed", stats.Removed,
	)
	return nil
}

// SetViewport records the viewport size in screen units.
func (e *Engine) SetViewport(width, height float64) {
	e.viewport = core.Point{X: width, Y: height}
	e.ctrl.SetViewport(width, height)
}

// PointerDown starts a drag or a pan.
func (e *Engine) PointerDown(screen core.Point) interaction.Mode {
	return e.ctrl.PointerDown(screen)
}

// PointerMove feeds the active gesture.
func (e *Engine) PointerMove(screen core.Point) error {
	return e.ctrl.PointerMove(screen)
}

// PointerUp ends the active gesture; a drag emits move_figure.
func (e *Engine) PointerUp(screen core.Point) error {
	return e.ctrl.PointerUp(screen)
}

// SecondaryClick emits remove_figure for the figure under the pointer.
func (e *Engine) SecondaryClick(screen core.Point) (string, bool, error) {
	return e.ctrl.SecondaryClick(screen)
}

// Wheel zooms by notches about the pointer. Positive notches zoom in.
func (e *Engine) Wheel(notches float64, at core.Point) {
	e.ctrl.Zoom(e.view.Zoom()+notches*e.opts.ZoomStep, &at)
}

// ZoomIn zooms one step about the viewport center.
func (e *Engine) ZoomIn() {
	e.ctrl.Zoom(e.view.Zoom()+e.opts.ZoomStep, nil)
}

// ZoomOut zooms one step out about the viewport center.
func (e *Engine) ZoomOut() {
	e.ctrl.Zoom(e.view.Zoom()-e.opts.ZoomStep, nil)
}

// SetZoom sets the zoom factor about anchor, or the viewport center when
// anchor is nil.
func (e *Engine) SetZoom(raw float64, anchor *core.Point) {
	e.ctrl.Zoom(raw, anchor)
}

// FigureAt returns the topmost figure under a screen point.
func (e *Engine) FigureAt(screen core.Point) (string, bool) {
	return e.scene.HitTest(e.view.ToLogical(screen))
}

// AddFigure asks the authority to create a figure with the configured
// defaults at the logical center of the viewport. An empty name selects the
// default one.
func (e *Engine) AddFigure(name string) error {
	if name == "" {
		name = e.opts.FigureName
	}
	pos := fallbackSpawn
	if e.viewport.X > 0 && e.viewport.Y > 0 {
		center := e.view.ToLogical(e.viewport.Scale(0.5))
		pos = center.Sub(core.Point{X: e.opts.FigureWidth / 2, Y: e.opts.FigureHeight / 2})
	}
	return e.send(streaming.TypeAddFigure, core.Figure{
		Name:   name,
		X:      pos.X,
		Y:      pos.Y,
		Width:  e.opts.FigureWidth,
		Height: e.opts.FigureHeight,
	})
}

// MoveFigure asks the authority to move a figure.
func (e *Engine) MoveFigure(id string, pos core.Point) error {
	return e.send(streaming.TypeMoveFigure, streaming.MoveFigurePayload{ID: id, X: pos.X, Y: pos.Y})
}

// RemoveFigure asks the authority to remove a figure. The figure stays on
// screen until a snapshot omits it.
func (e *Engine) RemoveFigure(id string) error {
	return e.send(streaming.TypeRemoveFigure, streaming.RemoveFigurePayload{ID: id})
}

// UpdateLives asks the authority to set a figure's life count.
func (e *Engine) UpdateLives(id string, lives int) error {
	if !e.figures.Has(id) {
		return fmt.Errorf("update lives of %q: %w", id, ErrUnknownFigure)
	}
	if lives < 0 {
		return fmt.Errorf("update lives of %q to %d: %w", id, lives, ErrInvalidLives)
	}
	return e.send(streaming.TypeUpdateLives, streaming.UpdateLivesPayload{ID: id, Lives: lives})
}

// AdjustLives changes a figure's life count by delta relative to the last
// snapshot. The count never goes below zero.
func (e *Engine) AdjustLives(id string, delta int) error {
	f, ok := e.figures.Get(id)
	if !ok {
		return fmt.Errorf("adjust lives of %q: %w", id, ErrUnknownFigure)
	}
	return e.UpdateLives(id, max(f.Lives+delta, 0))
}

// SetMap asks the authority to switch the background map.
func (e *Engine) SetMap(mapID string) error {
	return e.send(streaming.TypeSetMap, streaming.SetMapPayload{Map: mapID})
}

// ToggleLabel flips the label visibility of a figure and returns the new
// value. Purely local.
func (e *Engine) ToggleLabel(id string) (bool, error) {
	if !e.figures.Has(id) {
		return false, fmt.Errorf("toggle label of %q: %w", id, ErrUnknownFigure)
	}
	visible := e.prefs.ToggleLabel(id)
	e.scene.SetLabelVisible(id, visible)
	return visible, nil
}

// SetLabelVisible sets the label visibility of a figure. Purely local.
func (e *Engine) SetLabelVisible(id string, visible bool) error {
	if !e.figures.Has(id) {
		return fmt.Errorf("set label of %q: %w", id, ErrUnknownFigure)
	}
	e.prefs.SetLabelVisible(id, visible)
	e.scene.SetLabelVisible(id, visible)
	return nil
}

func (e *Engine) send(msgType string, payload any) error {
	if err := e.sender.Send(msgType, payload); err != nil {
		e.logger.Warn("Intent not sent", "type", msgType, "error", err)
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	e.metrics.intentSent(msgType)
	return nil
}

// CurrentMap returns the background map of the last snapshot.
func (e *Engine) CurrentMap() string {
	return e.currentMap
}

// Transform returns the current view transform.
func (e *Engine) Transform() transform.State {
	return e.view.State()
}

// View exposes the transform for coordinate conversion.
func (e *Engine) View() *transform.Model {
	return e.view
}

// Scene exposes the rendered elements.
func (e *Engine) Scene() *render.Scene {
	return e.scene
}

// Figure returns a figure from the last snapshot.
func (e *Engine) Figure(id string) (core.Figure, bool) {
	return e.figures.Get(id)
}

// Figures returns the figures of the last snapshot, sorted by id.
func (e *Engine) Figures() []core.Figure {
	return e.figures.All()
}

// Mode returns the gesture state.
func (e *Engine) Mode() interaction.Mode {
	return e.ctrl.Mode()
}

// Snapshots returns how many snapshots have been applied.
func (e *Engine) Snapshots() uint64 {
	return e.snapshots
}

// LogContext returns the engine state attached to every engine log record.
func (e *Engine) LogContext() []slog.Attr {
	return []slog.Attr{
		slog.String("map", e.currentMap),
		slog.Uint64("snapshot", e.snapshots),
		slog.String("mode", e.ctrl.Mode().String()),
	}
}
