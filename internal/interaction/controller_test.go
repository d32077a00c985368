package interaction

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figureboard/figureboard/internal/cache"
	"github.com/figureboard/figureboard/internal/render"
	"github.com/figureboard/figureboard/internal/transform"
	"github.com/figureboard/figureboard/pkg/core"
)

type moveIntent struct {
	ID  string
	Pos core.Point
}

type recordingIntents struct {
	moves   []moveIntent
	removes []string
	err     error
}

func (r *recordingIntents) MoveFigure(id string, pos core.Point) error {
	r.moves = append(r.moves, moveIntent{ID: id, Pos: pos})
	return r.err
}

func (r *recordingIntents) RemoveFigure(id string) error {
	r.removes = append(r.removes, id)
	return r.err
}

type harness struct {
	ctrl    *Controller
	view    *transform.Model
	scene   *render.Scene
	figures *cache.FigureStore
	prefs   *cache.PreferenceStore
	intents *recordingIntents
}

func newHarness(figs ...core.Figure) *harness {
	h := &harness{
		view:    transform.New(),
		scene:   render.NewScene(),
		figures: cache.NewFigureStore(),
		prefs:   cache.NewPreferenceStore(),
		intents: &recordingIntents{},
	}
	h.ctrl = New(h.view, h.scene, h.intents)
	h.ctrl.SetViewport(200, 100)
	h.snapshot(figs...)
	return h
}

func (h *harness) snapshot(figs ...core.Figure) {
	h.figures.ApplySnapshot(figs)
	h.scene.Render(h.figures, h.view, h.prefs, "")
}

func (h *harness) assertNoHandlers(t *testing.T) {
	t.Helper()
	assert.Equal(t, 0, h.ctrl.Handlers().Len(EventPointerMove))
	assert.Equal(t, 0, h.ctrl.Handlers().Len(EventPointerUp))
}

func TestDrag_ScenarioAtZoomTwo(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})
	h.view.SetZoomAboutPoint(2, core.Point{X: 0, Y: 0})

	mode := h.ctrl.PointerDown(core.Point{X: 10, Y: 10})
	require.Equal(t, Dragging, mode)

	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 30, Y: 20}))
	el, _ := h.scene.Element("a")
	assert.Equal(t, core.Point{X: 10, Y: 5}, el.Bounds.Origin())
	assert.True(t, el.Optimistic)

	require.NoError(t, h.ctrl.PointerUp(core.Point{X: 50, Y: 30}))

	assert.Equal(t, []moveIntent{{ID: "a", Pos: core.Point{X: 20, Y: 10}}}, h.intents.moves)
	assert.Equal(t, Idle, h.ctrl.Mode())
	h.assertNoHandlers(t)

	f, _ := h.figures.Get("a")
	assert.Equal(t, core.Point{}, f.Position(), "store waits for the authority")
}

func TestDrag_RoundTripAcrossZoomLevels(t *testing.T) {
	cases := []struct {
		name   string
		zoom   float64
		anchor core.Point
		delta  core.Point
	}{
		{name: "unit zoom", zoom: 1, delta: core.Point{X: 17, Y: -3}},
		{name: "zoom 1.5", zoom: 1.5, anchor: core.Point{X: 40, Y: 40}, delta: core.Point{X: 30, Y: 12}},
		{name: "zoom 3", zoom: 3, anchor: core.Point{X: 100, Y: 50}, delta: core.Point{X: -9, Y: 27}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fig := core.Figure{ID: "f", X: 100, Y: 100, Width: 50, Height: 50}
			h := newHarness(fig)
			h.view.SetZoomAboutPoint(tc.zoom, tc.anchor)
			h.scene.SyncTransform(h.view)

			// grab the figure at its center
			start := h.view.ToScreen(fig.Bounds().Center())
			require.Equal(t, Dragging, h.ctrl.PointerDown(start))
			require.NoError(t, h.ctrl.PointerUp(start.Add(tc.delta)))

			require.Len(t, h.intents.moves, 1)
			got := h.intents.moves[0].Pos
			assert.InDelta(t, fig.X+tc.delta.X/tc.zoom, got.X, 1e-9)
			assert.InDelta(t, fig.Y+tc.delta.Y/tc.zoom, got.Y, 1e-9)
		})
	}
}

func TestPointerDown_FigureHitNeverPans(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})
	before := h.view.State()

	h.ctrl.PointerDown(core.Point{X: 10, Y: 10})
	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 60, Y: 60}))

	_, panning := h.ctrl.Pan()
	assert.False(t, panning)
	assert.Equal(t, before, h.view.State())

	require.NoError(t, h.ctrl.PointerUp(core.Point{X: 60, Y: 60}))
	h.assertNoHandlers(t)
}

func TestPan_BackgroundDrag(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	require.Equal(t, Panning, h.ctrl.PointerDown(core.Point{X: 150, Y: 80}))
	_, dragging := h.ctrl.Drag()
	assert.False(t, dragging)

	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 160, Y: 70}))
	assert.Equal(t, core.Point{X: 10, Y: -10}, h.view.PanOffset())
	assert.Equal(t, h.view.State(), h.scene.Container().Transform)

	require.NoError(t, h.ctrl.PointerUp(core.Point{X: 170, Y: 90}))
	assert.Equal(t, core.Point{X: 20, Y: 10}, h.view.PanOffset())
	assert.Equal(t, Idle, h.ctrl.Mode())
	assert.Empty(t, h.intents.moves)
	h.assertNoHandlers(t)
}

func TestPointerDown_IgnoredDuringGesture(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	h.ctrl.PointerDown(core.Point{X: 150, Y: 80})
	assert.Equal(t, Panning, h.ctrl.PointerDown(core.Point{X: 10, Y: 10}))
	assert.Equal(t, 1, h.ctrl.Handlers().Len(EventPointerMove))
	assert.Equal(t, 1, h.ctrl.Handlers().Len(EventPointerUp))
}

func TestGestures_HandlersNeverAccumulate(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	for i := 0; i < 25; i++ {
		h.ctrl.PointerDown(core.Point{X: 10, Y: 10})
		require.NoError(t, h.ctrl.PointerMove(core.Point{X: 11, Y: 11}))
		require.NoError(t, h.ctrl.PointerUp(core.Point{X: 10, Y: 10}))
		h.snapshot(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

		h.ctrl.PointerDown(core.Point{X: 150, Y: 80})
		require.NoError(t, h.ctrl.PointerUp(core.Point{X: 150, Y: 80}))
	}

	h.assertNoHandlers(t)
	assert.Len(t, h.intents.moves, 25)
}

func TestPointerMove_WithoutGestureIsNoop(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 40, Y: 40}))
	require.NoError(t, h.ctrl.PointerUp(core.Point{X: 40, Y: 40}))

	assert.Equal(t, transform.New().State(), h.view.State())
	assert.Empty(t, h.intents.moves)
}

func TestDrag_SnapshotMidDragServerWins(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	h.ctrl.PointerDown(core.Point{X: 10, Y: 10})
	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 40, Y: 40}))

	h.snapshot(core.Figure{ID: "a", X: 5, Y: 5, Width: 50, Height: 50})
	el, _ := h.scene.Element("a")
	assert.Equal(t, core.Point{X: 5, Y: 5}, el.Bounds.Origin())
	assert.False(t, el.Optimistic)

	require.NoError(t, h.ctrl.PointerUp(core.Point{X: 40, Y: 40}))
	assert.Equal(t, []moveIntent{{ID: "a", Pos: core.Point{X: 30, Y: 30}}}, h.intents.moves)
}

func TestDrag_TargetRemovedMidDrag(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	h.ctrl.PointerDown(core.Point{X: 10, Y: 10})
	h.snapshot()

	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 20, Y: 20}))
	require.NoError(t, h.ctrl.PointerUp(core.Point{X: 20, Y: 20}))

	assert.Equal(t, 0, h.scene.Len())
	assert.Equal(t, []moveIntent{{ID: "a", Pos: core.Point{X: 10, Y: 10}}}, h.intents.moves)
	h.assertNoHandlers(t)
}

func TestDrag_IntentErrorStillEndsGesture(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})
	h.intents.err = errors.New("disconnected")

	h.ctrl.PointerDown(core.Point{X: 10, Y: 10})
	err := h.ctrl.PointerUp(core.Point{X: 20, Y: 20})

	assert.ErrorIs(t, err, h.intents.err)
	assert.Equal(t, Idle, h.ctrl.Mode())
	h.assertNoHandlers(t)
}

func TestSecondaryClick(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	id, hit, err := h.ctrl.SecondaryClick(core.Point{X: 25, Y: 25})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a", id)
	assert.Equal(t, []string{"a"}, h.intents.removes)
	assert.Equal(t, 1, h.scene.Len(), "removal waits for the authority")

	_, hit, err = h.ctrl.SecondaryClick(core.Point{X: 150, Y: 80})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, h.intents.removes, 1)
}

func TestZoom_AnchorsAndFallback(t *testing.T) {
	h := newHarness()

	anchor := core.Point{X: 10, Y: 10}
	h.ctrl.Zoom(2, &anchor)
	assert.Equal(t, transform.State{PanX: -10, PanY: -10, Zoom: 2}, h.view.State())
	assert.Equal(t, h.view.State(), h.scene.Container().Transform)

	h = newHarness()
	h.ctrl.Zoom(2, nil)
	// viewport is 200x100, center (100,50) stays fixed
	assert.Equal(t, transform.State{PanX: -100, PanY: -50, Zoom: 2}, h.view.State())

	h.ctrl.Zoom(9, nil)
	assert.Equal(t, transform.MaxZoom, h.view.Zoom())
}

func assertFiniteState(t *testing.T, st transform.State) {
	t.Helper()
	for _, v := range []float64{st.PanX, st.PanY, st.Zoom} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "state %+v", st)
	}
}

func TestPan_NonFinitePointerFallsBack(t *testing.T) {
	h := newHarness()
	nan := core.Point{X: math.NaN(), Y: math.NaN()}
	inf := core.Point{X: math.Inf(1), Y: math.Inf(-1)}

	// idle press falls back to the viewport center (100,50)
	require.Equal(t, Panning, h.ctrl.PointerDown(nan))
	session, ok := h.ctrl.Pan()
	require.True(t, ok)
	assert.Equal(t, core.Point{X: 100, Y: 50}, session.PointerStart)

	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 130, Y: 70}))
	require.NoError(t, h.ctrl.PointerMove(inf))
	require.NoError(t, h.ctrl.PointerUp(nan))

	assert.Equal(t, Idle, h.ctrl.Mode())
	assert.Equal(t, transform.State{PanX: 30, PanY: 20, Zoom: 1}, h.view.State())

	h.ctrl.Zoom(h.view.Zoom()+0.1, nil)
	assertFiniteState(t, h.view.State())
	assertFiniteState(t, h.scene.Container().Transform)
	h.assertNoHandlers(t)
}

func TestDrag_NonFinitePointerStillEmitsMove(t *testing.T) {
	h := newHarness(core.Figure{ID: "a", X: 0, Y: 0, Width: 50, Height: 50})

	require.Equal(t, Dragging, h.ctrl.PointerDown(core.Point{X: 10, Y: 10}))
	require.NoError(t, h.ctrl.PointerMove(core.Point{X: 30, Y: 20}))
	require.NoError(t, h.ctrl.PointerMove(core.Point{X: math.NaN(), Y: 5}))
	require.NoError(t, h.ctrl.PointerUp(core.Point{X: math.Inf(1), Y: math.Inf(1)}))

	require.Len(t, h.intents.moves, 1)
	assert.Equal(t, moveIntent{ID: "a", Pos: core.Point{X: 20, Y: 10}}, h.intents.moves[0])
	assertFiniteState(t, h.view.State())
	assert.Equal(t, Idle, h.ctrl.Mode())
}

func TestSecondaryClick_NonFiniteHitsNothing(t *testing.T) {
	// figure covers the viewport center, which must not be targeted
	h := newHarness(core.Figure{ID: "a", X: 90, Y: 40, Width: 20, Height: 20})

	id, hit, err := h.ctrl.SecondaryClick(core.Point{X: math.NaN(), Y: math.NaN()})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, id)
	assert.Empty(t, h.intents.removes)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "dragging", Dragging.String())
	assert.Equal(t, "panning", Panning.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}
