package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figureboard/figureboard/internal/interaction"
	"github.com/figureboard/figureboard/internal/transform"
	"github.com/figureboard/figureboard/pkg/core"
	"github.com/figureboard/figureboard/pkg/streaming"
)

type sentIntent struct {
	Type    string
	Payload any
}

type captureSender struct {
	sent []sentIntent
	err  error
}

func (c *captureSender) Send(msgType string, payload any) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentIntent{Type: msgType, Payload: payload})
	return nil
}

func newEngine(t *testing.T) (*Engine, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	e, err := New(sender, Options{})
	require.NoError(t, err)
	return e, sender
}

func stateFrame(t *testing.T, currentMap string, figs ...core.Figure) []byte {
	t.Helper()
	if figs == nil {
		figs = []core.Figure{}
	}
	b, err := json.Marshal(streaming.StateUpdate{Type: streaming.TypeStateUpdate, CurrentMap: currentMap, Figures: figs})
	require.NoError(t, err)
	return b
}

var figureA = core.Figure{ID: "a", Name: "Orc", X: 10, Y: 10, Width: 50, Height: 50, Color: "#000", Lives: 3}

func TestScenario_RenderZoomDrag(t *testing.T) {
	e, sender := newEngine(t)

	require.NoError(t, e.HandleFrame([]byte(`{"type":"state_update","currentMap":"m1.png","figures":[{"id":"a","x":10,"y":10,"width":50,"height":50,"color":"#000","lives":3}]}`)))

	require.Equal(t, 1, e.Scene().Len())
	el, ok := e.Scene().Element("a")
	require.True(t, ok)
	assert.Equal(t, core.Point{X: 10, Y: 10}, el.Bounds.Origin())
	assert.Equal(t, "m1.png", e.Scene().Container().Background)

	e.SetZoom(2, &core.Point{X: 10, Y: 10})
	assert.Equal(t, transform.State{PanX: -10, PanY: -10, Zoom: 2}, e.Transform())

	start := e.View().ToScreen(core.Point{X: 20, Y: 20})
	require.Equal(t, interaction.Dragging, e.PointerDown(start))
	require.NoError(t, e.PointerMove(start.Add(core.Point{X: 10})))
	require.NoError(t, e.PointerUp(start.Add(core.Point{X: 20})))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, streaming.TypeMoveFigure, sender.sent[0].Type)
	assert.Equal(t, streaming.MoveFigurePayload{ID: "a", X: 20, Y: 10}, sender.sent[0].Payload)
}

func TestScenario_RemoveWaitsForSnapshot(t *testing.T) {
	e, sender := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	id, hit, err := e.SecondaryClick(core.Point{X: 20, Y: 20})
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "a", id)
	assert.Equal(t, []sentIntent{{Type: streaming.TypeRemoveFigure, Payload: streaming.RemoveFigurePayload{ID: "a"}}}, sender.sent)

	_, ok := e.Scene().Element("a")
	assert.True(t, ok, "still rendered until confirmed")

	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png")))
	_, ok = e.Scene().Element("a")
	assert.False(t, ok)
	assert.Equal(t, 0, e.Scene().Len())
}

func TestHandleFrame_MalformedLeavesStateAlone(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	frames := []string{
		``,
		`garbage`,
		`{"currentMap":"m2.png","figures":[]}`,
		`{"type":"chat","data":{}}`,
		`{"type":"state_update","currentMap":"m2.png","figures":{"id":"x"}}`,
		`{"type":"state_update","currentMap":"m2.png","figures":[{"id":"b"},{"id":""}]}`,
		`{"type":"state_update","currentMap":"m2.png","figures":null}`,
		`{"type":"state_update","currentMap":"m2.png"}`,
	}
	for _, f := range frames {
		assert.Error(t, e.HandleFrame([]byte(f)), "frame %q", f)
	}

	assert.Equal(t, "m1.png", e.CurrentMap())
	assert.Equal(t, []core.Figure{figureA}, e.Figures())
	assert.Equal(t, uint64(1), e.Snapshots())
}

func TestHandleFrame_EmptyIDRejected(t *testing.T) {
	e, _ := newEngine(t)
	err := e.HandleFrame([]byte(`{"type":"state_update","currentMap":"m","figures":[{"id":""}]}`))
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
}

func TestHandleFrame_NullFiguresKeepsBoard(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	err := e.HandleFrame([]byte(`{"type":"state_update","currentMap":"m1.png","figures":null}`))
	assert.ErrorIs(t, err, ErrMalformedSnapshot)
	assert.ErrorIs(t, err, streaming.ErrMissingFigures)
	assert.Equal(t, 1, e.Scene().Len())
}

func TestApplySnapshot_Idempotent(t *testing.T) {
	e, _ := newEngine(t)
	frame := stateFrame(t, "m1.png", figureA, core.Figure{ID: "b", X: 100, Y: 100, Width: 10, Height: 10})

	require.NoError(t, e.HandleFrame(frame))
	figures := e.Figures()
	elements := e.Scene().Elements()

	require.NoError(t, e.HandleFrame(frame))
	assert.Equal(t, figures, e.Figures())
	assert.Equal(t, elements, e.Scene().Elements())
	assert.Equal(t, uint64(2), e.Snapshots())
}

func TestLabelPreference_SurvivesSnapshots(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	visible, err := e.ToggleLabel("a")
	require.NoError(t, err)
	assert.False(t, visible)

	moved := figureA
	for i := 0; i < 10; i++ {
		moved.X += 7
		moved.Y -= 3
		require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", moved)))
	}

	el, _ := e.Scene().Element("a")
	assert.False(t, el.LabelVisible)
	assert.Equal(t, "", el.Label())

	require.NoError(t, e.SetLabelVisible("a", true))
	el, _ = e.Scene().Element("a")
	assert.True(t, el.LabelVisible)

	_, err = e.ToggleLabel("ghost")
	assert.ErrorIs(t, err, ErrUnknownFigure)
	assert.ErrorIs(t, e.SetLabelVisible("ghost", false), ErrUnknownFigure)
}

func TestDrag_SnapshotMidDragServerWins(t *testing.T) {
	e, sender := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	e.PointerDown(core.Point{X: 20, Y: 20})
	require.NoError(t, e.PointerMove(core.Point{X: 60, Y: 60}))
	el, _ := e.Scene().Element("a")
	assert.True(t, el.Optimistic)

	remote := figureA
	remote.X, remote.Y = 200, 200
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", remote)))

	el, _ = e.Scene().Element("a")
	assert.Equal(t, core.Point{X: 200, Y: 200}, el.Bounds.Origin())
	assert.Equal(t, interaction.Dragging, e.Mode(), "drag survives the snapshot")

	require.NoError(t, e.PointerUp(core.Point{X: 60, Y: 60}))
	assert.Equal(t, []sentIntent{{Type: streaming.TypeMoveFigure, Payload: streaming.MoveFigurePayload{ID: "a", X: 50, Y: 50}}}, sender.sent)
}

func TestAddFigure_AtViewportCenter(t *testing.T) {
	e, sender := newEngine(t)

	require.NoError(t, e.AddFigure(""))
	e.SetViewport(400, 200)
	e.SetZoom(2, &core.Point{X: 0, Y: 0})
	require.NoError(t, e.AddFigure("Goblin"))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, streaming.TypeAddFigure, sender.sent[0].Type)
	assert.Equal(t, core.Figure{Name: "Figure", X: 100, Y: 100, Width: 50, Height: 50}, sender.sent[0].Payload)
	// logical center of a 400x200 viewport at zoom 2 is (100,50)
	assert.Equal(t, core.Figure{Name: "Goblin", X: 75, Y: 25, Width: 50, Height: 50}, sender.sent[1].Payload)
}

func TestUpdateLives(t *testing.T) {
	e, sender := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	require.NoError(t, e.UpdateLives("a", 5))
	require.NoError(t, e.AdjustLives("a", -1))
	require.NoError(t, e.AdjustLives("a", -10))

	assert.ErrorIs(t, e.UpdateLives("a", -1), ErrInvalidLives)
	assert.ErrorIs(t, e.UpdateLives("ghost", 1), ErrUnknownFigure)
	assert.ErrorIs(t, e.AdjustLives("ghost", 1), ErrUnknownFigure)

	assert.Equal(t, []sentIntent{
		{Type: streaming.TypeUpdateLives, Payload: streaming.UpdateLivesPayload{ID: "a", Lives: 5}},
		{Type: streaming.TypeUpdateLives, Payload: streaming.UpdateLivesPayload{ID: "a", Lives: 2}},
		{Type: streaming.TypeUpdateLives, Payload: streaming.UpdateLivesPayload{ID: "a", Lives: 0}},
	}, sender.sent)

	f, _ := e.Figure("a")
	assert.Equal(t, 3, f.Lives, "store waits for the authority")
}

func TestSetMap(t *testing.T) {
	e, sender := newEngine(t)
	require.NoError(t, e.SetMap("/uploads/cave.png"))
	assert.Equal(t, []sentIntent{{Type: streaming.TypeSetMap, Payload: streaming.SetMapPayload{Map: "/uploads/cave.png"}}}, sender.sent)
	assert.Equal(t, "", e.CurrentMap())
}

func TestSendFailure_Wrapped(t *testing.T) {
	e, sender := newEngine(t)
	sender.err = errors.New("sync channel disconnected")

	err := e.SetMap("m")
	assert.ErrorIs(t, err, sender.err)
	assert.ErrorContains(t, err, "send set_map")
}

func TestZoomControls(t *testing.T) {
	e, _ := newEngine(t)
	e.SetViewport(100, 100)

	e.ZoomIn()
	assert.InDelta(t, 1.1, e.Transform().Zoom, 1e-9)
	// center stays fixed
	assert.InDelta(t, 50, e.View().ToScreen(core.Point{X: 50, Y: 50}).X, 1e-9)

	e.ZoomOut()
	e.ZoomOut()
	assert.Equal(t, transform.MinZoom, e.Transform().Zoom)

	at := core.Point{X: 30, Y: 70}
	logical := e.View().ToLogical(at)
	e.Wheel(5, at)
	assert.InDelta(t, 1.5, e.Transform().Zoom, 1e-9)
	got := e.View().ToScreen(logical)
	assert.InDelta(t, at.X, got.X, 1e-9)
	assert.InDelta(t, at.Y, got.Y, 1e-9)

	e.Wheel(100, at)
	assert.Equal(t, transform.MaxZoom, e.Transform().Zoom)
}

func TestFigureAt(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))
	e.SetZoom(2, &core.Point{})

	id, ok := e.FigureAt(core.Point{X: 30, Y: 30})
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	_, ok = e.FigureAt(core.Point{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestLogContext(t *testing.T) {
	e, _ := newEngine(t)
	require.NoError(t, e.HandleFrame(stateFrame(t, "m1.png", figureA)))

	attrs := e.LogContext()
	require.Len(t, attrs, 3)
	assert.Equal(t, "m1.png", attrs[0].Value.String())
	assert.Equal(t, uint64(1), attrs[1].Value.Uint64())
	assert.Equal(t, "idle", attrs[2].Value.String())
}
