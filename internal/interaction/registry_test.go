package interaction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/figureboard/figureboard/pkg/core"
)

func TestRegistry_OnEmitRemove(t *testing.T) {
	r := NewRegistry()
	var got []core.Point
	h := r.On(EventPointerMove, func(p core.Point) error {
		got = append(got, p)
		return nil
	})

	assert.Equal(t, 1, r.Len(EventPointerMove))
	assert.Equal(t, 0, r.Len(EventPointerUp))

	assert.NoError(t, r.Emit(EventPointerMove, core.Point{X: 1, Y: 2}))
	assert.NoError(t, r.Emit(EventPointerUp, core.Point{X: 9, Y: 9}))
	assert.Equal(t, []core.Point{{X: 1, Y: 2}}, got)

	h.Remove()
	h.Remove()
	assert.Equal(t, 0, r.Len(EventPointerMove))
	assert.NoError(t, r.Emit(EventPointerMove, core.Point{}))
	assert.Len(t, got, 1)
}

func TestRegistry_HandlerRemovesItself(t *testing.T) {
	r := NewRegistry()
	calls := 0
	var h Handle
	h = r.On(EventPointerUp, func(core.Point) error {
		calls++
		h.Remove()
		return nil
	})
	r.On(EventPointerUp, func(core.Point) error {
		calls++
		return nil
	})

	assert.NoError(t, r.Emit(EventPointerUp, core.Point{}))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, r.Len(EventPointerUp))
}

func TestRegistry_FirstErrorStops(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	second := false
	r.On(EventPointerMove, func(core.Point) error { return boom })
	r.On(EventPointerMove, func(core.Point) error {
		second = true
		return nil
	})

	assert.ErrorIs(t, r.Emit(EventPointerMove, core.Point{}), boom)
	assert.False(t, second)
}

func TestRegistry_ZeroHandleRemoveIsNoop(t *testing.T) {
	var h Handle
	assert.NotPanics(t, h.Remove)
}
