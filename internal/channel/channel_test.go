package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffered_TrySendRespectsCapacity(t *testing.T) {
	c := NewBuffered[int](2)

	assert.True(t, c.TrySend(1))
	assert.True(t, c.TrySend(2))
	assert.False(t, c.TrySend(3))
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 1, <-c.Receive())
	assert.Equal(t, 2, <-c.Receive())
}

func TestBuffered_SendUntilDone(t *testing.T) {
	c := NewBuffered[string](1)
	c.Send("a")

	done := make(chan struct{})
	close(done)
	assert.False(t, c.SendUntil("b", done))
	assert.Equal(t, 1, c.Len())
}

func TestBuffered_CloseTwice(t *testing.T) {
	c := NewBuffered[int](1)
	c.Close()
	assert.NotPanics(t, c.Close)

	_, ok := <-c.Receive()
	assert.False(t, ok)
}

func TestUnbuffered_SendUntilDelivers(t *testing.T) {
	c := NewUnbuffered[int]()
	got := make(chan int, 1)
	go func() { got <- <-c.Receive() }()

	require.True(t, c.SendUntil(7, make(chan struct{})))
	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("value not received")
	}
	assert.Equal(t, 0, c.Len())
}

func TestUnbuffered_TrySendWithoutReceiver(t *testing.T) {
	c := NewUnbuffered[int]()
	assert.False(t, c.TrySend(1))
}

func TestNew_PicksImplementationBySize(t *testing.T) {
	buffered := New[int](4)
	assert.IsType(t, &Buffered[int]{}, buffered)
	assert.True(t, buffered.TrySend(1))
	assert.Equal(t, 1, buffered.Len())
	buffered.Close()

	unbuffered := New[int](0)
	assert.IsType(t, &Unbuffered[int]{}, unbuffered)
	assert.False(t, unbuffered.TrySend(1))
	unbuffered.Close()
}
