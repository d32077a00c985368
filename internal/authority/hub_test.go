package authority

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figureboard/figureboard/internal/channel"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := NewHub(quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func fakeClient(id string, buffer int) *Client {
	return &Client{id: id, send: channel.NewBuffered[[]byte](buffer), log: quietLogger()}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	h, _ := startHub(t)
	a, b := fakeClient("a", 4), fakeClient("b", 4)
	require.True(t, h.Register(a))
	require.True(t, h.Register(b))

	h.Broadcast([]byte("snap"))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send.Receive():
			assert.Equal(t, "snap", string(msg))
		case <-time.After(time.Second):
			t.Fatalf("client %s got nothing", c.id)
		}
	}
	assert.Equal(t, 2, h.Clients())
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := fakeClient("slow", 1)
	fast := fakeClient("fast", 8)
	require.True(t, h.Register(slow))
	require.True(t, h.Register(fast))

	h.Broadcast([]byte("1"))
	h.Broadcast([]byte("2"))

	assert.Equal(t, 1, h.Clients())

	// the slow client keeps what was queued, then sees its queue closed
	msg, ok := <-slow.send.Receive()
	assert.True(t, ok)
	assert.Equal(t, "1", string(msg))
	_, ok = <-slow.send.Receive()
	assert.False(t, ok)

	assert.Equal(t, 2, fast.send.Len())
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	h, _ := startHub(t)
	c := fakeClient("c", 1)
	require.True(t, h.Register(c))

	h.Unregister(c)
	h.Unregister(c)

	_, ok := <-c.send.Receive()
	assert.False(t, ok)
	assert.Equal(t, 0, h.Clients())
}

func TestHub_StopClosesClientsAndRefusesNew(t *testing.T) {
	h, cancel := startHub(t)
	c := fakeClient("c", 1)
	require.True(t, h.Register(c))

	cancel()
	<-h.Done()

	_, ok := <-c.send.Receive()
	assert.False(t, ok)
	assert.False(t, h.Register(fakeClient("late", 1)))
	assert.Equal(t, 0, h.Clients())
	h.Broadcast([]byte("ignored"))
}
