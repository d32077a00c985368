// Package syncchannel is the client side of the authority connection: it
// delivers inbound frames in order and writes outbound intents from a single
// goroutine. A lost connection ends the session; reconnecting is left to the
// caller.
package syncchannel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/figureboard/figureboard/internal/channel"
	"github.com/figureboard/figureboard/pkg/streaming"
)

var (
	// ErrDisconnected reports that the connection to the authority was lost.
	ErrDisconnected = errors.New("sync channel disconnected")
	// ErrClosed reports use of a channel after Close.
	ErrClosed = errors.New("sync channel closed")
	// ErrBufferFull reports an intent dropped because the writer fell behind.
	ErrBufferFull = errors.New("sync channel send buffer full")
)

const (
	defaultSendBuffer    = 256
	defaultInboundBuffer = 64
	defaultReadLimit     = 8 << 20
	writeWait            = 10 * time.Second
)

// Options tunes a Channel. Zero values select defaults.
type Options struct {
	SendBuffer    int
	InboundBuffer int
	ReadLimit     int64
	Logger        *slog.Logger
}

// Channel is a connected session with the authority.
type Channel struct {
	mu     sync.Mutex
	conn   *ws.Conn
	closed bool
	err    error

	sendCh  chan []byte
	inbound channel.Channel[[]byte]
	done    chan struct{}
	once    sync.Once

	logger *slog.Logger
}

// Dial connects to the authority websocket endpoint and starts the read and
// write loops.
func Dial(ctx context.Context, rawURL string, opts Options) (*Channel, error) {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = defaultInboundBuffer
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	conn, _, err := ws.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadLimit(opts.ReadLimit)

	c := &Channel{
		conn:    conn,
		sendCh:  make(chan []byte, opts.SendBuffer),
		inbound: channel.New[[]byte](opts.InboundBuffer),
		done:    make(chan struct{}),
		logger:  opts.Logger.With("component", "syncchannel"),
	}

	go c.writeLoop()
	go c.readLoop()

	c.logger.Info("Connected to authority", "url", rawURL)
	return c, nil
}

// Inbound returns the frames received from the authority, in delivery order.
// The channel is closed once the session ends.
func (c *Channel) Inbound() channel.Receiver[[]byte] {
	return c.inbound
}

// Done is closed when the session ends, by Close or by a lost connection.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err returns why the session ended, or nil while it is live.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send encodes an intent and queues it for the write loop. It never blocks.
func (c *Channel) Send(msgType string, payload any) error {
	if err := c.Err(); err != nil {
		return err
	}

	data, err := streaming.Encode(msgType, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return c.Err()
	case c.sendCh <- data:
		return nil
	default:
		c.logger.Warn("Send buffer full, dropping intent", "type", msgType)
		return ErrBufferFull
	}
}

// Close sends a close frame and stops both loops. Closing twice is a no-op.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.err == nil {
		c.err = ErrClosed
	}
	conn := c.conn
	c.mu.Unlock()

	c.once.Do(func() { close(c.done) })

	_ = conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return conn.Close()
}

// disconnect records the first failure and ends the session.
func (c *Channel) disconnect(cause error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrDisconnected, cause)
		c.logger.Warn("Lost connection to authority", "error", cause)
	}
	c.mu.Unlock()

	c.once.Do(func() { close(c.done) })
	_ = c.conn.Close()
}

// writeLoop is the only writer on the connection.
func (c *Channel) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.disconnect(err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.disconnect(err)
				return
			}
		}
	}
}

// readLoop hands every text frame to the inbound channel and closes it when
// the connection ends.
func (c *Channel) readLoop() {
	defer c.inbound.Close()

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.disconnect(err)
			}
			return
		}
		if msgType != ws.TextMessage {
			c.logger.Debug("Ignoring non-text frame", "messageType", msgType)
			continue
		}
		if !c.inbound.SendUntil(message, c.done) {
			return
		}
	}
}

// EndpointURL turns the authority base URL and websocket path into a ws://
// or wss:// URL.
func EndpointURL(serverURL, wsPath string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme %q", serverURL, u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(wsPath, "/")
	return u.String(), nil
}
