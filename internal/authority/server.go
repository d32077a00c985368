package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/afero"

	"github.com/figureboard/figureboard/internal/config"
	"github.com/figureboard/figureboard/internal/dispatcher"
	"github.com/figureboard/figureboard/internal/storage"
	"github.com/figureboard/figureboard/pkg/core"
	"github.com/figureboard/figureboard/pkg/streaming"
)

// IntentRecorder receives one metric sample per applied intent.
type IntentRecorder interface {
	RecordIntent(msgType string, figures int, at time.Time) error
}

// Dependencies holds everything the server needs besides its config.
type Dependencies struct {
	Store   storage.Backend
	Metrics IntentRecorder // optional
	Fs      afero.Fs
	Logger  *slog.Logger
}

// Server is the board authority.
type Server struct {
	cfg     config.ServerConfig
	board   *Board
	hub     *Hub
	store   storage.Backend
	metrics IntentRecorder
	fs      afero.Fs
	log     *slog.Logger

	intents  *dispatcher.Dispatcher
	effects  *dispatcher.Dispatcher
	upgrader websocket.Upgrader

	// applyMu orders intent application with the snapshot it produces.
	applyMu   sync.Mutex
	closed    bool
	startOnce sync.Once
}

// change is what an applied intent did, handed to the effects dispatcher.
type change struct {
	Figure  *core.Figure    `json:"figure,omitempty"`
	Removed string          `json:"removed,omitempty"`
	Map     *string         `json:"map,omitempty"`
	Figures int             `json:"figures"`
	Intent  json.RawMessage `json:"intent,omitempty"`
}

// New loads the persisted board and wires the intent handlers.
func New(cfg config.ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("authority: no storage backend")
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	log := deps.Logger.With("component", "authority")

	seed, err := deps.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		board:   NewBoard(seed, cfg.DefaultMap),
		hub:     NewHub(log),
		store:   deps.Store,
		metrics: deps.Metrics,
		fs:      deps.Fs,
		log:     log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	if s.intents, err = dispatcher.New(log); err != nil {
		return nil, fmt.Errorf("intent dispatcher: %w", err)
	}
	if s.effects, err = dispatcher.New(log); err != nil {
		return nil, fmt.Errorf("effects dispatcher: %w", err)
	}
	s.registerHandlers()

	log.Info("board loaded", "figures", len(seed.Figures), "map", s.board.Snapshot().CurrentMap)
	return s, nil
}

func (s *Server) registerHandlers() {
	s.intents.Register(streaming.TypeAddFigure, s.handleAddFigure, dispatcher.Logged())
	s.intents.Register(streaming.TypeMoveFigure, s.handleMoveFigure, dispatcher.Logged())
	s.intents.Register(streaming.TypeRemoveFigure, s.handleRemoveFigure, dispatcher.Logged())
	s.intents.Register(streaming.TypeUpdateLives, s.handleUpdateLives, dispatcher.Logged())
	s.intents.Register(streaming.TypeSetMap, s.handleSetMap, dispatcher.Logged())

	for _, typ := range s.intents.Types() {
		s.effects.Register(typ, s.record, dispatcher.Buffered(1024))
	}
}

// Board returns the authoritative board.
func (s *Server) Board() *Board {
	return s.board
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start runs the hub until ctx is cancelled. Calling it again is a no-op.
func (s *Server) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.hub.Run(ctx)
	})
}

// ListenAndServe starts the hub and serves HTTP on cfg.Listen until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close drains pending persistence work. Call after the HTTP server stopped.
func (s *Server) Close() {
	s.applyMu.Lock()
	if s.closed {
		s.applyMu.Unlock()
		return
	}
	s.closed = true
	s.applyMu.Unlock()

	s.effects.Close()
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}
	c := newClient(conn, s.log)

	s.applyMu.Lock()
	initial, err := s.encodeSnapshot()
	if err == nil {
		c.send.TrySend(initial)
	}
	ok := s.hub.Register(c)
	s.applyMu.Unlock()

	if !ok {
		conn.Close()
		return
	}
	c.log.Info("client connected", "remote", r.RemoteAddr)

	go c.writePump()
	c.readPump(s.hub, s.handleFrame)
	c.log.Info("client disconnected")
}

// handleFrame applies one inbound frame and broadcasts the resulting board.
// A snapshot goes out even when the frame was rejected.
func (s *Server) handleFrame(c *Client, raw []byte) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if err := s.intents.DispatchFrame(raw, c.id); err != nil {
		c.log.Debug("intent rejected", "error", err)
	}
	s.broadcastLocked()
}

// apply runs a locally originated intent, such as an upload, through the
// same path as a client frame.
func (s *Server) apply(msgType string, payload any, origin string) error {
	raw, err := streaming.Encode(msgType, payload)
	if err != nil {
		return err
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	err = s.intents.DispatchFrame(raw, origin)
	s.broadcastLocked()
	return err
}

func (s *Server) broadcastLocked() {
	data, err := s.encodeSnapshot()
	if err != nil {
		s.log.Error("encode snapshot", "error", err)
		return
	}
	s.hub.Broadcast(data)
}

func (s *Server) encodeSnapshot() ([]byte, error) {
	snap := s.board.Snapshot()
	return json.Marshal(streaming.StateUpdate{
		Type:       streaming.TypeStateUpdate,
		CurrentMap: snap.CurrentMap,
		Figures:    snap.Figures,
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
