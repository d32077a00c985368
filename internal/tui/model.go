// Package tui is a terminal front end for the engine. Every terminal cell
// stands for CellWidth × CellHeight screen units, so mouse cells map onto
// the engine's screen space directly.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/figureboard/figureboard/internal/catalog"
	"github.com/figureboard/figureboard/internal/channel"
	"github.com/figureboard/figureboard/internal/engine"
	"github.com/figureboard/figureboard/internal/interaction"
	"github.com/figureboard/figureboard/pkg/core"
)

const (
	headerRows = 1
	footerRows = 1

	catalogTimeout = 5 * time.Second
)

// Options configures the model. Zero cell sizes select 10 × 20.
type Options struct {
	CellWidth  float64
	CellHeight float64
	Title      string
}

// Model is the bubbletea model. It owns the engine: frames and input are
// both delivered through Update, so the engine only ever runs on the
// program's goroutine.
type Model struct {
	eng     *engine.Engine
	cat     *catalog.Catalog
	frames  channel.Receiver[[]byte]
	linkErr func() error

	opts   Options
	width  int
	height int

	pointer core.Point
	status  string
	lastErr string
	closed  bool
}

type frameMsg []byte

type disconnectedMsg struct{ err error }

type refreshMsg struct{}

// New creates the model. frames is closed when the connection ends; linkErr
// reports why.
func New(eng *engine.Engine, cat *catalog.Catalog, frames channel.Receiver[[]byte], linkErr func() error, opts Options) Model {
	if opts.CellWidth <= 0 {
		opts.CellWidth = 10
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = 20
	}
	if opts.Title == "" {
		opts.Title = "figureboard"
	}
	if linkErr == nil {
		linkErr = func() error { return nil }
	}
	return Model{
		eng:     eng,
		cat:     cat,
		frames:  frames,
		linkErr: linkErr,
		opts:    opts,
		status:  "connecting",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForFrame(), m.refreshCatalog())
}

func (m Model) waitForFrame() tea.Cmd {
	return func() tea.Msg {
		raw, ok := <-m.frames.Receive()
		if !ok {
			return disconnectedMsg{err: m.linkErr()}
		}
		return frameMsg(raw)
	}
}

// refreshCatalog asks Update to reload the map list. The reload runs in
// Update since the catalog is not safe for concurrent use.
func (m Model) refreshCatalog() tea.Cmd {
	return func() tea.Msg { return refreshMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cols, rows := m.mapSize()
		m.eng.SetViewport(float64(cols)*m.opts.CellWidth, float64(rows)*m.opts.CellHeight)
		return m, nil

	case frameMsg:
		if err := m.eng.HandleFrame(msg); err != nil {
			m.lastErr = err.Error()
		} else {
			m.status = "synced"
		}
		return m, m.waitForFrame()

	case disconnectedMsg:
		m.closed = true
		m.status = "disconnected"
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		return m, nil

	case refreshMsg:
		if m.cat == nil {
			return m, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), catalogTimeout)
		defer cancel()
		if err := m.cat.Refresh(ctx); err != nil {
			m.lastErr = err.Error()
		} else {
			m.status = fmt.Sprintf("%d maps", len(m.cat.Maps()))
		}
		return m, nil

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// screenPoint maps a terminal cell to the center of its screen-space area.
// ok is false outside the map area.
func (m Model) screenPoint(x, y int) (core.Point, bool) {
	cols, rows := m.mapSize()
	row := y - headerRows
	if x < 0 || x >= cols || row < 0 || row >= rows {
		return core.Point{}, false
	}
	return core.Point{
		X: (float64(x) + 0.5) * m.opts.CellWidth,
		Y: (float64(row) + 0.5) * m.opts.CellHeight,
	}, true
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	p, inside := m.screenPoint(msg.X, msg.Y)
	active := m.eng.Mode() != interaction.Idle

	if !inside && !active {
		return
	}
	if inside {
		m.pointer = p
	}

	var err error
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			mode := m.eng.PointerDown(m.pointer)
			m.status = mode.String()
		case tea.MouseButtonRight:
			if id, hit, rerr := m.eng.SecondaryClick(m.pointer); hit {
				err = rerr
				m.status = "remove " + shortID(id)
			}
		case tea.MouseButtonWheelUp:
			m.eng.Wheel(1, m.pointer)
		case tea.MouseButtonWheelDown:
			m.eng.Wheel(-1, m.pointer)
		}
	case tea.MouseActionMotion:
		if active {
			err = m.eng.PointerMove(m.pointer)
		}
	case tea.MouseActionRelease:
		if active {
			err = m.eng.PointerUp(m.pointer)
			m.status = m.eng.Mode().String()
		}
	}
	if err != nil {
		m.lastErr = err.Error()
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "+", "=":
		m.eng.ZoomIn()
	case "-", "_":
		m.eng.ZoomOut()
	case "a":
		err = m.eng.AddFigure("")
		if err == nil {
			m.status = "add figure"
		}
	case "l":
		if id, ok := m.eng.FigureAt(m.pointer); ok {
			var visible bool
			visible, err = m.eng.ToggleLabel(id)
			m.status = fmt.Sprintf("label %s: %v", shortID(id), visible)
		}
	case "]":
		if id, ok := m.eng.FigureAt(m.pointer); ok {
			err = m.eng.AdjustLives(id, 1)
		}
	case "[":
		if id, ok := m.eng.FigureAt(m.pointer); ok {
			err = m.eng.AdjustLives(id, -1)
		}
	case "m":
		if m.cat == nil {
			break
		}
		next, ok := m.cat.Next(m.eng.CurrentMap())
		if !ok {
			m.status = "no maps"
			break
		}
		err = m.cat.Select(next)
		if err == nil {
			m.status = "map " + next
		}
	case "r":
		return m, m.refreshCatalog()
	}
	if err != nil {
		m.lastErr = err.Error()
	}
	return m, nil
}

// mapSize returns the map area in cells.
func (m Model) mapSize() (cols, rows int) {
	return max(m.width, 1), max(m.height-headerRows-footerRows, 1)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
