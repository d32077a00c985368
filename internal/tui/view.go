package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/figureboard/figureboard/internal/render"
	"github.com/figureboard/figureboard/pkg/core"
)

const (
	fillRune       = '█'
	optimisticRune = '▒'
	emptyRune      = ' '
	// wideTail marks the second cell of a double-width rune.
	wideTail rune = 0
)

// cellWidth measures runes the way a non-East-Asian terminal lays them out.
var cellWidth = &runewidth.Condition{StrictEmojiNeutral: true}

var (
	accentFg  = lipgloss.Color("#7C3AED")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	errorFg   = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(baseDimFg)
	errorStyle = lipgloss.NewStyle().Foreground(errorFg)
)

// board is the map area as a grid of runes. owner holds the index of the
// element painted into each cell, or -1. A double-width rune occupies its
// cell and the next one, which holds wideTail.
type board struct {
	runes [][]rune
	owner [][]int
}

func newBoard(cols, rows int) board {
	b := board{runes: make([][]rune, rows), owner: make([][]int, rows)}
	for y := range b.runes {
		b.runes[y] = make([]rune, cols)
		b.owner[y] = make([]int, cols)
		for x := range b.runes[y] {
			b.runes[y][x] = emptyRune
			b.owner[y][x] = -1
		}
	}
	return b
}

// cellSpan converts a screen interval to the half-open cell range it covers,
// clamped to [0, limit).
func cellSpan(from, size, cell float64, limit int) (int, int) {
	lo := int(math.Floor(from / cell))
	hi := int(math.Ceil((from + size) / cell))
	if hi <= lo {
		hi = lo + 1
	}
	return max(lo, 0), min(hi, limit)
}

// drawBoard paints elements in order, so later ones end up on top. bounds
// holds each element's screen rectangle.
func drawBoard(elems []render.Element, bounds []core.Rect, cols, rows int, cellW, cellH float64) board {
	b := newBoard(cols, rows)
	for i, el := range elems {
		r := bounds[i]
		x0, x1 := cellSpan(r.X, r.Width, cellW, cols)
		y0, y1 := cellSpan(r.Y, r.Height, cellH, rows)
		if x0 >= x1 || y0 >= y1 {
			continue
		}

		fill := fillRune
		if el.Optimistic {
			fill = optimisticRune
		}
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				b.set(x, y, fill, i)
			}
		}

		b.write(x0, x1, y0, el.Label())
		if y1-y0 > 1 {
			b.write(x0, x1, y1-1, fmt.Sprintf("♥%d", el.Lives))
		}
	}
	return b
}

// set paints one cell, blanking the other half of any wide rune it splits.
func (b board) set(x, y int, r rune, owner int) {
	row := b.runes[y]
	if row[x] == wideTail && x > 0 {
		row[x-1] = emptyRune
	}
	if x+1 < len(row) && row[x+1] == wideTail {
		row[x+1] = emptyRune
	}
	row[x] = r
	b.owner[y][x] = owner
}

// write puts text into cells [x0, x1) of row y, keeping the cells' owner.
// A wide rune that would cross x1 is dropped along with the rest of text.
func (b board) write(x0, x1, y int, text string) {
	x := x0
	for _, r := range text {
		w := cellWidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > x1 {
			return
		}
		owner := b.owner[y][x]
		b.set(x, y, r, owner)
		if w == 2 {
			row := b.runes[y]
			if x+2 < len(row) && row[x+2] == wideTail {
				row[x+2] = emptyRune
			}
			row[x+1] = wideTail
			b.owner[y][x+1] = owner
		}
		x += w
	}
}

func rowText(row []rune) string {
	var sb strings.Builder
	for _, r := range row {
		if r != wideTail {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Lines returns the grid as plain text.
func (b board) Lines() []string {
	out := make([]string, len(b.runes))
	for y, row := range b.runes {
		out[y] = rowText(row)
	}
	return out
}

// styled renders each row, colouring runs of cells by their owner.
func (b board) styled(elems []render.Element) []string {
	styles := make([]lipgloss.Style, len(elems))
	for i, el := range elems {
		styles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(el.Color))
	}

	out := make([]string, len(b.runes))
	for y, row := range b.runes {
		var sb strings.Builder
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && b.owner[y][x] == b.owner[y][start] {
				continue
			}
			run := rowText(row[start:x])
			if o := b.owner[y][start]; o >= 0 {
				run = styles[o].Render(run)
			}
			sb.WriteString(run)
			start = x
		}
		out[y] = sb.String()
	}
	return out
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	cols, rows := m.mapSize()

	elems := m.eng.Scene().Elements()
	bounds := make([]core.Rect, len(elems))
	for i, el := range elems {
		bounds[i], _ = m.eng.Scene().ScreenBounds(el.ID)
	}
	grid := drawBoard(elems, bounds, cols, rows, m.opts.CellWidth, m.opts.CellHeight)

	header := titleStyle.Render(" "+m.opts.Title+" ") + dimStyle.Render(" map: "+m.eng.CurrentMap())
	header = lipgloss.NewStyle().Width(cols).MaxWidth(cols).Render(header)

	lines := append([]string{header}, grid.styled(elems)...)
	lines = append(lines, lipgloss.NewStyle().MaxWidth(cols).Render(m.statusLine()))
	return strings.Join(lines, "\n")
}

func (m Model) statusLine() string {
	t := m.eng.Transform()
	parts := []string{
		fmt.Sprintf("zoom %.2f", t.Zoom),
		fmt.Sprintf("pan (%.0f,%.0f)", t.PanX, t.PanY),
		m.eng.Mode().String(),
		fmt.Sprintf("%d figures", len(m.eng.Figures())),
		m.status,
	}
	line := dimStyle.Render(strings.Join(parts, " · "))
	if m.lastErr != "" {
		line += " " + errorStyle.Render("error: "+m.lastErr)
	}
	return line
}
