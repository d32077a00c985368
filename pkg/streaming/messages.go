package streaming

import (
	"encoding/json"

	"github.com/figureboard/figureboard/pkg/core"
)

// Message type constants matching the board protocol.
const (
	TypeStateUpdate  = "state_update"
	TypeAddFigure    = "add_figure"
	TypeMoveFigure   = "move_figure"
	TypeRemoveFigure = "remove_figure"
	TypeUpdateLives  = "update_lives"
	TypeSetMap       = "set_map"
)

// Envelope wraps every intent sent over the WebSocket.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StateUpdate is the authority's snapshot. Unlike intents it is flat:
// the figures and current map sit next to the type discriminator.
type StateUpdate struct {
	Type       string        `json:"type"`
	CurrentMap string        `json:"currentMap"`
	Figures    []core.Figure `json:"figures"`
}

// Snapshot converts the wire message to the core type.
func (s StateUpdate) Snapshot() core.Snapshot {
	figures := s.Figures
	if figures == nil {
		figures = []core.Figure{}
	}
	return core.Snapshot{CurrentMap: s.CurrentMap, Figures: figures}
}

// MoveFigurePayload is the data of a move_figure intent.
type MoveFigurePayload struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// RemoveFigurePayload is the data of a remove_figure intent.
type RemoveFigurePayload struct {
	ID string `json:"id"`
}

// UpdateLivesPayload is the data of an update_lives intent.
type UpdateLivesPayload struct {
	ID    string `json:"id"`
	Lives int    `json:"lives"`
}

// SetMapPayload is the data of a set_map intent.
type SetMapPayload struct {
	Map string `json:"map"`
}
