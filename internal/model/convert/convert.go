// Package convert maps between the wire figure and its GORM model.
package convert

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/figureboard/figureboard/internal/model"
	"github.com/figureboard/figureboard/pkg/core"
)

// FigureToModel converts a core.Figure to its GORM model.
func FigureToModel(f core.Figure) model.Figure {
	return model.Figure{
		ID:     f.ID,
		Name:   f.Name,
		X:      f.X,
		Y:      f.Y,
		Width:  f.Width,
		Height: f.Height,
		Color:  f.Color,
		Lives:  f.Lives,
	}
}

// FigureToCore converts a GORM Figure to a core.Figure.
func FigureToCore(f model.Figure) core.Figure {
	return core.Figure{
		ID:     f.ID,
		Name:   f.Name,
		X:      f.X,
		Y:      f.Y,
		Width:  f.Width,
		Height: f.Height,
		Color:  f.Color,
		Lives:  f.Lives,
	}
}

// FiguresToCore converts a slice of GORM figures, keeping order.
func FiguresToCore(figs []model.Figure) []core.Figure {
	out := make([]core.Figure, len(figs))
	for i, f := range figs {
		out[i] = FigureToCore(f)
	}
	return out
}

// IntentToModel builds an intent log row. An empty or invalid payload is
// stored as JSON null.
func IntentToModel(at time.Time, msgType, client string, payload json.RawMessage) model.IntentLog {
	data := datatypes.JSON("null")
	if len(payload) > 0 && json.Valid(payload) {
		data = datatypes.JSON(payload)
	}
	return model.IntentLog{
		Time:    at.UTC(),
		Type:    msgType,
		Client:  client,
		Payload: data,
	}
}
