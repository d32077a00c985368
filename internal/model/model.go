// Package model holds the GORM models of the authority's persisted board.
package model

import (
	"time"

	"gorm.io/datatypes"
)

// DatabaseModels is every table of the schema, in migration order.
var DatabaseModels = []interface{}{
	&Board{},
	&Figure{},
	&IntentLog{},
}

// BoardID is the primary key of the single board row.
const BoardID uint = 1

// Board holds board-wide state.
type Board struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	CurrentMap string    `json:"currentMap" gorm:"size:512"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (*Board) TableName() string {
	return "boards"
}

// Figure is one token on the board.
type Figure struct {
	ID        string    `json:"id" gorm:"primarykey;size:64"`
	Name      string    `json:"name" gorm:"size:255"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Color     string    `json:"color" gorm:"size:32"`
	Lives     int       `json:"lives"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*Figure) TableName() string {
	return "figures"
}

// IntentLog is an append-only record of every applied intent.
type IntentLog struct {
	ID      uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time    time.Time      `json:"time" gorm:"index:idx_intent_time"`
	Type    string         `json:"type" gorm:"size:32;index:idx_intent_type"`
	Client  string         `json:"client" gorm:"size:64"`
	Payload datatypes.JSON `json:"payload"`
}

func (*IntentLog) TableName() string {
	return "intent_logs"
}
