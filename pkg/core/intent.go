package core

import (
	"encoding/json"
	"time"
)

// IntentRecord is one intent the authority applied, kept for the audit log.
type IntentRecord struct {
	Time    time.Time
	Type    string
	Client  string
	Payload json.RawMessage
}
