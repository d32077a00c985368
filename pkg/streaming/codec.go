package streaming

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptyPayload is returned when an envelope carries no data.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrMissingFigures is returned for a state_update whose figures list is
	// absent or null. An empty board is sent as [].
	ErrMissingFigures = errors.New("state_update without figures")
)

// Encode builds a JSON-encoded Envelope from a message type and payload.
func Encode(msgType string, payload any) ([]byte, error) {
	if msgType == "" {
		return nil, errors.New("encode: empty message type")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// PeekType returns the type discriminator of a raw frame without decoding
// the rest of it.
func PeekType(b []byte) (string, error) {
	if len(b) == 0 {
		return "", errors.New("decode: empty frame")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	if head.Type == "" {
		return "", errors.New("decode: missing message type")
	}
	return head.Type, nil
}

// DecodeEnvelope parses an intent frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errors.New("decode: empty frame")
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// DecodePayload unmarshals the envelope data into T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.Type)
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return out, nil
}

// DecodeStateUpdate parses a state_update frame.
func DecodeStateUpdate(b []byte) (StateUpdate, error) {
	var su StateUpdate
	if err := json.Unmarshal(b, &su); err != nil {
		return StateUpdate{}, fmt.Errorf("decode state_update: %w", err)
	}
	if su.Type != TypeStateUpdate {
		return StateUpdate{}, fmt.Errorf("decode state_update: unexpected type %q", su.Type)
	}
	if su.Figures == nil {
		return StateUpdate{}, fmt.Errorf("decode state_update: %w", ErrMissingFigures)
	}
	return su, nil
}
