// Package storage persists the authority's board between restarts.
package storage

import "github.com/figureboard/figureboard/pkg/core"

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Load returns the persisted board. CurrentMap is empty when none was
	// ever saved.
	Load() (core.Snapshot, error)

	// Board state
	SaveFigure(f core.Figure) error
	DeleteFigure(id string) error
	SaveCurrentMap(m string) error

	// Audit log
	RecordIntent(r core.IntentRecord) error
}
