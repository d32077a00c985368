// Package gormstore implements the storage.Backend interface on GORM.
// Board writes are synchronous; intent log rows are queued and written in
// batches by a background goroutine.
package gormstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/figureboard/figureboard/internal/database"
	"github.com/figureboard/figureboard/internal/model"
	"github.com/figureboard/figureboard/internal/model/convert"
	"github.com/figureboard/figureboard/internal/queue"
	"github.com/figureboard/figureboard/pkg/core"
)

const (
	// DefaultFlushInterval is how often queued intent rows are written.
	DefaultFlushInterval = 2 * time.Second
	// DefaultMaxPending caps the intent rows held while the database is down.
	DefaultMaxPending = 10000

	flushBatch = 500
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
	MaxPending    int
}

// Backend persists the board through GORM.
type Backend struct {
	deps     Dependencies
	intents  *queue.Queue[model.IntentLog]
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a GORM backend. Init must be called before use.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.MaxPending <= 0 {
		deps.MaxPending = DefaultMaxPending
	}
	return &Backend{
		deps:    deps,
		intents: queue.New[model.IntentLog](deps.MaxPending),
	}
}

// Init migrates the schema and starts the intent writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gormstore: no database")
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			b.wg.Wait()
		}
		err = b.Flush()
	})
	return err
}

// Load reads the board row and every figure.
func (b *Backend) Load() (core.Snapshot, error) {
	var board model.Board
	if err := b.deps.DB.First(&board, model.BoardID).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("load board: %w", err)
	}

	var figs []model.Figure
	if err := b.deps.DB.Order("id").Find(&figs).Error; err != nil {
		return core.Snapshot{}, fmt.Errorf("load figures: %w", err)
	}

	return core.Snapshot{CurrentMap: board.CurrentMap, Figures: convert.FiguresToCore(figs)}, nil
}

// SaveFigure upserts a figure by id.
func (b *Backend) SaveFigure(f core.Figure) error {
	m := convert.FigureToModel(f)
	err := b.deps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "x", "y", "width", "height", "color", "lives", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save figure %s: %w", f.ID, err)
	}
	return nil
}

// DeleteFigure removes a figure. Unknown ids are not an error.
func (b *Backend) DeleteFigure(id string) error {
	if err := b.deps.DB.Where("id = ?", id).Delete(&model.Figure{}).Error; err != nil {
		return fmt.Errorf("delete figure %s: %w", id, err)
	}
	return nil
}

// SaveCurrentMap updates the board row.
func (b *Backend) SaveCurrentMap(m string) error {
	err := b.deps.DB.Model(&model.Board{}).
		Where("id = ?", model.BoardID).
		Updates(map[string]any{"current_map": m, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("save current map: %w", err)
	}
	return nil
}

// RecordIntent queues an intent log row.
func (b *Backend) RecordIntent(r core.IntentRecord) error {
	if n := b.intents.Push(convert.IntentToModel(r.Time, r.Type, r.Client, r.Payload)); n > 0 {
		b.deps.Logger.Warn().Int("dropped", n).Msg("Intent log queue full, dropped oldest rows")
	}
	return nil
}

// Pending returns the number of queued intent rows.
func (b *Backend) Pending() int {
	return b.intents.Len()
}

// Flush writes every queued intent row, one transaction per batch. A failed
// batch goes back to the front of the queue and stops the flush.
func (b *Backend) Flush() error {
	written := 0
	for {
		items := b.intents.Take(flushBatch)
		if len(items) == 0 {
			break
		}
		err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
			return tx.CreateInBatches(&items, flushBatch).Error
		})
		if err != nil {
			if n := b.intents.Requeue(items); n > 0 {
				b.deps.Logger.Warn().Int("dropped", n).Msg("Intent log queue full, dropped oldest rows")
			}
			return fmt.Errorf("write %d intent logs: %w", len(items), err)
		}
		written += len(items)
	}
	if written > 0 {
		b.deps.Logger.Trace().Int("count", written).Msg("Wrote intent logs")
	}
	return nil
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("Intent log writer failed")
			}
		}
	}
}
