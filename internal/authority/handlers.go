package authority

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/figureboard/figureboard/internal/dispatcher"
	"github.com/figureboard/figureboard/pkg/core"
	"github.com/figureboard/figureboard/pkg/streaming"
)

// ErrInvalidLives is returned for an update_lives intent with a negative count.
var ErrInvalidLives = errors.New("lives must not be negative")

// ErrEmptyMap is returned for a set_map intent without a map.
var ErrEmptyMap = errors.New("empty map")

func (s *Server) handleAddFigure(e dispatcher.Event) error {
	f, err := decode[core.Figure](e)
	if err != nil {
		return err
	}
	stored := s.board.AddFigure(f)
	s.emit(e, change{Figure: &stored})
	return nil
}

func (s *Server) handleMoveFigure(e dispatcher.Event) error {
	p, err := decode[streaming.MoveFigurePayload](e)
	if err != nil {
		return err
	}
	f, err := s.board.MoveFigure(p.ID, p.X, p.Y)
	if err != nil {
		return err
	}
	s.emit(e, change{Figure: &f})
	return nil
}

func (s *Server) handleRemoveFigure(e dispatcher.Event) error {
	p, err := decode[streaming.RemoveFigurePayload](e)
	if err != nil {
		return err
	}
	if !s.board.RemoveFigure(p.ID) {
		return fmt.Errorf("%w: %q", ErrUnknownFigure, p.ID)
	}
	s.emit(e, change{Removed: p.ID})
	return nil
}

func (s *Server) handleUpdateLives(e dispatcher.Event) error {
	p, err := decode[streaming.UpdateLivesPayload](e)
	if err != nil {
		return err
	}
	if p.Lives < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLives, p.Lives)
	}
	f, err := s.board.UpdateLives(p.ID, p.Lives)
	if err != nil {
		return err
	}
	s.emit(e, change{Figure: &f})
	return nil
}

func (s *Server) handleSetMap(e dispatcher.Event) error {
	p, err := decode[streaming.SetMapPayload](e)
	if err != nil {
		return err
	}
	if p.Map == "" {
		return ErrEmptyMap
	}
	s.board.SetMap(p.Map)
	s.emit(e, change{Map: &p.Map})
	return nil
}

func decode[T any](e dispatcher.Event) (T, error) {
	return streaming.DecodePayload[T](streaming.Envelope{Type: e.Type, Data: e.Data})
}

// emit queues the persistence and metrics work for an applied intent.
// Called with applyMu held.
func (s *Server) emit(e dispatcher.Event, c change) {
	if s.closed {
		return
	}
	c.Figures = s.board.Len()
	c.Intent = e.Data

	data, err := json.Marshal(c)
	if err != nil {
		s.log.Error("encode change", "type", e.Type, "error", err)
		return
	}
	err = s.effects.Dispatch(dispatcher.Event{
		Type:     e.Type,
		Data:     data,
		Raw:      e.Raw,
		Received: e.Received,
		Client:   e.Client,
	})
	if err != nil {
		s.log.Warn("change not recorded", "type", e.Type, "error", err)
	}
}

// record persists one applied intent. Failures are returned to the
// dispatcher, which logs them; the board is never rolled back.
func (s *Server) record(e dispatcher.Event) error {
	var c change
	if err := json.Unmarshal(e.Data, &c); err != nil {
		return fmt.Errorf("decode change: %w", err)
	}

	var errs []error
	switch {
	case c.Figure != nil:
		errs = append(errs, s.store.SaveFigure(*c.Figure))
	case c.Removed != "":
		errs = append(errs, s.store.DeleteFigure(c.Removed))
	case c.Map != nil:
		errs = append(errs, s.store.SaveCurrentMap(*c.Map))
	}

	errs = append(errs, s.store.RecordIntent(core.IntentRecord{
		Time:    e.Received,
		Type:    e.Type,
		Client:  e.Client,
		Payload: c.Intent,
	}))

	if s.metrics != nil {
		errs = append(errs, s.metrics.RecordIntent(e.Type, c.Figures, e.Received))
	}
	return errors.Join(errs...)
}
