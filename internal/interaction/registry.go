package interaction

import "github.com/figureboard/figureboard/pkg/core"

// EventType identifies a pointer event a gesture can listen to.
type EventType int

const (
	EventPointerMove EventType = iota
	EventPointerUp
)

// PointerHandler receives a pointer position in screen coordinates.
type PointerHandler func(screen core.Point) error

type pointerHandler struct {
	id uint32
	fn PointerHandler
}

// Registry holds the pointer handlers a gesture registers for its lifetime.
type Registry struct {
	move   []pointerHandler
	up     []pointerHandler
	nextID uint32
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Handle removes a registered handler.
type Handle struct {
	id    uint32
	reg   *Registry
	event EventType
}

// On registers fn for event and returns the handle that removes it.
func (r *Registry) On(event EventType, fn PointerHandler) Handle {
	r.nextID++
	h := pointerHandler{id: r.nextID, fn: fn}
	switch event {
	case EventPointerMove:
		r.move = append(r.move, h)
	case EventPointerUp:
		r.up = append(r.up, h)
	}
	return Handle{id: h.id, reg: r, event: event}
}

// Remove unregisters the handler. Removing twice is a no-op.
func (h Handle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.event {
	case EventPointerMove:
		h.reg.move = removePointerHandler(h.reg.move, h.id)
	case EventPointerUp:
		h.reg.up = removePointerHandler(h.reg.up, h.id)
	}
}

// Emit calls every handler registered for event. Handlers may remove
// themselves while running. The first error stops the fan-out.
func (r *Registry) Emit(event EventType, screen core.Point) error {
	var list []pointerHandler
	switch event {
	case EventPointerMove:
		list = append(list, r.move...)
	case EventPointerUp:
		list = append(list, r.up...)
	}
	for _, h := range list {
		if err := h.fn(screen); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of handlers registered for event.
func (r *Registry) Len(event EventType) int {
	switch event {
	case EventPointerMove:
		return len(r.move)
	case EventPointerUp:
		return len(r.up)
	}
	return 0
}

func removePointerHandler(s []pointerHandler, id uint32) []pointerHandler {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = pointerHandler{}
			return s[:len(s)-1]
		}
	}
	return s
}
