package event

import "sync"

// Handler receives the arguments passed to Emit. It runs synchronously in
// the emitter's dispatch goroutine and must not block.
type Handler func(args ...any)

// Registration identifies a single handler subscription. It is returned by
// Emitter.On and consumed by Emitter.Off.
type Registration struct {
	event string
	id    uint64
}

// Emitter dispatches named events to registered handlers. Events emitted
// from a single goroutine are delivered to each handler in emission order.
// All methods are safe for concurrent use.
type Emitter struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]handlerEntry
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]handlerEntry)}
}

// On registers a handler for the named event and returns its registration.
func (e *Emitter) On(event string, fn Handler) *Registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers[event] = append(e.handlers[event], handlerEntry{id: e.nextID, fn: fn})
	return &Registration{event: event, id: e.nextID}
}

// Off removes a previously registered handler. Removing a registration that
// is already gone is a no-op.
func (e *Emitter) Off(reg *Registration) {
	if reg == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.handlers[reg.event]
	for i, entry := range entries {
		if entry.id == reg.id {
			e.handlers[reg.event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to all handlers registered at the time of the
// call. Handlers run synchronously in the calling goroutine, in
// registration order.
func (e *Emitter) Emit(event string, args ...any) {
	e.mu.Lock()
	entries := make([]handlerEntry, len(e.handlers[event]))
	copy(entries, e.handlers[event])
	e.mu.Unlock()

	for _, entry := range entries {
		entry.fn(args...)
	}
}

// ListenerCount returns the number of handlers registered for the event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}
