package event

import "sync"

// Watcher collects handler registrations for a bounded scope. Closing the
// watcher removes every registration it made, so callers can subscribe
// freely and rely on a single deferred Close for cleanup regardless of how
// the scope exits.
type Watcher struct {
	mu     sync.Mutex
	closed bool
	regs   []watcherReg
}

type watcherReg struct {
	emitter *Emitter
	reg     *Registration
}

// NewWatcher creates an empty watcher. Callers should defer Close.
func NewWatcher() *Watcher {
	return &Watcher{}
}

// On registers a handler on the emitter and tracks the registration for
// removal at Close. Registering on a closed watcher removes the handler
// immediately.
func (w *Watcher) On(e *Emitter, event string, fn Handler) {
	reg := e.On(event, fn)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		e.Off(reg)
		return
	}
	w.regs = append(w.regs, watcherReg{emitter: e, reg: reg})
	w.mu.Unlock()
}

// Monitor registers a predicate-filtered handler that enqueues matching
// event argument lists. Pass a nil predicate to match every occurrence.
func (w *Watcher) Monitor(e *Emitter, event string, pred func(args []any) bool) *Queue[[]any] {
	q := NewQueue[[]any]()
	w.On(e, event, func(args ...any) {
		if pred == nil || pred(args) {
			q.Put(args)
		}
	})
	return q
}

// Close removes all registrations made through this watcher. It is safe to
// call multiple times.
func (w *Watcher) Close() {
	w.mu.Lock()
	regs := w.regs
	w.regs = nil
	w.closed = true
	w.mu.Unlock()

	for _, r := range regs {
		r.emitter.Off(r.reg)
	}
}
