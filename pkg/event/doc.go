// Package event provides the synchronization primitives the harness uses to
// move data between endpoint dispatch loops and waiting test logic: a named
// event emitter with ordered synchronous delivery, a scoped watcher that
// guarantees unsubscription, and single-assignment futures and FIFO queues
// as hand-off gates.
//
// Handlers registered on an Emitter run synchronously in the emitting
// goroutine and must not block; they hand values to waiting goroutines
// through a Future or Queue instead.
package event
