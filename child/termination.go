// Package child implements the per-child acceptor/worker pipeline and
// lifecycle: one acceptor goroutine competing for the process-wide accept
// mutex, a pool of worker goroutines draining the connection queue, and
// the signal/command-driven shutdown sequence that ties them together.
package child

import "sync/atomic"

// TerminationLevel replaces the C "to_be_killed" byte with an atomic enum,
// readable without a lock from the acceptor, every worker, and the pipe
// reader goroutine simultaneously.
type TerminationLevel int32

const (
	// TerminationNone means the child is running normally.
	TerminationNone TerminationLevel = iota
	// TerminationGracefully means finish in-flight keep-alive requests,
	// stop accepting new connections, then exit.
	TerminationGracefully
	// TerminationImmediately means stop everything as soon as possible,
	// used when the parent monitor has died or SIGTERM demands it.
	TerminationImmediately
)

// Termination is an atomic TerminationLevel. Its zero value is
// TerminationNone.
type Termination struct {
	v int32
}

func (t *Termination) Load() TerminationLevel {
	return TerminationLevel(atomic.LoadInt32(&t.v))
}

// Raise sets the termination level to level, but never downgrades an
// already-set level (Immediately always wins over a later Gracefully).
func (t *Termination) Raise(level TerminationLevel) {
	for {
		old := atomic.LoadInt32(&t.v)
		if TerminationLevel(old) >= level {
			return
		}
		if atomic.CompareAndSwapInt32(&t.v, old, int32(level)) {
			return
		}
	}
}

func (t *Termination) Active() bool {
	return t.Load() != TerminationNone
}
