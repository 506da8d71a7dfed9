// Package interrupt provides a scoped SIGINT handling region for the
// archive write loop.
//
// A Scope converts Ctrl-C into a cooperative cancellation flag that the
// write loop polls at iteration boundaries, so an interrupt never lands in
// the middle of a record write. Closing the scope restores the previous
// signal disposition on every exit path.
package interrupt

import (
	"os"
	"os/signal"
)

// Scope is an active signal-handling region. Create one with NewScope and
// always Close it; Close is idempotent.
type Scope struct {
	sigs   chan os.Signal
	fired  bool
	closed bool
}

// NewScope starts capturing interrupt signals
func NewScope() *Scope {
	// Buffer of 1 so a signal arriving between polls is not lost
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	return &Scope{sigs: sigs}
}

// Interrupted reports whether an interrupt signal has arrived. It never
// blocks, and once it has reported true it keeps doing so.
func (s *Scope) Interrupted() bool {
	if s.fired {
		return true
	}

	select {
	case <-s.sigs:
		s.fired = true
	default:
	}

	return s.fired
}

// Close stops capturing and restores the previous signal disposition
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	signal.Stop(s.sigs)
}
