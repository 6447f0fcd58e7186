// Package latch provides a counting synchronization primitive. A Latch is
// created with an initial count, decremented by any number of signalers, and
// releases its waiters once the count reaches zero.
//
// Unlike a bare countdown, a Latch remembers the first failure cause handed to
// SignalError, so a waiter can tell whether the work it was waiting for
// actually succeeded.
package latch

import (
	"context"
	"fmt"
	"sync"
)

// Latch is a countdown latch that is safe for concurrent use. Signal may be
// called from many goroutines; Wait is normally called by a single owner.
type Latch struct {
	mu      sync.Mutex
	initial int
	count   int
	cause   error
	done    chan struct{}
}

// New creates a latch with the given count. A latch created with a count of
// zero is already open.
func New(count int) *Latch {
	if count < 0 {
		panic(fmt.Sprintf("latch: negative initial count %d", count))
	}
	l := &Latch{
		initial: count,
		count:   count,
		done:    make(chan struct{}),
	}
	if count == 0 {
		close(l.done)
	}
	return l
}

// Signal decrements the count by one. It reports whether the call changed the
// count; signaling an already open latch is a no-op.
func (l *Latch) Signal() bool {
	return l.signal(nil)
}

// SignalError decrements the count by one and records err as the failure
// cause if no cause was recorded yet.
func (l *Latch) SignalError(err error) bool {
	return l.signal(err)
}

func (l *Latch) signal(err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return false
	}
	if err != nil && l.cause == nil {
		l.cause = err
	}
	l.count--
	if l.count == 0 {
		close(l.done)
	}
	return true
}

// Wait blocks until the count reaches zero or ctx is done. It returns the
// context error in the latter case.
func (l *Latch) Wait(ctx context.Context) error {
	// An open latch wins over an already cancelled context.
	select {
	case <-l.done:
		return nil
	default:
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed once the count reaches zero.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Count returns the number of outstanding signals.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Initial returns the count the latch was created with.
func (l *Latch) Initial() int {
	return l.initial
}

// Err returns the first cause recorded through SignalError, or nil.
func (l *Latch) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cause
}
