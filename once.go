package racebench

import (
	"sync"
	"sync/atomic"
)

// Lazy holds a value computed on first use. However many goroutines race to
// call Get, init runs exactly once and every caller blocks until it has
// returned, so all of them observe the initialized value.
type Lazy[T any] struct {
	once sync.Once
	done uint32
	init func() T
	val  T
}

// NewLazy returns a Lazy that computes its value with init.
func NewLazy[T any](init func() T) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the value, running init if no call has run it yet. If init
// panics, the panic propagates to that caller and later calls return the
// zero T without running init again.
func (l *Lazy[T]) Get() T {
	l.once.Do(func() {
		defer atomic.StoreUint32(&l.done, 1)
		l.val = l.init()
	})
	return l.val
}

// Done reports if init has finished running.
func (l *Lazy[T]) Done() bool { return atomic.LoadUint32(&l.done) == 1 }
