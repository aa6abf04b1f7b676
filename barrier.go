package racebench

import "sync"

// Barrier blocks a fixed number of goroutines until all of them have arrived,
// then releases them together. It can be reused once a group is released.
type Barrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	total int
	count int
	gen   uint64
}

// NewBarrier returns a Barrier for groups of n goroutines. It panics if n is
// less than 1.
func NewBarrier(n int) *Barrier {
	if n < 1 {
		panic("racebench: barrier size must be at least 1")
	}
	b := &Barrier{total: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until n goroutines, including the caller, have called Wait. The
// last goroutine to arrive is the leader of its group and gets true; the rest
// get false.
func (b *Barrier) Wait() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	if b.count == b.total {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return true
	}

	// a goroutine woken for any reason other than its own group completing
	// goes back to sleep.
	gen := b.gen
	for gen == b.gen {
		b.cond.Wait()
	}
	return false
}
