//go:build !racy || race

package racebench

import "sync/atomic"

// racyTally performs the read and the write of an increment as two separate
// steps with nothing in between to stop another worker. Each step is an
// atomic access so the memory model is respected, but the increment as a
// whole is not indivisible and updates are lost exactly as they would be with
// a plain integer.
type racyTally struct {
	n int64
}

func (t *racyTally) inc(int) {
	v := atomic.LoadInt64(&t.n)
	atomic.StoreInt64(&t.n, v+1)
}

func (t *racyTally) load() int64 { return atomic.LoadInt64(&t.n) }
