package racebench

import (
	"sync"
	"sync/atomic"
)

// tally is the shared value every benchmark worker increments. inc is called
// with the index of the worker doing the increment.
type tally interface {
	inc(worker int)
	load() int64
}

// newTally returns the tally implementing the consistency policy.
func newTally(p Policy) tally {
	switch p {
	case Atomic:
		return new(atomicTally)
	case Locked:
		return new(lockedTally)
	case Sharded:
		return new(shardedTally)
	default:
		return new(racyTally)
	}
}

// atomicTally increments with a single fetch-and-add.
type atomicTally struct {
	n int64
}

func (t *atomicTally) inc(int) { atomic.AddInt64(&t.n, 1) }
func (t *atomicTally) load() int64 { return atomic.LoadInt64(&t.n) }

// lockedTally serializes the read-increment-write behind a mutex.
type lockedTally struct {
	mu sync.Mutex
	n  int64
}

func (t *lockedTally) inc(int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
}

func (t *lockedTally) load() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// shardedTally gives every worker its own padded shard. It is exact like
// atomicTally but workers do not contend on a single cache line.
type shardedTally struct {
	ctr Counter
}

func (t *shardedTally) inc(worker int) { t.ctr.addAt(worker, 1) }
func (t *shardedTally) load() int64 { return t.ctr.Load() }
