package racebench

import "sync/atomic"

// Pending is a generation retired by Tracker.Increment.
type Pending struct {
	g    *generation
	gen  uint64
	trip uint64
}

// Gen returns the retired generation.
func (p Pending) Gen() uint64 { return p.gen }

// Wait blocks until every Token of the retired generation is Released and
// returns the generation. It may be called more than once.
func (p Pending) Wait() uint64 {
	p.g.mu.RLock()

	// a different trip means an earlier Wait already drained the generation
	// and it may be serving someone else out of the pool by now.
	if atomic.LoadUint64(&p.g.trip) != p.trip {
		p.g.mu.RUnlock()
		return p.gen
	}
	for i := range p.g.shards {
		h := &p.g.shards[i].h
		if !h.idle() {
			h.wait()
		}
	}
	p.g.mu.RUnlock()

	// the Wait that bumps trip owns recycling. taking the write lock lets
	// every other Wait on this trip finish reading first.
	if atomic.CompareAndSwapUint64(&p.g.trip, p.trip, p.trip+1) {
		p.g.mu.Lock()
		p.g.mu.Unlock()
		p.g.recycle()
	}

	return p.gen
}
