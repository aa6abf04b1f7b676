package racebench

import (
	"sync"
	"sync/atomic"
)

// Tracker hands out Tokens stamped with a monotonically increasing
// generation. Increment moves future Acquires to the next generation and
// returns a Pending whose Wait blocks until every Token of the previous one
// is Released. Acquire is cheap and scales with the number of processors;
// Increment is the rare, expensive side. The zero value is ready to use.
//
// Writers that stamp their updates with Token.Gen into one of two slots let a
// reader Increment, Wait and then read the retired slot as a consistent
// snapshot while new updates land in the other slot.
type Tracker struct {
	cur atomic.Pointer[generation]
	mu  sync.Mutex // serializes Increment
}

// current returns the live generation, creating generation 0 on first use.
func (t *Tracker) current() *generation {
	g := t.cur.Load()
	if g == nil {
		g = newGeneration(0)
		if !t.cur.CompareAndSwap(nil, g) {
			g.recycle()
			g = t.cur.Load()
		}
	}
	return g
}

// Acquire returns a Token for the current generation. The generation cannot
// be retired by a Pending.Wait until the Token is Released. It is safe to be
// called concurrently.
func (t *Tracker) Acquire() Token {
	slot := threadID() % numShards
	g := t.current()

	for {
		h := &g.shards[slot].h
		h.acquire()

		// an Increment may have retired g between the load and the acquire,
		// in which case its Wait may already have looked at our shard.
		next := t.cur.Load()
		if next == g {
			return Token{h: h, gen: g.gen}
		}

		h.release()
		g = next
	}
}

// Increment starts the next generation and returns a Pending for the one it
// replaced. It is safe to be called concurrently.
func (t *Tracker) Increment() Pending {
	t.mu.Lock()
	g := t.current()
	// Acquire only ever swaps from nil, so under mu a plain store is enough.
	t.cur.Store(newGeneration(g.gen + 1))
	t.mu.Unlock()

	return Pending{g: g, gen: g.gen, trip: atomic.LoadUint64(&g.trip)}
}
