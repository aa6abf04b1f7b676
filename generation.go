package racebench

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// holds counts the Tokens outstanding on one shard of a generation. It is a
// minimal wait group: wait blocks until every acquire has been released.
type holds struct {
	mu sync.RWMutex
	n  int32
}

func (h *holds) acquire() {
	atomic.AddInt32(&h.n, 1)
	h.mu.RLock()
}

func (h *holds) release() {
	h.mu.RUnlock()
	atomic.AddInt32(&h.n, -1)
}

func (h *holds) idle() bool { return atomic.LoadInt32(&h.n) == 0 }

func (h *holds) wait() {
	h.mu.Lock()
	h.mu.Unlock()
}

// generationHeader is the metadata in front of the shards, grouped so the
// padding up to a cache line is easy to compute.
type generationHeader struct {
	// gen is the generation number handed out in Tokens.
	gen uint64
	// trip counts how many times the generation went back into the pool. A
	// Pending remembers the trip it was created on and only the first Wait
	// of that trip may recycle the generation.
	trip uint64
	// mu is read-held by every Wait in progress and write-held just before
	// recycling, so the generation is never pooled while someone still
	// inspects it.
	mu sync.RWMutex
}

// generation tracks the Tokens held for one generation number, sharded over
// cache-line padded holds.
type generation struct {
	generationHeader
	_      [cacheLine - unsafe.Sizeof(generationHeader{})]byte
	shards [numShards]struct {
		h holds
		_ [cacheLine - unsafe.Sizeof(holds{})]byte
	}
}

var generationPool = sync.Pool{New: func() interface{} { return new(generation) }}

// newGeneration returns an idle generation numbered gen, possibly recycled.
func newGeneration(gen uint64) *generation {
	g, _ := generationPool.Get().(*generation)
	g.gen = gen
	return g
}

// recycle puts g back into the pool. g must not be used afterwards.
func (g *generation) recycle() { generationPool.Put(g) }
