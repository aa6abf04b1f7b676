package racebench

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const (
	cacheLine = 64 // typical size of a cache line
	numShards = 32 // number of padded shards per Counter
)

// shard is a single int64 padded out to its own cache line so that adds to
// neighbouring shards do not invalidate each other.
type shard struct {
	n int64
	_ [cacheLine - unsafe.Sizeof(int64(0))]byte
}

var thread uint64
var threadPool = sync.Pool{
	New: func() interface{} { return uint64(atomic.AddUint64(&thread, 1)) },
}

// threadID returns a best-effort identifier for the running processor. The
// pool hands back the value most recently Put on the same P, so successive
// calls from one goroutine usually agree, but nothing depends on that.
func threadID() uint64 {
	pi := threadPool.Get()
	threadPool.Put(pi)
	p, _ := pi.(uint64)
	return p
}

// Counter is an int64 counter sharded over cache-line padded slots. Adds from
// different processors land on different slots and Load sums them. The zero
// value is ready to use and it is safe to be called concurrently.
type Counter struct {
	shards [numShards]shard
}

// Add adds delta to the counter.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.shards[threadID()%numShards].n, delta)
}

// addAt adds delta to the shard owned by slot.
func (c *Counter) addAt(slot int, delta int64) {
	atomic.AddInt64(&c.shards[uint(slot)%numShards].n, delta)
}

// Load returns the sum of all the shards. It is exact once all concurrent
// Adds have returned; while Adds are in flight it may miss some of them.
func (c *Counter) Load() int64 {
	var sum int64
	for i := range c.shards {
		sum += atomic.LoadInt64(&c.shards[i].n)
	}
	return sum
}

// drain zeroes every shard and returns what they summed to. Adds that race
// with drain are either counted now or left for the next drain.
func (c *Counter) drain() int64 {
	var sum int64
	for i := range c.shards {
		sum += atomic.SwapInt64(&c.shards[i].n, 0)
	}
	return sum
}
