package racebench

import (
	"sync/atomic"
	"testing"

	"github.com/zeebo/assert"
)

func TestBarrier(t *testing.T) {
	const players = 10
	b := NewBarrier(players)

	var joined, leaders int64
	handles := make([]*Handle[int64], players)
	for i := range handles {
		handles[i] = Spawn(func() int64 {
			atomic.AddInt64(&joined, 1)
			if b.Wait() {
				atomic.AddInt64(&leaders, 1)
			}
			// nobody starts before everyone joined.
			return atomic.LoadInt64(&joined)
		})
	}

	for _, h := range handles {
		seen, err := h.Join()
		assert.NoError(t, err)
		assert.Equal(t, seen, players)
	}
	assert.Equal(t, leaders, 1)
}

func TestBarrierReuse(t *testing.T) {
	const players, rounds = 4, 50
	b := NewBarrier(players)

	var round, leaders int64
	handles := make([]*Handle[bool], players)
	for i := range handles {
		handles[i] = Spawn(func() bool {
			for r := int64(0); r < rounds; r++ {
				if atomic.LoadInt64(&round) != r {
					return false
				}
				b.Wait()
				if b.Wait() {
					atomic.AddInt64(&leaders, 1)
					atomic.AddInt64(&round, 1)
				}
				b.Wait()
			}
			return true
		})
	}

	for _, h := range handles {
		ok, err := h.Join()
		assert.NoError(t, err)
		assert.That(t, ok)
	}
	assert.Equal(t, leaders, rounds)
}

func TestBarrierSingle(t *testing.T) {
	b := NewBarrier(1)
	assert.That(t, b.Wait())
	assert.That(t, b.Wait())
}

func TestBarrierInvalid(t *testing.T) {
	_, err := Spawn(func() *Barrier { return NewBarrier(0) }).Join()
	assert.Error(t, err)
}
