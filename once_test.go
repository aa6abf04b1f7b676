package racebench

import (
	"sync/atomic"
	"testing"

	"github.com/zeebo/assert"
)

func TestLazyOnce(t *testing.T) {
	var inits int64
	total := NewLazy(func() int64 { return atomic.AddInt64(&inits, 1) })
	assert.That(t, !total.Done())

	start := NewBarrier(10)
	handles := make([]*Handle[int64], 10)
	for i := range handles {
		handles[i] = Spawn(func() int64 {
			start.Wait()
			return total.Get()
		})
	}

	for _, h := range handles {
		v, err := h.Join()
		assert.NoError(t, err)
		assert.Equal(t, v, 1)
	}
	assert.Equal(t, atomic.LoadInt64(&inits), 1)
	assert.That(t, total.Done())
}

func TestLazyBlocksUntilInitialized(t *testing.T) {
	release := make(chan struct{})
	cfg := NewLazy(func() map[string]int {
		<-release
		return map[string]int{"port": 5432}
	})

	first := Spawn(func() int { return cfg.Get()["port"] })
	second := Spawn(func() int { return cfg.Get()["port"] })

	close(release)
	v1, err := first.Join()
	assert.NoError(t, err)
	v2, err := second.Join()
	assert.NoError(t, err)
	assert.Equal(t, v1, 5432)
	assert.Equal(t, v2, 5432)
}

func TestLazyPanic(t *testing.T) {
	var calls int64
	broken := NewLazy(func() string {
		atomic.AddInt64(&calls, 1)
		panic("init failed")
	})

	_, err := Spawn(broken.Get).Join()
	assert.Error(t, err)

	v, err := Spawn(broken.Get).Join()
	assert.NoError(t, err)
	assert.Equal(t, v, "")
	assert.Equal(t, atomic.LoadInt64(&calls), 1)
	assert.That(t, broken.Done())
}
