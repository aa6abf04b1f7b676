package racebench

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/petermattis/goid"
	"github.com/zeebo/assert"
)

func TestCurrentID(t *testing.T) {
	self := Current()
	assert.That(t, self.ID > 0)
	assert.Equal(t, self.ID, Current().ID)

	other, err := Spawn(Current).Join()
	assert.NoError(t, err)
	assert.That(t, other.ID > 0)
	assert.That(t, other.ID != self.ID)
}

func TestSpawnJoin(t *testing.T) {
	h := Spawn(func() int {
		time.Sleep(10 * time.Millisecond)
		return 6
	})
	v, err := h.Join()
	assert.NoError(t, err)
	assert.Equal(t, v, 6)

	// joining again returns the same result.
	v, err = h.Join()
	assert.NoError(t, err)
	assert.Equal(t, v, 6)

	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed after join")
	}
}

func TestSpawnParallel(t *testing.T) {
	calculate := func() int {
		counter := 0
		for i := 0; i <= 5; i++ {
			time.Sleep(20 * time.Millisecond)
			counter++
		}
		return counter
	}

	start := time.Now()
	h1, h2 := Spawn(calculate), Spawn(calculate)
	v1, err1 := h1.Join()
	v2, err2 := h2.Join()
	elapsed := time.Since(start)

	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, v1, 6)
	assert.Equal(t, v2, 6)
	assert.That(t, h1.ID() != h2.ID())
	assert.That(t, elapsed < 230*time.Millisecond)
}

func TestSpawnNamed(t *testing.T) {
	h := SpawnNamed("My Thread", Current)
	th, err := h.Join()
	assert.NoError(t, err)
	assert.Equal(t, th.Name, "My Thread")
	assert.Equal(t, th.ID, h.ID())
	assert.Equal(t, h.Name(), "My Thread")

	th, _ = Spawn(Current).Join()
	assert.Equal(t, th.Name, "")

	self := Current()
	assert.Equal(t, self.ID, goid.Get())
	assert.That(t, self.ID != th.ID)
}

func TestSpawnMove(t *testing.T) {
	// the worker gets its own copy of name, so later changes are not seen.
	name := "Budi"
	h := Spawn(func(name string) func() string {
		return func() string {
			time.Sleep(10 * time.Millisecond)
			return "Hallo " + name + "!"
		}
	}(name))
	name = "changed"

	greeting, err := h.Join()
	assert.NoError(t, err)
	assert.Equal(t, greeting, "Hallo Budi!")
	assert.Equal(t, name, "changed")
}

func TestSpawnPanic(t *testing.T) {
	h := SpawnNamed("oops", func() int { panic("oops, something went wrong") })
	v, err := h.Join()
	assert.Equal(t, v, 0)

	var wf *WorkerFailure
	assert.That(t, errors.As(err, &wf))
	assert.Equal(t, wf.Cause, "oops, something went wrong")
	assert.Equal(t, wf.Name, "oops")
	assert.Equal(t, wf.Worker, h.ID())
	assert.Equal(t, wf.Error(), fmt.Sprintf("worker %d (oops) panicked: oops, something went wrong", h.ID()))
	assert.Nil(t, wf.Unwrap())
}

func TestSpawnPanicError(t *testing.T) {
	_, err := Spawn(func() struct{} { panic(io.ErrUnexpectedEOF) }).Join()
	assert.That(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestSpawnPanicIsolated(t *testing.T) {
	var handles []*Handle[int]
	for i := 1; i <= 3; i++ {
		i := i // per-iteration copy (pre-Go 1.22 loop semantics)
		handles = append(handles, Spawn(func() int {
			if i == 2 {
				panic(fmt.Sprintf("goroutine%d exploded", i))
			}
			time.Sleep(10 * time.Millisecond)
			return i
		}))
	}

	var ok, failed int
	for _, h := range handles {
		if _, err := h.Join(); err != nil {
			failed++
		} else {
			ok++
		}
	}
	assert.Equal(t, ok, 2)
	assert.Equal(t, failed, 1)
}

func TestSpawnGoexit(t *testing.T) {
	h := SpawnNamed("quitter", func() int {
		runtime.Goexit()
		return 1
	})
	_, err := h.Join()
	assert.That(t, errors.Is(err, errExited))

	var wf *WorkerFailure
	assert.That(t, errors.As(err, &wf))
	assert.Equal(t, wf.Name, "quitter")
	assert.Equal(t, wf.Worker, h.ID())
}

func TestSpawnReleasesState(t *testing.T) {
	h := Spawn(func() struct{} { return struct{}{} })
	_, _ = h.Join()

	_, ok := states.Load(h.ID())
	assert.That(t, !ok)
}

func TestSpawnChannels(t *testing.T) {
	ch := make(chan string)

	sender1 := Spawn(func() struct{} {
		for i := 0; i < 5; i++ {
			ch <- fmt.Sprintf("sender 1 iteration %d", i)
		}
		return struct{}{}
	})
	sender2 := Spawn(func() struct{} {
		for i := 0; i < 5; i++ {
			ch <- fmt.Sprintf("sender 2 iteration %d", i)
		}
		return struct{}{}
	})
	receiver := Spawn(func() []string {
		var got []string
		for msg := range ch {
			got = append(got, msg)
		}
		return got
	})

	_, err := sender1.Join()
	assert.NoError(t, err)
	_, err = sender2.Join()
	assert.NoError(t, err)
	close(ch)

	got, err := receiver.Join()
	assert.NoError(t, err)
	assert.Equal(t, len(got), 10)
}
