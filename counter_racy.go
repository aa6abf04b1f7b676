//go:build racy && !race

package racebench

// racyTally is a plain integer mutated with no coordination at all. Building
// with the racy tag opts into this genuinely undefined behavior; the race
// detector build always uses the split load/store variant instead.
type racyTally struct {
	n int64
}

func (t *racyTally) inc(int) { t.n++ }
func (t *racyTally) load() int64 { return t.n }
