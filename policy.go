package racebench

import (
	"fmt"
	"strings"
)

// Policy selects how a benchmark's shared counter is kept consistent.
type Policy int

const (
	// None performs unsynchronized read-increment-write sequences. Updates
	// may be lost.
	None Policy = iota

	// Atomic performs a single indivisible add per increment.
	Atomic

	// Locked serializes increments with a mutex.
	Locked

	// Sharded spreads increments over cache-line padded atomic shards and
	// sums them on read.
	Sharded
)

var policyNames = [...]string{
	None:    "none",
	Atomic:  "atomic",
	Locked:  "locked",
	Sharded: "sharded",
}

// String returns the lowercase name of the policy.
func (p Policy) String() string {
	if p.valid() {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Exact reports if the policy guarantees the final value equals the number of
// increments performed.
func (p Policy) Exact() bool { return p.valid() && p != None }

func (p Policy) valid() bool { return p >= 0 && int(p) < len(policyNames) }

// ParsePolicy returns the Policy with the given name. Case and surrounding
// whitespace are ignored.
func ParsePolicy(name string) (Policy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range policyNames {
		if n == name {
			return Policy(p), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownPolicy)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("%d: %w", int(p), ErrUnknownPolicy)
	}
	return []byte(policyNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
