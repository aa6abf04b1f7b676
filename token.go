package racebench

// Token pins a generation of a Tracker until it is Released.
type Token struct {
	h   *holds
	gen uint64
}

// Release gives up the Token. It must be called exactly once.
func (t Token) Release() { t.h.release() }

// Gen reports the generation the Token was acquired in.
func (t Token) Gen() uint64 { return t.gen }
