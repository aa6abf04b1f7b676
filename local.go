package racebench

// Local is a value private to each goroutine that accesses it. Every goroutine
// starts from its own copy produced by the init function, and changes made by
// one goroutine are never visible to another.
type Local[T any] struct {
	init func() T
}

// NewLocal returns a Local whose per-goroutine copies start as init(). A nil
// init starts them at the zero T.
func NewLocal[T any](init func() T) *Local[T] {
	return &Local[T]{init: init}
}

// slot returns the calling goroutine's copy, creating it on first access.
func (l *Local[T]) slot() *T {
	st := currentState()
	if v, ok := st.locals[l]; ok {
		return v.(*T)
	}
	p := new(T)
	if l.init != nil {
		*p = l.init()
	}
	if st.locals == nil {
		st.locals = make(map[any]any)
	}
	st.locals[l] = p
	return p
}

// Get returns the calling goroutine's value.
func (l *Local[T]) Get() T { return *l.slot() }

// Set replaces the calling goroutine's value.
func (l *Local[T]) Set(v T) { *l.slot() = v }

// Update replaces the calling goroutine's value with fn applied to it and
// returns the new value.
func (l *Local[T]) Update(fn func(T) T) T {
	p := l.slot()
	*p = fn(*p)
	return *p
}
