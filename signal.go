package orbit

import "sync"

type listener[F any] struct {
	fn F
}

// emitter is the lifetime-scoped subscriber list shared by all signal kinds.
type emitter[F any] struct {
	mu        sync.Mutex
	owner     *Lifetime
	listeners []*listener[F]
}

func newEmitter[F any](owner *Lifetime) *emitter[F] {
	e := &emitter[F]{owner: owner}
	owner.AddAction(e.clear)
	return e
}

func (e *emitter[F]) subscribe(lt *Lifetime, fn F) {
	if lt.IsTerminated() || e.owner.IsTerminated() {
		return
	}
	l := &listener[F]{fn: fn}
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
	lt.AddAction(func() { e.remove(l) })
}

func (e *emitter[F]) remove(l *listener[F]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, x := range e.listeners {
		if x == l {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *emitter[F]) clear() {
	e.mu.Lock()
	e.listeners = nil
	e.mu.Unlock()
}

func (e *emitter[F]) snapshot() []*listener[F] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.listeners) == 0 {
		return nil
	}
	out := make([]*listener[F], len(e.listeners))
	copy(out, e.listeners)
	return out
}

func (e *emitter[F]) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Signal notifies subscribers without arguments. Listeners are removed when
// their own lifetime terminates, and all of them when the owner terminates.
type Signal struct {
	e *emitter[func()]
}

// NewSignal creates a signal owned by owner.
func NewSignal(owner *Lifetime) *Signal {
	return &Signal{e: newEmitter[func()](owner)}
}

// Subscribe adds fn until lt terminates.
func (s *Signal) Subscribe(lt *Lifetime, fn func()) { s.e.subscribe(lt, fn) }

// Fire calls every listener subscribed at the time of the call, in
// subscription order.
func (s *Signal) Fire() {
	for _, l := range s.e.snapshot() {
		l.fn()
	}
}

// Len returns the number of current listeners.
func (s *Signal) Len() int { return s.e.len() }

// Signal1 is a Signal carrying one value.
type Signal1[T any] struct {
	e *emitter[func(T)]
}

func NewSignal1[T any](owner *Lifetime) *Signal1[T] {
	return &Signal1[T]{e: newEmitter[func(T)](owner)}
}

func (s *Signal1[T]) Subscribe(lt *Lifetime, fn func(T)) { s.e.subscribe(lt, fn) }

func (s *Signal1[T]) Fire(v T) {
	for _, l := range s.e.snapshot() {
		l.fn(v)
	}
}

func (s *Signal1[T]) Len() int { return s.e.len() }

// Signal2 is a Signal carrying two values.
type Signal2[A, B any] struct {
	e *emitter[func(A, B)]
}

func NewSignal2[A, B any](owner *Lifetime) *Signal2[A, B] {
	return &Signal2[A, B]{e: newEmitter[func(A, B)](owner)}
}

func (s *Signal2[A, B]) Subscribe(lt *Lifetime, fn func(A, B)) { s.e.subscribe(lt, fn) }

func (s *Signal2[A, B]) Fire(a A, b B) {
	for _, l := range s.e.snapshot() {
		l.fn(a, b)
	}
}

func (s *Signal2[A, B]) Len() int { return s.e.len() }
