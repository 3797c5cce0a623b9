package orbit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Eternal is the root lifetime. It has no Definition and therefore never
// terminates.
var Eternal = newLifetime("Eternal")

// Lifetime is a node in the cancellation tree. It owns teardown actions and
// nested lifetimes; both run exactly once when the lifetime terminates.
type Lifetime struct {
	id   uuid.UUID
	name string

	mu         sync.Mutex
	actions    []func()
	children   []*Lifetime
	parents    []*Lifetime
	terminated atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// Definition is the owning handle of a Lifetime: only its holder can
// terminate it.
type Definition struct {
	lifetime *Lifetime
}

func newLifetime(name string) *Lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifetime{
		id:     uuid.New(),
		name:   name,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Define creates a lifetime nested under parent. A nil parent means Eternal.
// If parent is already terminated the new definition is terminated too.
func Define(parent *Lifetime, name ...string) *Definition {
	if parent == nil {
		parent = Eternal
	}
	return defineUnder(nameOf(name), parent)
}

// Intersection creates a lifetime that terminates as soon as any of the
// given lifetimes terminates.
func Intersection(lifetimes ...*Lifetime) *Definition {
	if len(lifetimes) == 0 {
		return Define(Eternal, "Intersection")
	}
	return defineUnder("Intersection", lifetimes...)
}

func defineUnder(name string, parents ...*Lifetime) *Definition {
	child := newLifetime(name)
	def := &Definition{lifetime: child}
	for _, p := range parents {
		if !p.adopt(child) {
			def.Terminate()
			return def
		}
	}
	return def
}

func nameOf(name []string) string {
	if len(name) > 0 {
		return name[0]
	}
	return ""
}

// ID returns the unique id of the lifetime.
func (lt *Lifetime) ID() uuid.UUID { return lt.id }

// Name returns the diagnostic name given at definition.
func (lt *Lifetime) Name() string { return lt.name }

// IsTerminated reports whether Terminate has started on this lifetime.
func (lt *Lifetime) IsTerminated() bool { return lt.terminated.Load() }

// Context returns a context cancelled when the lifetime terminates.
func (lt *Lifetime) Context() context.Context { return lt.ctx }

// Done is closed when the lifetime terminates.
func (lt *Lifetime) Done() <-chan struct{} { return lt.ctx.Done() }

// AddAction registers fn to run on termination. Actions run in reverse
// registration order. On a terminated lifetime fn runs immediately.
func (lt *Lifetime) AddAction(fn func()) {
	lt.mu.Lock()
	if lt.terminated.Load() {
		lt.mu.Unlock()
		fn()
		return
	}
	lt.actions = append(lt.actions, fn)
	lt.mu.Unlock()
}

// DefineNested creates a child definition of this lifetime.
func (lt *Lifetime) DefineNested(name ...string) *Definition {
	return defineUnder(nameOf(name), lt)
}

func (lt *Lifetime) String() string {
	if lt.name == "" {
		return lt.id.String()
	}
	return lt.name + "#" + lt.id.String()[:8]
}

func (lt *Lifetime) adopt(child *Lifetime) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.terminated.Load() {
		return false
	}
	lt.children = append(lt.children, child)
	child.mu.Lock()
	child.parents = append(child.parents, lt)
	child.mu.Unlock()
	return true
}

func (lt *Lifetime) release(child *Lifetime) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for i, c := range lt.children {
		if c == child {
			lt.children = append(lt.children[:i], lt.children[i+1:]...)
			return
		}
	}
}

func (lt *Lifetime) terminate() {
	lt.mu.Lock()
	if !lt.terminated.CompareAndSwap(false, true) {
		lt.mu.Unlock()
		return
	}
	actions := lt.actions
	children := lt.children
	parents := lt.parents
	lt.actions, lt.children, lt.parents = nil, nil, nil
	lt.mu.Unlock()

	lt.cancel()

	for i := len(actions) - 1; i >= 0; i-- {
		actions[i]()
	}
	for i := len(children) - 1; i >= 0; i-- {
		children[i].terminate()
	}
	for _, p := range parents {
		p.release(lt)
	}
}

// Lifetime returns the lifetime owned by this definition.
func (d *Definition) Lifetime() *Lifetime { return d.lifetime }

// IsTerminated reports whether the owned lifetime is terminated.
func (d *Definition) IsTerminated() bool { return d.lifetime.IsTerminated() }

// Terminate runs the owned lifetime's actions in reverse order and then
// terminates its nested lifetimes. Subsequent calls do nothing.
func (d *Definition) Terminate() { d.lifetime.terminate() }
