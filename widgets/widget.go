// Package widgets implements composition nodes: a tree of UI-like units,
// each owned by a lifetime nested in its parent's, optionally carrying a
// typed model and a typed view.
//
// A widget becomes ready exactly once, the first time its model (if it has
// a model contract) has been set and its view (if it has a view contract)
// is non-zero. Readiness is observed through the widget's change signal.
package widgets

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/logger"
)

// Widget is any value embedding Node.
type Widget interface {
	node() *Node
}

// Optional hooks a widget may implement.
type (
	InitializeHook interface{ OnInitialize() }
	ReadyHook      interface{ OnReady() }
	CloseHook      interface{ OnClose() }
)

// Node is the embeddable base of every widget.
type Node struct {
	mu          sync.Mutex
	self        Widget
	parent      *Node
	children    []Widget
	def         *orbit.Definition
	injector    *orbit.Injector
	onChange    *orbit.Signal
	initialized bool
	ready       atomic.Bool
}

func (n *Node) node() *Node { return n }

// Lifetime returns the widget lifetime, or nil before it is mounted.
func (n *Node) Lifetime() *orbit.Lifetime {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.def == nil {
		return nil
	}
	return n.def.Lifetime()
}

// IsInitialized reports whether the widget was mounted or attached.
func (n *Node) IsInitialized() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.initialized
}

// IsReady reports whether OnReady has fired.
func (n *Node) IsReady() bool { return n.ready.Load() }

// Parent returns the widget this one is attached to, or nil.
func (n *Node) Parent() Widget {
	n.mu.Lock()
	p := n.parent
	n.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.widget()
}

func (n *Node) widget() Widget {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.self
}

// GetChildren returns the attached children, depth first when recursive.
func (n *Node) GetChildren(recursive bool) []Widget {
	children := n.snapshot()
	if !recursive {
		return children
	}
	out := make([]Widget, 0, len(children))
	for _, c := range children {
		out = append(out, c)
		out = append(out, c.node().GetChildren(true)...)
	}
	return out
}

func (n *Node) snapshot() []Widget {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Widget, len(n.children))
	copy(out, n.children)
	return out
}

// AddChild attaches child under this widget and returns it.
func (n *Node) AddChild(child Widget) (Widget, error) {
	if err := Attach(n.widget(), child); err != nil {
		return nil, err
	}
	return child, nil
}

// Close terminates the widget lifetime.
func (n *Node) Close() {
	n.mu.Lock()
	def := n.def
	n.mu.Unlock()
	if def != nil {
		def.Terminate()
	}
}

// Resolve resolves t through the injector the widget was mounted with.
func (n *Node) Resolve(t reflect.Type) (any, error) {
	n.mu.Lock()
	inj := n.injector
	n.mu.Unlock()
	if inj == nil {
		return nil, orbit.ErrNotBound
	}
	return inj.Resolve(t)
}

// Inject fills target from the widget's injector.
func (n *Node) Inject(target any) error {
	n.mu.Lock()
	inj := n.injector
	n.mu.Unlock()
	if inj == nil {
		return orbit.ErrNotBound
	}
	return inj.Inject(target)
}

// SubscribeOnChange calls fn whenever the widget's model or view changes.
func (n *Node) SubscribeOnChange(lt *orbit.Lifetime, fn func()) {
	n.mu.Lock()
	sig := n.onChange
	n.mu.Unlock()
	if sig != nil {
		sig.Subscribe(lt, fn)
	}
}

// Notify fires the change signal.
func (n *Node) Notify() {
	n.mu.Lock()
	sig := n.onChange
	n.mu.Unlock()
	if sig != nil {
		sig.Fire()
	}
}

func (n *Node) removeChild(child Widget) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *Node) hasChild(child Widget) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.children {
		if c == child {
			return true
		}
	}
	return false
}

// isReady evaluates the readiness predicate.
func (n *Node) isReady() bool {
	w := n.widget()
	if m, ok := w.(HasModel); ok && !m.ModelChanged() {
		return false
	}
	if v, ok := w.(HasView); ok && !v.ViewSet() {
		return false
	}
	return true
}

func (n *Node) fireReady() {
	n.mu.Lock()
	terminated := n.def == nil || n.def.IsTerminated()
	self := n.self
	n.mu.Unlock()
	if terminated || !n.ready.CompareAndSwap(false, true) {
		return
	}
	if h, ok := self.(ReadyHook); ok {
		h.OnReady()
	}
}

func (n *Node) teardown() {
	self := n.widget()
	if h, ok := self.(CloseHook); ok {
		h.OnClose()
	}

	for _, child := range n.snapshot() {
		child.node().Close()
	}

	n.mu.Lock()
	parent := n.parent
	n.parent = nil
	n.mu.Unlock()
	if parent != nil {
		parent.removeChild(self)
	}
}

// Attach initializes child under a lifetime nested in parent's and adds it
// to parent's children. The child is injected from parent's injector, its
// OnInitialize hook runs, and a readiness watcher is installed.
func Attach(parent, child Widget) error {
	if isNil(parent) || isNil(child) {
		return ErrNilWidget
	}
	p, c := parent.node(), child.node()

	p.mu.Lock()
	pdef, inj := p.def, p.injector
	p.mu.Unlock()
	if pdef == nil {
		return ErrNotMounted
	}
	if pdef.IsTerminated() {
		return fmt.Errorf("widgets: attach %s: %w", logger.TypeName(child), orbit.ErrLifetimeTerminated)
	}
	if p.hasChild(child) {
		return &DuplicateChildError{Parent: logger.TypeName(parent), Child: logger.TypeName(child)}
	}
	if c.IsInitialized() {
		return &AlreadyAttachedError{Widget: logger.TypeName(child)}
	}

	def := pdef.Lifetime().DefineNested(logger.TypeName(child))
	if def.IsTerminated() {
		return fmt.Errorf("widgets: attach %s: %w", logger.TypeName(child), orbit.ErrLifetimeTerminated)
	}
	p.mu.Lock()
	p.children = append(p.children, child)
	p.mu.Unlock()
	c.mu.Lock()
	c.parent = p
	c.mu.Unlock()

	if err := initialize(inj, child, def); err != nil {
		def.Terminate()
		return err
	}
	return nil
}

// Add attaches child under parent and returns it typed.
func Add[T Widget](parent Widget, child T) (T, error) {
	if err := Attach(parent, child); err != nil {
		var zero T
		return zero, err
	}
	return child, nil
}

// Mount initializes w as a top-level widget owned by def. It is how
// presentation queues bring widgets to life without a parent.
func Mount(injector *orbit.Injector, w Widget, def *orbit.Definition) error {
	if isNil(w) {
		return ErrNilWidget
	}
	if w.node().IsInitialized() {
		return &AlreadyAttachedError{Widget: logger.TypeName(w)}
	}
	return initialize(injector, w, def)
}

// MarkReady fires OnReady now unless it already fired.
func MarkReady(w Widget) {
	w.node().fireReady()
}

func initialize(injector *orbit.Injector, w Widget, def *orbit.Definition) error {
	n := w.node()
	n.mu.Lock()
	if n.initialized {
		n.mu.Unlock()
		return &AlreadyAttachedError{Widget: logger.TypeName(w)}
	}
	n.self = w
	n.def = def
	n.injector = injector
	n.onChange = orbit.NewSignal(def.Lifetime())
	n.initialized = true
	n.mu.Unlock()

	def.Lifetime().AddAction(n.teardown)

	if injector != nil && orbit.Injectable(w) {
		if err := injector.Inject(w); err != nil {
			return err
		}
	}

	watch := def.Lifetime().DefineNested("ready")
	n.SubscribeOnChange(watch.Lifetime(), func() {
		if n.isReady() {
			watch.Terminate()
			n.fireReady()
		}
	})

	if h, ok := w.(InitializeHook); ok {
		h.OnInitialize()
	}
	n.Notify()
	return nil
}

// Root is a widget without model or view used as the top of a tree.
type Root struct {
	Node
}

// NewRoot mounts a root widget under a lifetime nested in lt.
func NewRoot(lt *orbit.Lifetime, injector *orbit.Injector) *Root {
	r := &Root{}
	_ = Mount(injector, r, lt.DefineNested("Root"))
	return r
}

// ChildrenOf returns the children of w assignable to T.
func ChildrenOf[T Widget](w Widget, recursive bool) []T {
	var out []T
	for _, c := range w.node().GetChildren(recursive) {
		if typed, ok := c.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

func isNil(w Widget) bool {
	if w == nil {
		return true
	}
	v := reflect.ValueOf(w)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
