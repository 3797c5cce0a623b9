package ui

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/internal/metrics"
	"github.com/centraunit/orbit/internal/telemetry"
	"github.com/centraunit/orbit/logger"
	"github.com/centraunit/orbit/widgets"
)

// Policy selects how a queue schedules its entries.
type Policy int

const (
	// Serial opens entries one at a time in FIFO order.
	Serial Policy = iota
	// Exclusive terminates every earlier entry when a new one is opened.
	Exclusive
)

func (p Policy) String() string {
	if p == Exclusive {
		return "Exclusive"
	}
	return "Serial"
}

// EntryState is the position of an entry in its queue.
type EntryState int

const (
	Queued EntryState = iota
	Opening
	Active
	Closed
)

func (s EntryState) String() string {
	switch s {
	case Queued:
		return "Queued"
	case Opening:
		return "Opening"
	case Active:
		return "Active"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Action distinguishes the two change notifications of a queue.
type Action int

const (
	WindowOpened Action = iota
	WindowClosed
)

func (a Action) String() string {
	if a == WindowClosed {
		return "WindowClosed"
	}
	return "WindowOpened"
}

// OpenFunc receives the opened widget, or the error that prevented it.
type OpenFunc func(w widgets.Widget, err error)

// OpenOption customizes one Open call.
type OpenOption func(*openOptions)

type openOptions struct {
	owner *orbit.Lifetime
}

// OwnedBy ties the entry to owner as well as the queue: it closes as soon
// as either terminates.
func OwnedBy(owner *orbit.Lifetime) OpenOption {
	return func(o *openOptions) { o.owner = owner }
}

type entry struct {
	id       uuid.UUID
	reg      *Registration
	provider ViewProvider
	model    any
	def      *orbit.Definition
	widget   widgets.Widget
	onOpen   OpenFunc
	ref      *Reference

	// guarded by Queue.mu
	state   EntryState
	failed  bool
	started time.Time
	span    trace.Span
}

// Reference is the caller's handle on an opened or pending widget.
type Reference struct {
	q *Queue
	e *entry
}

func (r *Reference) ID() uuid.UUID { return r.e.id }
func (r *Reference) Type() reflect.Type { return r.e.reg.Type }
func (r *Reference) Name() string { return r.e.reg.Name }
func (r *Reference) Model() any { return r.e.model }
func (r *Reference) Fullscreen() bool { return r.e.reg.Fullscreen }
func (r *Reference) Lifetime() *orbit.Lifetime { return r.e.def.Lifetime() }
func (r *Reference) IsClosed() bool { return r.e.def.IsTerminated() }

// Widget returns the widget; it is mounted only once the entry is Active.
func (r *Reference) Widget() widgets.Widget { return r.e.widget }

// State returns the entry state.
func (r *Reference) State() EntryState {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return r.e.state
}

// Close terminates the entry. A queued entry is dropped without ever being
// opened.
func (r *Reference) Close() { r.e.def.Terminate() }

// Queue serializes opening widgets bound to asynchronously provided views.
// At most one entry is Opening at any time. Under the Exclusive policy at
// most one entry exists at all.
type Queue struct {
	name     string
	policy   Policy
	def      *orbit.Definition
	injector *orbit.Injector
	registry *Registry
	logger   *logger.Logger

	onChanged *orbit.Signal
	onAction  *orbit.Signal2[*Reference, Action]

	mu      sync.Mutex
	pending []*entry
	current *entry
	opened  []*entry
}

// NewQueue creates a queue living under lt. Widgets are mounted with
// injector and opened through registry.
func NewQueue(lt *orbit.Lifetime, name string, policy Policy, injector *orbit.Injector, registry *Registry, log *logger.Logger) *Queue {
	if log == nil {
		log = logger.Nop()
	}
	def := lt.DefineNested(name)
	q := &Queue{
		name:      name,
		policy:    policy,
		def:       def,
		injector:  injector,
		registry:  registry,
		logger:    log.WithTag(name),
		onChanged: orbit.NewSignal(def.Lifetime()),
		onAction:  orbit.NewSignal2[*Reference, Action](def.Lifetime()),
	}
	def.Lifetime().AddAction(func() {
		q.mu.Lock()
		q.pending, q.current, q.opened = nil, nil, nil
		q.mu.Unlock()
		metrics.SetQueueDepth(q.name, 0)
	})
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Policy returns the scheduling policy.
func (q *Queue) Policy() Policy { return q.policy }

// Lifetime returns the queue lifetime.
func (q *Queue) Lifetime() *orbit.Lifetime { return q.def.Lifetime() }

// Registry returns the registry used to open widgets.
func (q *Queue) Registry() *Registry { return q.registry }

// Close terminates the queue and every entry in it.
func (q *Queue) Close() { q.def.Terminate() }

// SubscribeOnChanged calls fn after every open and close.
func (q *Queue) SubscribeOnChanged(lt *orbit.Lifetime, fn func()) {
	q.onChanged.Subscribe(lt, fn)
}

// SubscribeOnAction calls fn with the reference and action after every open
// and close.
func (q *Queue) SubscribeOnAction(lt *orbit.Lifetime, fn func(*Reference, Action)) {
	q.onAction.Subscribe(lt, fn)
}

// Opened returns references to the Active entries in opening order.
func (q *Queue) Opened() []*Reference {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Reference, len(q.opened))
	for i, e := range q.opened {
		out[i] = e.ref
	}
	return out
}

// Pending returns references to the entries not yet Active, the Opening one
// first.
func (q *Queue) Pending() []*Reference {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Reference, 0, len(q.pending)+1)
	if q.current != nil {
		out = append(out, q.current.ref)
	}
	for _, e := range q.pending {
		out = append(out, e.ref)
	}
	return out
}

// CloseAll terminates every entry, pending ones included.
func (q *Queue) CloseAll() {
	for _, e := range q.entries() {
		e.def.Terminate()
	}
}

func (q *Queue) entries() []*entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*entry, 0, len(q.opened)+len(q.pending)+1)
	out = append(out, q.opened...)
	if q.current != nil {
		out = append(out, q.current)
	}
	return append(out, q.pending...)
}

// Open enqueues widget type t. Type and model are validated before anything
// is enqueued; onOpen, when non-nil, is called once the widget is Active or
// with the error that tore the entry down. It is never called for entries
// closed before they opened.
func (q *Queue) Open(t reflect.Type, model any, onOpen OpenFunc, opts ...OpenOption) (*Reference, error) {
	reg, err := q.registry.Lookup(t)
	if err != nil {
		return nil, err
	}
	if q.def.IsTerminated() {
		return nil, ErrQueueTerminated
	}
	w := reg.New()
	if err := widgets.CheckModel(w, model); err != nil {
		return nil, err
	}

	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}
	var def *orbit.Definition
	if o.owner != nil {
		def = orbit.Intersection(q.def.Lifetime(), o.owner)
	} else {
		def = q.def.Lifetime().DefineNested(reg.Name)
	}

	e := &entry{
		id:       uuid.New(),
		reg:      reg,
		provider: q.registry.providerFor(reg),
		model:    model,
		def:      def,
		widget:   w,
		onOpen:   onOpen,
		state:    Queued,
		started:  time.Now(),
	}
	e.ref = &Reference{q: q, e: e}

	q.mu.Lock()
	var victims []*entry
	if q.policy == Exclusive {
		victims = append(victims, q.opened...)
		if q.current != nil {
			victims = append(victims, q.current)
		}
		victims = append(victims, q.pending...)
	}
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	def.Lifetime().AddAction(func() { q.closed(e) })
	for _, v := range victims {
		v.def.Terminate()
	}
	q.reportDepth()

	if q.logger.Enabled(logger.Verbose) {
		q.logger.V("enqueued", "widget", reg.Name, "entry", e.id.String())
	}
	q.advance()
	return e.ref, nil
}

// advance starts the next queued entry unless one is already Opening.
func (q *Queue) advance() {
	if q.def.IsTerminated() {
		return
	}
	q.mu.Lock()
	if q.current != nil || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	e := q.pending[0]
	q.pending = q.pending[1:]
	q.current = e
	e.state = Opening
	_, e.span = telemetry.StartSpan(context.Background(), telemetry.SpanQueueOpen,
		attribute.String(telemetry.AttrQueue, q.name),
		attribute.String(telemetry.AttrWidgetType, e.reg.Name),
		attribute.String(telemetry.AttrEntryID, e.id.String()),
	)
	q.mu.Unlock()

	q.process(e)
}

func (q *Queue) process(e *entry) {
	if e.reg.Direct() || e.provider == nil {
		q.attach(e, nil)
		return
	}
	e.provider.Provide(e.def.Lifetime(), e.reg.Path, widgets.ViewTypeOf(e.widget), func(pc *ProviderContext, err error) {
		q.deliver(e, pc, err)
	})
}

func (q *Queue) deliver(e *entry, pc *ProviderContext, err error) {
	if e.def.IsTerminated() {
		if pc != nil {
			pc.Terminate()
		}
		return
	}
	if err == nil && pc == nil {
		err = ErrNoView
	}
	if err != nil {
		q.fail(e, &ProviderError{Path: e.reg.Path, Err: err})
		return
	}
	q.attach(e, pc)
}

// attach mounts the widget on the entry lifetime, binds model and view and
// promotes the entry to Active.
func (q *Queue) attach(e *entry, pc *ProviderContext) {
	if pc != nil {
		pc.OnDestroyed(e.def.Lifetime(), e.def.Terminate)
		e.def.Lifetime().AddAction(pc.Terminate)
	}

	if err := widgets.Mount(q.injector, e.widget, e.def); err != nil {
		q.fail(e, err)
		return
	}
	if err := widgets.SetModel(e.widget, e.model); err != nil {
		q.fail(e, err)
		return
	}
	if pc != nil {
		if err := widgets.SetView(e.widget, pc.View); err != nil {
			q.fail(e, err)
			return
		}
	}
	widgets.MarkReady(e.widget)

	q.mu.Lock()
	if e.state != Opening || e.def.IsTerminated() {
		q.mu.Unlock()
		return
	}
	e.state = Active
	q.current = nil
	q.opened = append(q.opened, e)
	span := e.span
	e.span = nil
	q.mu.Unlock()

	if span != nil {
		telemetry.EndSpan(span, nil)
	}
	metrics.ObserveQueueOpen(q.name, metrics.OutcomeOpened, time.Since(e.started))
	q.reportDepth()
	if q.logger.Enabled(logger.Verbose) {
		q.logger.V("opened", "widget", e.reg.Name, "entry", e.id.String())
	}

	if e.onOpen != nil {
		e.onOpen(e.widget, nil)
	}
	q.onChanged.Fire()
	q.onAction.Fire(e.ref, WindowOpened)
	q.advance()
}

// fail reports err to the caller and tears the entry down.
func (q *Queue) fail(e *entry, err error) {
	q.mu.Lock()
	e.failed = true
	q.mu.Unlock()

	q.logger.E(err.Error(), "widget", e.reg.Name, "entry", e.id.String())
	if e.onOpen != nil {
		e.onOpen(nil, err)
	}
	q.finishSpan(e, err)
	metrics.ObserveQueueOpen(q.name, metrics.OutcomeFailed, time.Since(e.started))
	e.def.Terminate()
}

func (q *Queue) finishSpan(e *entry, err error) {
	q.mu.Lock()
	span := e.span
	e.span = nil
	q.mu.Unlock()
	if span != nil {
		telemetry.EndSpan(span, err)
	}
}

// closed runs when the entry lifetime terminates, whatever its state.
func (q *Queue) closed(e *entry) {
	q.mu.Lock()
	prev := e.state
	failed := e.failed
	e.state = Closed
	q.pending = removeEntry(q.pending, e)
	q.opened = removeEntry(q.opened, e)
	wasCurrent := q.current == e
	if wasCurrent {
		q.current = nil
	}
	q.mu.Unlock()

	switch prev {
	case Active:
		metrics.ObserveQueueClose(q.name)
		if !q.def.IsTerminated() {
			q.onChanged.Fire()
			q.onAction.Fire(e.ref, WindowClosed)
		}
	case Queued, Opening:
		if !failed {
			q.finishSpan(e, nil)
			metrics.ObserveQueueOpen(q.name, metrics.OutcomeCancelled, time.Since(e.started))
		}
	}
	q.reportDepth()

	if wasCurrent {
		q.advance()
	}
}

func (q *Queue) reportDepth() {
	q.mu.Lock()
	depth := len(q.pending)
	if q.current != nil {
		depth++
	}
	q.mu.Unlock()
	metrics.SetQueueDepth(q.name, depth)
}

func removeEntry(entries []*entry, e *entry) []*entry {
	for i, x := range entries {
		if x == e {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

// Open opens widget type W on q and reports the typed widget to onOpen.
func Open[W widgets.Widget](q *Queue, model any, onOpen func(W, error), opts ...OpenOption) (*Reference, error) {
	var fn OpenFunc
	if onOpen != nil {
		fn = func(w widgets.Widget, err error) {
			typed, _ := w.(W)
			onOpen(typed, err)
		}
	}
	return q.Open(reflect.TypeFor[W](), model, fn, opts...)
}
