package commands

import (
	"context"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/internal/telemetry"
	"github.com/centraunit/orbit/logger"
)

// Router dispatches messages to the mapper of their runtime type and to
// every subscribed Teller.
type Router struct {
	def      *orbit.Definition
	injector *orbit.Injector
	logger   *logger.Logger
	subs     subscribers

	mu      sync.Mutex
	mappers map[reflect.Type]*Mapper
}

// NewRouter creates a router living under lt. Its injector falls back to
// parent. On teardown every subscriber is dropped and every binding of the
// router injector is unregistered.
func NewRouter(lt *orbit.Lifetime, parent *orbit.Injector, log *logger.Logger) *Router {
	if log == nil {
		log = logger.Nop()
	}
	r := &Router{
		def:      lt.DefineNested("CommandRouter"),
		injector: orbit.NewInjector(parent),
		logger:   log.WithTag("CommandRouter"),
		mappers:  make(map[reflect.Type]*Mapper),
	}
	r.def.Lifetime().AddAction(r.teardown)
	return r
}

func (r *Router) teardown() {
	r.subs.clear()
	for _, t := range r.injector.Types() {
		r.injector.UnRegister(t)
	}
}

// Lifetime returns the router lifetime.
func (r *Router) Lifetime() *orbit.Lifetime { return r.def.Lifetime() }

// Injector returns the router's own injector. Commands are injected from
// per-invocation scopes of it.
func (r *Router) Injector() *orbit.Injector { return r.injector }

// Close terminates the router.
func (r *Router) Close() { r.def.Terminate() }

// Map returns the mapper for messageType, creating it if absent.
func (r *Router) Map(messageType reflect.Type) *Mapper {
	m, _ := r.mapper(messageType, nil)
	return m
}

// mapper returns the mapper registered for messageType. When the slot is
// empty or still holds stale, stale (or a new mapper when stale is nil) is
// put on a fresh lifetime and registered. ok is false once the router is
// closed, in which case stale is returned untouched.
func (r *Router) mapper(messageType reflect.Type, stale *Mapper) (*Mapper, bool) {
	if stale != nil && r.def.IsTerminated() {
		return stale, false
	}

	r.mu.Lock()
	if m, ok := r.mappers[messageType]; ok && m != stale {
		r.mu.Unlock()
		return m, true
	}
	def := r.def.Lifetime().DefineNested(messageType.String())
	m := stale
	if m == nil {
		m = newMapper(r, messageType)
	}
	m.reset(def)
	r.mappers[messageType] = m
	r.mu.Unlock()

	def.Lifetime().AddAction(func() {
		r.mu.Lock()
		if r.mappers[messageType] == m && m.Lifetime() == def.Lifetime() {
			delete(r.mappers, messageType)
		}
		r.mu.Unlock()
	})
	return m, !def.IsTerminated()
}

// Mapped reports whether a mapper exists for messageType.
func (r *Router) Mapped(messageType reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.mappers[messageType]
	return ok
}

// Subscribe adds t until lt terminates.
func (r *Router) Subscribe(lt *orbit.Lifetime, t Teller) {
	if lt.IsTerminated() || r.def.IsTerminated() {
		return
	}
	sub := r.subs.add(t)
	lt.AddAction(func() { r.subs.remove(sub) })
}

// Tell runs every factory registered for the runtime type of message, in
// registration order, and then notifies subscribers in subscription order.
// The first failure stops the dispatch and is returned.
func (r *Router) Tell(ctx context.Context, message any) (err error) {
	if message == nil {
		return ErrNilMessage
	}
	t := reflect.TypeOf(message)

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanTell,
		attribute.String(telemetry.AttrMessageType, t.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	r.mu.Lock()
	m := r.mappers[t]
	r.mu.Unlock()

	if m != nil {
		if err := m.tell(ctx, message); err != nil {
			return err
		}
	}

	for _, sub := range r.subs.snapshot() {
		if err := sub.teller.Tell(ctx, message); err != nil {
			return err
		}
	}
	return nil
}

// Install creates a router for setup and binds it as *Router, Teller and
// CommandMapper.
func Install(setup *orbit.Setup) (*Router, error) {
	r := NewRouter(setup.Lifetime(), setup.Injector(), setup.Logger())
	if err := orbit.Bind(setup.Injector(), r); err != nil {
		return nil, err
	}
	if err := orbit.Bind[Teller](setup.Injector(), r); err != nil {
		return nil, err
	}
	if err := orbit.Bind[CommandMapper](setup.Injector(), r); err != nil {
		return nil, err
	}
	return r, nil
}
