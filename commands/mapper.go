package commands

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/internal/metrics"
	"github.com/centraunit/orbit/logger"
)

var definitionType = reflect.TypeFor[*orbit.Definition]()

type registration struct {
	factory Factory
	oneTime bool
	def     *orbit.Definition
	fired   atomic.Bool
}

// Mapper holds the factories registered for one message type. It lives as
// long as it has registrations: terminating the last one prunes the mapper
// from its router. Registering on a pruned mapper revives it.
type Mapper struct {
	router      *Router
	messageType reflect.Type
	injector    *orbit.Injector
	logger      *logger.Logger

	mu            sync.Mutex
	def           *orbit.Definition
	pruned        bool
	registrations []*registration
}

func newMapper(router *Router, messageType reflect.Type) *Mapper {
	return &Mapper{
		router:      router,
		messageType: messageType,
		injector:    router.injector,
		logger:      router.logger,
	}
}

// reset moves the mapper onto a fresh lifetime.
func (m *Mapper) reset(def *orbit.Definition) {
	m.mu.Lock()
	m.def = def
	m.pruned = false
	m.registrations = nil
	m.mu.Unlock()
}

// MessageType returns the type this mapper dispatches.
func (m *Mapper) MessageType() reflect.Type { return m.messageType }

// Lifetime returns the current mapper lifetime.
func (m *Mapper) Lifetime() *orbit.Lifetime {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def.Lifetime()
}

// Len returns the number of live registrations.
func (m *Mapper) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.registrations)
}

// RegisterCommand appends factory under a fresh lifetime nested in the
// mapper's and returns its definition; terminating it unregisters the
// factory. A oneTime factory terminates itself after its first execution.
// A pruned mapper is put back into its router first, or the registration
// goes to the mapper that replaced it. Only a closed router yields an
// already terminated definition.
func (m *Mapper) RegisterCommand(factory Factory, oneTime bool) *orbit.Definition {
	name := m.messageType.String()
	target := m
	for {
		target.mu.Lock()
		if !target.pruned && !target.def.IsTerminated() {
			def := target.def.Lifetime().DefineNested(name)
			reg := &registration{factory: factory, oneTime: oneTime, def: def}
			target.registrations = append(target.registrations, reg)
			target.mu.Unlock()

			owner := target
			def.Lifetime().AddAction(func() { owner.remove(reg) })
			return def
		}
		dead := target.def
		target.mu.Unlock()

		next, ok := m.router.mapper(m.messageType, target)
		if !ok {
			return dead.Lifetime().DefineNested(name)
		}
		target = next
	}
}

func (m *Mapper) remove(reg *registration) {
	m.mu.Lock()
	found := false
	for i, r := range m.registrations {
		if r == reg {
			m.registrations = append(m.registrations[:i], m.registrations[i+1:]...)
			found = true
			break
		}
	}
	prune := found && len(m.registrations) == 0
	def := m.def
	if prune {
		m.pruned = true
	}
	m.mu.Unlock()

	if prune {
		def.Terminate()
	}
}

func (m *Mapper) snapshot() []*registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*registration, len(m.registrations))
	copy(out, m.registrations)
	return out
}

// tell runs every registration in order and stops at the first failure.
func (m *Mapper) tell(ctx context.Context, message any) error {
	for _, reg := range m.snapshot() {
		if reg.def.IsTerminated() {
			continue
		}
		if reg.oneTime && !reg.fired.CompareAndSwap(false, true) {
			continue
		}
		err := m.invoke(ctx, reg, message)
		metrics.ObserveCommand(m.messageType.String(), err)
		if err != nil {
			m.logger.E(err.Error(), "message", m.messageType.String())
			return err
		}
	}
	return nil
}

// invoke binds the message and the registration's definition into a scope
// of the router injector for the duration of one execution.
func (m *Mapper) invoke(ctx context.Context, reg *registration, message any) error {
	if reg.oneTime {
		defer reg.def.Terminate()
	}

	scope := m.injector.Scope()
	if err := scope.ToValue(m.messageType, message); err != nil {
		return err
	}
	if err := scope.ToValue(definitionType, reg.def); err != nil {
		return err
	}
	defer func() {
		scope.UnRegister(m.messageType)
		scope.UnRegister(definitionType)
	}()

	cmd := reg.factory(reg.def.Lifetime())
	if cmd == nil {
		return &NilCommandError{Message: m.messageType.String()}
	}
	if orbit.Injectable(cmd) {
		if err := scope.Inject(cmd); err != nil {
			return err
		}
	}
	if m.logger.Enabled(logger.Verbose) {
		m.logger.V("execute", "command", logger.TypeName(cmd), "message", m.messageType.String())
	}
	if err := cmd.Execute(ctx); err != nil {
		return &CommandError{Message: m.messageType.String(), Command: logger.TypeName(cmd), Err: err}
	}
	return nil
}
