package orbit

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/centraunit/orbit/internal/metrics"
	"github.com/centraunit/orbit/logger"
)

// State is the phase a service is in.
type State int32

const (
	StateCreated State = iota
	StateAwaking
	StateWokeUp
	StateInitializing
	StateInitialized
	StateTerminated
)

var stateNames = [...]string{"Created", "Awaking", "WokeUp", "Initializing", "Initialized", "Terminated"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Service is embedded by every service. Its state only moves through
// RunAwake and RunInitialize, and is pinned to StateTerminated once the
// service's lifetime terminates.
type Service struct {
	mu       sync.Mutex
	name     string
	state    State
	def      *Definition
	logger   *logger.Logger
	resolver Resolver
}

func (s *Service) service() *Service { return s }

// State returns the current phase.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Lifetime returns the lifetime the service was bound to, or nil before
// Awake.
func (s *Service) Lifetime() *Lifetime {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.def == nil {
		return nil
	}
	return s.def.Lifetime()
}

// Logger returns the service's tagged logger.
func (s *Service) Logger() *logger.Logger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}

// Resolve resolves t through the injector the service was bound with.
func (s *Service) Resolve(t reflect.Type) (any, error) {
	s.mu.Lock()
	r := s.resolver
	s.mu.Unlock()
	if r == nil {
		return nil, ErrNotBound
	}
	return r.Resolve(t)
}

// Terminate terminates the service's own lifetime.
func (s *Service) Terminate() {
	s.mu.Lock()
	def := s.def
	s.mu.Unlock()
	if def != nil {
		def.Terminate()
	}
}

func (s *Service) String() string { return s.name }

// bind attaches the service to a lifetime nested under parent.
func (s *Service) bind(name string, parent *Lifetime, log *logger.Logger, r Resolver) {
	def := parent.DefineNested(name)
	s.mu.Lock()
	s.name = name
	s.def = def
	s.logger = log
	s.resolver = r
	s.mu.Unlock()
	metrics.ServiceStateChanged("", s.State().String())

	def.Lifetime().AddAction(func() {
		s.mu.Lock()
		prev := s.state
		s.state = StateTerminated
		s.mu.Unlock()
		metrics.ServiceStateChanged(prev.String(), StateTerminated.String())
	})
}

// Task is a running service hook.
type Task struct {
	done chan struct{}
	err  error
}

func newTask() *Task { return &Task{done: make(chan struct{})} }

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Done is closed when the hook settles.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the hook outcome. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the hook settles or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type phase struct {
	hook string
	from State
	mid  State
	to   State
	run  func(svc ServiceInstance, ctx context.Context) error
}

var (
	awakePhase = phase{
		hook: "OnAwake",
		from: StateCreated,
		mid:  StateAwaking,
		to:   StateWokeUp,
		run: func(svc ServiceInstance, ctx context.Context) error {
			if h, ok := svc.(Awakener); ok {
				return h.OnAwake(ctx)
			}
			return nil
		},
	}
	initializePhase = phase{
		hook: "OnInitialize",
		from: StateWokeUp,
		mid:  StateInitializing,
		to:   StateInitialized,
		run: func(svc ServiceInstance, ctx context.Context) error {
			if h, ok := svc.(Initializer); ok {
				return h.OnInitialize(ctx)
			}
			return nil
		},
	}
)

// RunAwake moves svc from Created to Awaking and starts its wake hook. The
// service reaches WokeUp when the hook returns without error.
func RunAwake(svc ServiceInstance) (*Task, error) {
	return runPhase(svc, awakePhase)
}

// RunInitialize moves svc from WokeUp to Initializing and starts its
// initialize hook. The service reaches Initialized when the hook returns
// without error.
func RunInitialize(svc ServiceInstance) (*Task, error) {
	return runPhase(svc, initializePhase)
}

func runPhase(svc ServiceInstance, p phase) (*Task, error) {
	s := svc.service()

	s.mu.Lock()
	if s.def == nil {
		s.mu.Unlock()
		return nil, ErrNotBound
	}
	if s.def.IsTerminated() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%s.%s: %w", s.name, p.hook, ErrLifetimeTerminated)
	}
	if s.state != p.from {
		actual := s.state
		s.mu.Unlock()
		return nil, &InvalidStateTransitionError{Service: s.name, Expected: p.from, Actual: actual}
	}
	s.state = p.mid
	ctx := s.def.Lifetime().Context()
	s.mu.Unlock()
	metrics.ServiceStateChanged(p.from.String(), p.mid.String())

	task := newTask()
	go func() {
		start := time.Now()
		err := callHook(svc, p, ctx)
		metrics.ObservePhase(s.name, p.hook, time.Since(start), err)
		task.finish(s.complete(p, err))
	}()
	return task, nil
}

func callHook(svc ServiceInstance, p phase, ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.run(svc, ctx)
}

// complete settles a hook. A terminated service swallows the outcome.
func (s *Service) complete(p phase, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTerminated {
		return nil
	}
	if err != nil {
		return &HookError{Service: s.name, Hook: p.hook, Err: err}
	}
	if s.state != p.mid {
		return &InvalidStateTransitionError{Service: s.name, Expected: p.mid, Actual: s.state}
	}
	s.state = p.to
	metrics.ServiceStateChanged(p.mid.String(), p.to.String())
	return nil
}
