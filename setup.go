package orbit

import (
	"context"
	"reflect"

	"github.com/centraunit/orbit/logger"
)

// Setup owns the lifetime, injector and orchestrator of one runtime. Several
// setups can coexist; nothing is stored in package state.
type Setup struct {
	def          *Definition
	injector     *Injector
	logger       *logger.Logger
	options      *Options
	orchestrator *Orchestrator
}

type setupConfig struct {
	logger   *logger.Logger
	options  *Options
	observer ServicesObserver
	parent   *Injector
	name     string
}

// SetupOption configures NewSetup.
type SetupOption func(*setupConfig)

// WithLogger sets the root logger. Services receive children tagged with
// their type name.
func WithLogger(l *logger.Logger) SetupOption {
	return func(c *setupConfig) { c.logger = l }
}

// WithOptions sets the builder options.
func WithOptions(o *Options) SetupOption {
	return func(c *setupConfig) { c.options = o }
}

// WithObserver registers an observer of every resolved service.
func WithObserver(o ServicesObserver) SetupOption {
	return func(c *setupConfig) { c.observer = o }
}

// WithParentInjector makes the setup injector fall back to parent.
func WithParentInjector(parent *Injector) SetupOption {
	return func(c *setupConfig) { c.parent = parent }
}

// WithName names the setup lifetime.
func WithName(name string) SetupOption {
	return func(c *setupConfig) { c.name = name }
}

// NewSetup creates a setup whose lifetime is nested under parent.
func NewSetup(parent *Lifetime, opts ...SetupOption) *Setup {
	cfg := &setupConfig{name: "Setup"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Nop()
	}
	if cfg.options == nil {
		cfg.options = NewOptions()
	}

	s := &Setup{
		def:      Define(parent, cfg.name),
		injector: NewInjector(cfg.parent),
		logger:   cfg.logger,
		options:  cfg.options,
	}
	s.orchestrator = NewOrchestrator(s.injector, cfg.options, cfg.observer, cfg.logger)
	_ = Bind(s.injector, s)
	_ = Bind(s.injector, cfg.logger)
	return s
}

// Lifetime returns the setup lifetime.
func (s *Setup) Lifetime() *Lifetime { return s.def.Lifetime() }

// Terminate tears the whole runtime down.
func (s *Setup) Terminate() { s.def.Terminate() }

// Injector returns the setup injector.
func (s *Setup) Injector() *Injector { return s.injector }

// Logger returns the root logger.
func (s *Setup) Logger() *logger.Logger { return s.logger }

// Options returns the builder options.
func (s *Setup) Options() *Options { return s.options }

// Orchestrator returns the service orchestrator.
func (s *Setup) Orchestrator() *Orchestrator { return s.orchestrator }

// Resolve resolves t from the setup injector.
func (s *Setup) Resolve(t reflect.Type) (any, error) { return s.injector.Resolve(t) }

// Inject fills the inject-tagged fields of target.
func (s *Setup) Inject(target any) error { return s.injector.Inject(target) }

// AddService registers a service factory.
func (s *Setup) AddService(factory ServiceFactory, interfaces ...reflect.Type) {
	s.orchestrator.Register(factory, interfaces...)
}

// AwakeServices runs the wake phase under the setup lifetime.
func (s *Setup) AwakeServices(ctx context.Context) error {
	return s.orchestrator.Awake(ctx, s.Lifetime())
}

// InitializeServices runs the initialize phase under the setup lifetime.
func (s *Setup) InitializeServices(ctx context.Context) error {
	return s.orchestrator.Initialize(ctx, s.Lifetime())
}

// RegisterService registers a ready-made service instance.
func RegisterService[T ServiceInstance](s *Setup, svc T, interfaces ...reflect.Type) {
	s.AddService(func(Resolver) (ServiceInstance, error) { return svc, nil }, interfaces...)
}

// RegisterFactory registers a service built from the setup injector.
func RegisterFactory[T ServiceInstance](s *Setup, factory func(r Resolver) (T, error), interfaces ...reflect.Type) {
	s.AddService(func(r Resolver) (ServiceInstance, error) {
		svc, err := factory(r)
		if err != nil {
			return nil, err
		}
		if isNil(svc) {
			return nil, nil
		}
		return svc, nil
	}, interfaces...)
}
