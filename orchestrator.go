package orbit

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/centraunit/orbit/internal/telemetry"
	"github.com/centraunit/orbit/logger"
)

type registration struct {
	factory    ServiceFactory
	interfaces []reflect.Type
}

// Orchestrator drives the two-phase startup of a batch of services.
type Orchestrator struct {
	injector *Injector
	observer ServicesObserver
	options  *Options
	logger   *logger.Logger

	mu            sync.Mutex
	registrations []registration
	services      []ServiceInstance
	awake         bool
}

// NewOrchestrator creates an orchestrator binding services into injector.
// observer and options may be nil.
func NewOrchestrator(injector *Injector, options *Options, observer ServicesObserver, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	if options == nil {
		options = NewOptions()
	}
	return &Orchestrator{
		injector: injector,
		observer: observer,
		options:  options,
		logger:   log,
	}
}

// Register appends a deferred service factory. The resolved service is bound
// under each of interfaces, or under its concrete type when none are given.
func (o *Orchestrator) Register(factory ServiceFactory, interfaces ...reflect.Type) {
	o.mu.Lock()
	o.registrations = append(o.registrations, registration{factory: factory, interfaces: interfaces})
	o.mu.Unlock()
}

// Services returns the services resolved by Awake, in registration order.
func (o *Orchestrator) Services() []ServiceInstance {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ServiceInstance, len(o.services))
	copy(out, o.services)
	return out
}

// Strategy returns the configured initialization strategy.
func (o *Orchestrator) Strategy() Strategy {
	return o.options.InitializationStrategy()
}

// Awake resolves every registered service, binds and injects it, and runs
// the wake hooks. It returns nil without running further hooks once lt
// terminates.
func (o *Orchestrator) Awake(ctx context.Context, lt *Lifetime) (err error) {
	o.mu.Lock()
	regs := make([]registration, len(o.registrations))
	copy(regs, o.registrations)
	o.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanAwake,
		attribute.Int(telemetry.AttrServiceCount, len(regs)),
		attribute.String(telemetry.AttrStrategy, o.Strategy().String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if o.logger.Enabled(logger.Verbose) {
		o.logger.V("Begin to prepare services")
	}

	services := make([]ServiceInstance, 0, len(regs))
	for _, reg := range regs {
		svc, err := reg.factory(o.injector)
		if err != nil {
			return &InitializationError{Type: typeNames(reg.interfaces), Err: err}
		}
		if isNil(svc) {
			names := make([]string, len(reg.interfaces))
			for i, t := range reg.interfaces {
				names[i] = t.String()
			}
			return &NullServiceError{Types: names}
		}
		if o.observer != nil {
			o.observer.Register(svc)
		}

		if len(reg.interfaces) != 0 {
			for _, t := range reg.interfaces {
				if err := o.injector.ToValue(t, svc); err != nil {
					return err
				}
			}
		} else if err := o.injector.ToValue(reflect.TypeOf(svc), svc); err != nil {
			return err
		}

		name := logger.TypeName(svc)
		svc.service().bind(name, lt, o.logger.WithTag(name), o.injector)
		services = append(services, svc)
	}

	o.mu.Lock()
	o.services = services
	o.mu.Unlock()

	if o.logger.Enabled(logger.Verbose) {
		names := make([]string, len(services))
		for i, svc := range services {
			names[i] = svc.service().name
		}
		o.logger.V(fmt.Sprintf("Services [\n%s\n]", strings.Join(names, ",\n")))
	}

	for _, svc := range services {
		if err := o.injector.Inject(svc); err != nil {
			return err
		}
	}

	if lt.IsTerminated() {
		return nil
	}

	if err := o.run(ctx, lt, services, awakePhase); err != nil {
		return err
	}

	o.mu.Lock()
	o.awake = true
	o.mu.Unlock()
	return nil
}

// Initialize runs the initialize hooks of the services resolved by Awake.
// Each service's own lifetime is checked between hook starts.
func (o *Orchestrator) Initialize(ctx context.Context, lt *Lifetime) (err error) {
	o.mu.Lock()
	awake := o.awake
	services := make([]ServiceInstance, len(o.services))
	copy(services, o.services)
	o.mu.Unlock()

	if !awake {
		return ErrNotAwake
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanInitialize,
		attribute.Int(telemetry.AttrServiceCount, len(services)),
		attribute.String(telemetry.AttrStrategy, o.Strategy().String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	return o.run(ctx, lt, services, initializePhase)
}

func (o *Orchestrator) run(ctx context.Context, lt *Lifetime, services []ServiceInstance, p phase) error {
	sequential := o.Strategy() == Sequential
	// A service's own lifetime stops scheduling only while initializing.
	// During wake a terminated service is skipped.
	ownStops := p.hook == initializePhase.hook
	tasks := make([]*Task, 0, len(services))
	owners := make([]*Lifetime, 0, len(services))

	for _, svc := range services {
		if lt.IsTerminated() {
			return nil
		}
		own := svc.service().Lifetime()
		if own.IsTerminated() {
			if ownStops {
				return nil
			}
			continue
		}

		name := svc.service().name
		if o.logger.Enabled(logger.Verbose) {
			o.logger.V(name + "." + p.hook)
		}

		task, err := runPhase(svc, p)
		if err != nil {
			o.logger.E(err.Error(), "service", name, "hook", p.hook)
			return err
		}
		o.report(task, own, name+"."+p.hook+"->Completed")
		tasks = append(tasks, task)
		owners = append(owners, own)

		if sequential {
			select {
			case <-task.Done():
				if err := task.Err(); err != nil {
					return err
				}
			case <-own.Done():
				if ownStops {
					return nil
				}
			case <-lt.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if lt.IsTerminated() || (ownStops && own.IsTerminated()) {
			return nil
		}
	}

	if sequential {
		return nil
	}
	return join(ctx, lt, tasks, owners)
}

// join waits for every task, the first failure, or termination.
func join(ctx context.Context, lt *Lifetime, tasks []*Task, owners []*Lifetime) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		own := owners[i]
		g.Go(func() error {
			select {
			case <-task.Done():
				return task.Err()
			case <-own.Done():
			case <-lt.Done():
			case <-gctx.Done():
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// report logs hook completion when verbose logging is on.
func (o *Orchestrator) report(task *Task, own *Lifetime, message string) {
	if !o.logger.Enabled(logger.Verbose) && !o.logger.Enabled(logger.Error) {
		return
	}
	go func() {
		select {
		case <-task.Done():
		case <-own.Done():
			return
		}
		if err := task.Err(); err != nil {
			o.logger.E(err.Error() + "\n" + message)
			return
		}
		o.logger.V(message)
	}()
}

func typeNames(types []reflect.Type) string {
	if len(types) == 0 {
		return "service"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ",")
}
