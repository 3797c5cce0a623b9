package orbit

import (
	"context"
	"reflect"
)

// Awakener is implemented by services with a wake hook. The context is
// cancelled when the service's lifetime terminates.
type Awakener interface {
	OnAwake(ctx context.Context) error
}

// Initializer is implemented by services with an initialize hook.
type Initializer interface {
	OnInitialize(ctx context.Context) error
}

// ServiceInstance is any value embedding Service.
type ServiceInstance interface {
	service() *Service
}

// ServiceFactory produces a service from the setup injector.
type ServiceFactory func(r Resolver) (ServiceInstance, error)

// ServicesObserver sees every service the orchestrator resolves, before it
// is bound.
type ServicesObserver interface {
	Register(svc ServiceInstance)
}

// Resolver is the read side of an Injector.
type Resolver interface {
	Resolve(t reflect.Type) (any, error)
	Inject(target any) error
}

// BindingKind defines how a binding produces its value.
type BindingKind string

// Available binding kinds
const (
	// KindValue returns the bound value on every resolution
	KindValue BindingKind = "value"
	// KindTransient calls the factory on every resolution
	KindTransient BindingKind = "transient"
	// KindSingleton calls the factory once, on first resolution
	KindSingleton BindingKind = "singleton"
)
