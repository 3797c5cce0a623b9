package orbit

import (
	"context"
	"sync"
)

// Startup configures a setup in three steps around the service phases.
type Startup interface {
	// OnAwake registers services and bindings before anything is resolved.
	OnAwake(s *Setup) error
	// OnConfigure runs after every service woke up.
	OnConfigure(s *Setup) error
	// OnStart runs after every service initialized.
	OnStart(s *Setup) error
}

// Install runs OnAwake, the wake phase, OnConfigure, the initialize phase
// and OnStart. It returns nil without running later steps as soon as the
// setup lifetime terminates.
func Install(ctx context.Context, startup Startup, s *Setup) error {
	lt := s.Lifetime()

	if err := startup.OnAwake(s); err != nil {
		return err
	}
	if lt.IsTerminated() {
		return nil
	}

	if err := s.AwakeServices(ctx); err != nil {
		return err
	}
	if lt.IsTerminated() {
		return nil
	}

	if err := startup.OnConfigure(s); err != nil {
		return err
	}

	if err := s.InitializeServices(ctx); err != nil {
		return err
	}
	if lt.IsTerminated() {
		return nil
	}

	return startup.OnStart(s)
}

// ServiceList is a ServicesObserver collecting every resolved service.
type ServiceList struct {
	mu       sync.Mutex
	services []ServiceInstance
}

// Register implements ServicesObserver.
func (l *ServiceList) Register(svc ServiceInstance) {
	l.mu.Lock()
	l.services = append(l.services, svc)
	l.mu.Unlock()
}

// Services returns the observed services in resolution order.
func (l *ServiceList) Services() []ServiceInstance {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ServiceInstance, len(l.services))
	copy(out, l.services)
	return out
}

// States returns the current state of every observed service keyed by its
// logger tag.
func (l *ServiceList) States() map[string]State {
	out := make(map[string]State)
	for _, svc := range l.Services() {
		s := svc.service()
		out[s.String()] = s.State()
	}
	return out
}
