package orbit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAwake is returned by Initialize before a successful Awake.
	ErrNotAwake = errors.New("orbit: services are not awake")

	// ErrLifetimeTerminated is returned when an operation needs a live
	// lifetime but the one given has already terminated.
	ErrLifetimeTerminated = errors.New("orbit: lifetime is terminated")

	// ErrNotBound is returned when a service phase runs on a service that
	// was never bound to a lifetime by an orchestrator.
	ErrNotBound = errors.New("orbit: service is not bound")
)

// InvalidStateTransitionError represents a service phase invoked while the
// service is not in the required predecessor state.
type InvalidStateTransitionError struct {
	Service  string
	Expected State
	Actual   State
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for %s: expected %s, got %s", e.Service, e.Expected, e.Actual)
}

// NullServiceError represents a service factory that produced no instance.
type NullServiceError struct {
	Types []string
}

func (e *NullServiceError) Error() string {
	if len(e.Types) == 0 {
		return "service factory returned nil"
	}
	return fmt.Sprintf("nil service provided for type: %s", strings.Join(e.Types, ","))
}

// CircularDependencyError represents a circular dependency detection error.
type CircularDependencyError struct {
	Type  string
	Chain string
}

func (e *CircularDependencyError) Error() string {
	if e.Chain == "" {
		return fmt.Sprintf("circular dependency detected for type: %s", e.Type)
	}
	return fmt.Sprintf("circular dependency detected for type %s: %s", e.Type, e.Chain)
}

// BindingNotFoundError represents a missing binding error.
type BindingNotFoundError struct {
	Type string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("no binding found for type: %s", e.Type)
}

// TypeMismatchError represents a value bound under a type it does not
// implement.
type TypeMismatchError struct {
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
}

// InitializationError represents a binding factory failure.
type InitializationError struct {
	Type string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for type %s: %v", e.Type, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// InjectionError represents a struct field that could not be filled.
type InjectionError struct {
	Type  string
	Field string
	Err   error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("injection failed for %s.%s: %v", e.Type, e.Field, e.Err)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}

// HookError represents a service hook that failed or panicked.
type HookError struct {
	Service string
	Hook    string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s.%s failed: %v", e.Service, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}
