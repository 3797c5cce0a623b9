package ui

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueTerminated is returned by Open once the queue lifetime ended.
	ErrQueueTerminated = errors.New("ui: queue terminated")

	// ErrNoView is reported when a provider completes without a view.
	ErrNoView = errors.New("ui: provider returned no view")
)

// InvalidTypeError represents a type passed to Open that is not a widget.
type InvalidTypeError struct {
	Type string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("%s is not a widget type", e.Type)
}

// UnregisteredTypeError represents a widget type opened without a
// registration.
type UnregisteredTypeError struct {
	Type string
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("widget type %s is not registered", e.Type)
}

// ProviderError wraps a view provider failure.
type ProviderError struct {
	Path string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("failed to provide view %q: %v", e.Path, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
