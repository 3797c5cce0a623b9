package widgets

import (
	"errors"
	"fmt"
)

var (
	// ErrNilWidget is returned when a nil widget is attached or mounted.
	ErrNilWidget = errors.New("widgets: nil widget")

	// ErrNotMounted is returned when attaching to a parent that was never
	// mounted or attached itself.
	ErrNotMounted = errors.New("widgets: parent is not mounted")
)

// AlreadyAttachedError represents a widget initialized a second time.
type AlreadyAttachedError struct {
	Widget string
}

func (e *AlreadyAttachedError) Error() string {
	return fmt.Sprintf("widget %s is already initialized", e.Widget)
}

// DuplicateChildError represents a widget added twice to the same parent.
type DuplicateChildError struct {
	Parent string
	Child  string
}

func (e *DuplicateChildError) Error() string {
	return fmt.Sprintf("widget %s is already a child of %s", e.Child, e.Parent)
}

// ModelTypeMismatchError represents a model the widget cannot carry. An
// empty Expected means the widget has no model at all.
type ModelTypeMismatchError struct {
	Widget   string
	Expected string
	Got      string
}

func (e *ModelTypeMismatchError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("widget %s has no model, got %s", e.Widget, e.Got)
	}
	return fmt.Sprintf("widget %s model type mismatch: expected %s, got %s", e.Widget, e.Expected, e.Got)
}

// ViewTypeMismatchError represents a view the widget cannot carry.
type ViewTypeMismatchError struct {
	Widget   string
	Expected string
	Got      string
}

func (e *ViewTypeMismatchError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("widget %s has no view, got %s", e.Widget, e.Got)
	}
	return fmt.Sprintf("widget %s view type mismatch: expected %s, got %s", e.Widget, e.Expected, e.Got)
}
