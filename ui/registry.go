package ui

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/centraunit/orbit/logger"
	"github.com/centraunit/orbit/widgets"
)

var widgetType = reflect.TypeFor[widgets.Widget]()

// Registration describes how to open one widget type.
type Registration struct {
	Type       reflect.Type
	Name       string
	Path       string
	Fullscreen bool
	// Provider overrides the registry provider for this type.
	Provider ViewProvider

	construct func() widgets.Widget
}

// New constructs a fresh, unmounted widget.
func (r *Registration) New() widgets.Widget { return r.construct() }

// Direct reports whether the widget opens without a view.
func (r *Registration) Direct() bool { return r.Path == "" }

// RegistrationOption customizes a Registration.
type RegistrationOption func(*Registration)

// WithName sets the name used for configuration overrides and metrics.
func WithName(name string) RegistrationOption {
	return func(r *Registration) { r.Name = name }
}

// WithFullscreen marks a window registration as fullscreen.
func WithFullscreen() RegistrationOption {
	return func(r *Registration) { r.Fullscreen = true }
}

// WithProvider sets a provider for this registration only.
func WithProvider(p ViewProvider) RegistrationOption {
	return func(r *Registration) { r.Provider = p }
}

// Registry maps widget types to registrations. Constructors are captured
// once at registration, so opening never needs to reflect on the type.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]*Registration
	provider ViewProvider
}

// NewRegistry creates a registry using provider for registrations that do
// not carry their own.
func NewRegistry(provider ViewProvider) *Registry {
	return &Registry{
		byType:   make(map[reflect.Type]*Registration),
		provider: provider,
	}
}

// Register registers widget type *W with the view at path. An empty path
// opens the widget directly, without a view.
func Register[W any, PW interface {
	*W
	widgets.Widget
}](r *Registry, path string, opts ...RegistrationOption) *Registration {
	t := reflect.TypeFor[PW]()
	reg := &Registration{
		Type:      t,
		Name:      logger.TypeName(PW(new(W))),
		Path:      path,
		construct: func() widgets.Widget { return PW(new(W)) },
	}
	for _, opt := range opts {
		opt(reg)
	}

	r.mu.Lock()
	r.byType[t] = reg
	r.mu.Unlock()
	return reg
}

// Lookup returns a snapshot of the registration of t.
func (r *Registry) Lookup(t reflect.Type) (*Registration, error) {
	if t == nil || !t.Implements(widgetType) {
		name := "<nil>"
		if t != nil {
			name = t.String()
		}
		return nil, &InvalidTypeError{Type: name}
	}
	r.mu.RLock()
	reg, ok := r.byType[t]
	var snapshot Registration
	if ok {
		snapshot = *reg
	}
	r.mu.RUnlock()
	if !ok {
		return nil, &UnregisteredTypeError{Type: t.String()}
	}
	return &snapshot, nil
}

// Override replaces path and fullscreen of the registration called name,
// compared case-insensitively. It reports whether such a registration
// exists.
func (r *Registry) Override(name, path string, fullscreen bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.byType {
		if strings.EqualFold(reg.Name, name) {
			if path != "" {
				reg.Path = path
			}
			reg.Fullscreen = fullscreen
			return true
		}
	}
	return false
}

// Registrations returns every registration sorted by name.
func (r *Registry) Registrations() []*Registration {
	r.mu.RLock()
	out := make([]*Registration, 0, len(r.byType))
	for _, reg := range r.byType {
		out = append(out, reg)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (r *Registry) providerFor(reg *Registration) ViewProvider {
	if reg.Provider != nil {
		return reg.Provider
	}
	return r.provider
}
