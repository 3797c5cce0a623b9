package ui

import (
	"context"
	"reflect"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/widgets"
)

// Queue names of the built-in services.
const (
	HudQueue     = "HudService"
	WindowQueue  = "WindowService"
	TooltipQueue = "TooltipService"
)

// queueService owns one queue created when the service wakes up.
type queueService struct {
	orbit.Service
	Injector *orbit.Injector `inject:""`
	Registry *Registry       `inject:""`

	name   string
	policy Policy
	queue  *Queue
}

func (s *queueService) OnAwake(context.Context) error {
	s.queue = NewQueue(s.Lifetime(), s.name, s.policy, s.Injector, s.Registry, s.Logger())
	return nil
}

// Queue returns the service queue, or nil before the service woke up.
func (s *queueService) Queue() *Queue { return s.queue }

// Open opens widget type t with model.
func (s *queueService) Open(t reflect.Type, model any, onOpen OpenFunc, opts ...OpenOption) (*Reference, error) {
	if s.queue == nil {
		return nil, orbit.ErrNotAwake
	}
	return s.queue.Open(t, model, onOpen, opts...)
}

// Opened returns references to the opened widgets.
func (s *queueService) Opened() []*Reference {
	if s.queue == nil {
		return nil
	}
	return s.queue.Opened()
}

// SubscribeOnChanged calls fn after every open and close.
func (s *queueService) SubscribeOnChanged(lt *orbit.Lifetime, fn func()) {
	if s.queue != nil {
		s.queue.SubscribeOnChanged(lt, fn)
	}
}

// CloseAll closes every opened and pending widget.
func (s *queueService) CloseAll() {
	if s.queue != nil {
		s.queue.CloseAll()
	}
}

// HudService opens heads-up widgets one at a time, in request order.
type HudService struct {
	queueService
}

func NewHudService() *HudService {
	return &HudService{queueService{name: HudQueue, policy: Serial}}
}

// Get returns the first opened hud widget of type W.
func Get[W widgets.Widget](h *HudService) (W, bool) {
	for _, ref := range h.Opened() {
		if w, ok := ref.Widget().(W); ok {
			return w, true
		}
	}
	var zero W
	return zero, false
}

// WindowService opens windows one at a time, in request order.
type WindowService struct {
	queueService
}

func NewWindowService() *WindowService {
	return &WindowService{queueService{name: WindowQueue, policy: Serial}}
}

// SubscribeOnAction calls fn whenever a window of type t performs action.
func (w *WindowService) SubscribeOnAction(lt *orbit.Lifetime, t reflect.Type, action Action, fn func(*Reference)) {
	if w.queue == nil {
		return
	}
	w.queue.SubscribeOnAction(lt, func(ref *Reference, a Action) {
		if a == action && ref.Type() == t {
			fn(ref)
		}
	})
}

// HasFullscreen reports whether an opened window is fullscreen.
func (w *WindowService) HasFullscreen() bool {
	for _, ref := range w.Opened() {
		if ref.Fullscreen() {
			return true
		}
	}
	return false
}

// Pending returns the windows waiting to open.
func (w *WindowService) Pending() []*Reference {
	if w.queue == nil {
		return nil
	}
	return w.queue.Pending()
}

// TooltipService shows at most one tooltip: opening one closes the previous.
type TooltipService struct {
	queueService
}

func NewTooltipService() *TooltipService {
	return &TooltipService{queueService{name: TooltipQueue, policy: Exclusive}}
}

// Current returns the tooltip being shown or opened, if any.
func (t *TooltipService) Current() *Reference {
	if t.queue == nil {
		return nil
	}
	if opened := t.queue.Opened(); len(opened) > 0 {
		return opened[0]
	}
	if pending := t.queue.Pending(); len(pending) > 0 {
		return pending[0]
	}
	return nil
}

// WithLifetime returns a tooltip opener whose tooltips also close when owner
// terminates.
func (t *TooltipService) WithLifetime(owner *orbit.Lifetime) *TooltipScope {
	return &TooltipScope{service: t, owner: owner}
}

// TooltipScope opens tooltips owned by a lifetime.
type TooltipScope struct {
	service *TooltipService
	owner   *orbit.Lifetime
}

func (s *TooltipScope) Open(t reflect.Type, model any, onOpen OpenFunc) (*Reference, error) {
	return s.service.Open(t, model, onOpen, OwnedBy(s.owner))
}

// Install binds a registry using provider into setup and registers the hud,
// window and tooltip services on it.
func Install(s *orbit.Setup, provider ViewProvider) (*Registry, error) {
	registry := NewRegistry(provider)
	if err := orbit.Bind(s.Injector(), registry); err != nil {
		return nil, err
	}
	orbit.RegisterService(s, NewHudService())
	orbit.RegisterService(s, NewWindowService())
	orbit.RegisterService(s, NewTooltipService())
	return registry, nil
}
