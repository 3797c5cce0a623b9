package widgets

import (
	"fmt"
	"reflect"

	"github.com/centraunit/orbit/logger"
)

// HasModel is implemented by widgets carrying a typed model.
type HasModel interface {
	Widget
	ModelType() reflect.Type
	// ModelChanged reports whether the model was ever set.
	ModelChanged() bool
	AssignModel(model any) error
}

// HasView is implemented by widgets carrying a typed view.
type HasView interface {
	Widget
	ViewType() reflect.Type
	// ViewSet reports whether the current view is non-zero.
	ViewSet() bool
	AssignView(view any) error
}

// Optional hooks called around model and view changes.
type (
	BeforeModelChangeHook interface{ OnBeforeModelChange() }
	AfterModelChangedHook interface{ OnAfterModelChanged() }
	ViewAddedHook         interface{ OnViewAdded() }
	ViewBeforeRemoveHook  interface{ OnViewBeforeRemove() }
	ViewAfterRemovedHook  interface{ OnViewAfterRemoved() }
)

type modelState[M any] struct {
	model   M
	changed bool
}

func (s *modelState[M]) get(n *Node) M {
	n.mu.Lock()
	defer n.mu.Unlock()
	return s.model
}

func (s *modelState[M]) isChanged(n *Node) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return s.changed
}

// set always notifies, even when the new model equals the old one.
func (s *modelState[M]) set(n *Node, model M) {
	self := n.widget()
	if h, ok := self.(BeforeModelChangeHook); ok {
		h.OnBeforeModelChange()
	}
	n.mu.Lock()
	s.model = model
	s.changed = true
	n.mu.Unlock()
	if h, ok := self.(AfterModelChangedHook); ok {
		h.OnAfterModelChanged()
	}
	n.Notify()
}

func (s *modelState[M]) assign(n *Node, model any) error {
	m, ok := model.(M)
	if !ok {
		return &ModelTypeMismatchError{
			Widget:   logger.TypeName(n.widget()),
			Expected: reflect.TypeFor[M]().String(),
			Got:      fmt.Sprintf("%T", model),
		}
	}
	s.set(n, m)
	return nil
}

// WithModel is the embeddable base of a widget carrying a model of type M.
type WithModel[M any] struct {
	Node
	state modelState[M]
}

// Model returns the current model.
func (w *WithModel[M]) Model() M { return w.state.get(&w.Node) }

// SetModel replaces the model and notifies change subscribers.
func (w *WithModel[M]) SetModel(model M) { w.state.set(&w.Node, model) }

func (w *WithModel[M]) ModelType() reflect.Type { return reflect.TypeFor[M]() }
func (w *WithModel[M]) ModelChanged() bool { return w.state.isChanged(&w.Node) }
func (w *WithModel[M]) AssignModel(model any) error { return w.state.assign(&w.Node, model) }

// WithView is the embeddable base of a widget carrying a view of type V. The
// zero V means no view.
type WithView[V comparable] struct {
	Node
	view V
}

// View returns the current view.
func (w *WithView[V]) View() V {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

// SetView replaces the view. Setting the current view again does nothing.
// Any other change runs the remove hooks, even when no view was set.
func (w *WithView[V]) SetView(view V) {
	var zero V
	w.mu.Lock()
	prev := w.view
	w.mu.Unlock()
	if prev == view {
		return
	}

	self := w.widget()
	if h, ok := self.(ViewBeforeRemoveHook); ok {
		h.OnViewBeforeRemove()
	}
	w.mu.Lock()
	w.view = zero
	w.mu.Unlock()
	if h, ok := self.(ViewAfterRemovedHook); ok {
		h.OnViewAfterRemoved()
	}

	w.mu.Lock()
	w.view = view
	w.mu.Unlock()
	if view != zero {
		if h, ok := self.(ViewAddedHook); ok {
			h.OnViewAdded()
		}
	}
	w.Notify()
}

func (w *WithView[V]) ViewType() reflect.Type { return reflect.TypeFor[V]() }

func (w *WithView[V]) ViewSet() bool {
	var zero V
	return w.View() != zero
}

func (w *WithView[V]) AssignView(view any) error {
	v, ok := view.(V)
	if !ok {
		return &ViewTypeMismatchError{
			Widget:   logger.TypeName(w.widget()),
			Expected: reflect.TypeFor[V]().String(),
			Got:      fmt.Sprintf("%T", view),
		}
	}
	w.SetView(v)
	return nil
}

// WithModelView is the embeddable base of a widget carrying both a model of
// type M and a view of type V.
type WithModelView[M any, V comparable] struct {
	WithView[V]
	state modelState[M]
}

func (w *WithModelView[M, V]) Model() M { return w.state.get(&w.Node) }
func (w *WithModelView[M, V]) SetModel(model M) { w.state.set(&w.Node, model) }
func (w *WithModelView[M, V]) ModelType() reflect.Type { return reflect.TypeFor[M]() }
func (w *WithModelView[M, V]) ModelChanged() bool { return w.state.isChanged(&w.Node) }
func (w *WithModelView[M, V]) AssignModel(model any) error { return w.state.assign(&w.Node, model) }

// CheckModel reports whether model could be assigned to w without assigning
// it. A nil model always passes.
func CheckModel(w Widget, model any) error {
	if model == nil {
		return nil
	}
	hm, ok := w.(HasModel)
	if !ok {
		return &ModelTypeMismatchError{Widget: logger.TypeName(w), Got: fmt.Sprintf("%T", model)}
	}
	if mt := reflect.TypeOf(model); !mt.AssignableTo(hm.ModelType()) {
		return &ModelTypeMismatchError{
			Widget:   logger.TypeName(w),
			Expected: hm.ModelType().String(),
			Got:      mt.String(),
		}
	}
	return nil
}

// SetModel assigns model to w. A nil model is ignored.
func SetModel(w Widget, model any) error {
	if err := CheckModel(w, model); err != nil || model == nil {
		return err
	}
	return w.(HasModel).AssignModel(model)
}

// SetView assigns view to w.
func SetView(w Widget, view any) error {
	hv, ok := w.(HasView)
	if !ok {
		return &ViewTypeMismatchError{Widget: logger.TypeName(w), Got: fmt.Sprintf("%T", view)}
	}
	return hv.AssignView(view)
}

// ViewTypeOf returns the view type of w, or nil when it carries no view.
func ViewTypeOf(w Widget) reflect.Type {
	if hv, ok := w.(HasView); ok {
		return hv.ViewType()
	}
	return nil
}
