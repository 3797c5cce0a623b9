package orbit

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"unsafe"
)

// InjectTag is the struct tag marking fields filled by Inject. The value
// "optional" leaves the field untouched when no binding exists.
const InjectTag = "inject"

// binding is one registration in an injector.
type binding struct {
	kind    BindingKind
	value   any
	factory func(r Resolver) (any, error)

	mu       sync.Mutex
	resolved bool
}

// Injector maps types to values and factories. Lookups fall through to the
// parent injector, so a child can shadow bindings temporarily without
// touching the parent.
type Injector struct {
	parent   *Injector
	mu       sync.RWMutex
	bindings map[reflect.Type]*binding
	chains   *resolutionChains
}

// NewInjector creates an injector whose lookups fall back to parent. parent
// may be nil.
func NewInjector(parent *Injector) *Injector {
	chains := &resolutionChains{}
	if parent != nil {
		chains = parent.chains
	}
	inj := &Injector{
		parent:   parent,
		bindings: make(map[reflect.Type]*binding, 16),
		chains:   chains,
	}
	inj.bindings[injectorType] = &binding{kind: KindValue, value: inj}
	return inj
}

var injectorType = reflect.TypeFor[*Injector]()

// Parent returns the injector lookups fall back to, or nil.
func (i *Injector) Parent() *Injector { return i.parent }

// Scope returns a child injector for temporary bindings.
func (i *Injector) Scope() *Injector { return NewInjector(i) }

// ToValue binds value under t. value must be assignable to t.
func (i *Injector) ToValue(t reflect.Type, value any) error {
	if isNil(value) {
		return &NullServiceError{Types: []string{t.String()}}
	}
	if vt := reflect.TypeOf(value); !vt.AssignableTo(t) {
		return &TypeMismatchError{Expected: t.String(), Got: vt.String()}
	}
	i.set(t, &binding{kind: KindValue, value: value})
	return nil
}

// ToFactory binds a factory called on every resolution of t.
func (i *Injector) ToFactory(t reflect.Type, factory func(r Resolver) (any, error)) {
	i.set(t, &binding{kind: KindTransient, factory: factory})
}

// ToSingleton binds a factory called once, on the first resolution of t.
func (i *Injector) ToSingleton(t reflect.Type, factory func(r Resolver) (any, error)) {
	i.set(t, &binding{kind: KindSingleton, factory: factory})
}

func (i *Injector) set(t reflect.Type, b *binding) {
	i.mu.Lock()
	i.bindings[t] = b
	i.mu.Unlock()
}

// UnRegister removes the binding of t from this injector only. It reports
// whether a binding was removed.
func (i *Injector) UnRegister(t reflect.Type) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.bindings[t]; !ok {
		return false
	}
	delete(i.bindings, t)
	return true
}

// Has reports whether t is bound here or in an ancestor.
func (i *Injector) Has(t reflect.Type) bool {
	_, ok := i.lookup(t)
	return ok
}

// Types returns the types bound directly in this injector, sorted by name.
func (i *Injector) Types() []reflect.Type {
	i.mu.RLock()
	out := make([]reflect.Type, 0, len(i.bindings))
	for t := range i.bindings {
		if t == injectorType {
			continue
		}
		out = append(out, t)
	}
	i.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool { return out[a].String() < out[b].String() })
	return out
}

func (i *Injector) lookup(t reflect.Type) (*binding, bool) {
	for cur := i; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		b, ok := cur.bindings[t]
		cur.mu.RUnlock()
		if ok {
			return b, true
		}
	}
	return nil, false
}

// Resolve returns the value bound under t.
func (i *Injector) Resolve(t reflect.Type) (any, error) {
	b, ok := i.lookup(t)
	if !ok {
		return nil, &BindingNotFoundError{Type: t.String()}
	}
	switch b.kind {
	case KindValue:
		return b.value, nil
	case KindTransient:
		return i.produce(t, b)
	default:
		return i.singleton(t, b)
	}
}

func (i *Injector) produce(t reflect.Type, b *binding) (any, error) {
	if err := i.chains.enter(t); err != nil {
		return nil, err
	}
	defer i.chains.leave(t)

	v, err := b.factory(i)
	if err != nil {
		return nil, &InitializationError{Type: t.String(), Err: err}
	}
	if isNil(v) {
		return nil, &NullServiceError{Types: []string{t.String()}}
	}
	if vt := reflect.TypeOf(v); !vt.AssignableTo(t) {
		return nil, &TypeMismatchError{Expected: t.String(), Got: vt.String()}
	}
	return v, nil
}

func (i *Injector) singleton(t reflect.Type, b *binding) (any, error) {
	if err := i.chains.enter(t); err != nil {
		return nil, err
	}
	b.mu.Lock()
	i.chains.leave(t)
	defer b.mu.Unlock()
	if b.resolved {
		return b.value, nil
	}
	v, err := i.produce(t, b)
	if err != nil {
		return nil, err
	}
	b.value = v
	b.resolved = true
	return v, nil
}

// Inject fills every field of the struct pointed to by target that carries
// the inject tag. Embedded structs are walked recursively.
func (i *Injector) Inject(target any) error {
	if !Injectable(target) {
		return &InjectionError{Type: fmt.Sprintf("%T", target), Field: "-", Err: fmt.Errorf("target must be a non-nil struct pointer")}
	}
	return i.injectStruct(reflect.ValueOf(target).Elem())
}

// Injectable reports whether target is a struct pointer Inject can fill.
func Injectable(target any) bool {
	v := reflect.ValueOf(target)
	return v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct
}

func (i *Injector) injectStruct(v reflect.Value) error {
	st := v.Type()
	for n := 0; n < st.NumField(); n++ {
		sf := st.Field(n)
		field := v.Field(n)

		tag, tagged := sf.Tag.Lookup(InjectTag)
		if !tagged {
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
				if err := i.injectStruct(field); err != nil {
					return err
				}
			}
			continue
		}

		value, err := i.Resolve(sf.Type)
		if err != nil {
			if _, missing := err.(*BindingNotFoundError); missing && tag == "optional" {
				continue
			}
			return &InjectionError{Type: st.String(), Field: sf.Name, Err: err}
		}
		if !field.CanSet() {
			field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
		}
		field.Set(reflect.ValueOf(value))
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Bind binds value under T.
func Bind[T any](i *Injector, value T) error {
	return i.ToValue(reflect.TypeFor[T](), value)
}

// BindFactory binds a transient factory under T.
func BindFactory[T any](i *Injector, factory func(r Resolver) (T, error)) {
	i.ToFactory(reflect.TypeFor[T](), func(r Resolver) (any, error) {
		return factory(r)
	})
}

// BindSingleton binds a lazily constructed singleton under T.
func BindSingleton[T any](i *Injector, factory func(r Resolver) (T, error)) {
	i.ToSingleton(reflect.TypeFor[T](), func(r Resolver) (any, error) {
		return factory(r)
	})
}

// Resolve resolves T from r.
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	v, err := r.Resolve(t)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: t.String(), Got: fmt.Sprintf("%T", v)}
	}
	return typed, nil
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
