package ui

import (
	"context"
	"reflect"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/logger"
)

// ViewProvider resolves the view at path asynchronously. onResult is called
// at most once, from any goroutine; results for a terminated lifetime are
// ignored by the caller.
type ViewProvider interface {
	Provide(lt *orbit.Lifetime, path string, viewType reflect.Type, onResult func(*ProviderContext, error))
}

// ProviderFunc adapts a function to ViewProvider.
type ProviderFunc func(lt *orbit.Lifetime, path string, viewType reflect.Type, onResult func(*ProviderContext, error))

func (f ProviderFunc) Provide(lt *orbit.Lifetime, path string, viewType reflect.Type, onResult func(*ProviderContext, error)) {
	f(lt, path, viewType, onResult)
}

// ProviderContext carries a provided view and the lifetime of the provider
// resources backing it.
type ProviderContext struct {
	View any

	def       *orbit.Definition
	destroyed *orbit.Signal
}

// NewProviderContext wraps view under a lifetime nested in parent.
func NewProviderContext(parent *orbit.Lifetime, view any) *ProviderContext {
	def := parent.DefineNested("view")
	return &ProviderContext{
		View:      view,
		def:       def,
		destroyed: orbit.NewSignal(def.Lifetime()),
	}
}

// Lifetime returns the provider-owned lifetime.
func (c *ProviderContext) Lifetime() *orbit.Lifetime { return c.def.Lifetime() }

// Terminate releases the provider resources.
func (c *ProviderContext) Terminate() { c.def.Terminate() }

// OnDestroyed subscribes fn to destruction of the view by its owner.
func (c *ProviderContext) OnDestroyed(lt *orbit.Lifetime, fn func()) {
	c.destroyed.Subscribe(lt, fn)
}

// Destroy reports that the view was destroyed outside the queue, then
// releases the context.
func (c *ProviderContext) Destroy() {
	c.destroyed.Fire()
	c.Terminate()
}

// Loader loads the view at path. release, when non-nil, frees whatever the
// load acquired.
type Loader func(ctx context.Context, path string, viewType reflect.Type) (view any, release func(), err error)

// LoaderProvider runs a Loader on its own goroutine with a context
// cancelled when the requesting lifetime terminates. Views loaded after
// termination are released and never delivered.
type LoaderProvider struct {
	load   Loader
	logger *logger.Logger
}

// NewLoaderProvider creates a provider around load.
func NewLoaderProvider(load Loader, log *logger.Logger) *LoaderProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &LoaderProvider{load: load, logger: log.WithTag("LoaderProvider")}
}

func (p *LoaderProvider) Provide(lt *orbit.Lifetime, path string, viewType reflect.Type, onResult func(*ProviderContext, error)) {
	go func() {
		view, release, err := p.load(lt.Context(), path, viewType)
		if lt.IsTerminated() {
			if err == nil && release != nil {
				release()
			}
			if p.logger.Enabled(logger.Verbose) {
				p.logger.V("discarded view", "path", path)
			}
			return
		}
		if err != nil {
			onResult(nil, err)
			return
		}
		pc := NewProviderContext(lt, view)
		if release != nil {
			pc.Lifetime().AddAction(release)
		}
		onResult(pc, nil)
	}()
}
