package mock

import (
	"reflect"
	"sync"

	"github.com/centraunit/orbit"
	"github.com/centraunit/orbit/ui"
)

// Request is one pending Provide call held by Provider.
type Request struct {
	Lifetime *orbit.Lifetime
	Path     string
	ViewType reflect.Type
	onResult func(*ui.ProviderContext, error)
}

// Resolve completes the request with view.
func (r *Request) Resolve(view any) *ui.ProviderContext {
	pc := ui.NewProviderContext(r.Lifetime, view)
	r.onResult(pc, nil)
	return pc
}

// Fail completes the request with err.
func (r *Request) Fail(err error) {
	r.onResult(nil, err)
}

// Provider holds every request until the test completes it.
type Provider struct {
	mu       sync.Mutex
	requests []*Request
}

func (p *Provider) Provide(lt *orbit.Lifetime, path string, viewType reflect.Type, onResult func(*ui.ProviderContext, error)) {
	p.mu.Lock()
	p.requests = append(p.requests, &Request{Lifetime: lt, Path: path, ViewType: viewType, onResult: onResult})
	p.mu.Unlock()
}

// Requests returns every request received so far.
func (p *Provider) Requests() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Len returns the number of requests received.
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Last returns the most recent request, or nil.
func (p *Provider) Last() *Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

// PanelProvider resolves every request immediately with a Panel named
// after the path.
var PanelProvider = ui.ProviderFunc(func(lt *orbit.Lifetime, path string, _ reflect.Type, onResult func(*ui.ProviderContext, error)) {
	onResult(ui.NewProviderContext(lt, &Panel{Name: path}), nil)
})
