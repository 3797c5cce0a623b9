// Package mock holds test doubles shared by the package tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/centraunit/orbit"
)

// Journal records events in order from any goroutine.
type Journal struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event.
func (j *Journal) Add(event string) {
	j.mu.Lock()
	j.events = append(j.events, event)
	j.mu.Unlock()
}

// Addf appends a formatted event.
func (j *Journal) Addf(format string, args ...any) {
	j.Add(fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events.
func (j *Journal) Events() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.events))
	copy(out, j.events)
	return out
}

// Count returns how many times event was recorded.
func (j *Journal) Count(event string) int {
	n := 0
	for _, e := range j.Events() {
		if e == event {
			n++
		}
	}
	return n
}

// Core interfaces
type Database interface {
	Connect() error
	IsConnected() bool
}

type Cache interface {
	Get(key string) any
	DB() Database
}

// MockDB is a service connecting in its wake hook.
type MockDB struct {
	orbit.Service
	mu        sync.Mutex
	connected bool
}

func (m *MockDB) Connect() error {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

func (m *MockDB) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockDB) OnAwake(context.Context) error {
	return m.Connect()
}

// MockCache depends on Database through field injection.
type MockCache struct {
	orbit.Service
	Database Database `inject:""`
	ready    bool
}

func (m *MockCache) Get(key string) any { return nil }

func (m *MockCache) DB() Database { return m.Database }

func (m *MockCache) OnInitialize(context.Context) error {
	if !m.Database.IsConnected() {
		return fmt.Errorf("database is not connected")
	}
	m.ready = true
	return nil
}

func (m *MockCache) Ready() bool { return m.ready }

// HookService records its hooks into a Journal and delegates to optional
// functions.
type HookService struct {
	orbit.Service
	Name         string
	Journal      *Journal
	AwakeFn      func(ctx context.Context) error
	InitializeFn func(ctx context.Context) error
}

func (h *HookService) OnAwake(ctx context.Context) error {
	h.Journal.Add(h.Name + ".OnAwake")
	if h.AwakeFn != nil {
		return h.AwakeFn(ctx)
	}
	return nil
}

func (h *HookService) OnInitialize(ctx context.Context) error {
	h.Journal.Add(h.Name + ".OnInitialize")
	if h.InitializeFn != nil {
		return h.InitializeFn(ctx)
	}
	return nil
}

// Block returns a hook that blocks until release is closed or the service
// lifetime terminates.
func Block(release <-chan struct{}) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Fail returns a hook failing with err.
func Fail(err error) func(ctx context.Context) error {
	return func(context.Context) error { return err }
}

// PlainService has no hooks.
type PlainService struct {
	orbit.Service
}

// Circular dependency test types
type CircularService1 interface {
	Service2() CircularService2
}

type CircularService2 interface {
	Service1() CircularService1
}

type CircularImpl1 struct {
	svc2 CircularService2
}

func (i *CircularImpl1) Service2() CircularService2 { return i.svc2 }

type CircularImpl2 struct {
	svc1 CircularService1
}

func (i *CircularImpl2) Service1() CircularService1 { return i.svc1 }

// BindCircular binds two factories resolving each other.
func BindCircular(inj *orbit.Injector) {
	orbit.BindFactory(inj, func(r orbit.Resolver) (CircularService1, error) {
		svc2, err := orbit.Resolve[CircularService2](r)
		if err != nil {
			return nil, err
		}
		return &CircularImpl1{svc2: svc2}, nil
	})
	orbit.BindFactory(inj, func(r orbit.Resolver) (CircularService2, error) {
		svc1, err := orbit.Resolve[CircularService1](r)
		if err != nil {
			return nil, err
		}
		return &CircularImpl2{svc1: svc1}, nil
	})
}

// Deep dependency chain
type DeepService3 interface {
	Value() string
}

type DeepService2 interface {
	Service3() DeepService3
}

type DeepService1 interface {
	Service2() DeepService2
}

type DeepImpl3 struct {
	V string
}

func (d *DeepImpl3) Value() string { return d.V }

type DeepImpl2 struct {
	Svc3 DeepService3 `inject:""`
}

func (d *DeepImpl2) Service3() DeepService3 { return d.Svc3 }

type DeepImpl1 struct {
	Svc2 DeepService2 `inject:""`
}

func (d *DeepImpl1) Service2() DeepService2 { return d.Svc2 }
