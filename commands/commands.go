// Package commands routes messages to command factories keyed by the
// message's type.
//
// A Router owns one Mapper per message type. Every Tell materializes a fresh
// command per registered factory, with the message and the factory's
// Definition bound in a throw-away injector scope, so concurrent dispatches
// sharing one router never observe each other's bindings.
package commands

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/centraunit/orbit"
)

// ErrNilMessage is returned by Tell when the message is nil.
var ErrNilMessage = errors.New("commands: nil message")

// Command is one unit of work triggered by a message.
type Command interface {
	Execute(ctx context.Context) error
}

// CommandFunc adapts a function to Command.
type CommandFunc func(ctx context.Context) error

func (f CommandFunc) Execute(ctx context.Context) error { return f(ctx) }

// Factory creates a command for one invocation. lt is the lifetime of the
// factory's registration.
type Factory func(lt *orbit.Lifetime) Command

// Teller receives every message told to a router.
type Teller interface {
	Tell(ctx context.Context, message any) error
}

// TellerFunc adapts a function to Teller.
type TellerFunc func(ctx context.Context, message any) error

func (f TellerFunc) Tell(ctx context.Context, message any) error { return f(ctx, message) }

// CommandMapper is the registration side of a Router.
type CommandMapper interface {
	Map(messageType reflect.Type) *Mapper
	Subscribe(lt *orbit.Lifetime, t Teller)
}

// NilCommandError represents a factory that produced no command.
type NilCommandError struct {
	Message string
}

func (e *NilCommandError) Error() string {
	return fmt.Sprintf("command factory for %s returned nil", e.Message)
}

// CommandError represents a command whose execution failed.
type CommandError struct {
	Message string
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s for %s failed: %v", e.Command, e.Message, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Tell sends message through t. It exists so call sites read the same as
// Map[M].
func Tell[M any](ctx context.Context, t Teller, message M) error {
	return t.Tell(ctx, message)
}

// Map returns the mapper for message type M, creating it if absent.
func Map[M any](m CommandMapper) *Mapper {
	return m.Map(reflect.TypeFor[M]())
}

type subscriber struct {
	teller Teller
}

type subscribers struct {
	mu   sync.Mutex
	list []*subscriber
}

func (s *subscribers) add(t Teller) *subscriber {
	sub := &subscriber{teller: t}
	s.mu.Lock()
	s.list = append(s.list, sub)
	s.mu.Unlock()
	return sub
}

func (s *subscribers) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.list {
		if x == sub {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers) clear() {
	s.mu.Lock()
	s.list = nil
	s.mu.Unlock()
}

func (s *subscribers) snapshot() []*subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*subscriber, len(s.list))
	copy(out, s.list)
	return out
}
