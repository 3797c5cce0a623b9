package orbit

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Strategy selects how the orchestrator schedules service hooks.
type Strategy int

const (
	// Parallel starts every hook and joins them. It is the default.
	Parallel Strategy = iota
	// Sequential waits for each hook before starting the next.
	Sequential
)

func (s Strategy) String() string {
	switch s {
	case Sequential:
		return "sequential"
	default:
		return "parallel"
	}
}

// ParseStrategy maps "parallel" or "sequential", in any case, to a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "parallel":
		return Parallel, nil
	case "sequential":
		return Sequential, nil
	default:
		return Parallel, fmt.Errorf("unknown initialization strategy %q", raw)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type optionKey int

const (
	keyInitializationStrategy optionKey = iota
	keyShutdownTimeout
)

// DefaultShutdownTimeout bounds how long a host waits for teardown.
const DefaultShutdownTimeout = 10 * time.Second

// Options is a keyed bag of builder settings. Values are copied on write, so
// an Options shared between setups is never mutated in place.
type Options struct {
	values sync.Map
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{}
}

// WithValue returns a copy of o with key set to val.
func (o *Options) WithValue(key, val any) *Options {
	next := &Options{}
	if o != nil {
		o.values.Range(func(k, v any) bool {
			next.values.Store(k, v)
			return true
		})
	}
	next.values.Store(key, val)
	return next
}

// Value returns the value stored under key, or nil.
func (o *Options) Value(key any) any {
	if o == nil {
		return nil
	}
	if val, ok := o.values.Load(key); ok {
		return val
	}
	return nil
}

// MergeWith combines o with other. Values from other win.
func (o *Options) MergeWith(other *Options) *Options {
	next := &Options{}
	if o != nil {
		o.values.Range(func(k, v any) bool {
			next.values.Store(k, v)
			return true
		})
	}
	if other != nil {
		other.values.Range(func(k, v any) bool {
			next.values.Store(k, v)
			return true
		})
	}
	return next
}

// WithInitializationStrategy returns a copy of o using s.
func (o *Options) WithInitializationStrategy(s Strategy) *Options {
	return o.WithValue(keyInitializationStrategy, s)
}

// InitializationStrategy returns the configured strategy, Parallel if unset.
func (o *Options) InitializationStrategy() Strategy {
	if s, ok := o.Value(keyInitializationStrategy).(Strategy); ok {
		return s
	}
	return Parallel
}

// WithShutdownTimeout returns a copy of o using d.
func (o *Options) WithShutdownTimeout(d time.Duration) *Options {
	return o.WithValue(keyShutdownTimeout, d)
}

// ShutdownTimeout returns the configured timeout or DefaultShutdownTimeout.
func (o *Options) ShutdownTimeout() time.Duration {
	if d, ok := o.Value(keyShutdownTimeout).(time.Duration); ok && d > 0 {
		return d
	}
	return DefaultShutdownTimeout
}
