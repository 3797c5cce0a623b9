// Package metrics holds the Prometheus collectors of an orbit runtime.
//
// Collection is opt-in: until InitRegistry is called every recorder is a
// no-op, so library code can record unconditionally.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orbit"

var (
	mu        sync.RWMutex
	registry  *prometheus.Registry
	collector *collectors
)

type collectors struct {
	phaseDuration    *prometheus.HistogramVec
	phaseFailures    *prometheus.CounterVec
	servicesInState  *prometheus.GaugeVec
	commandsExecuted *prometheus.CounterVec
	commandFailures  *prometheus.CounterVec
	queueOpens       *prometheus.CounterVec
	queueCloses      *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
	queueOpenLatency *prometheus.HistogramVec
}

// InitRegistry enables collection on a fresh registry and returns it.
// Calling it again replaces the registry, which tests rely on.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	collector = &collectors{
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "phase_duration_seconds",
			Help:      "Duration of service wake and initialize hooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "phase"}),
		phaseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "phase_failures_total",
			Help:      "Service hooks that returned an error.",
		}, []string{"service", "phase"}),
		servicesInState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "in_state",
			Help:      "Number of services currently in each state.",
		}, []string{"state"}),
		commandsExecuted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "executed_total",
			Help:      "Commands executed per message type.",
		}, []string{"message"}),
		commandFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "failures_total",
			Help:      "Commands that failed per message type.",
		}, []string{"message"}),
		queueOpens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "opens_total",
			Help:      "Presentation queue entries by outcome.",
		}, []string{"queue", "outcome"}),
		queueCloses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "closes_total",
			Help:      "Presentation queue entries closed.",
		}, []string{"queue"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Entries waiting in a presentation queue.",
		}, []string{"queue"}),
		queueOpenLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "open_latency_seconds",
			Help:      "Time from Open to the entry becoming active.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"queue"}),
	}
	registry = reg
	return reg
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return collector != nil
}

// GetRegistry returns the active registry or nil.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Disable turns collection off again.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	collector = nil
}

func get() *collectors {
	mu.RLock()
	defer mu.RUnlock()
	return collector
}

// ObservePhase records a finished service hook.
func ObservePhase(service, phase string, d time.Duration, err error) {
	c := get()
	if c == nil {
		return
	}
	c.phaseDuration.WithLabelValues(service, phase).Observe(d.Seconds())
	if err != nil {
		c.phaseFailures.WithLabelValues(service, phase).Inc()
	}
}

// ServiceStateChanged moves one service from one state gauge to another.
// An empty from means the service is new.
func ServiceStateChanged(from, to string) {
	c := get()
	if c == nil {
		return
	}
	if from != "" {
		c.servicesInState.WithLabelValues(from).Dec()
	}
	c.servicesInState.WithLabelValues(to).Inc()
}

// ObserveCommand records one command execution.
func ObserveCommand(message string, err error) {
	c := get()
	if c == nil {
		return
	}
	c.commandsExecuted.WithLabelValues(message).Inc()
	if err != nil {
		c.commandFailures.WithLabelValues(message).Inc()
	}
}

// Queue outcomes.
const (
	OutcomeOpened    = "opened"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// ObserveQueueOpen records how an entry left the opening phase.
func ObserveQueueOpen(queue, outcome string, latency time.Duration) {
	c := get()
	if c == nil {
		return
	}
	c.queueOpens.WithLabelValues(queue, outcome).Inc()
	if outcome == OutcomeOpened {
		c.queueOpenLatency.WithLabelValues(queue).Observe(latency.Seconds())
	}
}

// ObserveQueueClose records an entry closed after it became active.
func ObserveQueueClose(queue string) {
	c := get()
	if c == nil {
		return
	}
	c.queueCloses.WithLabelValues(queue).Inc()
}

// SetQueueDepth records the number of waiting entries.
func SetQueueDepth(queue string, depth int) {
	c := get()
	if c == nil {
		return
	}
	c.queueDepth.WithLabelValues(queue).Set(float64(depth))
}
