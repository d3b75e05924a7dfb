// Package metrics instruments the resilience and trajectory layers
// with counters a caller can scrape via Prometheus.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the instrumentation surface agent/resilience code calls
// into. NoOp satisfies it with zero overhead for callers who don't
// want metrics wired up.
type Recorder interface {
	CircuitStateChange(gate, state string)
	RetryAttempt(operation string, attempt int)
	TrajectoryStep(agentID string)
}

// NoOp is a Recorder that discards every observation.
type NoOp struct{}

func (NoOp) CircuitStateChange(gate, state string) {}
func (NoOp) RetryAttempt(operation string, attempt int) {}
func (NoOp) TrajectoryStep(agentID string) {}

// Prometheus is a Recorder backed by client_golang collectors,
// registered against the supplied registerer (prometheus.DefaultRegisterer
// when nil).
type Prometheus struct {
	circuitState  *prometheus.GaugeVec
	retryAttempts *prometheus.CounterVec
	steps         *prometheus.CounterVec
}

// NewPrometheus builds and registers the collectors.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agentloop",
			Subsystem: "resilience",
			Name:      "circuit_state",
			Help:      "Current circuit breaker state (0=closed, 1=half_open, 2=open) per gate.",
		}, []string{"gate"}),
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentloop",
			Subsystem: "resilience",
			Name:      "retry_attempts_total",
			Help:      "Retry attempts made per operation.",
		}, []string{"operation"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentloop",
			Subsystem: "trajectory",
			Name:      "steps_total",
			Help:      "Trajectory steps appended per agent.",
		}, []string{"agent_id"}),
	}
	reg.MustRegister(p.circuitState, p.retryAttempts, p.steps)
	return p
}

func (p *Prometheus) CircuitStateChange(gate, state string) {
	var v float64
	switch state {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	p.circuitState.WithLabelValues(gate).Set(v)
}

func (p *Prometheus) RetryAttempt(operation string, attempt int) {
	p.retryAttempts.WithLabelValues(operation).Inc()
}

func (p *Prometheus) TrajectoryStep(agentID string) {
	p.steps.WithLabelValues(agentID).Inc()
}
