package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "claimguard_circuit_breaker_state",
		Help: "Current state of dependency circuit breakers (0=closed, 0.5=half-open, 1=open)",
	}, []string{"dependency"})

	breakerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimguard_circuit_breaker_requests_total",
		Help: "Total number of dependency calls executed through a circuit breaker",
	}, []string{"dependency"})

	breakerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimguard_circuit_breaker_failures_total",
		Help: "Total number of dependency calls that failed, timed out or were rejected",
	}, []string{"dependency"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "claimguard_circuit_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"dependency", "from", "to"})
)

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func recordBreakerState(name string, state gobreaker.State) {
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(state))
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	recordBreakerState(name, to)
}

func recordBreakerRequest(name string) {
	breakerRequestsTotal.WithLabelValues(name).Inc()
}

func recordBreakerFailure(name string) {
	breakerFailuresTotal.WithLabelValues(name).Inc()
}
