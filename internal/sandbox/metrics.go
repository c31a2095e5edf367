package sandbox

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the sandbox's Prometheus instrumentation, ported
// verbatim in name and label shape from the original's
// prometheus_client Counter/Histogram definitions.
type Metrics struct {
	executions   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	failuresType *prometheus.CounterVec
	warmPool     *prometheus.CounterVec
}

// NewMetrics registers the sandbox's counters/histograms against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synesis_sandbox_executions_total",
			Help: "Total sandbox executions by outcome and language",
		}, []string{"outcome", "language"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synesis_sandbox_duration_seconds",
			Help:    "Sandbox execution latency",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		}, []string{"language"}),
		failuresType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synesis_sandbox_failures_by_type_total",
			Help: "Sandbox failures by error type",
		}, []string{"error_type", "language"}),
		warmPool: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synesis_sandbox_warm_pool_total",
			Help: "Warm pool usage: hit (served by warm pod) vs fallback (K8s Job)",
		}, []string{"result"}),
	}
	reg.MustRegister(m.executions, m.duration, m.failuresType, m.warmPool)
	return m
}

// ObserveExecution records all four metrics for one completed run.
func (m *Metrics) ObserveExecution(language string, result *ExecuteResult, latency time.Duration, usedWarmPool bool) {
	outcome := "failure"
	if result.ExitCode == 0 {
		outcome = "success"
	}
	m.executions.WithLabelValues(outcome, language).Inc()
	m.duration.WithLabelValues(language).Observe(latency.Seconds())

	if result.ExitCode != 0 {
		errType := "runtime"
		switch {
		case !result.Lint.Passed:
			errType = "lint"
		case !result.Security.Passed:
			errType = "security"
		case result.ExitCode == 124:
			errType = "timeout"
		}
		m.failuresType.WithLabelValues(errType, language).Inc()
	}

	warmPoolResult := "fallback"
	if usedWarmPool {
		warmPoolResult = "hit"
	}
	m.warmPool.WithLabelValues(warmPoolResult).Inc()
}
