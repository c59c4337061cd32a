package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// Block outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeSkip    = "skip"
	OutcomeFail    = "fail"
	OutcomeCached  = "cached"
)

// Metrics bundles the collectors of one CLI run.
type Metrics struct {
	Registry       *prometheus.Registry
	BlocksTotal    *prometheus.CounterVec
	ExternalCalls  *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	LastRunSuccess *prometheus.GaugeVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	blocks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestyle_blocks_total",
			Help: "Project blocks handled by batch operations, by outcome.",
		},
		[]string{"operation", "outcome"},
	)
	calls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestyle_external_calls_total",
			Help: "Calls made to external services.",
		},
		[]string{"service"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homestyle_run_duration_seconds",
			Help:    "Wall time of one batch operation.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"operation"},
	)
	lastRun := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "homestyle_last_run_success",
			Help: "1 when the last run of an operation finished without a fatal error.",
		},
		[]string{"operation"},
	)

	registry.MustRegister(blocks, calls, duration, lastRun)

	return &Metrics{
		Registry:       registry,
		BlocksTotal:    blocks,
		ExternalCalls:  calls,
		RunDuration:    duration,
		LastRunSuccess: lastRun,
	}
}

// IncBlock counts one block outcome.
func (m *Metrics) IncBlock(operation, outcome string) {
	if m == nil {
		return
	}
	m.BlocksTotal.WithLabelValues(operation, outcome).Inc()
}

// AddBlocks counts n blocks with the same outcome.
func (m *Metrics) AddBlocks(operation, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BlocksTotal.WithLabelValues(operation, outcome).Add(float64(n))
}

// IncCall counts one external service call.
func (m *Metrics) IncCall(service string) {
	if m == nil {
		return
	}
	m.ExternalCalls.WithLabelValues(service).Inc()
}

// ObserveRun records an operation's duration and whether it succeeded.
func (m *Metrics) ObserveRun(operation string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(operation).Observe(d.Seconds())
	v := 0.0
	if ok {
		v = 1
	}
	m.LastRunSuccess.WithLabelValues(operation).Set(v)
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.Registry).Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	log.Debug().Str("url", url).Str("job", job).Msg("Pushed metrics")
	return nil
}
