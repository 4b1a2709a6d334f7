package stats

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the staging server.
// A nil *Collector is valid and records nothing, which keeps
// metrics optional for one-shot commands and tests.
type Collector struct {
	AccessChecks    *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	PipelineErrors  *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Pings           *prometheus.CounterVec
	SwordRequests   *prometheus.CounterVec
	AuContainerSize prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		AccessChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pln_access_checks_total",
			Help: "Access decisions by outcome.",
		}, []string{"decision"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pln_transitions_total",
			Help: "Committed deposit transitions by stage and outcome.",
		}, []string{"stage", "outcome"}),
		PipelineErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pln_pipeline_errors_total",
			Help: "Processor errors and panics by stage.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pln_stage_run_seconds",
			Help:    "Duration of stage runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		Pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pln_pings_total",
			Help: "Provider pings by result.",
		}, []string{"result"}),
		SwordRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pln_sword_requests_total",
			Help: "SWORD requests by operation and HTTP status.",
		}, []string{"operation", "status"}),
		AuContainerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pln_open_au_container_bytes",
			Help: "Size of the newest open AU container.",
		}),
	}
	reg.MustRegister(
		c.AccessChecks,
		c.Transitions,
		c.PipelineErrors,
		c.StageDuration,
		c.Pings,
		c.SwordRequests,
		c.AuContainerSize,
	)
	return c
}

func (c *Collector) RecordAccessCheck(decision string) {
	if c == nil {
		return
	}
	c.AccessChecks.WithLabelValues(decision).Inc()
}

func (c *Collector) RecordTransition(stage, outcome string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(stage, outcome).Inc()
}

func (c *Collector) RecordPipelineError(stage string) {
	if c == nil {
		return
	}
	c.PipelineErrors.WithLabelValues(stage).Inc()
}

func (c *Collector) RecordStageDuration(stage string, duration time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (c *Collector) RecordPing(result string) {
	if c == nil {
		return
	}
	c.Pings.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSwordRequest(operation, status string) {
	if c == nil {
		return
	}
	c.SwordRequests.WithLabelValues(operation, status).Inc()
}

func (c *Collector) SetOpenContainerSize(size int64) {
	if c == nil {
		return
	}
	c.AuContainerSize.Set(float64(size))
}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
