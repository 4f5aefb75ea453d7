// Package metrics collects evaluation and match run metrics on a private
// prometheus registry, exposed through the API's /metrics endpoint.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks rule evaluations and match runs. A private registry
// keeps the endpoint free of default process collectors registered by
// other libraries.
type Collector struct {
	registry           *prometheus.Registry
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	scoreDistribution  prometheus.Histogram
	matchRunsTotal     prometheus.Counter
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		evaluationsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "eligibility_evaluations_total",
			Help: "Total number of rule set evaluations by outcome",
		}, []string{"outcome"}),
		evaluationDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "eligibility_evaluation_duration_seconds",
			Help:    "Time taken to evaluate one rule set against one dataset",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		scoreDistribution: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "eligibility_score_distribution",
			Help:    "Distribution of evaluation scores",
			Buckets: []float64{0, 0.2, 0.4, 0.6, 0.8, 1.0},
		}),
		matchRunsTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "match_runs_total",
			Help: "Total number of persisted match runs",
		}),
	}
}

// RecordEvaluation observes one rule set evaluation.
func (c *Collector) RecordEvaluation(duration time.Duration, score float64, passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	c.evaluationsTotal.WithLabelValues(outcome).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
	c.scoreDistribution.Observe(score)
}

// RecordMatchRun counts one persisted match run.
func (c *Collector) RecordMatchRun() {
	c.matchRunsTotal.Inc()
}

// Handler serves the registry in prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
