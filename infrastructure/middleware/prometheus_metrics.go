// Package middleware provides cross-cutting concerns for the evaluation engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-essay-judge/infrastructure/grammar"
	"github.com/ahrav/go-essay-judge/internal/ports"
)

const (
	namespace    = "essayjudge"
	unknownLabel = "unknown"
)

// scoreBuckets cover the 0..100 score range in steps of ten.
var scoreBuckets = prometheus.LinearBuckets(10, 10, 10)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// Known metric names from package ports get dedicated vectors; anything
// else falls through to generic operation counters, gauges, and histograms.
type PrometheusMetrics struct {
	evaluations     *prometheus.CounterVec
	totalScore      prometheus.Histogram
	criterionScore  *prometheus.HistogramVec
	scorerLatency   *prometheus.HistogramVec
	scorerDegraded  *prometheus.CounterVec
	scorerFaults    *prometheus.CounterVec
	grammarChecks   *prometheus.CounterVec
	grammarLatency  *prometheus.HistogramVec
	grammarIssues   *prometheus.CounterVec
	circuitState    *prometheus.GaugeVec
	cacheRequests   *prometheus.CounterVec
	executionTime   *prometheus.HistogramVec
	operationCount  *prometheus.CounterVec
	systemGauges    *prometheus.GaugeVec
	genericObserved *prometheus.HistogramVec
}

// NewPrometheusMetrics creates the collector and registers every metric with
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ports.MetricEvaluations,
			Help:      "Essay evaluations by outcome.",
		}, []string{"status"}),
		totalScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      ports.MetricTotalScore,
			Help:      "Weighted total score of successful evaluations.",
			Buckets:   scoreBuckets,
		}),
		criterionScore: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      ports.MetricCriterionScore,
			Help:      "Sub-scores by criterion.",
			Buckets:   scoreBuckets,
		}, []string{"criterion"}),
		scorerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scorer_duration_seconds",
			Help:      "Time spent in each scorer.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"criterion"}),
		scorerDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ports.MetricScorerDegraded,
			Help:      "Scorers that fell back to a reduced-capability path.",
		}, []string{"criterion"}),
		scorerFaults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ports.MetricScorerFaults,
			Help:      "Scorer errors and panics replaced by the neutral score.",
		}, []string{"criterion"}),
		grammarChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ports.MetricGrammarChecks,
			Help:      "Grammar backend checks by status.",
		}, []string{"backend", "status"}),
		grammarLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      ports.MetricGrammarLatency,
			Help:      "Grammar backend latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "status"}),
		grammarIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ports.MetricGrammarIssues,
			Help:      "Issues reported by grammar backends.",
		}, []string{"backend"}),
		circuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      ports.MetricCircuitState,
			Help:      "Grammar circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"backend"}),
		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      ports.MetricCacheRequests,
			Help:      "Score cache lookups by result.",
		}, []string{"result"}),
		executionTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Execution time of other operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Count of other operations.",
		}, []string{"operation", "status"}),
		systemGauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "system_state",
			Help:      "Current values of other gauges.",
		}, []string{"metric"}),
		genericObserved: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "observations",
			Help:      "Observations of other histograms.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknownLabel
}

// RecordLatency records scorer latency by criterion and any other operation
// in the generic duration histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	if operation == ports.MetricScorerLatency {
		pm.scorerLatency.WithLabelValues(label(labels, "criterion")).Observe(duration.Seconds())
		return
	}
	pm.executionTime.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter increments the counter registered for metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricEvaluations:
		pm.evaluations.WithLabelValues(label(labels, "status")).Add(value)
	case ports.MetricScorerDegraded:
		pm.scorerDegraded.WithLabelValues(label(labels, "criterion")).Add(value)
	case ports.MetricScorerFaults:
		pm.scorerFaults.WithLabelValues(label(labels, "criterion")).Add(value)
	case ports.MetricGrammarChecks:
		pm.grammarChecks.WithLabelValues(label(labels, "backend"), label(labels, "status")).Add(value)
	case ports.MetricGrammarIssues:
		pm.grammarIssues.WithLabelValues(label(labels, "backend")).Add(value)
	case ports.MetricCacheRequests:
		pm.cacheRequests.WithLabelValues(label(labels, "result")).Add(value)
	default:
		status, ok := labels["status"]
		if !ok || status == "" {
			status = "success"
		}
		pm.operationCount.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge sets the gauge registered for metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	if metric == ports.MetricCircuitState {
		pm.circuitState.WithLabelValues(label(labels, "backend")).Set(value)
		return
	}
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram observes value in the histogram registered for metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case ports.MetricTotalScore:
		pm.totalScore.Observe(value)
	case ports.MetricCriterionScore:
		pm.criterionScore.WithLabelValues(label(labels, "criterion")).Observe(value)
	case ports.MetricGrammarLatency:
		pm.grammarLatency.WithLabelValues(label(labels, "backend"), label(labels, "status")).Observe(value)
	default:
		pm.genericObserved.WithLabelValues(metric).Observe(value)
	}
}

// CircuitBreakerMetrics adapts the collector to grammar circuit breaker
// events for one backend.
func (pm *PrometheusMetrics) CircuitBreakerMetrics(backend string) grammar.CircuitBreakerMetrics {
	return &circuitMetrics{pm: pm, backend: backend}
}

type circuitMetrics struct {
	pm      *PrometheusMetrics
	backend string
}

func (c *circuitMetrics) RecordState(state grammar.CircuitBreakerState) {
	c.pm.circuitState.WithLabelValues(c.backend).Set(float64(state))
}

func (c *circuitMetrics) RecordTrip() {
	c.pm.operationCount.WithLabelValues("grammar_circuit", "rejected").Inc()
}

func (c *circuitMetrics) RecordSuccess() {
	c.pm.operationCount.WithLabelValues("grammar_circuit", "success").Inc()
}

func (c *circuitMetrics) RecordFailure() {
	c.pm.operationCount.WithLabelValues("grammar_circuit", "failure").Inc()
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NopMetrics discards every metric.
type NopMetrics struct{}

var _ ports.MetricsCollector = NopMetrics{}

func (NopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (NopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (NopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (NopMetrics) RecordHistogram(string, float64, map[string]string)     {}
