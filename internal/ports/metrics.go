package ports

// Metric names shared by the engine, the grammar middleware, and the
// Prometheus collector.
const (
	// MetricEvaluations counts Evaluate calls by status.
	MetricEvaluations = "evaluations_total"

	// MetricTotalScore observes the weighted total of successful evaluations.
	MetricTotalScore = "evaluation_total_score"

	// MetricCriterionScore observes each sub-score by criterion.
	MetricCriterionScore = "criterion_score"

	// MetricScorerLatency is the RecordLatency operation for one scorer run.
	MetricScorerLatency = "scorer"

	// MetricScorerDegraded counts scorers that used a fallback path.
	MetricScorerDegraded = "scorer_degraded_total"

	// MetricScorerFaults counts scorer errors and panics replaced by the
	// neutral score.
	MetricScorerFaults = "scorer_faults_total"

	// MetricGrammarChecks counts grammar checks by backend and status.
	MetricGrammarChecks = "grammar_checks_total"

	// MetricGrammarLatency observes grammar check latency in seconds.
	MetricGrammarLatency = "grammar_check_latency_seconds"

	// MetricGrammarIssues counts issues reported by successful checks.
	MetricGrammarIssues = "grammar_issues_total"

	// MetricCircuitState is the grammar circuit breaker state as a gauge.
	MetricCircuitState = "grammar_circuit_state"

	// MetricCacheRequests counts score cache lookups by result.
	MetricCacheRequests = "score_cache_requests_total"
)
