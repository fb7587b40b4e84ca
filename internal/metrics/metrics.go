// Package metrics provides Prometheus counters for the honeypot pipeline.
// Labels are bounded enums; session ids never appear as label values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessedTotal counts completed message cycles by outcome.
	MessagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_messages_processed_total",
		Help: "Total inbound messages processed, by outcome.",
	}, []string{"outcome"})

	// OracleCallsTotal counts AI oracle operations by operation and outcome.
	OracleCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_oracle_calls_total",
		Help: "Total AI oracle operations, by operation (assess/respond/entities) and outcome.",
	}, []string{"op", "outcome"})

	// BudgetRejectionsTotal counts rate budget denials by the window that was full.
	BudgetRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_budget_rejections_total",
		Help: "Total oracle budget acquisitions denied, by window (minute/day/disabled).",
	}, []string{"window"})

	// CallbacksTotal counts collector deliveries by outcome.
	CallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_callbacks_total",
		Help: "Total intelligence callbacks, by outcome (delivered/failed/skipped).",
	}, []string{"outcome"})

	// SessionTransitionsTotal counts state machine transitions by target state.
	SessionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_session_transitions_total",
		Help: "Total session state transitions, by target state.",
	}, []string{"to"})

	// GuardrailRejectionsTotal counts replaced persona replies by violation.
	GuardrailRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_guardrail_rejections_total",
		Help: "Total generated replies replaced by the guardrail, by violation.",
	}, []string{"reason"})

	// IntelligenceItemsTotal counts newly collected artifacts by category.
	IntelligenceItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "honeypot_intelligence_items_total",
		Help: "Total new intelligence items collected, by category.",
	}, []string{"category"})
)

// RecordMessage increments the processed message counter.
func RecordMessage(outcome string) {
	MessagesProcessedTotal.WithLabelValues(normalizeOutcome(outcome)).Inc()
}

// RecordOracleCall increments the oracle call counter.
// op: "assess", "respond" or "entities"
func RecordOracleCall(op, outcome string) {
	OracleCallsTotal.WithLabelValues(op, normalizeOutcome(outcome)).Inc()
}

// RecordBudgetRejection increments the budget rejection counter.
func RecordBudgetRejection(window string) {
	BudgetRejectionsTotal.WithLabelValues(window).Inc()
}

// RecordCallback increments the callback counter.
func RecordCallback(outcome string) {
	CallbacksTotal.WithLabelValues(normalizeOutcome(outcome)).Inc()
}

// RecordTransition increments the transition counter.
func RecordTransition(to string) {
	SessionTransitionsTotal.WithLabelValues(to).Inc()
}

// RecordGuardrailRejection increments the guardrail counter once per violation.
func RecordGuardrailRejection(reasons []string) {
	for _, r := range reasons {
		GuardrailRejectionsTotal.WithLabelValues(r).Inc()
	}
}

// RecordIntelligence adds n to the per-category item counter.
func RecordIntelligence(category string, n int) {
	if n <= 0 {
		return
	}
	IntelligenceItemsTotal.WithLabelValues(category).Add(float64(n))
}

// normalizeOutcome keeps outcome label cardinality bounded.
func normalizeOutcome(outcome string) string {
	switch outcome {
	case "ok", "success", "delivered", "failed", "skipped", "degraded", "error",
		"timeout", "budget_exhausted", "disabled", "malformed", "transport",
		"capped", "replayed", "validation", "persistence", "not_configured":
		return outcome
	case "":
		return "unknown"
	default:
		return "other"
	}
}
