package otel

import (
	"go.opentelemetry.io/otel/attribute"
)

// GenAI semantic convention keys used on provider spans.
const (
	GenAISystem               = attribute.Key("gen_ai.system")
	GenAIRequestModel         = attribute.Key("gen_ai.request.model")
	GenAIRequestTemperature   = attribute.Key("gen_ai.request.temperature")
	GenAIRequestMaxTokens     = attribute.Key("gen_ai.request.max_tokens")
	GenAIUsageInputTokens     = attribute.Key("gen_ai.usage.input_tokens")
	GenAIUsageOutputTokens    = attribute.Key("gen_ai.usage.output_tokens")
	GenAIResponseFinishReason = attribute.Key("gen_ai.response.finish_reason")
)

// Honeypot-specific keys for oracle spans.
const (
	OracleOperation = attribute.Key("honeypot.oracle.operation")
	OracleOutcome   = attribute.Key("honeypot.oracle.outcome")
)

// LLMRequestAttributes describes one provider request.
func LLMRequestAttributes(system, model string, temperature float64, maxTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAISystem.String(system),
		GenAIRequestModel.String(model),
		GenAIRequestTemperature.Float64(temperature),
		GenAIRequestMaxTokens.Int(maxTokens),
	}
}

// LLMUsageAttributes records token usage.
func LLMUsageAttributes(inputTokens, outputTokens int) []attribute.KeyValue {
	return []attribute.KeyValue{
		GenAIUsageInputTokens.Int(inputTokens),
		GenAIUsageOutputTokens.Int(outputTokens),
	}
}

// OracleAttributes labels an oracle span with its operation and outcome
// (ok, budget, timeout, error, invalid).
func OracleAttributes(op, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		OracleOperation.String(op),
		OracleOutcome.String(outcome),
	}
}
