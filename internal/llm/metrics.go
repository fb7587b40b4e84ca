package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/llm"

var (
	callDurationHistogram metric.Float64Histogram
	callMetricsOnce       sync.Once
	callMetricsRegistered bool
)

func initCallMetrics() {
	meter := otel.Meter(meterName)
	var err error
	callDurationHistogram, err = meter.Float64Histogram(
		"honeypot.llm.call.duration",
		metric.WithDescription("Latency of generation backend calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return
	}
	callMetricsRegistered = true
}

// RecordCallMetrics records one provider call. outcome is "ok", "timeout"
// or "error" so dashboards can separate slow backends from broken ones.
func RecordCallMetrics(ctx context.Context, provider, model string, d time.Duration, err error) {
	callMetricsOnce.Do(initCallMetrics)
	if !callMetricsRegistered {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	callDurationHistogram.Record(context.WithoutCancel(ctx), d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}
