package detector

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
)

// Fusion weights applied when the oracle gives a verdict.
const (
	HeuristicWeight = 0.4
	AIWeight        = 0.6
)

// Assessor is the AI scoring side of fusion. oracle.Adapter satisfies it.
type Assessor interface {
	Assess(ctx context.Context, text string, history []string) oracle.Assessment
}

// Fusion combines the heuristic with an optional AI assessment. The
// assessor is consulted only when the heuristic reaches the threshold.
type Fusion struct {
	heuristic *Heuristic
	assessor  Assessor
}

// NewFusion creates a Fusion. assessor may be nil.
func NewFusion(h *Heuristic, assessor Assessor) *Fusion {
	return &Fusion{heuristic: h, assessor: assessor}
}

// Heuristic returns the underlying keyword scorer.
func (f *Fusion) Heuristic() *Heuristic { return f.heuristic }

// Detect scores text and, above the threshold, blends in the oracle.
func (f *Fusion) Detect(ctx context.Context, text string, history []string) Result {
	return f.DetectFrom(ctx, f.heuristic.Score(ctx, text), text, history)
}

// DetectFrom is Detect for a heuristic result the caller already holds.
func (f *Fusion) DetectFrom(ctx context.Context, h Result, text string, history []string) Result {
	ctx, span := tracer.Start(ctx, "detector.fusion")
	defer span.End()

	if f.assessor == nil || !atLeast(h.Confidence, f.heuristic.threshold) {
		span.SetAttributes(attribute.Bool("detector.ai_consulted", false))
		return h
	}
	res := Fuse(h, f.assessor.Assess(ctx, text, history), f.heuristic.threshold)
	span.SetAttributes(
		attribute.Bool("detector.ai_consulted", res.AIConsulted),
		attribute.Float64("detector.fused_confidence", res.Confidence),
	)
	return res
}

// Fuse blends a heuristic result with an assessment. Below the threshold or
// when the assessment is absent the heuristic result is returned unchanged.
func Fuse(h Result, ai oracle.Assessment, threshold float64) Result {
	if !atLeast(h.Confidence, threshold) || !ai.IsPresent() {
		return h
	}
	out := h
	out.Matched = append([]string(nil), h.Matched...)
	out.Confidence = clamp(HeuristicWeight*h.Confidence + AIWeight*ai.Confidence())
	out.Scam = atLeast(out.Confidence, threshold)
	out.AIConsulted = true
	out.Rationale = ai.Rationale()
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
