package oracle

import "math"

// Assessment is the oracle's scam opinion. It is either Present, carrying a
// verdict, or Absent, carrying the reason the oracle had no opinion. The zero
// value is Absent with a nil reason.
type Assessment struct {
	present    bool
	scam       bool
	confidence float64
	rationale  string
	reason     error
}

// Present builds an assessment with a verdict. Confidence is clamped to [0,1].
func Present(scam bool, confidence float64, rationale string) Assessment {
	return Assessment{
		present:    true,
		scam:       scam,
		confidence: clamp01(confidence),
		rationale:  rationale,
	}
}

// Absent builds an assessment that carries no verdict.
func Absent(reason error) Assessment {
	return Assessment{reason: reason}
}

// IsPresent reports whether the oracle gave a verdict.
func (a Assessment) IsPresent() bool { return a.present }

// Scam is the oracle's verdict. Meaningless when absent.
func (a Assessment) Scam() bool { return a.scam }

// Confidence is the oracle's scam likelihood. Zero when absent.
func (a Assessment) Confidence() float64 { return a.confidence }

// Rationale is the oracle's short explanation, if any.
func (a Assessment) Rationale() string { return a.rationale }

// Reason explains an absent assessment. Nil when present.
func (a Assessment) Reason() error { return a.reason }

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
