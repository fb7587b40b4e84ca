package callback

import (
	"fmt"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
)

// MaxKeywords caps suspiciousKeywords in the payload.
const MaxKeywords = 10

// Report is what the orchestrator hands over when a session is reported.
type Report struct {
	SessionID    string
	MessageCount int
	Category     string
	Intelligence classifier.Intelligence
}

// Payload is the JSON body POSTed to the collector.
type Payload struct {
	SessionID              string                  `json:"sessionId"`
	ScamDetected           bool                    `json:"scamDetected"`
	TotalMessagesExchanged int                     `json:"totalMessagesExchanged"`
	ExtractedIntelligence  classifier.Intelligence `json:"extractedIntelligence"`
	AgentNotes             string                  `json:"agentNotes"`
}

// BuildPayload renders r as the collector payload.
func BuildPayload(r Report) Payload {
	in := r.Intelligence.Clone()
	if len(in.SuspiciousKeywords) > MaxKeywords {
		in.SuspiciousKeywords = in.SuspiciousKeywords[:MaxKeywords]
	}
	category := r.Category
	if category == "" {
		category = "general_scam"
	}
	return Payload{
		SessionID:              r.SessionID,
		ScamDetected:           true,
		TotalMessagesExchanged: r.MessageCount,
		ExtractedIntelligence:  in,
		AgentNotes: fmt.Sprintf("Engagement completed after %d messages. Scam intelligence extracted with the primary category of scam detected as %s.",
			r.MessageCount, category),
	}
}
