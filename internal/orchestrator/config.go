package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
)

// ConfidencePolicy decides how per-message fused scores aggregate into the
// session confidence.
type ConfidencePolicy string

const (
	// PolicyMax keeps the highest score observed.
	PolicyMax ConfidencePolicy = "max"
	// PolicyLatest keeps the most recent score.
	PolicyLatest ConfidencePolicy = "latest"
	// PolicyAverage keeps the running mean.
	PolicyAverage ConfidencePolicy = "average"
)

// ParseConfidencePolicy validates a policy name. Empty means PolicyMax.
func ParseConfidencePolicy(s string) (ConfidencePolicy, error) {
	switch p := ConfidencePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyMax, nil
	case PolicyMax, PolicyLatest, PolicyAverage:
		return p, nil
	}
	return "", fmt.Errorf("unknown confidence policy %q (want max, latest or average)", s)
}

// aggregate folds score into the session confidence after observations
// earlier scores.
func (p ConfidencePolicy) aggregate(current float64, observations int, score float64) float64 {
	switch p {
	case PolicyLatest:
		return score
	case PolicyAverage:
		return (current*float64(observations) + score) / float64(observations+1)
	default:
		return max(current, score)
	}
}

// Defaults.
const (
	DefaultCallbackThreshold = 0.60
	DefaultMinExchanges      = 3
	DefaultMaxMessageChars   = 2000
	DefaultEndpointTimeout   = 25 * time.Second
)

// LimitNotice is returned instead of a reply once the message cap is hit.
const LimitNotice = "conversation limit reached"

// Config holds the cycle thresholds.
type Config struct {
	CallbackThreshold float64
	MinExchanges      int
	MaxMessageChars   int
	ConfidencePolicy  ConfidencePolicy
	// EndpointTimeout bounds the AI work of one cycle. Persistence is
	// outside it.
	EndpointTimeout time.Duration
	// Persona carries the message cap and hesitation point.
	Persona oracle.Persona
}

func (c Config) withDefaults() Config {
	if c.CallbackThreshold == 0 {
		c.CallbackThreshold = DefaultCallbackThreshold
	}
	if c.MinExchanges == 0 {
		c.MinExchanges = DefaultMinExchanges
	}
	if c.MaxMessageChars == 0 {
		c.MaxMessageChars = DefaultMaxMessageChars
	}
	if c.ConfidencePolicy == "" {
		c.ConfidencePolicy = PolicyMax
	}
	if c.EndpointTimeout <= 0 {
		c.EndpointTimeout = DefaultEndpointTimeout
	}
	def := oracle.DefaultPersona()
	if c.Persona.MaxMessages == 0 {
		c.Persona.MaxMessages = def.MaxMessages
	}
	if c.Persona.HesitateAfter == 0 {
		c.Persona.HesitateAfter = def.HesitateAfter
	}
	return c
}
