// Package llm holds the network adapters for the generation backends the
// oracle can use. Providers are stateless and safe for concurrent use.
package llm

import (
	"context"
	"errors"
	"time"
)

// TimeoutLLMCall is the hard ceiling on a single provider call. Callers
// normally pass a shorter deadline through ctx.
const TimeoutLLMCall = 30 * time.Second

// Domain errors for the LLM package.
var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrMissingAPIKey   = errors.New("llm provider requires an api key")
	ErrEmptyResponse   = errors.New("llm returned no content")
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is the interface all generation backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "gemini", "openai").
	Name() string
	// Generate sends a completion request and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request represents a generation request. System carries the persona or
// task instructions separately from the untrusted conversation turns.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	TopP        float64
	MaxTokens   int
	// JSON asks the backend to constrain output to a JSON object.
	JSON bool
}

// Message represents a chat turn.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Response represents a generation response.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}
