// Package testutil provides shared test doubles for the honeypot packages.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/llm"
)

// StubProvider implements llm.Provider without a network. Call N returns
// Responses[N], or the last entry once the list runs out. Err, when set,
// is returned on every call. Delay is honoured against the request context
// so deadline handling can be exercised.
type StubProvider struct {
	ProviderName string
	Responses    []string
	Err          error
	Delay        time.Duration

	calls    atomic.Int64
	mu       sync.Mutex
	requests []llm.Request
}

// Name returns the provider identifier.
func (p *StubProvider) Name() string {
	if p.ProviderName == "" {
		return "stub"
	}
	return p.ProviderName
}

// Generate records the request and returns the next canned response.
func (p *StubProvider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	n := p.calls.Add(1)
	p.mu.Lock()
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, cp)
	p.mu.Unlock()

	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if p.Err != nil {
		return nil, p.Err
	}
	content := ""
	if len(p.Responses) > 0 {
		idx := min(int(n)-1, len(p.Responses)-1)
		content = p.Responses[idx]
	}
	return &llm.Response{
		Content:      content,
		FinishReason: "stop",
		InputTokens:  10,
		OutputTokens: 20,
		Model:        req.Model,
	}, nil
}

// Calls is the number of Generate invocations so far.
func (p *StubProvider) Calls() int { return int(p.calls.Load()) }

// Requests returns copies of every request received.
func (p *StubProvider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}

// StubLimiter grants the first Allow acquisitions and denies the rest.
// A negative Allow grants everything.
type StubLimiter struct {
	Allow int

	used atomic.Int64
}

// TryAcquire implements oracle.Limiter.
func (l *StubLimiter) TryAcquire() bool {
	n := l.used.Add(1)
	return l.Allow < 0 || n <= int64(l.Allow)
}

// Used is how many acquisitions were attempted.
func (l *StubLimiter) Used() int { return int(l.used.Load()) }
