package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/llm"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/testutil"
)

func unlimited() *testutil.StubLimiter { return &testutil.StubLimiter{Allow: -1} }

func scammer(texts ...string) []session.Message {
	out := make([]session.Message, 0, len(texts))
	for i, t := range texts {
		sender := session.SenderScammer
		if i%2 == 1 {
			sender = session.SenderAgent
		}
		out = append(out, session.Message{Sender: sender, Text: t, Timestamp: int64(i) * 1000})
	}
	return out
}

func TestAssessPresent(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{`{"is_scam": true, "confidence": 0.9, "reason": "urgent bank threat"}`}}
	a := New(p, unlimited(), Config{Model: "m"})

	res := a.Assess(context.Background(), "Your account is blocked", []string{"hello"})
	require.True(t, res.IsPresent())
	assert.True(t, res.Scam())
	assert.InDelta(t, 0.9, res.Confidence(), 1e-9)
	assert.Equal(t, "urgent bank threat", res.Rationale())
	assert.NoError(t, res.Reason())

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "m", reqs[0].Model)
	assert.True(t, reqs[0].JSON)
	assert.Contains(t, reqs[0].Messages[0].Content, "Previous context")
}

func TestAssessHistoryIsTruncated(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{`{"is_scam": false, "confidence": 0.1}`}}
	a := New(p, unlimited(), Config{})

	a.Assess(context.Background(), "hi", []string{"one", "two", "three", "four", "five"})
	body := p.Requests()[0].Messages[0].Content
	assert.NotContains(t, body, "two")
	assert.Contains(t, body, "three | four | five")
}

func TestAssessParsesFencedJSON(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{"```json\n{\"is_scam\": false, \"confidence\": 1.7}\n```"}}
	a := New(p, unlimited(), Config{})

	res := a.Assess(context.Background(), "hello", nil)
	require.True(t, res.IsPresent())
	assert.False(t, res.Scam())
	assert.Equal(t, 1.0, res.Confidence(), "confidence is clamped")
}

func TestAssessDegrades(t *testing.T) {
	tests := []struct {
		name    string
		adapter func() *Adapter
		want    error
	}{
		{
			name:    "no provider",
			adapter: func() *Adapter { return New(nil, nil, Config{}) },
			want:    ErrDisabled,
		},
		{
			name: "budget exhausted",
			adapter: func() *Adapter {
				return New(&testutil.StubProvider{}, &testutil.StubLimiter{Allow: 0}, Config{})
			},
			want: ErrBudgetExhausted,
		},
		{
			name: "transport error",
			adapter: func() *Adapter {
				return New(&testutil.StubProvider{Err: errors.New("connection refused")}, unlimited(), Config{})
			},
			want: ErrTransport,
		},
		{
			name: "deadline",
			adapter: func() *Adapter {
				return New(&testutil.StubProvider{Delay: time.Second}, unlimited(), Config{Timeout: 20 * time.Millisecond})
			},
			want: ErrTimeout,
		},
		{
			name: "not json",
			adapter: func() *Adapter {
				return New(&testutil.StubProvider{Responses: []string{"definitely a scam"}}, unlimited(), Config{})
			},
			want: ErrMalformedOutput,
		},
		{
			name: "missing fields",
			adapter: func() *Adapter {
				return New(&testutil.StubProvider{Responses: []string{`{"reason": "x"}`}}, unlimited(), Config{})
			},
			want: ErrMalformedOutput,
		},
		{
			name: "empty output",
			adapter: func() *Adapter {
				return New(&testutil.StubProvider{Responses: []string{"   "}}, unlimited(), Config{})
			},
			want: ErrMalformedOutput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.adapter().Assess(context.Background(), "pay now", nil)
			assert.False(t, res.IsPresent())
			assert.Zero(t, res.Confidence())
			require.ErrorIs(t, res.Reason(), tt.want)
			assert.ErrorIs(t, res.Reason(), ErrUnavailable)
		})
	}
}

func TestBudgetCheckedBeforeProvider(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{`{"is_scam": true, "confidence": 1}`}}
	lim := &testutil.StubLimiter{Allow: 1}
	a := New(p, lim, Config{})

	assert.True(t, a.Assess(context.Background(), "a", nil).IsPresent())
	assert.False(t, a.Assess(context.Background(), "b", nil).IsPresent())
	assert.Equal(t, 1, p.Calls(), "denied acquisition never reaches the provider")
	assert.Equal(t, 2, lim.Used())
}

func TestExpiredContextTakesNoBudget(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{"unused"}}
	lim := unlimited()
	a := New(p, lim, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	assert.ErrorIs(t, a.Assess(ctx, "a", nil).Reason(), ErrTimeout)
	r := a.Respond(ctx, scammer("send otp now"), DefaultPersona())
	assert.False(t, r.Generated)
	assert.ErrorIs(t, r.Reason, ErrTimeout)
	_, ok := a.Entities(ctx, "send to scammer@paytm")
	assert.False(t, ok)

	assert.Zero(t, lim.Used())
	assert.Zero(t, p.Calls())
}

func TestRespondGenerated(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{"  why is my account blocked??  "}}
	a := New(p, unlimited(), Config{})

	conv := scammer("hello", "hi who is this", "Your account is blocked")
	r := a.Respond(context.Background(), conv, DefaultPersona())
	assert.True(t, r.Generated)
	assert.NoError(t, r.Reason)
	assert.Equal(t, "why is my account blocked??", r.Text)

	req := p.Requests()[0]
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
	assert.Equal(t, llm.RoleUser, req.Messages[2].Role)
	assert.InDelta(t, 0.9, req.Temperature, 1e-9)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Contains(t, req.System, "3 have been used")
}

func TestRespondFallsBack(t *testing.T) {
	a := New(&testutil.StubProvider{Delay: time.Second}, unlimited(), Config{Timeout: 10 * time.Millisecond})

	conv := scammer("Your account will be blocked today")
	r := a.Respond(context.Background(), conv, DefaultPersona())
	assert.False(t, r.Generated)
	assert.ErrorIs(t, r.Reason, ErrTimeout)
	assert.Equal(t, "Why will my account be blocked? I haven't done anything wrong.", r.Text)
}

func TestRespondAtCapSkipsProvider(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{"should not be used"}}
	lim := unlimited()
	a := New(p, lim, Config{})

	conv := make([]session.Message, 20)
	for i := range conv {
		conv[i] = session.Message{Sender: session.SenderScammer, Text: "pay"}
	}
	r := a.Respond(context.Background(), conv, DefaultPersona())
	assert.Equal(t, CapReply, r.Text)
	assert.ErrorIs(t, r.Reason, ErrCapped)
	assert.Zero(t, p.Calls())
	assert.Zero(t, lim.Used(), "cap does not consume budget")
}

func TestEntities(t *testing.T) {
	p := &testutil.StubProvider{Responses: []string{`Sure: {"upiIds": ["Scammer@PayTM."], "bankAccounts": ["1234-5678-9012"], "phishingLinks": [], "phoneNumbers": ["+91 98765 43210", "12"]}`}}
	a := New(p, unlimited(), Config{})

	in, ok := a.Entities(context.Background(), "send to scammer@paytm")
	require.True(t, ok)
	assert.Equal(t, []string{"scammer@paytm"}, in.Items(classifier.CategoryUPI))
	assert.Equal(t, []string{"123456789012"}, in.Items(classifier.CategoryBankAccount))
	assert.Equal(t, []string{"9876543210"}, in.Items(classifier.CategoryPhoneNumber))
	assert.Empty(t, in.Items(classifier.CategoryPhishingLink))
}

func TestEntitiesDegrades(t *testing.T) {
	a := New(&testutil.StubProvider{Responses: []string{"[]"}}, unlimited(), Config{})
	in, ok := a.Entities(context.Background(), "x")
	assert.False(t, ok)
	assert.Zero(t, in.Len())

	disabled := New(nil, nil, Config{})
	assert.False(t, disabled.Enabled())
	_, ok = disabled.Entities(context.Background(), "x")
	assert.False(t, ok)
}

func TestOutcomeLabels(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "budget_exhausted", outcome(ErrBudgetExhausted))
	assert.Equal(t, "timeout", outcome(classify(context.Background(), context.DeadlineExceeded)))
	assert.Equal(t, "transport", outcome(classify(context.Background(), errors.New("boom"))))
	assert.Equal(t, "malformed", outcome(ErrMalformedOutput))
	assert.Equal(t, "capped", outcome(ErrCapped))
	assert.Equal(t, "disabled", outcome(ErrDisabled))
}
