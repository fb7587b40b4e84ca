// Package oracle wraps the AI backend behind a contract that never fails the
// request path: every operation is budget-gated, deadline-bound and makes a
// single attempt, and every failure maps to a defined fallback.
package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/llm"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/metrics"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle")

// DefaultTimeout bounds one oracle call.
const DefaultTimeout = 8 * time.Second

// historyContext is how many prior messages accompany an assessment.
const historyContext = 3

// Limiter gates oracle calls. ratelimit.Budget satisfies it.
type Limiter interface {
	TryAcquire() bool
}

// Config tunes the calls made to the provider.
type Config struct {
	Model   string
	Timeout time.Duration

	ReplyTemperature  float64
	ReplyTopP         float64
	ReplyMaxTokens    int
	AssessTemperature float64
	AssessMaxTokens   int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ReplyTemperature == 0 {
		c.ReplyTemperature = 0.9
	}
	if c.ReplyTopP == 0 {
		c.ReplyTopP = 0.95
	}
	if c.ReplyMaxTokens == 0 {
		c.ReplyMaxTokens = 100
	}
	if c.AssessTemperature == 0 {
		c.AssessTemperature = 0.1
	}
	if c.AssessMaxTokens == 0 {
		c.AssessMaxTokens = 200
	}
	return c
}

// Reply is a persona reply. Generated is false when a deterministic
// fallback was used, in which case Reason says why.
type Reply struct {
	Text      string
	Generated bool
	Reason    error
}

// Adapter is the oracle contract over an llm.Provider. A nil provider is
// valid and makes every operation degrade immediately.
type Adapter struct {
	provider llm.Provider
	limiter  Limiter
	cfg      Config
}

// New creates an adapter. limiter must be non-nil when provider is non-nil.
func New(provider llm.Provider, limiter Limiter, cfg Config) *Adapter {
	return &Adapter{provider: provider, limiter: limiter, cfg: cfg.withDefaults()}
}

// Enabled reports whether a provider is configured.
func (a *Adapter) Enabled() bool { return a.provider != nil }

// acquire checks provider presence, the caller's deadline and budget in
// that order. An expired context never takes a budget slot.
func (a *Adapter) acquire(ctx context.Context) error {
	if a.provider == nil {
		return ErrDisabled
	}
	if err := ctx.Err(); err != nil {
		return classify(ctx, err)
	}
	if a.limiter == nil || !a.limiter.TryAcquire() {
		return ErrBudgetExhausted
	}
	return nil
}

func (a *Adapter) call(ctx context.Context, req *llm.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	req.Model = a.cfg.Model
	resp, err := a.provider.Generate(ctx, req)
	if err != nil {
		return "", classify(ctx, err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", ErrMalformedOutput
	}
	return text, nil
}

// Assess asks the oracle for a scam verdict on text. It returns Absent on
// any budget, transport, deadline or parse failure.
func (a *Adapter) Assess(ctx context.Context, text string, history []string) Assessment {
	ctx, span := tracer.Start(ctx, "oracle.assess")
	defer span.End()

	res := a.assess(ctx, text, history)
	metrics.RecordOracleCall("assess", outcome(res.Reason()))
	span.SetAttributes(honeypototel.OracleAttributes("assess", outcome(res.Reason()))...)
	span.SetAttributes(attribute.Bool("oracle.present", res.IsPresent()))
	if !res.IsPresent() {
		logDegraded(ctx, "assess", res.Reason())
	}
	return res
}

func (a *Adapter) assess(ctx context.Context, text string, history []string) Assessment {
	if err := a.acquire(ctx); err != nil {
		return Absent(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Message: %q", text)
	if len(history) > 0 {
		start := max(len(history)-historyContext, 0)
		fmt.Fprintf(&b, "\n\nPrevious context: %q", strings.Join(history[start:], " | "))
	}

	out, err := a.call(ctx, &llm.Request{
		System:      assessInstructions,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Temperature: a.cfg.AssessTemperature,
		MaxTokens:   a.cfg.AssessMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return Absent(err)
	}
	scam, conf, reason, err := parseAssessment(out)
	if err != nil {
		return Absent(err)
	}
	return Present(scam, conf, reason)
}

// Respond generates the persona's next message for conv, whose last element
// is the scammer message being answered. Failures yield FallbackReply.
func (a *Adapter) Respond(ctx context.Context, conv []session.Message, p Persona) Reply {
	ctx, span := tracer.Start(ctx, "oracle.respond", trace.WithAttributes(attribute.Int("oracle.conversation_length", len(conv))))
	defer span.End()

	r := a.respond(ctx, conv, p)
	metrics.RecordOracleCall("respond", outcome(r.Reason))
	span.SetAttributes(honeypototel.OracleAttributes("respond", outcome(r.Reason))...)
	span.SetAttributes(attribute.Bool("oracle.generated", r.Generated))
	if !r.Generated {
		logDegraded(ctx, "respond", r.Reason)
	}
	return r
}

func (a *Adapter) respond(ctx context.Context, conv []session.Message, p Persona) Reply {
	if p.MaxMessages > 0 && len(conv) >= p.MaxMessages {
		return Reply{Text: CapReply, Reason: ErrCapped}
	}
	if err := a.acquire(ctx); err != nil {
		return Reply{Text: FallbackReply(conv, p), Reason: err}
	}

	msgs := make([]llm.Message, 0, len(conv))
	for _, m := range conv {
		role := llm.RoleUser
		if m.Sender == session.SenderAgent {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Text})
	}

	out, err := a.call(ctx, &llm.Request{
		System:      p.SystemPrompt(len(conv)),
		Messages:    msgs,
		Temperature: a.cfg.ReplyTemperature,
		TopP:        a.cfg.ReplyTopP,
		MaxTokens:   a.cfg.ReplyMaxTokens,
	})
	if err != nil {
		return Reply{Text: FallbackReply(conv, p), Reason: err}
	}
	return Reply{Text: out, Generated: true}
}

// Entities asks the oracle to extract the artifact categories from text.
// It satisfies classifier.Secondary; ok is false when the oracle had no
// usable opinion.
func (a *Adapter) Entities(ctx context.Context, text string) (classifier.Intelligence, bool) {
	ctx, span := tracer.Start(ctx, "oracle.entities")
	defer span.End()

	in, err := a.entities(ctx, text)
	metrics.RecordOracleCall("entities", outcome(err))
	span.SetAttributes(honeypototel.OracleAttributes("entities", outcome(err))...)
	if err != nil {
		logDegraded(ctx, "entities", err)
		return classifier.Intelligence{}, false
	}
	span.SetAttributes(attribute.Int("oracle.entities", in.Len()))
	return in, true
}

func (a *Adapter) entities(ctx context.Context, text string) (classifier.Intelligence, error) {
	if err := a.acquire(ctx); err != nil {
		return classifier.Intelligence{}, err
	}
	out, err := a.call(ctx, &llm.Request{
		System:      entitiesInstructions,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: fmt.Sprintf("Message: %q", text)}},
		Temperature: a.cfg.AssessTemperature,
		MaxTokens:   a.cfg.AssessMaxTokens,
		JSON:        true,
	})
	if err != nil {
		return classifier.Intelligence{}, err
	}
	return parseEntities(out)
}

func logDegraded(ctx context.Context, op string, reason error) {
	ev := log.Debug()
	if reason != nil && outcome(reason) != "disabled" {
		ev = log.Warn()
	}
	ev.Func(honeypototel.LogTraceFields(ctx)).
		Str("op", op).
		AnErr("reason", reason).
		Msg("oracle_degraded")
}
