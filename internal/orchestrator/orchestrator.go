// Package orchestrator runs one message cycle per inbound scammer message:
// it scores and mines the message, advances the session state machine,
// answers in persona, commits everything atomically and decides when to
// report the session to the collector.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/callback"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/detector"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/guardrail"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/metrics"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator")

// Responder generates persona replies. oracle.Adapter satisfies it.
type Responder interface {
	Respond(ctx context.Context, conv []session.Message, p oracle.Persona) oracle.Reply
}

// Reporter delivers reports off the request path. callback.Dispatcher
// satisfies it.
type Reporter interface {
	Go(ctx context.Context, r callback.Report) error
}

// Deps are the collaborators of a cycle. Secondary and Reporter may be nil.
type Deps struct {
	Store     session.Store
	Extractor *classifier.Extractor
	Secondary classifier.Secondary
	Fusion    *detector.Fusion
	Responder Responder
	Guard     *guardrail.Guard
	Reporter  Reporter
}

// Orchestrator is safe for concurrent use. Cycles for the same session id
// are serialized; different sessions run in parallel.
type Orchestrator struct {
	deps  Deps
	cfg   Config
	locks *sessionLocks
	now   func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New validates deps and builds an orchestrator.
func New(deps Deps, cfg Config, opts ...Option) (*Orchestrator, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("orchestrator: store is required")
	case deps.Extractor == nil:
		return nil, errors.New("orchestrator: extractor is required")
	case deps.Fusion == nil:
		return nil, errors.New("orchestrator: fusion is required")
	case deps.Responder == nil:
		return nil, errors.New("orchestrator: responder is required")
	case deps.Guard == nil:
		return nil, errors.New("orchestrator: guard is required")
	}
	cfg = cfg.withDefaults()
	if _, err := ParseConfidencePolicy(string(cfg.ConfidencePolicy)); err != nil {
		return nil, err
	}
	o := &Orchestrator{deps: deps, cfg: cfg, locks: newSessionLocks(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// cycle is the working state of one Handle call.
type cycle struct {
	sess      *session.Session
	inbound   session.Message
	stored    bool
	detection detector.Result
	found     classifier.Intelligence
	reply     string
	generated bool
	capped    bool
	report    bool

	// added counts intelligence items new to the session, per category.
	added       map[classifier.Category]int
	transitions []session.State
}

// Handle runs one message cycle. Only validation and persistence failures
// are returned; oracle trouble only degrades the reply.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := tracer.Start(ctx, "orchestrator.handle",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)))
	defer span.End()

	start := time.Now()
	defer func() {
		switch {
		case err == nil:
		case errors.Is(err, ErrValidation):
			metrics.RecordMessage("validation")
		case errors.Is(err, ErrPersistence):
			metrics.RecordMessage("persistence")
			span.RecordError(err)
		default:
			metrics.RecordMessage("error")
			span.RecordError(err)
		}
	}()

	if err := req.validate(o.cfg.MaxMessageChars); err != nil {
		return nil, err
	}

	unlock := o.locks.lock(req.SessionID)
	defer unlock()

	now := o.now()
	text := strings.ToValidUTF8(req.Message.Text, "�")
	// Keyed on the caller's timestamp so a re-sent message without one
	// still matches its first delivery.
	key := replayKey(req.SessionID, req.Message.Timestamp, text)
	ts := req.Message.Timestamp
	if ts == 0 {
		ts = now.UnixMilli()
	}

	if reply, ok, err := o.deps.Store.Replay(ctx, key); err != nil {
		return nil, &PersistenceError{Op: "replay lookup", Err: err}
	} else if ok {
		metrics.RecordMessage("replayed")
		log.Info().Func(honeypototel.LogTraceFields(ctx)).
			Str("session_id", req.SessionID).
			Msg("message_replayed")
		return &Response{Status: StatusSuccess, Reply: reply}, nil
	}

	c, err := o.load(ctx, req, now)
	if err != nil {
		return nil, err
	}
	c.inbound = session.Message{Sender: session.SenderScammer, Text: text, Timestamp: ts}

	if diverges(req.ConversationHistory, c.sess.Messages) {
		log.Warn().Func(honeypototel.LogTraceFields(ctx)).
			Str("session_id", req.SessionID).
			Int("history_len", len(req.ConversationHistory)).
			Int("stored_len", len(c.sess.Messages)).
			Msg("history_divergence")
	}

	o.run(ctx, c)

	res, err := o.deps.Store.Commit(ctx, o.batch(c, key, now))
	if err != nil {
		return nil, &PersistenceError{Op: "commit cycle", Err: err}
	}
	if res.Reported {
		c.sess.State = session.StateReported
		c.sess.CallbackSent = true
	}
	o.finish(ctx, c, res, time.Since(start))

	out := c.reply
	if c.capped {
		out = LimitNotice
	}
	return &Response{Status: StatusSuccess, Reply: out}, nil
}

func (o *Orchestrator) load(ctx context.Context, req Request, now time.Time) (*cycle, error) {
	sess, err := o.deps.Store.Get(ctx, req.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = session.New(req.SessionID, req.Metadata, now)
	case err != nil:
		return nil, &PersistenceError{Op: "load session", Err: err}
	default:
		sess = sess.Clone()
	}
	return &cycle{sess: sess}, nil
}

// run does everything between load and commit. It never fails.
func (o *Orchestrator) run(ctx context.Context, c *cycle) {
	sess := c.sess
	maxMessages := o.cfg.Persona.MaxMessages

	history := make([]string, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		history = append(history, m.Text)
	}
	if len(sess.Messages) < maxMessages {
		sess.Messages = append(sess.Messages, c.inbound)
		c.stored = true
	}
	if sess.State == session.StateNew {
		sess.State = session.StateEngaging
		c.transitions = append(c.transitions, session.StateEngaging)
	}

	aiCtx, cancel := context.WithTimeout(ctx, o.cfg.EndpointTimeout)
	defer cancel()

	h := o.deps.Fusion.Heuristic().Score(aiCtx, c.inbound.Text)

	var g errgroup.Group
	g.Go(func() error {
		if h.Scam && o.deps.Secondary != nil {
			c.found = o.deps.Extractor.ExtractWith(aiCtx, c.inbound.Text, o.deps.Secondary)
		} else {
			c.found = o.deps.Extractor.Extract(aiCtx, c.inbound.Text)
		}
		return nil
	})
	g.Go(func() error {
		c.detection = o.deps.Fusion.DetectFrom(aiCtx, h, c.inbound.Text, history)
		return nil
	})
	_ = g.Wait()

	for _, kw := range c.detection.Matched {
		c.found.Add(classifier.CategoryKeyword, kw)
	}

	sess.Confidence = o.cfg.ConfidencePolicy.aggregate(sess.Confidence, sess.Observations, c.detection.Confidence)
	sess.Observations++
	if c.detection.Scam && detector.MoreSpecific(sess.Category, c.detection.Category) {
		sess.Category = c.detection.Category
	}

	if c.stored && len(sess.Messages) < maxMessages {
		o.respond(ctx, aiCtx, c)
	} else {
		c.capped = true
	}

	sess.LastActivity = o.now()
	c.added = make(map[classifier.Category]int)
	for _, cat := range classifier.Categories() {
		for _, v := range c.found.Items(cat) {
			if sess.Intelligence.Add(cat, v) {
				c.added[cat]++
			}
		}
	}

	if sess.State == session.StateEngaging &&
		sess.Confidence+1e-9 >= o.cfg.CallbackThreshold &&
		sess.ExchangeCount() >= o.cfg.MinExchanges {
		sess.State = session.StateScamConfirmed
		sess.ScamConfirmed = true
		c.transitions = append(c.transitions, session.StateScamConfirmed)
	}
	c.report = sess.State == session.StateScamConfirmed && !sess.CallbackSent && sess.Intelligence.HasData()
}

// respond generates, guards and appends the agent reply.
func (o *Orchestrator) respond(ctx, aiCtx context.Context, c *cycle) {
	r := o.deps.Responder.Respond(aiCtx, c.sess.Messages, o.cfg.Persona)
	c.reply, c.generated = r.Text, r.Generated

	switch {
	case r.Generated:
		v := o.deps.Guard.Enforce(ctx, r.Text, c.sess.Messages)
		if !v.Passed {
			metrics.RecordGuardrailRejection(v.Violations)
			log.Warn().Func(honeypototel.LogTraceFields(ctx)).
				Str("session_id", c.sess.ID).
				Strs("violations", v.Violations).
				Msg("reply_rejected")
			c.generated = false
		}
		c.reply = v.Reply
	case aiCtx.Err() != nil:
		c.reply = oracle.ConfusedReply
	}

	c.sess.Messages = append(c.sess.Messages, session.Message{
		Sender:    session.SenderAgent,
		Text:      c.reply,
		Timestamp: c.inbound.Timestamp + 1000,
	})
}

// batch assembles the atomic commit for the cycle.
func (o *Orchestrator) batch(c *cycle, key string, now time.Time) session.Cycle {
	var msgs []session.Message
	if c.stored {
		msgs = append(msgs, c.inbound)
		if !c.capped {
			msgs = append(msgs, c.sess.Messages[len(c.sess.Messages)-1])
		}
	}
	reply := c.reply
	if c.capped {
		reply = LimitNotice
	}
	return session.Cycle{
		Session:      c.sess,
		Messages:     msgs,
		Intelligence: c.found,
		Report:       c.report,
		Replay:       &session.ReplayEntry{Key: key, SessionID: c.sess.ID, Reply: reply, CreatedAt: now},
	}
}

// finish records metrics, logs the cycle and hands a report to the
// dispatcher when this commit flipped the callback flag.
func (o *Orchestrator) finish(ctx context.Context, c *cycle, res session.CommitResult, took time.Duration) {
	sess := c.sess
	metrics.RecordMessage("success")
	if res.Reported {
		c.transitions = append(c.transitions, session.StateReported)
	}
	for _, st := range c.transitions {
		metrics.RecordTransition(string(st))
	}
	added := 0
	for cat, n := range c.added {
		metrics.RecordIntelligence(string(cat), n)
		added += n
	}

	if res.Reported {
		report := callback.Report{
			SessionID:    sess.ID,
			MessageCount: len(sess.Messages),
			Category:     sess.Category,
			Intelligence: sess.Intelligence.Clone(),
		}
		if o.deps.Reporter == nil {
			log.Warn().Str("session_id", sess.ID).Msg("callback_not_configured")
		} else if err := o.deps.Reporter.Go(ctx, report); err != nil {
			log.Error().Err(err).Str("session_id", sess.ID).Msg("callback_dispatch_failed")
		}
	}

	log.Info().Func(honeypototel.LogTraceFields(ctx)).
		Str("session_id", sess.ID).
		Str("state", string(sess.State)).
		Float64("confidence", sess.Confidence).
		Float64("message_confidence", c.detection.Confidence).
		Bool("ai_consulted", c.detection.AIConsulted).
		Bool("reply_generated", c.generated).
		Bool("capped", c.capped).
		Int("messages", len(sess.Messages)).
		Int("new_intelligence", added).
		Bool("reported", res.Reported).
		Dur("duration", took).
		Msg("message_cycle_completed")
}

// Session returns the stored session for inspection.
func (o *Orchestrator) Session(ctx context.Context, id string) (*session.Session, error) {
	if !session.ValidID(id) {
		return nil, &ValidationError{Field: "sessionId", Reason: "must be 1-100 letters, digits, '-' or '_'"}
	}
	sess, err := o.deps.Store.Get(ctx, id)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return nil, &PersistenceError{Op: "load session", Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", id, err)
	}
	return sess, nil
}
