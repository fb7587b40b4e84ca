// Package guardrail checks generated persona replies before they are sent.
// A reply that leaks the operation, leaks a protected secret, follows an
// injected directive or breaks the style contract is replaced by a
// deterministic fallback.
package guardrail

import (
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/patterns"
)

// Style limits.
const (
	DefaultMaxChars     = 300
	DefaultMaxQuestions = 3

	// echoWindow is the word n-gram length that counts as repeating a
	// directive.
	echoWindow = 4
)

// Violation reasons.
const (
	ViolationEmpty            = "empty"
	ViolationTooLong          = "too_long"
	ViolationTooManyQuestions = "too_many_questions"
	ViolationAIDisclosure     = "ai_disclosure"
	ViolationSecretDisclosure = "secret_disclosure"
	ViolationInjectionEcho    = "injection_echo"
)

// Verdict is the result of Enforce. Reply is always safe to send.
type Verdict struct {
	Reply      string   `json:"reply"`
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations,omitempty"`
}

// Guard enforces the persona contract on candidate replies.
type Guard struct {
	disclosure   *Scanner
	injection    *Scanner
	secrets      []string
	policy       *bluemonday.Policy
	maxChars     int
	maxQuestions int
	fallback     func([]session.Message) string
}

// Option configures a Guard.
type Option func(*guardConfig)

type guardConfig struct {
	disclosureYAML []byte
	injectionYAML  []byte
	secrets        []string
	maxChars       int
	maxQuestions   int
	fallback       func([]session.Message) string
}

// WithProtectedSecrets adds operator strings that must never be echoed,
// matched case-insensitively. Blank entries are ignored.
func WithProtectedSecrets(secrets ...string) Option {
	return func(c *guardConfig) { c.secrets = append(c.secrets, secrets...) }
}

// WithMaxChars overrides DefaultMaxChars.
func WithMaxChars(n int) Option {
	return func(c *guardConfig) { c.maxChars = n }
}

// WithMaxQuestions overrides DefaultMaxQuestions.
func WithMaxQuestions(n int) Option {
	return func(c *guardConfig) { c.maxQuestions = n }
}

// WithFallback sets the reply used when a candidate is rejected.
func WithFallback(fn func([]session.Message) string) Option {
	return func(c *guardConfig) { c.fallback = fn }
}

// WithDisclosurePatterns replaces the embedded disclosure patterns.
func WithDisclosurePatterns(data []byte) Option {
	return func(c *guardConfig) { c.disclosureYAML = data }
}

// WithInjectionPatterns replaces the embedded injection patterns.
func WithInjectionPatterns(data []byte) Option {
	return func(c *guardConfig) { c.injectionYAML = data }
}

// New builds a Guard from the embedded pattern catalogs.
func New(opts ...Option) (*Guard, error) {
	cfg := guardConfig{
		disclosureYAML: patterns.DisclosureYAML(),
		injectionYAML:  patterns.InjectionYAML(),
		maxChars:       DefaultMaxChars,
		maxQuestions:   DefaultMaxQuestions,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.maxChars <= 0 || cfg.maxQuestions < 0 {
		return nil, fmt.Errorf("invalid style limits: max_chars=%d max_questions=%d", cfg.maxChars, cfg.maxQuestions)
	}

	disclosure, err := CompilePatterns(cfg.disclosureYAML)
	if err != nil {
		return nil, fmt.Errorf("disclosure patterns: %w", err)
	}
	injection, err := CompilePatterns(cfg.injectionYAML)
	if err != nil {
		return nil, fmt.Errorf("injection patterns: %w", err)
	}

	var secrets []string
	for _, s := range cfg.secrets {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			secrets = append(secrets, s)
		}
	}

	fallback := cfg.fallback
	if fallback == nil {
		persona := oracle.DefaultPersona()
		fallback = func(conv []session.Message) string { return oracle.FallbackReply(conv, persona) }
	}

	return &Guard{
		disclosure:   NewScanner("disclosure", disclosure),
		injection:    NewScanner("injection", injection),
		secrets:      secrets,
		policy:       bluemonday.StrictPolicy(),
		maxChars:     cfg.maxChars,
		maxQuestions: cfg.maxQuestions,
		fallback:     fallback,
	}, nil
}

// MustNew is New that panics on error.
func MustNew(opts ...Option) *Guard {
	g, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Enforce checks candidate against the persona contract. conv is the
// conversation the candidate answers, ending with the scammer message.
func (g *Guard) Enforce(ctx context.Context, candidate string, conv []session.Message) Verdict {
	ctx, span := tracer.Start(ctx, "guardrail.enforce")
	defer span.End()

	reply := g.sanitize(candidate)
	violations := g.check(ctx, reply, conv)

	span.SetAttributes(
		attribute.Bool("guardrail.passed", len(violations) == 0),
		attribute.StringSlice("guardrail.violations", violations),
	)
	if len(violations) > 0 {
		return Verdict{Reply: g.fallback(conv), Violations: violations}
	}
	return Verdict{Reply: reply, Passed: true}
}

// sanitize strips markup and collapses whitespace. The strict policy escapes
// entities, so they are unescaped again for plain-text delivery.
func (g *Guard) sanitize(s string) string {
	s = html.UnescapeString(g.policy.Sanitize(strings.ToValidUTF8(s, "")))
	return strings.Join(strings.Fields(s), " ")
}

func (g *Guard) check(ctx context.Context, reply string, conv []session.Message) []string {
	var out []string
	add := func(v string) {
		for _, have := range out {
			if have == v {
				return
			}
		}
		out = append(out, v)
	}

	if reply == "" {
		return []string{ViolationEmpty}
	}
	if utf8.RuneCountInString(reply) > g.maxChars {
		add(ViolationTooLong)
	}
	if strings.Count(reply, "?") > g.maxQuestions {
		add(ViolationTooManyQuestions)
	}
	for _, f := range g.disclosure.Scan(ctx, reply).Findings {
		add(f.Violation)
	}

	lower := strings.ToLower(reply)
	for _, s := range g.secrets {
		if strings.Contains(lower, s) {
			add(ViolationSecretDisclosure)
			break
		}
	}

	if !g.injection.Scan(ctx, reply).Safe || g.echoesDirective(ctx, lower, conv) {
		add(ViolationInjectionEcho)
	}
	return out
}

// echoesDirective reports whether reply repeats a run of echoWindow words
// from any injected directive found in the scammer's messages.
func (g *Guard) echoesDirective(ctx context.Context, reply string, conv []session.Message) bool {
	grams := ngrams(reply, echoWindow)
	if len(grams) == 0 {
		return false
	}
	for _, m := range conv {
		if m.Sender != session.SenderScammer {
			continue
		}
		for _, f := range g.injection.Scan(ctx, m.Text).Findings {
			for gram := range ngrams(strings.ToLower(f.Context), echoWindow) {
				if grams[gram] {
					return true
				}
			}
		}
	}
	return false
}

func ngrams(text string, n int) map[string]bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '\'' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r > 127)
	})
	if len(words) < n {
		return nil
	}
	out := make(map[string]bool, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out[strings.Join(words[i:i+n], " ")] = true
	}
	return out
}
