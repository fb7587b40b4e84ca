// Package detector scores inbound messages for scam likelihood. The
// heuristic stage is pure keyword matching; Fusion optionally blends in an
// AI assessment once the heuristic crosses the invocation threshold.
package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/patterns"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/detector")

const (
	// DefaultThreshold is both the scam decision threshold and the point at
	// which the AI oracle is consulted.
	DefaultThreshold = 0.30

	// DefaultNormalizer is the number of distinct hits that yields
	// confidence 1.0.
	DefaultNormalizer = 10.0

	epsilon = 1e-9
)

// Result is the outcome of one detection pass.
type Result struct {
	Scam        bool     `json:"scam"`
	Confidence  float64  `json:"confidence"`
	Matched     []string `json:"matched,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
	AIConsulted bool     `json:"ai_consulted"`
	Category    string   `json:"category,omitempty"`
}

// KeywordCatalog is the YAML structure of the scam keyword catalog.
type KeywordCatalog struct {
	Groups []KeywordGroup `yaml:"groups"`
}

// KeywordGroup is a named family of terms (urgency, payment, ...).
type KeywordGroup struct {
	Name  string        `yaml:"name"`
	Terms []KeywordTerm `yaml:"terms"`
}

// KeywordTerm is one catalog entry. Regex defaults to the term itself on
// word boundaries.
type KeywordTerm struct {
	Term  string `yaml:"term"`
	Regex string `yaml:"regex,omitempty"`
}

type compiledTerm struct {
	label string
	group string
	re    *regexp.Regexp
}

// Heuristic is the cheap, deterministic keyword scorer.
type Heuristic struct {
	terms      []compiledTerm
	threshold  float64
	normalizer float64
}

// HeuristicOption configures a Heuristic.
type HeuristicOption func(*heuristicConfig)

type heuristicConfig struct {
	catalog    []byte
	threshold  float64
	normalizer float64
}

// WithThreshold overrides DefaultThreshold.
func WithThreshold(t float64) HeuristicOption {
	return func(c *heuristicConfig) { c.threshold = t }
}

// WithNormalizer overrides DefaultNormalizer.
func WithNormalizer(n float64) HeuristicOption {
	return func(c *heuristicConfig) { c.normalizer = n }
}

// WithCatalog replaces the embedded keyword catalog with YAML data.
func WithCatalog(data []byte) HeuristicOption {
	return func(c *heuristicConfig) { c.catalog = data }
}

// ParseKeywordCatalog parses keyword catalog YAML.
func ParseKeywordCatalog(data []byte) (*KeywordCatalog, error) {
	var kc KeywordCatalog
	if err := yaml.Unmarshal(data, &kc); err != nil {
		return nil, fmt.Errorf("parsing keyword catalog YAML: %w", err)
	}
	return &kc, nil
}

// NewHeuristic compiles the keyword catalog.
func NewHeuristic(opts ...HeuristicOption) (*Heuristic, error) {
	cfg := heuristicConfig{
		catalog:    patterns.ScamKeywordsYAML(),
		threshold:  DefaultThreshold,
		normalizer: DefaultNormalizer,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.normalizer <= 0 {
		return nil, fmt.Errorf("normalizer must be positive, got %v", cfg.normalizer)
	}
	if cfg.threshold < 0 || cfg.threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [0,1], got %v", cfg.threshold)
	}

	kc, err := ParseKeywordCatalog(cfg.catalog)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var terms []compiledTerm
	for _, g := range kc.Groups {
		for _, t := range g.Terms {
			label := strings.ToLower(strings.TrimSpace(t.Term))
			if label == "" {
				return nil, fmt.Errorf("group %q: empty term", g.Name)
			}
			if seen[label] {
				return nil, fmt.Errorf("group %q: duplicate term %q", g.Name, label)
			}
			seen[label] = true

			expr := t.Regex
			if expr == "" {
				expr = `\b` + regexp.QuoteMeta(label) + `\b`
			}
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("compiling term %q: %w", label, err)
			}
			terms = append(terms, compiledTerm{label: label, group: g.Name, re: re})
		}
	}

	return &Heuristic{terms: terms, threshold: cfg.threshold, normalizer: cfg.normalizer}, nil
}

// MustNewHeuristic is NewHeuristic that panics on error.
func MustNewHeuristic(opts ...HeuristicOption) *Heuristic {
	h, err := NewHeuristic(opts...)
	if err != nil {
		panic(err)
	}
	return h
}

// Size returns the number of catalog terms.
func (h *Heuristic) Size() int { return len(h.terms) }

// Threshold returns the detection threshold.
func (h *Heuristic) Threshold() float64 { return h.threshold }

// Score counts distinct catalog hits in text. It never touches the network.
func (h *Heuristic) Score(ctx context.Context, text string) Result {
	_, span := tracer.Start(ctx, "detector.heuristic")
	defer span.End()

	text = strings.ToValidUTF8(text, " ")
	var matched []string
	for _, t := range h.terms {
		if t.re.MatchString(text) {
			matched = append(matched, t.label)
		}
	}

	conf := float64(len(matched)) / h.normalizer
	if conf > 1 {
		conf = 1
	}
	res := Result{
		Scam:       atLeast(conf, h.threshold),
		Confidence: conf,
		Matched:    matched,
		Category:   Categorize(text),
	}

	span.SetAttributes(
		attribute.Int("detector.hits", len(matched)),
		attribute.Float64("detector.confidence", conf),
		attribute.Bool("detector.scam", res.Scam),
	)
	return res
}

// atLeast compares confidences with a small tolerance so 3/10 is not
// rejected against a 0.30 threshold by float rounding.
func atLeast(v, threshold float64) bool {
	return v+epsilon >= threshold
}
