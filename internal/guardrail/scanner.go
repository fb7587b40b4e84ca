package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/guardrail")

// PatternFile is the YAML layout of injection.yaml and disclosure.yaml.
type PatternFile struct {
	Patterns []PatternConfig `yaml:"patterns"`
}

// PatternConfig is one named regex with a 1-3 severity.
type PatternConfig struct {
	Name      string `yaml:"name"`
	Pattern   string `yaml:"pattern"`
	Severity  int    `yaml:"severity"`
	Violation string `yaml:"violation,omitempty"`
}

// Pattern is a compiled PatternConfig.
type Pattern struct {
	Name      string
	Violation string
	Severity  int
	re        *regexp.Regexp
}

// CompilePatterns parses pattern YAML and compiles every entry.
func CompilePatterns(data []byte) ([]Pattern, error) {
	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing pattern YAML: %w", err)
	}
	out := make([]Pattern, 0, len(pf.Patterns))
	for _, p := range pf.Patterns {
		if p.Name == "" {
			return nil, fmt.Errorf("pattern %q: missing name", p.Pattern)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p.Name, err)
		}
		v := p.Violation
		if v == "" {
			v = p.Name
		}
		out = append(out, Pattern{Name: p.Name, Violation: v, Severity: p.Severity, re: re})
	}
	return out, nil
}

// Finding is one pattern match inside scanned text.
type Finding struct {
	Pattern   string `json:"pattern"`
	Violation string `json:"violation"`
	Position  int    `json:"position"`
	Severity  int    `json:"severity"`
	// Context is the sentence containing the match.
	Context string `json:"context"`
}

// ScanResult lists every finding in a text.
type ScanResult struct {
	Findings    []Finding `json:"findings"`
	MaxSeverity int       `json:"max_severity"`
	Safe        bool      `json:"safe"`
}

// Scanner matches text against a compiled pattern set.
type Scanner struct {
	name     string
	patterns []Pattern
}

// NewScanner creates a scanner. name labels its spans.
func NewScanner(name string, patterns []Pattern) *Scanner {
	return &Scanner{name: name, patterns: patterns}
}

// Scan reports every match of every pattern in text.
func (s *Scanner) Scan(ctx context.Context, text string) *ScanResult {
	_, span := tracer.Start(ctx, "guardrail.scan."+s.name)
	defer span.End()

	result := &ScanResult{Findings: []Finding{}, Safe: true}
	for _, p := range s.patterns {
		for _, m := range p.re.FindAllStringIndex(text, -1) {
			result.Findings = append(result.Findings, Finding{
				Pattern:   p.Name,
				Violation: p.Violation,
				Position:  m[0],
				Severity:  p.Severity,
				Context:   sentenceAround(text, m[0], m[1]),
			})
			result.MaxSeverity = max(result.MaxSeverity, p.Severity)
			result.Safe = false
		}
	}

	span.SetAttributes(
		attribute.Int("guardrail.findings", len(result.Findings)),
		attribute.Int("guardrail.max_severity", result.MaxSeverity),
	)
	return result
}

const sentenceEnds = ".!?\n"

// sentenceAround widens [start,end) to the enclosing sentence.
func sentenceAround(text string, start, end int) string {
	from := strings.LastIndexAny(text[:start], sentenceEnds) + 1
	to := len(text)
	if i := strings.IndexAny(text[end:], sentenceEnds); i >= 0 {
		to = end + i
	}
	return strings.TrimSpace(text[from:to])
}
