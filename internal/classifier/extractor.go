package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
)

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier")

// DefaultPriority breaks ties between equally long overlapping matches.
// Earlier categories win.
var DefaultPriority = []Category{
	CategoryPhishingLink,
	CategoryUPI,
	CategoryPhoneNumber,
	CategoryBankAccount,
}

// Secondary is an additional recognizer (typically AI-backed) whose output is
// merged into the pattern-based result. ok=false means it had no opinion.
type Secondary interface {
	Entities(ctx context.Context, text string) (Intelligence, bool)
}

// Extractor finds fraud artifacts in free text using compiled recognizers.
// It is safe for concurrent use.
type Extractor struct {
	patterns  []entityPattern
	providers map[string]bool
	rank      map[Category]int
}

// ExtractorOption configures an Extractor via the functional options pattern.
type ExtractorOption func(*extractorConfig)

type extractorConfig struct {
	patternFile       string
	disabledEntities  []string
	customRecognizers []RecognizerConfig
	priority          []Category
}

// WithPatternFile layers recognizers from a YAML file over the embedded
// defaults. A missing file is skipped.
func WithPatternFile(path string) ExtractorOption {
	return func(c *extractorConfig) { c.patternFile = path }
}

// WithDisabledEntities turns off recognizers for the given entities
// (e.g. "BANK_ACCOUNT").
func WithDisabledEntities(entities []string) ExtractorOption {
	return func(c *extractorConfig) { c.disabledEntities = entities }
}

// WithCustomRecognizers adds or overrides recognizers by name.
func WithCustomRecognizers(recognizers []RecognizerConfig) ExtractorOption {
	return func(c *extractorConfig) { c.customRecognizers = recognizers }
}

// WithPriority sets the overlap tie-break order. Categories left out rank
// after the listed ones in DefaultPriority order.
func WithPriority(order []Category) ExtractorOption {
	return func(c *extractorConfig) { c.priority = order }
}

// NewExtractor builds an extractor from the embedded recognizers plus any
// overrides supplied through options.
func NewExtractor(opts ...ExtractorOption) (*Extractor, error) {
	var cfg extractorConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	var fileRecs []*RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if rf != nil {
			fileRecs = toPtrSlice(rf.Recognizers)
		}
	}

	merged := MergeRecognizers(toPtrSlice(defaults), fileRecs, toPtrSlice(cfg.customRecognizers))
	merged = FilterByEntities(merged, cfg.disabledEntities)

	compiled, providers, err := compileRecognizers(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	return &Extractor{
		patterns:  compiled,
		providers: providers,
		rank:      buildRank(cfg.priority),
	}, nil
}

// MustNewExtractor is NewExtractor that panics on error. Only for tests and
// embedded defaults known to compile.
func MustNewExtractor(opts ...ExtractorOption) *Extractor {
	e, err := NewExtractor(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func buildRank(order []Category) map[Category]int {
	rank := make(map[Category]int, len(DefaultPriority))
	for _, c := range order {
		if _, seen := rank[c]; !seen {
			rank[c] = len(rank)
		}
	}
	for _, c := range DefaultPriority {
		if _, seen := rank[c]; !seen {
			rank[c] = len(rank)
		}
	}
	return rank
}

type match struct {
	category Category
	start    int
	end      int
	value    string
}

// Extract returns the artifacts found in text. Invalid UTF-8 is replaced
// before matching; candidates that fail normalization are dropped.
func (e *Extractor) Extract(ctx context.Context, text string) Intelligence {
	_, span := tracer.Start(ctx, "classifier.extract")
	defer span.End()

	text = strings.ToValidUTF8(text, " ")
	accepted := e.resolve(e.candidates(text))

	var out Intelligence
	for _, s := range accepted {
		out.Add(s.category, s.value)
	}

	span.SetAttributes(
		attribute.Int("classifier.input_length", len(text)),
		attribute.Int("classifier.candidates", len(accepted)),
		attribute.Int("classifier.entities", out.Len()),
	)
	return out
}

// ExtractWith runs Extract and merges the secondary recognizer's output when
// it has an opinion. The secondary runs on the same text.
func (e *Extractor) ExtractWith(ctx context.Context, text string, secondary Secondary) Intelligence {
	out := e.Extract(ctx, text)
	if secondary == nil {
		return out
	}
	if extra, ok := secondary.Entities(ctx, text); ok {
		out.Merge(extra)
	}
	return out
}

func (e *Extractor) candidates(text string) []match {
	var found []match
	for _, p := range e.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			raw := text[start:end]
			switch p.category {
			case CategoryPhishingLink, CategoryUPI:
				trimmed := strings.TrimRight(raw, trailingPunct)
				end -= len(raw) - len(trimmed)
				raw = trimmed
			}
			if p.category == CategoryUPI && (!e.knownProvider(raw) || emailDomainFollows(text, end)) {
				continue
			}
			if p.deny[strings.ToLower(raw)] {
				continue
			}
			if end <= start {
				continue
			}
			found = append(found, match{category: p.category, start: start, end: end, value: raw})
		}
	}
	return found
}

// emailDomainFollows reports whether a handle continues as an email domain
// ("name@okaxis.com"), which is not a UPI id.
func emailDomainFollows(text string, end int) bool {
	if end+1 >= len(text) || text[end] != '.' {
		return false
	}
	c := text[end+1]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (e *Extractor) knownProvider(handle string) bool {
	if len(e.providers) == 0 {
		return true
	}
	at := strings.LastIndexByte(handle, '@')
	if at < 0 {
		return false
	}
	return e.providers[strings.ToLower(handle[at+1:])]
}

// resolve keeps a non-overlapping subset: longer spans first, then category
// rank, then leftmost.
func (e *Extractor) resolve(found []match) []match {
	sort.SliceStable(found, func(i, j int) bool {
		li, lj := found[i].end-found[i].start, found[j].end-found[j].start
		if li != lj {
			return li > lj
		}
		ri, rj := e.rank[found[i].category], e.rank[found[j].category]
		if ri != rj {
			return ri < rj
		}
		return found[i].start < found[j].start
	})

	var kept []match
	for _, s := range found {
		overlaps := false
		for _, k := range kept {
			if s.start < k.end && k.start < s.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, s)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}
