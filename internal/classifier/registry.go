package classifier

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/patterns"
)

// RecognizerFile is the top-level YAML structure for a recognizer config file.
// Mirrors Presidio's recognizer registry YAML format.
type RecognizerFile struct {
	Recognizers []RecognizerConfig `yaml:"recognizers"`
}

// RecognizerConfig mirrors Presidio's YAML recognizer schema with honeypot
// extensions.
type RecognizerConfig struct {
	Name            string          `yaml:"name" json:"name"`
	SupportedEntity string          `yaml:"supported_entity" json:"supported_entity"`
	Enabled         *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns        []PatternConfig `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	DenyList        []string        `yaml:"deny_list,omitempty" json:"deny_list,omitempty"`
	// Providers restricts UPI_ID matches to handles whose suffix after '@'
	// is a known payment provider alias. Ignored for other entities.
	Providers []string `yaml:"providers,omitempty" json:"providers,omitempty"`
}

// PatternConfig is a single regex pattern within a recognizer.
type PatternConfig struct {
	Name  string  `yaml:"name" json:"name"`
	Regex string  `yaml:"regex" json:"regex"`
	Score float64 `yaml:"score" json:"score"`
}

// isEnabled returns true if the recognizer is enabled (defaults to true when nil).
func (r *RecognizerConfig) isEnabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// ParseRecognizerFile parses recognizer YAML bytes into a RecognizerFile.
func ParseRecognizerFile(data []byte) (*RecognizerFile, error) {
	var rf RecognizerFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recognizer YAML: %w", err)
	}
	return &rf, nil
}

// LoadRecognizerFile reads and parses a recognizer YAML file from disk.
// Returns nil (not an error) if the file does not exist, so a missing
// override file is a no-op.
func LoadRecognizerFile(path string) (*RecognizerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recognizer file %s: %w", path, err)
	}
	return ParseRecognizerFile(data)
}

// DefaultRecognizers returns the embedded fraud-artifact recognizers.
func DefaultRecognizers() ([]RecognizerConfig, error) {
	rf, err := ParseRecognizerFile(patterns.IntelYAML())
	if err != nil {
		return nil, err
	}
	return rf.Recognizers, nil
}

// MergeRecognizers layers recognizer lists: later layers override earlier
// ones by matching on Name. New recognizers are appended.
func MergeRecognizers(layers ...[]*RecognizerConfig) []RecognizerConfig {
	index := make(map[string]int)
	var merged []RecognizerConfig

	for _, layer := range layers {
		for _, rc := range layer {
			if rc == nil {
				continue
			}
			if idx, exists := index[rc.Name]; exists {
				merged[idx] = *rc
			} else {
				index[rc.Name] = len(merged)
				merged = append(merged, *rc)
			}
		}
	}

	return merged
}

func toPtrSlice(configs []RecognizerConfig) []*RecognizerConfig {
	ptrs := make([]*RecognizerConfig, len(configs))
	for i := range configs {
		ptrs[i] = &configs[i]
	}
	return ptrs
}

// FilterByEntities drops recognizers whose supported_entity is disabled.
func FilterByEntities(recognizers []RecognizerConfig, disabledEntities []string) []RecognizerConfig {
	if len(disabledEntities) == 0 {
		return recognizers
	}
	blocked := make(map[string]bool, len(disabledEntities))
	for _, e := range disabledEntities {
		blocked[e] = true
	}
	var filtered []RecognizerConfig
	for _, r := range recognizers {
		if !blocked[r.SupportedEntity] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// entityPattern is one compiled regex bound to the category it extracts.
type entityPattern struct {
	recognizer string
	category   Category
	re         *regexp.Regexp
	deny       map[string]bool
}

// compileRecognizers turns recognizer configs into runtime patterns and the
// merged UPI provider allow-list. Unknown entities are rejected so a typo in
// an override file fails loudly at startup.
func compileRecognizers(recognizers []RecognizerConfig) ([]entityPattern, map[string]bool, error) {
	var compiled []entityPattern
	providers := make(map[string]bool)

	for _, rec := range recognizers {
		if !rec.isEnabled() {
			continue
		}
		cat, ok := entityCategory[rec.SupportedEntity]
		if !ok {
			return nil, nil, fmt.Errorf("recognizer %q: unsupported entity %q", rec.Name, rec.SupportedEntity)
		}
		var deny map[string]bool
		if len(rec.DenyList) > 0 {
			deny = make(map[string]bool, len(rec.DenyList))
			for _, d := range rec.DenyList {
				deny[strings.ToLower(strings.TrimSpace(d))] = true
			}
		}
		if cat == CategoryUPI {
			for _, p := range rec.Providers {
				providers[strings.ToLower(strings.TrimSpace(p))] = true
			}
		}
		for _, p := range rec.Patterns {
			re, err := regexp.Compile(p.Regex)
			if err != nil {
				return nil, nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", p.Name, rec.Name, err)
			}
			compiled = append(compiled, entityPattern{
				recognizer: rec.Name,
				category:   cat,
				re:         re,
				deny:       deny,
			})
		}
	}

	return compiled, providers, nil
}

// entityCategory maps Presidio-style entity names to intelligence categories.
var entityCategory = map[string]Category{
	"UPI_ID":       CategoryUPI,
	"BANK_ACCOUNT": CategoryBankAccount,
	"URL":          CategoryPhishingLink,
	"PHONE_NUMBER": CategoryPhoneNumber,
}
