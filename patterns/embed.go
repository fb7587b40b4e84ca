// Package patterns provides embedded default recognizer definitions.
// YAML files in this directory use a Presidio-style recognizer format with
// honeypot extensions (group, providers, severity).
package patterns

import _ "embed"

//go:embed intel.yaml
var intelYAML []byte

//go:embed scam_keywords.yaml
var scamKeywordsYAML []byte

//go:embed injection.yaml
var injectionYAML []byte

//go:embed disclosure.yaml
var disclosureYAML []byte

// IntelYAML returns the embedded fraud-artifact recognizers (UPI ids, bank
// accounts, links, phone numbers).
func IntelYAML() []byte { return intelYAML }

// ScamKeywordsYAML returns the embedded scam keyword catalog.
func ScamKeywordsYAML() []byte { return scamKeywordsYAML }

// InjectionYAML returns the embedded prompt-injection recognizers.
func InjectionYAML() []byte { return injectionYAML }

// DisclosureYAML returns the embedded reply disclosure recognizers.
func DisclosureYAML() []byte { return disclosureYAML }
