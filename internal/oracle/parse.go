package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
)

type assessPayload struct {
	IsScam     *bool    `json:"is_scam"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

type entitiesPayload struct {
	UPIIDs        []string `json:"upiIds"`
	BankAccounts  []string `json:"bankAccounts"`
	PhishingLinks []string `json:"phishingLinks"`
	PhoneNumbers  []string `json:"phoneNumbers"`
}

// jsonObject strips markdown fences and surrounding prose, returning the
// outermost {...} span.
func jsonObject(out string) (string, bool) {
	start := strings.IndexByte(out, '{')
	end := strings.LastIndexByte(out, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return out[start : end+1], true
}

func parseAssessment(out string) (scam bool, confidence float64, reason string, err error) {
	obj, ok := jsonObject(out)
	if !ok {
		return false, 0, "", fmt.Errorf("%w: no json object", ErrMalformedOutput)
	}
	var p assessPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return false, 0, "", fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if p.IsScam == nil || p.Confidence == nil {
		return false, 0, "", fmt.Errorf("%w: missing is_scam or confidence", ErrMalformedOutput)
	}
	return *p.IsScam, clamp01(*p.Confidence), strings.TrimSpace(p.Reason), nil
}

func parseEntities(out string) (classifier.Intelligence, error) {
	obj, ok := jsonObject(out)
	if !ok {
		return classifier.Intelligence{}, fmt.Errorf("%w: no json object", ErrMalformedOutput)
	}
	var p entitiesPayload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return classifier.Intelligence{}, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	var in classifier.Intelligence
	for cat, values := range map[classifier.Category][]string{
		classifier.CategoryUPI:          p.UPIIDs,
		classifier.CategoryBankAccount:  p.BankAccounts,
		classifier.CategoryPhishingLink: p.PhishingLinks,
		classifier.CategoryPhoneNumber:  p.PhoneNumbers,
	} {
		for _, v := range values {
			in.Add(cat, v)
		}
	}
	return in, nil
}
