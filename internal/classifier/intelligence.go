package classifier

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Category names one bucket of extracted intelligence.
type Category string

const (
	CategoryUPI          Category = "upi_id"
	CategoryBankAccount  Category = "bank_account"
	CategoryPhishingLink Category = "phishing_link"
	CategoryPhoneNumber  Category = "phone_number"
	CategoryKeyword      Category = "suspicious_keyword"
)

// ArtifactCategories are the actionable categories. Keywords are collected
// alongside them but do not count as reportable intelligence on their own.
var ArtifactCategories = []Category{
	CategoryBankAccount,
	CategoryUPI,
	CategoryPhishingLink,
	CategoryPhoneNumber,
}

var allCategories = []Category{
	CategoryBankAccount,
	CategoryUPI,
	CategoryPhishingLink,
	CategoryPhoneNumber,
	CategoryKeyword,
}

// Categories returns every category, keywords last.
func Categories() []Category {
	return append([]Category(nil), allCategories...)
}

// ParseCategory validates a category name from configuration.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(strings.ToLower(s)))
	switch c {
	case CategoryUPI, CategoryBankAccount, CategoryPhishingLink, CategoryPhoneNumber, CategoryKeyword:
		return c, nil
	}
	return "", fmt.Errorf("unknown intelligence category %q", s)
}

// Intelligence is a set of normalized fraud artifacts. Each slice is kept
// sorted and duplicate-free; the set only grows.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

func (in *Intelligence) bucket(c Category) *[]string {
	switch c {
	case CategoryBankAccount:
		return &in.BankAccounts
	case CategoryUPI:
		return &in.UPIIDs
	case CategoryPhishingLink:
		return &in.PhishingLinks
	case CategoryPhoneNumber:
		return &in.PhoneNumbers
	case CategoryKeyword:
		return &in.SuspiciousKeywords
	}
	return nil
}

// Add normalizes value for category c and inserts it. It reports whether the
// set changed; values that fail normalization are dropped.
func (in *Intelligence) Add(c Category, value string) bool {
	b := in.bucket(c)
	if b == nil {
		return false
	}
	v, ok := Normalize(c, value)
	if !ok {
		return false
	}
	i := sort.SearchStrings(*b, v)
	if i < len(*b) && (*b)[i] == v {
		return false
	}
	*b = append(*b, "")
	copy((*b)[i+1:], (*b)[i:])
	(*b)[i] = v
	return true
}

// Merge unions other into in and returns the number of new members.
func (in *Intelligence) Merge(other Intelligence) int {
	added := 0
	for _, c := range allCategories {
		for _, v := range other.Items(c) {
			if in.Add(c, v) {
				added++
			}
		}
	}
	return added
}

// Items returns the members of one category.
func (in Intelligence) Items(c Category) []string {
	if b := in.bucket(c); b != nil {
		return *b
	}
	return nil
}

// HasData reports whether any actionable artifact has been collected.
func (in Intelligence) HasData() bool {
	for _, c := range ArtifactCategories {
		if len(in.Items(c)) > 0 {
			return true
		}
	}
	return false
}

// Len counts members across all categories.
func (in Intelligence) Len() int {
	n := len(in.SuspiciousKeywords)
	for _, c := range ArtifactCategories {
		n += len(in.Items(c))
	}
	return n
}

// Clone returns a deep copy.
func (in Intelligence) Clone() Intelligence {
	return Intelligence{
		BankAccounts:       cloneStrings(in.BankAccounts),
		UPIIDs:             cloneStrings(in.UPIIDs),
		PhishingLinks:      cloneStrings(in.PhishingLinks),
		PhoneNumbers:       cloneStrings(in.PhoneNumbers),
		SuspiciousKeywords: cloneStrings(in.SuspiciousKeywords),
	}
}

// MarshalJSON emits empty arrays instead of null for absent categories.
func (in Intelligence) MarshalJSON() ([]byte, error) {
	type plain Intelligence
	out := plain(in.Clone())
	for _, b := range []*[]string{&out.BankAccounts, &out.UPIIDs, &out.PhishingLinks, &out.PhoneNumbers, &out.SuspiciousKeywords} {
		if *b == nil {
			*b = []string{}
		}
	}
	return json.Marshal(out)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

const trailingPunct = ".,;:!?)]}>'\""

// Normalize canonicalizes a raw artifact. Phone numbers reduce to the
// 10-digit subscriber number; bank accounts to their digits; everything else
// is trimmed and case-folded.
func Normalize(c Category, raw string) (string, bool) {
	if !utf8.ValidString(raw) {
		return "", false
	}
	v := strings.ToLower(strings.TrimSpace(raw))
	switch c {
	case CategoryPhoneNumber:
		d := digitsOnly(v)
		switch {
		case len(d) == 12 && strings.HasPrefix(d, "91"):
			d = d[2:]
		case len(d) == 11 && strings.HasPrefix(d, "0"):
			d = d[1:]
		}
		if len(d) != 10 || d[0] < '6' {
			return "", false
		}
		return d, true
	case CategoryBankAccount:
		d := digitsOnly(v)
		if len(d) < 9 || len(d) > 18 || len(d) != len(strings.NewReplacer(" ", "", "-", "").Replace(v)) {
			return "", false
		}
		return d, true
	case CategoryUPI:
		v = strings.TrimRight(v, trailingPunct)
		at := strings.IndexByte(v, '@')
		if at < 1 || at == len(v)-1 || strings.Count(v, "@") != 1 {
			return "", false
		}
		return v, true
	case CategoryPhishingLink:
		v = strings.TrimRight(v, trailingPunct)
		if len(v) < 4 || strings.ContainsAny(v, " \t\n") {
			return "", false
		}
		return v, true
	case CategoryKeyword:
		v = strings.Join(strings.Fields(v), " ")
		return v, v != ""
	}
	return "", false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
