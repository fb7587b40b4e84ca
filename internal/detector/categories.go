package detector

import "regexp"

// Scam categories, most specific first.
const (
	CategoryFinancialPhishing = "financial_phishing"
	CategoryPrize             = "prize_scam"
	CategoryOTP               = "otp_scam"
	CategoryAccountThreat     = "account_threat"
	CategoryPhishingLink      = "phishing_link"
	CategoryGeneral           = "general_scam"
)

var categoryRules = []struct {
	name string
	re   *regexp.Regexp
}{
	{CategoryFinancialPhishing, regexp.MustCompile(`(?i)\bupi\b|\baccount\b.*\bnumber\b|\bbank\b.*\bdetails?\b|\bifsc\b`)},
	{CategoryPrize, regexp.MustCompile(`(?i)\bprize\b|\bwinner\b|\blottery\b|\bwon\b|\bcashback\b`)},
	{CategoryOTP, regexp.MustCompile(`(?i)\botp\b|\bverify\b|\bconfirm\b`)},
	{CategoryAccountThreat, regexp.MustCompile(`(?i)\baccount\b.*\bblock|\bsuspend|\bdeactivat`)},
	{CategoryPhishingLink, regexp.MustCompile(`(?i)\bclick\b.*\blink\b|\bbit\.ly\b|\btinyurl\b|https?://`)},
}

// Categorize returns the first matching scam category for text, or
// CategoryGeneral.
func Categorize(text string) string {
	for _, r := range categoryRules {
		if r.re.MatchString(text) {
			return r.name
		}
	}
	return CategoryGeneral
}

// MoreSpecific reports whether candidate should replace current as a
// session's primary category. A specific category replaces the general one
// but never another specific one.
func MoreSpecific(current, candidate string) bool {
	if candidate == "" || candidate == current {
		return false
	}
	return current == "" || (current == CategoryGeneral && candidate != CategoryGeneral)
}
