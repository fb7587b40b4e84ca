// Package doctor runs preflight checks for a honeypot deployment. Used by
// `honeypot doctor`.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/auth"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/config"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

// Check statuses, ordered by severity.
const (
	StatusPass = "pass"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// CheckResult is a single doctor check outcome.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Summary tallies pass/warn/fail counts.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// Report is the complete doctor output.
type Report struct {
	Status  string        `json:"status"` // worst of all checks
	Checks  []CheckResult `json:"checks"`
	Summary Summary       `json:"summary"`
}

// Options controls which check categories run.
type Options struct {
	// SkipUpstream skips network checks of the collector and LLM endpoint.
	SkipUpstream bool
	// HTTPClient is used for upstream checks. Defaults to a 5s client.
	HTTPClient *http.Client
}

// Run executes all checks against cfg and returns a report.
func Run(ctx context.Context, cfg *config.Config, opts Options) *Report {
	report := &Report{}

	report.Checks = append(report.Checks, checkDataDir(cfg))
	report.Checks = append(report.Checks, checkSessionDB(ctx, cfg))
	report.Checks = append(report.Checks, checkLLM(cfg), checkBudget(cfg))
	report.Checks = append(report.Checks, checkAPIKeys(cfg))
	report.Checks = append(report.Checks, checkCallback(cfg)...)
	if !opts.SkipUpstream {
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 5 * time.Second}
		}
		if cfg.CallbackURL != "" {
			report.Checks = append(report.Checks, checkUpstream(ctx, client, "callback", cfg.CallbackURL))
		}
		if cfg.LLMBaseURL != "" {
			report.Checks = append(report.Checks, checkUpstream(ctx, client, "llm", cfg.LLMBaseURL))
		}
	}
	report.tally()
	return report
}

func (r *Report) tally() {
	r.Summary = Summary{}
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPass:
			r.Summary.Pass++
		case StatusWarn:
			r.Summary.Warn++
		case StatusFail:
			r.Summary.Fail++
		}
	}
	r.Status = StatusPass
	if r.Summary.Warn > 0 {
		r.Status = StatusWarn
	}
	if r.Summary.Fail > 0 {
		r.Status = StatusFail
	}
}

func checkDataDir(cfg *config.Config) CheckResult {
	if err := cfg.EnsureDataDir(); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "storage", Status: StatusFail,
			Message: fmt.Sprintf("%s: %v", cfg.DataDir, err),
			Fix:     "Ensure the directory exists and is writable (HONEYPOT_DATA_DIR)",
		}
	}
	testFile := filepath.Join(cfg.DataDir, ".doctor-write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Name: "data_dir_writable", Category: "storage", Status: StatusFail,
			Message: fmt.Sprintf("%s not writable: %v", cfg.DataDir, err),
		}
	}
	_ = os.Remove(testFile)
	return CheckResult{
		Name: "data_dir_writable", Category: "storage", Status: StatusPass,
		Message: fmt.Sprintf("%s (writable)", cfg.DataDir),
	}
}

func checkSessionDB(ctx context.Context, cfg *config.Config) CheckResult {
	store, err := session.NewSQLiteStore(cfg.SessionDBPath())
	if err != nil {
		return CheckResult{
			Name: "session_db", Category: "storage", Status: StatusFail,
			Message: err.Error(),
		}
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return CheckResult{
			Name: "session_db", Category: "storage", Status: StatusFail,
			Message: fmt.Sprintf("ping: %v", err),
		}
	}
	msg := cfg.SessionDBPath()
	if fi, err := os.Stat(cfg.SessionDBPath()); err == nil {
		msg = fmt.Sprintf("%s (%.1f MB)", msg, float64(fi.Size())/(1024*1024))
	}
	return CheckResult{Name: "session_db", Category: "storage", Status: StatusPass, Message: msg}
}

func checkLLM(cfg *config.Config) CheckResult {
	switch cfg.LLMProvider {
	case "", "none":
		return CheckResult{
			Name: "llm_provider", Category: "oracle", Status: StatusWarn,
			Message: "No provider; replies and scoring use deterministic fallbacks",
			Fix:     "Set HONEYPOT_LLM_PROVIDER and HONEYPOT_LLM_API_KEY",
		}
	}
	return CheckResult{
		Name: "llm_provider", Category: "oracle", Status: StatusPass,
		Message: fmt.Sprintf("%s (model %s)", cfg.LLMProvider, cfg.LLMModel),
	}
}

func checkBudget(cfg *config.Config) CheckResult {
	if cfg.RatePerMinute <= 0 || cfg.RatePerDay <= 0 {
		return CheckResult{
			Name: "oracle_budget", Category: "oracle", Status: StatusWarn,
			Message: "Budget is zero; every oracle call is refused",
			Fix:     "Set rate_per_minute and rate_per_day above zero",
		}
	}
	return CheckResult{
		Name: "oracle_budget", Category: "oracle", Status: StatusPass,
		Message: fmt.Sprintf("%d/min, %d/day", cfg.RatePerMinute, cfg.RatePerDay),
	}
}

func checkAPIKeys(cfg *config.Config) CheckResult {
	managed := 0
	if cfg.APIKeySalt != "" {
		ks, err := auth.OpenKeyStore(cfg.APIKeysFile, cfg.APIKeySalt)
		if err != nil {
			return CheckResult{
				Name: "api_keys", Category: "auth", Status: StatusFail,
				Message: err.Error(),
				Fix:     "Check api_keys_file and api_key_salt",
			}
		}
		for _, r := range ks.List() {
			if !r.Revoked {
				managed++
			}
		}
	}
	if managed == 0 && len(cfg.APIKeys) == 0 {
		return CheckResult{
			Name: "api_keys", Category: "auth", Status: StatusFail,
			Message: "No API keys; every message request will get 401",
			Fix:     "Run: honeypot keys create <name>, or set HONEYPOT_API_KEYS",
		}
	}
	return CheckResult{
		Name: "api_keys", Category: "auth", Status: StatusPass,
		Message: fmt.Sprintf("%d static, %d managed", len(cfg.APIKeys), managed),
	}
}

func checkCallback(cfg *config.Config) []CheckResult {
	if cfg.CallbackURL == "" {
		return []CheckResult{{
			Name: "callback_url", Category: "callback", Status: StatusWarn,
			Message: "Not set; confirmed sessions will not be reported",
			Fix:     "Set HONEYPOT_CALLBACK_URL",
		}}
	}
	results := []CheckResult{{
		Name: "callback_url", Category: "callback", Status: StatusPass, Message: cfg.CallbackURL,
	}}
	if cfg.CallbackSigningKey == "" {
		results = append(results, CheckResult{
			Name: "callback_signing", Category: "callback", Status: StatusWarn,
			Message: "Reports are sent unsigned",
			Fix:     "Set HONEYPOT_CALLBACK_SIGNING_KEY (32+ bytes or 64 hex chars)",
		})
	} else {
		results = append(results, CheckResult{
			Name: "callback_signing", Category: "callback", Status: StatusPass, Message: "Configured",
		})
	}
	return results
}

func checkUpstream(ctx context.Context, client *http.Client, name, url string) CheckResult {
	check := "upstream_" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return CheckResult{
			Name: check, Category: "network", Status: StatusFail,
			Message: fmt.Sprintf("Invalid URL: %v", err),
		}
	}
	start := time.Now()
	resp, err := client.Do(req) //nolint:gosec // URL from operator config
	latency := time.Since(start)
	if err != nil {
		return CheckResult{
			Name: check, Category: "network", Status: StatusFail,
			Message: fmt.Sprintf("Connection failed: %v", err),
			Fix:     "Check network connectivity and the configured URL",
		}
	}
	resp.Body.Close()

	status := StatusPass
	if resp.StatusCode >= 500 || latency > 2*time.Second {
		status = StatusWarn
	}
	return CheckResult{
		Name: check, Category: "network", Status: status,
		Message: fmt.Sprintf("%s: %d in %dms", url, resp.StatusCode, latency.Milliseconds()),
	}
}
