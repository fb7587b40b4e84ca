// Package config holds the operator-level configuration of a honeypot
// process. Values come from HONEYPOT_* environment variables, an optional
// honeypot.config.yaml and the defaults below, merged by Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/cryptoutil"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/llm"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator"
)

// EnvPrefix prefixes every environment variable (data_dir -> HONEYPOT_DATA_DIR).
const EnvPrefix = "HONEYPOT"

// Viper keys.
const (
	KeyDataDir            = "data_dir"
	KeyListenAddr         = "listen_addr"
	KeyLLMProvider        = "llm_provider"
	KeyLLMAPIKey          = "llm_api_key"
	KeyLLMModel           = "llm_model"
	KeyLLMBaseURL         = "llm_base_url"
	KeyRatePerMinute      = "rate_per_minute"
	KeyRatePerDay         = "rate_per_day"
	KeyDetectionThreshold = "detection_threshold"
	KeyCallbackThreshold  = "callback_threshold"
	KeyMinExchanges       = "min_exchanges"
	KeyMaxMessages        = "max_messages"
	KeyHesitateAfter      = "hesitate_after"
	KeyMaxMessageChars    = "max_message_chars"
	KeyConfidencePolicy   = "confidence_policy"
	KeyOverlapPriority    = "overlap_priority"
	KeyCallbackURL        = "callback_url"
	KeyCallbackTimeout    = "callback_timeout"
	KeyCallbackSigningKey = "callback_signing_key"
	KeyOracleTimeout      = "oracle_timeout"
	KeyEndpointTimeout    = "endpoint_timeout"
	KeyAPIKeys            = "api_keys"
	KeyAPIKeysFile        = "api_keys_file"
	KeyAPIKeySalt         = "api_key_salt"
	KeyProtectedSecrets   = "protected_secrets"
	KeyIngressRPM         = "ingress_rpm"
	KeyCallerRPM          = "caller_rpm"
	KeyIPRPM              = "ip_rpm"
	KeyReplayTTL          = "replay_ttl"
	KeyTracing            = "tracing"
)

// Defaults.
const (
	DefaultListenAddr         = ":8000"
	DefaultLLMProvider        = "gemini"
	DefaultRatePerMinute      = 11
	DefaultRatePerDay         = 1125
	DefaultDetectionThreshold = 0.30
	DefaultCallbackThreshold  = 0.60
	DefaultMinExchanges       = 3
	DefaultMaxMessages        = 20
	DefaultHesitateAfter      = 15
	DefaultMaxMessageChars    = 2000
	DefaultCallbackTimeout    = 10 * time.Second
	DefaultOracleTimeout      = 8 * time.Second
	DefaultEndpointTimeout    = 25 * time.Second
	DefaultIngressRPM         = 600
	DefaultCallerRPM          = 120
	DefaultIPRPM              = 300
	DefaultReplayTTL          = 24 * time.Hour
)

// defaultModels is used when llm_model is unset.
var defaultModels = map[string]string{
	"gemini": llm.DefaultGeminiModel,
	"openai": "gpt-4o-mini",
	"ollama": "llama3.1",
}

// Config is the resolved process configuration.
type Config struct {
	DataDir    string
	ListenAddr string

	LLMProvider string
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string

	RatePerMinute int
	RatePerDay    int

	DetectionThreshold float64
	CallbackThreshold  float64
	MinExchanges       int
	MaxMessages        int
	HesitateAfter      int
	MaxMessageChars    int
	ConfidencePolicy   orchestrator.ConfidencePolicy
	OverlapPriority    []classifier.Category

	CallbackURL        string
	CallbackTimeout    time.Duration
	CallbackSigningKey string

	OracleTimeout   time.Duration
	EndpointTimeout time.Duration

	APIKeys          []string
	APIKeysFile      string
	APIKeySalt       string
	ProtectedSecrets []string

	IngressRPM int
	CallerRPM  int
	IPRPM      int
	ReplayTTL  time.Duration
	Tracing    bool
}

// SetDefaults registers defaults and env binding on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyListenAddr, DefaultListenAddr)
	v.SetDefault(KeyLLMProvider, DefaultLLMProvider)
	v.SetDefault(KeyRatePerMinute, DefaultRatePerMinute)
	v.SetDefault(KeyRatePerDay, DefaultRatePerDay)
	v.SetDefault(KeyDetectionThreshold, DefaultDetectionThreshold)
	v.SetDefault(KeyCallbackThreshold, DefaultCallbackThreshold)
	v.SetDefault(KeyMinExchanges, DefaultMinExchanges)
	v.SetDefault(KeyMaxMessages, DefaultMaxMessages)
	v.SetDefault(KeyHesitateAfter, DefaultHesitateAfter)
	v.SetDefault(KeyMaxMessageChars, DefaultMaxMessageChars)
	v.SetDefault(KeyConfidencePolicy, string(orchestrator.PolicyMax))
	v.SetDefault(KeyCallbackTimeout, DefaultCallbackTimeout)
	v.SetDefault(KeyOracleTimeout, DefaultOracleTimeout)
	v.SetDefault(KeyEndpointTimeout, DefaultEndpointTimeout)
	v.SetDefault(KeyIngressRPM, DefaultIngressRPM)
	v.SetDefault(KeyCallerRPM, DefaultCallerRPM)
	v.SetDefault(KeyIPRPM, DefaultIPRPM)
	v.SetDefault(KeyReplayTTL, DefaultReplayTTL)
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir:            resolveDataDir(v),
		ListenAddr:         v.GetString(KeyListenAddr),
		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLLMProvider))),
		LLMAPIKey:          v.GetString(KeyLLMAPIKey),
		LLMModel:           v.GetString(KeyLLMModel),
		LLMBaseURL:         v.GetString(KeyLLMBaseURL),
		RatePerMinute:      v.GetInt(KeyRatePerMinute),
		RatePerDay:         v.GetInt(KeyRatePerDay),
		DetectionThreshold: v.GetFloat64(KeyDetectionThreshold),
		CallbackThreshold:  v.GetFloat64(KeyCallbackThreshold),
		MinExchanges:       v.GetInt(KeyMinExchanges),
		MaxMessages:        v.GetInt(KeyMaxMessages),
		HesitateAfter:      v.GetInt(KeyHesitateAfter),
		MaxMessageChars:    v.GetInt(KeyMaxMessageChars),
		CallbackURL:        v.GetString(KeyCallbackURL),
		CallbackTimeout:    v.GetDuration(KeyCallbackTimeout),
		CallbackSigningKey: v.GetString(KeyCallbackSigningKey),
		OracleTimeout:      v.GetDuration(KeyOracleTimeout),
		EndpointTimeout:    v.GetDuration(KeyEndpointTimeout),
		APIKeys:            splitList(v.GetStringSlice(KeyAPIKeys)),
		APIKeysFile:        v.GetString(KeyAPIKeysFile),
		APIKeySalt:         v.GetString(KeyAPIKeySalt),
		ProtectedSecrets:   splitList(v.GetStringSlice(KeyProtectedSecrets)),
		IngressRPM:         v.GetInt(KeyIngressRPM),
		CallerRPM:          v.GetInt(KeyCallerRPM),
		IPRPM:              v.GetInt(KeyIPRPM),
		ReplayTTL:          v.GetDuration(KeyReplayTTL),
		Tracing:            v.GetBool(KeyTracing),
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModels[cfg.LLMProvider]
	}
	if cfg.APIKeysFile == "" {
		cfg.APIKeysFile = filepath.Join(cfg.DataDir, "api_keys.json")
	}

	policy, err := orchestrator.ParseConfidencePolicy(v.GetString(KeyConfidencePolicy))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ConfidencePolicy = policy

	for _, name := range splitList(v.GetStringSlice(KeyOverlapPriority)) {
		cat, err := classifier.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %s: %w", KeyOverlapPriority, err)
		}
		cfg.OverlapPriority = append(cfg.OverlapPriority, cat)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SessionDBPath is the SQLite file holding sessions.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "sessions.db")
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o700)
}

// Orchestrator returns the cycle thresholds.
func (c *Config) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		CallbackThreshold: c.CallbackThreshold,
		MinExchanges:      c.MinExchanges,
		MaxMessageChars:   c.MaxMessageChars,
		ConfidencePolicy:  c.ConfidencePolicy,
		EndpointTimeout:   c.EndpointTimeout,
		Persona: oracle.Persona{
			HesitateAfter: min(c.HesitateAfter, c.MaxMessages),
			MaxMessages:   c.MaxMessages,
		},
	}
}

func resolveDataDir(v *viper.Viper) string {
	if dir := v.GetString(KeyDataDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".honeypot"
	}
	return filepath.Join(home, ".honeypot")
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) validate() error {
	var errs []error
	switch c.LLMProvider {
	case "", "none", "ollama":
	case "gemini", "openai":
		if c.LLMAPIKey == "" {
			errs = append(errs, fmt.Errorf("%s is required for provider %q (set HONEYPOT_LLM_API_KEY or llm_provider: none)", KeyLLMAPIKey, c.LLMProvider))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be gemini, openai, ollama or none (got %q)", KeyLLMProvider, c.LLMProvider))
	}
	if c.RatePerMinute < 0 || c.RatePerDay < 0 {
		errs = append(errs, errors.New("rate_per_minute and rate_per_day must not be negative"))
	}
	if c.DetectionThreshold <= 0 || c.DetectionThreshold > 1 {
		errs = append(errs, fmt.Errorf("%s must be in (0, 1] (got %g)", KeyDetectionThreshold, c.DetectionThreshold))
	}
	if c.CallbackThreshold <= 0 || c.CallbackThreshold > 1 {
		errs = append(errs, fmt.Errorf("%s must be in (0, 1] (got %g)", KeyCallbackThreshold, c.CallbackThreshold))
	}
	if c.MinExchanges < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", KeyMinExchanges))
	}
	if c.MaxMessages < 2 {
		errs = append(errs, fmt.Errorf("%s must be at least 2", KeyMaxMessages))
	}
	if c.MaxMessageChars < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyMaxMessageChars))
	}
	if c.CallbackSigningKey != "" {
		if _, err := cryptoutil.ResolveKey(c.CallbackSigningKey, 32); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", KeyCallbackSigningKey, err))
		}
	}
	if c.CallbackTimeout <= 0 || c.OracleTimeout <= 0 || c.EndpointTimeout <= 0 {
		errs = append(errs, errors.New("callback_timeout, oracle_timeout and endpoint_timeout must be positive"))
	}
	if c.IngressRPM < 1 || c.CallerRPM < 1 {
		errs = append(errs, errors.New("ingress_rpm and caller_rpm must be positive"))
	}
	if c.IPRPM < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyIPRPM))
	}
	if c.APIKeySalt != "" && len(c.APIKeySalt) < 16 {
		errs = append(errs, fmt.Errorf("%s must be at least 16 bytes", KeyAPIKeySalt))
	}
	return errors.Join(errs...)
}
