package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect honeypot configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration with secrets masked",
	RunE:  configShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// shownConfig is the printable view of a Config.
type shownConfig struct {
	DataDir    string `yaml:"data_dir"`
	SessionDB  string `yaml:"session_db"`
	ListenAddr string `yaml:"listen_addr"`

	LLMProvider string `yaml:"llm_provider"`
	LLMModel    string `yaml:"llm_model"`
	LLMAPIKey   string `yaml:"llm_api_key"`
	LLMBaseURL  string `yaml:"llm_base_url,omitempty"`

	RatePerMinute int `yaml:"rate_per_minute"`
	RatePerDay    int `yaml:"rate_per_day"`

	DetectionThreshold float64  `yaml:"detection_threshold"`
	CallbackThreshold  float64  `yaml:"callback_threshold"`
	MinExchanges       int      `yaml:"min_exchanges"`
	MaxMessages        int      `yaml:"max_messages"`
	HesitateAfter      int      `yaml:"hesitate_after"`
	MaxMessageChars    int      `yaml:"max_message_chars"`
	ConfidencePolicy   string   `yaml:"confidence_policy"`
	OverlapPriority    []string `yaml:"overlap_priority,omitempty"`

	CallbackURL        string `yaml:"callback_url"`
	CallbackTimeout    string `yaml:"callback_timeout"`
	CallbackSigningKey string `yaml:"callback_signing_key"`
	OracleTimeout      string `yaml:"oracle_timeout"`
	EndpointTimeout    string `yaml:"endpoint_timeout"`

	StaticAPIKeys    int    `yaml:"static_api_keys"`
	APIKeysFile      string `yaml:"api_keys_file"`
	APIKeySalt       string `yaml:"api_key_salt"`
	ProtectedSecrets int    `yaml:"protected_secrets"`

	IngressRPM int    `yaml:"ingress_rpm"`
	CallerRPM  int    `yaml:"caller_rpm"`
	IPRPM      int    `yaml:"ip_rpm"`
	ReplayTTL  string `yaml:"replay_ttl"`
	Tracing    bool   `yaml:"tracing"`
}

func showConfig(cfg *config.Config) shownConfig {
	s := shownConfig{
		DataDir:            cfg.DataDir,
		SessionDB:          cfg.SessionDBPath(),
		ListenAddr:         cfg.ListenAddr,
		LLMProvider:        cfg.LLMProvider,
		LLMModel:           cfg.LLMModel,
		LLMAPIKey:          mask(cfg.LLMAPIKey),
		LLMBaseURL:         cfg.LLMBaseURL,
		RatePerMinute:      cfg.RatePerMinute,
		RatePerDay:         cfg.RatePerDay,
		DetectionThreshold: cfg.DetectionThreshold,
		CallbackThreshold:  cfg.CallbackThreshold,
		MinExchanges:       cfg.MinExchanges,
		MaxMessages:        cfg.MaxMessages,
		HesitateAfter:      cfg.HesitateAfter,
		MaxMessageChars:    cfg.MaxMessageChars,
		ConfidencePolicy:   string(cfg.ConfidencePolicy),
		CallbackURL:        cfg.CallbackURL,
		CallbackTimeout:    cfg.CallbackTimeout.String(),
		CallbackSigningKey: mask(cfg.CallbackSigningKey),
		OracleTimeout:      cfg.OracleTimeout.String(),
		EndpointTimeout:    cfg.EndpointTimeout.String(),
		StaticAPIKeys:      len(cfg.APIKeys),
		APIKeysFile:        cfg.APIKeysFile,
		APIKeySalt:         mask(cfg.APIKeySalt),
		ProtectedSecrets:   len(cfg.ProtectedSecrets),
		IngressRPM:         cfg.IngressRPM,
		CallerRPM:          cfg.CallerRPM,
		IPRPM:              cfg.IPRPM,
		ReplayTTL:          cfg.ReplayTTL.String(),
		Tracing:            cfg.Tracing,
	}
	for _, c := range cfg.OverlapPriority {
		s.OverlapPriority = append(s.OverlapPriority, string(c))
	}
	return s
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}

func configShow(cmd *cobra.Command, args []string) error {
	_, span := tracer.Start(cmd.Context(), "config.show")
	defer span.End()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "# config file: %s\n", used)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(showConfig(cfg)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
