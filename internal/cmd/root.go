// Package cmd implements the honeypot command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/config"
	honeypototel "github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/otel"
)

// resolvedVersion returns Version unless it is "dev" and Go build info
// carries a real module version (e.g. from go install ...@v1.2.0).
func resolvedVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

var tracer = honeypototel.Tracer("github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/cmd")

var (
	otelShutdown func(context.Context) error

	// Version info injected via ldflags at build time
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
	otelFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "honeypot",
	Short: "Agentic scam-engagement honeypot",
	Long: `honeypot receives suspected scam messages, answers them as a believable
persona and collects the fraud artifacts the scammer reveals:

- UPI handles, bank accounts, phone numbers and phishing links
- Heuristic plus AI-assisted scam detection under a shared rate budget
- One final intelligence report per confirmed scam session`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.ErrOrStderr())

		enabled := otelFlag || viper.GetBool(config.KeyTracing)
		shutdown, err := honeypototel.Setup(cmd.Context(), honeypototel.Options{
			ServiceName: "honeypot",
			Version:     resolvedVersion(),
			Enabled:     enabled,
			Output:      os.Stderr,
		})
		if err != nil {
			return fmt.Errorf("initializing OpenTelemetry: %w", err)
		}
		otelShutdown = shutdown
		return nil
	},
}

// setupLogging points the global zerolog logger at w. Logs stay off stdout
// so command output can be piped.
func setupLogging(w io.Writer) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if logFormat == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./honeypot.config.yaml or ~/.honeypot/honeypot.config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&otelFlag, "otel", false, "enable OpenTelemetry (traces and metrics to stderr)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag(config.KeyTracing, rootCmd.PersistentFlags().Lookup("otel"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.honeypot")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("honeypot.config")
		viper.SetConfigType("yaml")
	}
	config.SetDefaults(viper.GetViper())

	// The file is optional.
	_ = viper.ReadInConfig()
}

// loadConfig resolves the global Viper state into a validated Config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command and flushes OTel on exit.
func Execute() error {
	err := rootCmd.Execute()
	if otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(ctx)
	}
	return err
}
