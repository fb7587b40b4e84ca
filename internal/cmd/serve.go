package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/auth"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/callback"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/classifier"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/config"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/detector"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/guardrail"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/housekeeping"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/llm"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/oracle"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/ratelimit"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/server"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

const shutdownTimeout = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the honeypot HTTP service",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

// app is the wired service and the resources it owns.
type app struct {
	cfg        *config.Config
	store      *session.SQLiteStore
	budget     *ratelimit.Budget
	dispatcher *callback.Dispatcher
	scheduler  *housekeeping.Scheduler
	server     *server.Server
}

// buildApp wires every component from cfg. The caller owns the result and
// must call close.
func buildApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.store, err = session.NewSQLiteStore(cfg.SessionDBPath())
	if err != nil {
		return nil, fmt.Errorf("initializing session store: %w", err)
	}

	a.budget = ratelimit.NewBudget(ratelimit.Config{PerMinute: cfg.RatePerMinute, PerDay: cfg.RatePerDay})

	provider, err := llm.NewProvider(ctx, llm.ProviderConfig{
		Name:    cfg.LLMProvider,
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing LLM provider: %w", err)
	}
	if provider == nil {
		log.Warn().Msg("no LLM provider configured; replies and scoring use deterministic fallbacks")
	}
	adapter := oracle.New(provider, a.budget, oracle.Config{
		Model:   cfg.LLMModel,
		Timeout: cfg.OracleTimeout,
	})

	extractor, err := classifier.NewExtractor(
		classifier.WithPatternFile(filepath.Join(cfg.DataDir, "patterns.yaml")),
		classifier.WithPriority(cfg.OverlapPriority),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing entity extractor: %w", err)
	}
	heuristic, err := detector.NewHeuristic(detector.WithThreshold(cfg.DetectionThreshold))
	if err != nil {
		return nil, fmt.Errorf("initializing heuristic detector: %w", err)
	}
	guard, err := guardrail.New(
		guardrail.WithProtectedSecrets(cfg.ProtectedSecrets...),
		guardrail.WithFallback(replyFallback(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing guardrail: %w", err)
	}

	dispatchOpts := []callback.Option{callback.WithTimeout(cfg.CallbackTimeout)}
	if cfg.CallbackSigningKey != "" {
		signer, err := callback.NewSigner(cfg.CallbackSigningKey)
		if err != nil {
			return nil, err
		}
		dispatchOpts = append(dispatchOpts, callback.WithSigner(signer))
	}
	a.dispatcher = callback.NewDispatcher(cfg.CallbackURL, dispatchOpts...)
	if !a.dispatcher.Configured() {
		log.Warn().Msg("callback_url not set; confirmed sessions will not be reported")
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Store:     a.store,
		Extractor: extractor,
		Secondary: adapter,
		Fusion:    detector.NewFusion(heuristic, adapter),
		Responder: adapter,
		Guard:     guard,
		Reporter:  a.dispatcher,
	}, cfg.Orchestrator())
	if err != nil {
		return nil, fmt.Errorf("initializing orchestrator: %w", err)
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return nil, err
	}

	a.scheduler = housekeeping.NewScheduler()
	if err := a.scheduler.AddReplayPurge(housekeeping.DefaultPurgeSchedule, a.store, cfg.ReplayTTL); err != nil {
		return nil, err
	}
	if err := a.scheduler.AddBudgetReport(housekeeping.DefaultBudgetSchedule, a.budget); err != nil {
		return nil, err
	}

	a.server = server.NewServer(orch, verifier,
		server.WithCallerLimiter(ratelimit.NewCallerLimiter(cfg.IngressRPM, cfg.CallerRPM)),
		server.WithIPRateLimit(cfg.IPRPM),
		server.WithHealthCheck("session_store", a.store.Ping),
	)
	return a, nil
}

// replyFallback answers with the configured persona when the guardrail
// rejects a generated reply.
func replyFallback(cfg *config.Config) func([]session.Message) string {
	persona := cfg.Orchestrator().Persona
	return func(conv []session.Message) string {
		return oracle.FallbackReply(conv, persona)
	}
}

// buildVerifier combines config-supplied keys with the managed key file.
func buildVerifier(cfg *config.Config) (auth.Verifier, error) {
	static := auth.NewStaticKeys(cfg.APIKeys...)
	verifiers := auth.Any{static}
	managed := 0
	if cfg.APIKeySalt != "" {
		ks, err := auth.OpenKeyStore(cfg.APIKeysFile, cfg.APIKeySalt)
		if err != nil {
			return nil, fmt.Errorf("opening API key store: %w", err)
		}
		verifiers = append(verifiers, ks)
		managed = len(ks.List())
	}
	if static.Len() == 0 && managed == 0 {
		log.Warn().Msg("no API keys configured; message endpoints will return 401")
	}
	return verifiers, nil
}

// close releases resources in dependency order: in-flight reports are
// delivered before the store closes.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Close(ctx))
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	a.scheduler.Start()

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      a.server.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.EndpointTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("llm_provider", cfg.LLMProvider).
		Bool("callback_configured", a.dispatcher.Configured()).
		Int("cron_entries", a.scheduler.Entries()).
		Msg("honeypot_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case serveErr = <-errCh:
		serveErr = fmt.Errorf("server error: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("shutdown: %w", err))
	}
	if err := a.close(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, err)
	}
	log.Info().Msg("server_stopped")
	return serveErr
}
