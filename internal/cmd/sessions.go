package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/housekeeping"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/session"
)

var purgeOlderThan time.Duration

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored engagement sessions",
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a session with its transcript and intelligence as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  sessionsShow,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge-replays",
	Short: "Drop delivery replay records older than --older-than",
	RunE:  sessionsPurge,
}

func init() {
	sessionsPurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", housekeeping.DefaultReplayTTL, "age of replay records to drop")
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openSessionStore() (*session.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.NewSQLiteStore(cfg.SessionDBPath())
}

func sessionsShow(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "sessions.show")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := openSessionStore()
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	s, err := store.Get(ctx, args[0])
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("session %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func sessionsPurge(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "sessions.purge_replays")
	defer span.End()

	if purgeOlderThan <= 0 {
		return errors.New("--older-than must be positive")
	}
	store, err := openSessionStore()
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	n, err := housekeeping.PurgeReplays(ctx, store, time.Now().Add(-purgeOlderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged %d replay record(s)\n", n)
	return nil
}
