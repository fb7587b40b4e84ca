package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/auth"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/config"
)

var errNoSalt = errors.New("api_key_salt is required to manage API keys (set HONEYPOT_API_KEY_SALT)")

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys accepted by the message endpoint",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an API key; the plaintext is printed once",
	Args:  cobra.ExactArgs(1),
	RunE:  keysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke [id]",
	Short: "Revoke an API key by id",
	Args:  cobra.ExactArgs(1),
	RunE:  keysRevoke,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys (hashes only)",
	RunE:  keysList,
}

func init() {
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRevokeCmd)
	keysCmd.AddCommand(keysListCmd)
	rootCmd.AddCommand(keysCmd)
}

func openKeyStore(cfg *config.Config) (*auth.KeyStore, error) {
	if cfg.APIKeySalt == "" {
		return nil, errNoSalt
	}
	return auth.OpenKeyStore(cfg.APIKeysFile, cfg.APIKeySalt)
}

func keysCreate(cmd *cobra.Command, args []string) error {
	_, span := tracer.Start(cmd.Context(), "keys.create")
	defer span.End()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openKeyStore(cfg)
	if err != nil {
		return err
	}
	key, rec, err := store.Create(args[0])
	if err != nil {
		return fmt.Errorf("creating key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created key %s (%s)\n", rec.ID, rec.Name)
	fmt.Fprintf(out, "  %s\n", key)
	fmt.Fprintln(out, "Store it now; it cannot be shown again.")
	return nil
}

func keysRevoke(cmd *cobra.Command, args []string) error {
	_, span := tracer.Start(cmd.Context(), "keys.revoke")
	defer span.End()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openKeyStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Revoke(args[0]); err != nil {
		return fmt.Errorf("revoking key %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Revoked key %s\n", args[0])
	return nil
}

func keysList(cmd *cobra.Command, args []string) error {
	_, span := tracer.Start(cmd.Context(), "keys.list")
	defer span.End()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !fileExists(cfg.APIKeysFile) {
		fmt.Fprintln(out, "No API keys created yet.")
		return nil
	}
	store, err := openKeyStore(cfg)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED\tLAST USED\tSTATUS")
	for _, r := range store.List() {
		lastUsed := "never"
		if r.LastUsed != nil {
			lastUsed = r.LastUsed.UTC().Format(time.RFC3339)
		}
		status := "active"
		if r.Revoked {
			status = "revoked"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.CreatedAt.UTC().Format(time.RFC3339), lastUsed, status)
	}
	return tw.Flush()
}
