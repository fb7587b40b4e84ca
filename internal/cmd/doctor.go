package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/doctor"
)

var (
	doctorJSON         bool
	doctorSkipUpstream bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (data dir, SQLite, API keys, LLM, collector)",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the report as JSON")
	doctorCmd.Flags().BoolVar(&doctorSkipUpstream, "skip-upstream", false, "skip network checks")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "doctor")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	report := doctor.Run(ctx, cfg, doctor.Options{SkipUpstream: doctorSkipUpstream})

	out := cmd.OutOrStdout()
	if doctorJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Checks {
			fmt.Fprintf(out, "%s %s: %s\n", statusMark(c.Status), c.Name, c.Message)
			if c.Fix != "" && c.Status != doctor.StatusPass {
				fmt.Fprintf(out, "    fix: %s\n", c.Fix)
			}
		}
		fmt.Fprintf(out, "\n%d passed, %d warnings, %d failed\n",
			report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
	}

	if report.Status == doctor.StatusFail {
		return errors.New("preflight checks failed")
	}
	return nil
}

func statusMark(status string) string {
	switch status {
	case doctor.StatusPass:
		return "✓"
	case doctor.StatusWarn:
		return "⚠"
	default:
		return "✗"
	}
}
