// Package housekeeping runs periodic maintenance jobs on a cron schedule:
// purging expired replay entries and logging oracle budget usage.
package housekeeping

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/ratelimit"
)

// Default schedules, standard 5-field cron.
const (
	DefaultPurgeSchedule  = "*/10 * * * *"
	DefaultBudgetSchedule = "*/5 * * * *"
	DefaultReplayTTL      = 24 * time.Hour
	jobTimeout            = time.Minute
)

// ReplayPurger deletes replay entries created before a cutoff.
// session.SQLiteStore satisfies it.
type ReplayPurger interface {
	PurgeReplays(ctx context.Context, before time.Time) (int64, error)
}

// BudgetReporter exposes oracle budget usage. ratelimit.Budget satisfies it.
type BudgetReporter interface {
	Snapshot() ratelimit.Snapshot
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron *cron.Cron
	now  func() time.Time
}

// NewScheduler creates an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New(), now: time.Now}
}

// AddReplayPurge removes replay entries older than ttl on the cron schedule.
func (s *Scheduler) AddReplayPurge(spec string, store ReplayPurger, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultReplayTTL
	}
	return s.add(spec, "replay_purge", func(ctx context.Context) {
		_, _ = PurgeReplays(ctx, store, s.now().Add(-ttl))
	})
}

// AddBudgetReport logs budget usage on the cron schedule.
func (s *Scheduler) AddBudgetReport(spec string, budget BudgetReporter) error {
	return s.add(spec, "budget_report", func(context.Context) {
		LogBudget(budget)
	})
}

func (s *Scheduler) add(spec, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("registering %s cron %q: %w", name, spec, err)
	}
	return nil
}

// PurgeReplays runs one purge pass, logs the outcome and returns the
// number of records removed.
func PurgeReplays(ctx context.Context, store ReplayPurger, before time.Time) (int64, error) {
	n, err := store.PurgeReplays(ctx, before)
	if err != nil {
		log.Error().Err(err).Msg("replay_purge_failed")
		return 0, fmt.Errorf("purging replays: %w", err)
	}
	log.Debug().Int64("removed", n).Time("before", before).Msg("replay_purge_completed")
	return n, nil
}

// LogBudget writes one budget usage line.
func LogBudget(budget BudgetReporter) {
	snap := budget.Snapshot()
	log.Info().
		Int("minute_used", snap.MinuteUsed).
		Int("minute_limit", snap.MinuteLimit).
		Int("day_used", snap.DayUsed).
		Int("day_limit", snap.DayLimit).
		Time("day_reset_at", snap.DayResetAt).
		Msg("oracle_budget")
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
