// Package ratelimit holds the process-wide oracle budget and the per-caller
// ingress limiter.
package ratelimit

import (
	"sync"
	"time"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/metrics"
)

// Defaults are 75% of the Gemini free tier (15 RPM, 1500 RPD).
const (
	DefaultPerMinute = 11
	DefaultPerDay    = 1125
)

// Config caps oracle calls. A cap of zero or less denies every acquisition.
type Config struct {
	PerMinute int
	PerDay    int
}

// Budget counts oracle calls in fixed minute and UTC-day windows. It is the
// only cross-session mutable state on the request path; every method takes
// the same mutex.
type Budget struct {
	mu    sync.Mutex
	cfg   Config
	clock func() time.Time

	minuteStart time.Time
	minuteCount int
	dayStart    time.Time
	dayCount    int
}

// Option configures a Budget.
type Option func(*Budget)

// WithClock replaces time.Now, for tests.
func WithClock(clock func() time.Time) Option {
	return func(b *Budget) { b.clock = clock }
}

// NewBudget creates a budget with both windows starting now.
func NewBudget(cfg Config, opts ...Option) *Budget {
	b := &Budget{cfg: cfg, clock: time.Now}
	for _, o := range opts {
		o(b)
	}
	now := b.clock().UTC()
	b.minuteStart = now.Truncate(time.Minute)
	b.dayStart = startOfDay(now)
	return b
}

// TryAcquire takes one slot from both windows or none. It never blocks.
func (b *Budget) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover(b.clock().UTC())

	switch {
	case b.cfg.PerMinute <= 0 || b.cfg.PerDay <= 0:
		metrics.RecordBudgetRejection("disabled")
		return false
	case b.minuteCount >= b.cfg.PerMinute:
		metrics.RecordBudgetRejection("minute")
		return false
	case b.dayCount >= b.cfg.PerDay:
		metrics.RecordBudgetRejection("day")
		return false
	}
	b.minuteCount++
	b.dayCount++
	return true
}

// rollover resets any window that has ended. Caller holds mu.
func (b *Budget) rollover(now time.Time) {
	if m := now.Truncate(time.Minute); !m.Equal(b.minuteStart) {
		b.minuteStart = m
		b.minuteCount = 0
	}
	if d := startOfDay(now); !d.Equal(b.dayStart) {
		b.dayStart = d
		b.dayCount = 0
	}
}

// Snapshot is a point-in-time view of budget usage.
type Snapshot struct {
	MinuteUsed    int       `json:"minute_used"`
	MinuteLimit   int       `json:"minute_limit"`
	MinuteResetAt time.Time `json:"minute_reset_at"`
	DayUsed       int       `json:"day_used"`
	DayLimit      int       `json:"day_limit"`
	DayResetAt    time.Time `json:"day_reset_at"`
}

// Snapshot reports current usage and when each window resets.
func (b *Budget) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover(b.clock().UTC())
	return Snapshot{
		MinuteUsed:    b.minuteCount,
		MinuteLimit:   b.cfg.PerMinute,
		MinuteResetAt: b.minuteStart.Add(time.Minute),
		DayUsed:       b.dayCount,
		DayLimit:      b.cfg.PerDay,
		DayResetAt:    b.dayStart.AddDate(0, 0, 1),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
