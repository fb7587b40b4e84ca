package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 12, 30, 15, 0, time.UTC)}
}

func TestBudgetExactlyNConcurrentAcquisitions(t *testing.T) {
	for _, n := range []int{1, 5, 11, 64} {
		clock := newClock()
		b := NewBudget(Config{PerMinute: n, PerDay: 10 * n}, WithClock(clock.Now))

		var granted atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < n+10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if b.TryAcquire() {
					granted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int64(n), granted.Load(), "budget of %d", n)
		assert.False(t, b.TryAcquire(), "attempt N+1 fails")
	}
}

func TestBudgetMinuteRollover(t *testing.T) {
	clock := newClock()
	b := NewBudget(Config{PerMinute: 2, PerDay: 100}, WithClock(clock.Now))

	require.True(t, b.TryAcquire())
	require.True(t, b.TryAcquire())
	require.False(t, b.TryAcquire())

	clock.Advance(44 * time.Second)
	assert.False(t, b.TryAcquire(), "same minute window")

	clock.Advance(time.Second)
	assert.True(t, b.TryAcquire(), "new minute resets the counter")

	snap := b.Snapshot()
	assert.Equal(t, 1, snap.MinuteUsed)
	assert.Equal(t, 3, snap.DayUsed)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 32, 0, 0, time.UTC), snap.MinuteResetAt)
}

func TestBudgetDayCap(t *testing.T) {
	clock := newClock()
	b := NewBudget(Config{PerMinute: 10, PerDay: 3}, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		require.True(t, b.TryAcquire())
		clock.Advance(time.Minute)
	}
	assert.False(t, b.TryAcquire(), "day cap reached even though minute window is fresh")

	clock.Advance(12 * time.Hour)
	assert.True(t, b.TryAcquire(), "UTC day rollover resets")
	snap := b.Snapshot()
	assert.Equal(t, 1, snap.DayUsed)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), snap.DayResetAt)
}

func TestBudgetZeroCapDenies(t *testing.T) {
	b := NewBudget(Config{PerMinute: 0, PerDay: 100})
	assert.False(t, b.TryAcquire())
	b = NewBudget(Config{PerMinute: 5, PerDay: -1})
	assert.False(t, b.TryAcquire())
}
