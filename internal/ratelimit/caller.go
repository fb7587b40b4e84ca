package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// CallerLimiter enforces per-caller and global ingress request rates with
// token buckets. Unlike Budget it smooths bursts instead of counting fixed
// windows.
type CallerLimiter struct {
	mu        sync.Mutex
	global    *rate.Limiter
	callers   map[string]*rate.Limiter
	perCaller rate.Limit
	burst     int
}

// NewCallerLimiter creates a limiter. globalRPM is the total requests per
// minute across callers; perCallerRPM applies to each caller name.
func NewCallerLimiter(globalRPM, perCallerRPM int) *CallerLimiter {
	return &CallerLimiter{
		global:    rate.NewLimiter(rate.Limit(float64(globalRPM)/60.0), max(globalRPM, 1)),
		callers:   make(map[string]*rate.Limiter),
		perCaller: rate.Limit(float64(perCallerRPM) / 60.0),
		burst:     max(perCallerRPM, 1),
	}
}

// Allow reports whether a request from caller may proceed now.
func (l *CallerLimiter) Allow(caller string) bool {
	if !l.global.Allow() {
		return false
	}
	l.mu.Lock()
	lim, ok := l.callers[caller]
	if !ok {
		lim = rate.NewLimiter(l.perCaller, l.burst)
		l.callers[caller] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
