package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallerLimiterPerCallerBurst(t *testing.T) {
	l := NewCallerLimiter(1000, 2)

	assert.True(t, l.Allow("key-a"))
	assert.True(t, l.Allow("key-a"))
	assert.False(t, l.Allow("key-a"), "third request inside the burst window is refused")

	assert.True(t, l.Allow("key-b"), "callers have independent buckets")
}

func TestCallerLimiterGlobalCap(t *testing.T) {
	l := NewCallerLimiter(3, 100)

	for i := range 3 {
		assert.True(t, l.Allow("caller-"+string(rune('a'+i))))
	}
	assert.False(t, l.Allow("caller-z"), "global bucket is shared across callers")
}
