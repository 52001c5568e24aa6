package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterSetBurstThenRefill(t *testing.T) {
	s := newLimiterSet(time.Second, 2)
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, s.allow(1, now))
	assert.True(t, s.allow(1, now))
	assert.False(t, s.allow(1, now), "burst exhausted")
	assert.True(t, s.allow(2, now), "users have separate buckets")

	assert.True(t, s.allow(1, now.Add(time.Second)))
}

func TestLimiterSetForgetsIdleUsers(t *testing.T) {
	s := newLimiterSet(time.Second, 1)
	now := time.Unix(1_700_000_000, 0)
	s.allow(1, now)
	s.allow(2, now.Add(limiterIdleTTL+time.Minute))
	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotContains(t, s.users, int64(1))
	assert.Contains(t, s.users, int64(2))
}
