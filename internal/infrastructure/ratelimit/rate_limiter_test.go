package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRespectsBurstPerKey(t *testing.T) {
	rl := NewRateLimiter(map[string]Policy{
		ActionSendMessage: {PerSecond: 1, Burst: 2},
	}, Policy{PerSecond: 100, Burst: 100})

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	ok, _ := rl.Allow("1", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("1", ActionSendMessage)
	assert.True(t, ok)

	ok, wait := rl.Allow("1", ActionSendMessage)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = rl.Allow("2", ActionSendMessage)
	assert.True(t, ok, "other keys have their own bucket")

	fixed = fixed.Add(time.Second)
	ok, _ = rl.Allow("1", ActionSendMessage)
	assert.True(t, ok, "bucket refills over time")
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(nil, Policy{PerSecond: 1, Burst: 1})
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	rl.Allow("a", ActionGeneral)
	fixed = fixed.Add(2 * time.Hour)
	rl.Allow("b", ActionGeneral)

	rl.Cleanup(time.Hour)
	assert.Equal(t, 1, rl.Size())
}
