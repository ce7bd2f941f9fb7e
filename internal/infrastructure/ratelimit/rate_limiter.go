package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionAuth        = "auth"
	ActionGeneral     = "general"
)

// Policy is the sustained rate and burst allowed for one action.
type Policy struct {
	PerSecond float64
	Burst     int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key and action.
type RateLimiter struct {
	policies map[string]Policy
	fallback Policy
	entries  map[string]*entry
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter(policies map[string]Policy, fallback Policy) *RateLimiter {
	return &RateLimiter{
		policies: policies,
		fallback: fallback,
		entries:  make(map[string]*entry),
		now:      time.Now,
	}
}

func (rl *RateLimiter) limiterFor(key, action string) *rate.Limiter {
	id := key + ":" + action

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	e, ok := rl.entries[id]
	if !ok {
		policy, found := rl.policies[action]
		if !found {
			policy = rl.fallback
		}
		e = &entry{limiter: rate.NewLimiter(rate.Limit(policy.PerSecond), policy.Burst)}
		rl.entries[id] = e
	}
	e.lastSeen = rl.now()
	return e.limiter
}

// Allow consumes one token. When denied it also returns how long until a
// token would be available.
func (rl *RateLimiter) Allow(key, action string) (bool, time.Duration) {
	limiter := rl.limiterFor(key, action)
	now := rl.now()

	reservation := limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Second
	}
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	reservation.CancelAt(now)
	return false, delay
}

// Cleanup removes buckets idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := rl.now().Add(-idle)
	for id, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, id)
		}
	}
}

// StartCleanupRoutine starts a cleanup routine that runs until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Size returns the number of live buckets.
func (rl *RateLimiter) Size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.entries)
}
