package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localBuckets approximates the sliding window with one token bucket per key.
// It is used when no shared store is configured, so limits are per process.
type localBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*localBucket
	lastSweep time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	interval time.Duration
	lastSeen time.Time
}

func newLocalBuckets() *localBuckets {
	return &localBuckets{buckets: make(map[string]*localBucket)}
}

func (b *localBuckets) evaluate(rule RateLimitRule, identifier, key string, now time.Time) ruleResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweep(rule.Window, now)

	bucket, ok := b.buckets[key]
	if !ok {
		interval := rule.Window / time.Duration(rule.Limit)
		if interval <= 0 {
			interval = time.Nanosecond
		}
		bucket = &localBucket{
			limiter:  rate.NewLimiter(rate.Every(interval), rule.Limit),
			interval: interval,
		}
		b.buckets[key] = bucket
	}
	bucket.lastSeen = now

	result := ruleResult{
		rule:       rule,
		limit:      rule.Limit,
		identifier: identifier,
		storageKey: key,
		allowed:    true,
	}

	if !bucket.limiter.AllowN(now, 1) {
		reservation := bucket.limiter.ReserveN(now, 1)
		delay := reservation.DelayFrom(now)
		reservation.CancelAt(now)
		result.allowed = false
		result.retryAfter = delay
		result.reset = now.Add(delay)
		return result
	}

	tokens := bucket.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	result.remaining = int(tokens)
	missing := float64(rule.Limit) - tokens
	result.reset = now.Add(time.Duration(missing * float64(bucket.interval)))
	return result
}

// sweep drops buckets idle for two windows. It runs at most once per window.
func (b *localBuckets) sweep(window time.Duration, now time.Time) {
	if now.Sub(b.lastSweep) < window {
		return
	}
	b.lastSweep = now
	for key, bucket := range b.buckets {
		if now.Sub(bucket.lastSeen) > 2*window {
			delete(b.buckets, key)
		}
	}
}
