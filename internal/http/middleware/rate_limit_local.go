package middleware

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// LocalLimiter combines a token bucket for bursts with a sliding window for
// the sustained rate. State lives in process memory, so each replica keeps
// its own budget.
type LocalLimiter struct {
	mu     sync.Mutex
	store  map[string]*localHybridState
	window time.Duration
	now    func() time.Time
}

type localHybridState struct {
	tokens     float64
	lastRefill time.Time
	hits       []time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		store:  make(map[string]*localHybridState),
		window: time.Minute,
		now:    time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if policy.SustainedWindow > l.window {
		l.window = policy.SustainedWindow
	}
	st, ok := l.store[key]
	if !ok {
		st = &localHybridState{tokens: float64(policy.BurstCapacity), lastRefill: now}
		l.store[key] = st
	}
	st.refill(policy, now)
	st.prune(now.Add(-policy.SustainedWindow))

	var bucketWait, windowWait time.Duration
	if st.tokens < 1 {
		bucketWait = time.Duration(math.Ceil((1 - st.tokens) / policy.BurstRefillPerSec * float64(time.Second)))
	}
	windowFull := len(st.hits) >= policy.SustainedLimit
	if windowFull {
		windowWait = max(st.hits[0].Add(policy.SustainedWindow).Sub(now), 0)
	}

	d := Decision{Allowed: bucketWait <= 0 && !windowFull}
	switch {
	case windowFull && windowWait >= bucketWait:
		d.Reason = "window"
	case bucketWait > 0:
		d.Reason = "bucket"
	}
	if d.Allowed {
		st.tokens = max(st.tokens-1, 0)
		st.hits = append(st.hits, now)
		d.ResetAt = st.hits[0].Add(policy.SustainedWindow)
	} else {
		d.RetryAfter = max(bucketWait, windowWait)
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Second
		}
		d.ResetAt = now.Add(d.RetryAfter)
	}
	d.Remaining = max(min(int(math.Floor(st.tokens)), policy.SustainedLimit-len(st.hits)), 0)
	return d, nil
}

func (s *localHybridState) refill(p RateLimitPolicy, now time.Time) {
	if !now.After(s.lastRefill) {
		return
	}
	s.tokens = min(float64(p.BurstCapacity), s.tokens+now.Sub(s.lastRefill).Seconds()*p.BurstRefillPerSec)
	s.lastRefill = now
}

func (s *localHybridState) prune(cutoff time.Time) {
	kept := s.hits[:0]
	for _, h := range s.hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	s.hits = kept
}

// StartSweeper evicts idle local limiter state every period until ctx ends.
// Distributed limiters expire their own keys and need no sweep.
func (rl *RateLimiter) StartSweeper(ctx context.Context, period time.Duration) {
	local, ok := rl.limiter.(*LocalLimiter)
	if !ok {
		return
	}
	if period <= 0 {
		period = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := local.sweep(); n > 0 {
					slog.Debug("rate limiter sweep", "scope", rl.scope, "evicted", n)
				}
			}
		}
	}()
}

func (l *LocalLimiter) sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	evicted := 0
	for k, st := range l.store {
		idle := len(st.hits) == 0 || now.Sub(st.hits[len(st.hits)-1]) > l.window
		if idle && now.Sub(st.lastRefill) > 2*l.window {
			delete(l.store, k)
			evicted++
		}
	}
	return evicted
}
