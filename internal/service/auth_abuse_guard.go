package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"
)

type AuthAbuseScope string

const AuthAbuseScopeLogin AuthAbuseScope = "login"

// AuthAbusePolicy grants FreeAttempts failures, then imposes a cooldown of
// BaseDelay * Multiplier^(n-1) for the n-th extra failure, capped at MaxDelay.
// Counters reset after ResetWindow without failures.
type AuthAbusePolicy struct {
	FreeAttempts int
	BaseDelay    time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	ResetWindow  time.Duration
}

func (p AuthAbusePolicy) withDefaults() AuthAbusePolicy {
	if p.FreeAttempts <= 0 {
		p.FreeAttempts = 5
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Minute
	}
	if p.ResetWindow <= 0 {
		p.ResetWindow = 15 * time.Minute
	}
	return p
}

func (p AuthAbusePolicy) cooldown(failures int) time.Duration {
	over := failures - p.FreeAttempts
	if over <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(over-1))
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// AuthAbuseGuard tracks failed credential attempts per identity and per
// client IP. Check returns the remaining cooldown for either subject.
type AuthAbuseGuard interface {
	Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error)
	Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error
}

func normalizeAuthIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

type abuseSubject struct {
	kind  string
	value string
}

func abuseSubjects(identity, ip string) []abuseSubject {
	subjects := make([]abuseSubject, 0, 2)
	if id := normalizeAuthIdentity(identity); id != "" {
		subjects = append(subjects, abuseSubject{kind: "id", value: id})
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		subjects = append(subjects, abuseSubject{kind: "ip", value: ip})
	}
	return subjects
}

type abuseState struct {
	failures      int
	lastFailure   time.Time
	cooldownUntil time.Time
}

type InMemoryAuthAbuseGuard struct {
	mu     sync.Mutex
	policy AuthAbusePolicy
	state  map[string]abuseState
	now    func() time.Time
}

func NewInMemoryAuthAbuseGuard(policy AuthAbusePolicy) *InMemoryAuthAbuseGuard {
	return &InMemoryAuthAbuseGuard{
		policy: policy.withDefaults(),
		state:  make(map[string]abuseState),
		now:    time.Now,
	}
}

func memoryAbuseKey(scope AuthAbuseScope, s abuseSubject) string {
	return string(scope) + "|" + s.kind + "|" + s.value
}

func (g *InMemoryAuthAbuseGuard) Check(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var longest time.Duration
	for _, s := range abuseSubjects(identity, ip) {
		st, ok := g.state[memoryAbuseKey(scope, s)]
		if !ok {
			continue
		}
		if remaining := st.cooldownUntil.Sub(now); remaining > longest {
			longest = remaining
		}
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) RegisterFailure(_ context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var longest time.Duration
	for _, s := range abuseSubjects(identity, ip) {
		key := memoryAbuseKey(scope, s)
		st := g.state[key]
		if !st.lastFailure.IsZero() && now.Sub(st.lastFailure) > g.policy.ResetWindow {
			st = abuseState{}
		}
		st.failures++
		st.lastFailure = now
		if d := g.policy.cooldown(st.failures); d > 0 {
			st.cooldownUntil = now.Add(d)
			if d > longest {
				longest = d
			}
		}
		g.state[key] = st
	}
	return longest, nil
}

func (g *InMemoryAuthAbuseGuard) Reset(_ context.Context, scope AuthAbuseScope, identity, ip string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range abuseSubjects(identity, ip) {
		delete(g.state, memoryAbuseKey(scope, s))
	}
	return nil
}

type NoopAuthAbuseGuard struct{}

func (NoopAuthAbuseGuard) Check(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopAuthAbuseGuard) RegisterFailure(context.Context, AuthAbuseScope, string, string) (time.Duration, error) {
	return 0, nil
}

func (NoopAuthAbuseGuard) Reset(context.Context, AuthAbuseScope, string, string) error { return nil }
