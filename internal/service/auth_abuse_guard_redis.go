package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAuthAbuseGuard stores one hash per subject with fields failures,
// last_failure_ms and cooldown_until_ms.
type RedisAuthAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AuthAbusePolicy
	now    func() time.Time
}

func NewRedisAuthAbuseGuard(client redis.UniversalClient, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	if prefix == "" {
		prefix = "siteops:abuse"
	}
	return &RedisAuthAbuseGuard{client: client, prefix: prefix, policy: policy.withDefaults(), now: time.Now}
}

func (g *RedisAuthAbuseGuard) stateKey(scope AuthAbuseScope, kind, value string) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, normalizeToken(string(scope)), kind, hashToken(value))
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	var longest time.Duration
	for _, s := range abuseSubjects(identity, ip) {
		st, err := g.load(ctx, g.stateKey(scope, s.kind, s.value))
		if err != nil {
			return 0, err
		}
		if remaining := st.cooldownUntil.Sub(now); remaining > longest {
			longest = remaining
		}
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	var longest time.Duration
	for _, s := range abuseSubjects(identity, ip) {
		key := g.stateKey(scope, s.kind, s.value)
		st, err := g.load(ctx, key)
		if err != nil {
			return 0, err
		}
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
		pipe := g.client.TxPipeline()
		pipe.HSet(ctx, key,
			"failures", st.failures,
			"last_failure_ms", st.lastFailure.UnixMilli(),
			"cooldown_until_ms", st.cooldownUntil.UnixMilli(),
		)
		pipe.PExpire(ctx, key, g.policy.ResetWindow+g.policy.MaxDelay)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
	}
	return longest, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	subjects := abuseSubjects(identity, ip)
	if len(subjects) == 0 {
		return nil
	}
	keys := make([]string, 0, len(subjects))
	for _, s := range subjects {
		keys = append(keys, g.stateKey(scope, s.kind, s.value))
	}
	return g.client.Del(ctx, keys...).Err()
}

func (g *RedisAuthAbuseGuard) load(ctx context.Context, key string) (abuseState, error) {
	vals, err := g.client.HMGet(ctx, key, "failures", "last_failure_ms", "cooldown_until_ms").Result()
	if err != nil {
		return abuseState{}, err
	}
	failures, err := hashInt(vals[0])
	if err != nil {
		return abuseState{}, fmt.Errorf("parse failures: %w", err)
	}
	st := abuseState{failures: int(failures)}
	last, err := hashInt(vals[1])
	if err != nil {
		return abuseState{}, fmt.Errorf("parse last_failure_ms: %w", err)
	}
	until, err := hashInt(vals[2])
	if err != nil {
		return abuseState{}, fmt.Errorf("parse cooldown_until_ms: %w", err)
	}
	if last > 0 {
		st.lastFailure = time.UnixMilli(last)
	}
	if until > 0 {
		st.cooldownUntil = time.UnixMilli(until)
	}
	return st, nil
}

func hashInt(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}
