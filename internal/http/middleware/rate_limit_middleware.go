package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Remaining  int
	ResetAt    time.Time
	Reason     string
}

type RateLimitPolicy struct {
	SustainedLimit    int
	SustainedWindow   time.Duration
	BurstCapacity     int
	BurstRefillPerSec float64
}

type Limiter interface {
	Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error)
}

// FailureMode decides what happens when the limiter backend errors.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// BypassEvaluator exempts a request from limiting and names the reason.
type BypassEvaluator func(r *http.Request) (bool, string)

type RateLimiter struct {
	limiter         Limiter
	policy          RateLimitPolicy
	mode            FailureMode
	scope           string
	keyFunc         func(r *http.Request) string
	bypassEvaluator BypassEvaluator
}

// NewRateLimiter is an in-process limiter keyed by client IP.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewDistributedRateLimiterWithKeyAndPolicy(
		NewLocalLimiter(),
		newRateLimitPolicy(limit, window, 1.0),
		FailClosed,
		"local",
		nil,
	)
}

func NewDistributedRateLimiterWithKey(
	limiter Limiter,
	limit int,
	window time.Duration,
	mode FailureMode,
	scope string,
	keyFunc func(r *http.Request) string,
) *RateLimiter {
	return NewDistributedRateLimiterWithKeyAndPolicy(limiter, newRateLimitPolicy(limit, window, 1.0), mode, scope, keyFunc)
}

func NewDistributedRateLimiterWithKeyAndPolicy(
	limiter Limiter,
	policy RateLimitPolicy,
	mode FailureMode,
	scope string,
	keyFunc func(r *http.Request) string,
) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	if keyFunc == nil {
		keyFunc = clientIPKey
	}
	if mode != FailOpen {
		mode = FailClosed
	}
	return &RateLimiter{
		limiter: limiter,
		policy:  normalizePolicy(policy),
		mode:    mode,
		scope:   scope,
		keyFunc: keyFunc,
	}
}

func (rl *RateLimiter) WithBypassEvaluator(bypassEvaluator BypassEvaluator) *RateLimiter {
	rl.bypassEvaluator = bypassEvaluator
	return rl
}

// Middleware answers 429 RATE_LIMITED once a key exhausts its budget. When
// the backend fails, fail-open lets the request through and fail-closed
// answers 503 RATE_LIMITER_UNAVAILABLE.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if reason, ok := rl.bypass(r); ok {
				observability.RecordRateLimitDecision(ctx, rl.scope, "bypass")
				slog.Debug("rate limiter bypass", "scope", rl.scope, "reason", reason, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			key := rl.keyFunc(r)
			if key == "" {
				key = clientIPKey(r)
			}
			decision, err := rl.limiter.Allow(ctx, key, rl.policy)
			if err != nil {
				observability.RecordRateLimitDecision(ctx, rl.scope, "backend_error")
				if rl.mode == FailOpen {
					slog.Warn("rate limiter backend unavailable, allowing request", "scope", rl.scope, "error", err)
					next.ServeHTTP(w, r)
					return
				}
				slog.Error("rate limiter backend unavailable, rejecting request", "scope", rl.scope, "error", err)
				w.Header().Set("Retry-After", retryAfterHeader(rl.policy.SustainedWindow))
				response.Error(w, r, http.StatusServiceUnavailable, "RATE_LIMITER_UNAVAILABLE", "rate limiter unavailable", nil)
				return
			}

			writeRateLimitHeaders(w.Header(), rl.policy.SustainedLimit, decision)
			if !decision.Allowed {
				keyType := rateLimitKeyType(key)
				observability.RecordRateLimitDecision(ctx, rl.scope, "deny_"+keyType)
				slog.Debug("rate limit exceeded", "scope", rl.scope, "reason", decision.Reason, "key_type", keyType)
				w.Header().Set("Retry-After", retryAfterHeader(decision.RetryAfter))
				response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", map[string]any{
					"retry_after_seconds": retrySeconds(decision.RetryAfter),
				})
				return
			}
			observability.RecordRateLimitDecision(ctx, rl.scope, "allow")
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) bypass(r *http.Request) (string, bool) {
	if rl.bypassEvaluator == nil {
		return "", false
	}
	ok, reason := rl.bypassEvaluator(r)
	if reason == "" {
		reason = "unspecified"
	}
	return reason, ok
}

// InfraBypass exempts probes, metrics scrapes, preflights and static assets.
func InfraBypass(r *http.Request) (bool, string) {
	switch {
	case r.Method == http.MethodOptions:
		return true, "preflight"
	case isInfraPath(r.URL.Path):
		return true, "infra"
	case isStaticAsset(r.URL.Path):
		return true, "static"
	}
	return false, ""
}

// SubjectOrIPKey keys authenticated callers by user id so operators behind a
// shared site NAT do not exhaust each other's budget.
func SubjectOrIPKey(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return "sub:" + strconv.FormatUint(uint64(p.UserID), 10)
	}
	return clientIPKey(r)
}

func rateLimitKeyType(key string) string {
	if strings.HasPrefix(key, "sub:") {
		return "subject"
	}
	return "ip"
}

// clientIPKey reads RemoteAddr, which chi's RealIP middleware has already
// rewritten from X-Forwarded-For when the router runs behind a proxy.
func clientIPKey(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}

// ClientIP is the caller address used for rate limiting and login auditing.
func ClientIP(r *http.Request) string { return clientIPKey(r) }

func retrySeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

func retryAfterHeader(d time.Duration) string {
	return strconv.Itoa(retrySeconds(d))
}

func writeRateLimitHeaders(h http.Header, limit int, d Decision) {
	resetAt := d.ResetAt
	if resetAt.IsZero() {
		resetAt = time.Now().Add(time.Second)
	}
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(limit, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(d.Remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// newRateLimitPolicy derives a policy from a per-window limit. The burst
// bucket holds limit*burstMultiplier tokens and refills at the sustained rate.
func newRateLimitPolicy(limit int, window time.Duration, burstMultiplier float64) RateLimitPolicy {
	limit = max(limit, 1)
	if window <= 0 {
		window = time.Minute
	}
	burstMultiplier = max(burstMultiplier, 1)
	return normalizePolicy(RateLimitPolicy{
		SustainedLimit:  limit,
		SustainedWindow: window,
		BurstCapacity:   int(math.Ceil(float64(limit) * burstMultiplier)),
	})
}

func normalizePolicy(p RateLimitPolicy) RateLimitPolicy {
	p.SustainedLimit = max(p.SustainedLimit, 1)
	if p.SustainedWindow <= 0 {
		p.SustainedWindow = time.Minute
	}
	p.BurstCapacity = max(p.BurstCapacity, p.SustainedLimit)
	if p.BurstRefillPerSec <= 0 {
		p.BurstRefillPerSec = float64(p.SustainedLimit) / p.SustainedWindow.Seconds()
	}
	if p.BurstRefillPerSec <= 0 {
		p.BurstRefillPerSec = 1
	}
	return p
}
