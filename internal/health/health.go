package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner runs every checker concurrently under one timeout. Results are
// reused for cacheTTL so a burst of probes does not hammer the database.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker
	now      func() time.Time

	mu       sync.Mutex
	cachedAt time.Time
	cached   []CheckResult
	draining bool
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers, now: time.Now}
}

// Drain makes every later readiness probe fail so load balancers stop
// routing to an instance that is shutting down.
func (p *ProbeRunner) Drain() {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return false, []CheckResult{{Name: "shutdown", Healthy: false, Error: "draining"}}
	}
	if p.cacheTTL > 0 && p.cached != nil && p.now().Sub(p.cachedAt) < p.cacheTTL {
		results := append([]CheckResult(nil), p.cached...)
		p.mu.Unlock()
		return allHealthy(results), results
	}
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	results := make([]CheckResult, len(p.checkers))
	var wg sync.WaitGroup
	for i, c := range p.checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			results[i] = c.Check(ctx)
		}(i, c)
	}
	wg.Wait()

	p.mu.Lock()
	p.cached = results
	p.cachedAt = p.now()
	p.mu.Unlock()
	return allHealthy(results), results
}

func allHealthy(results []CheckResult) bool {
	for _, r := range results {
		if !r.Healthy {
			return false
		}
	}
	return true
}

func timed(name string, fn func() error) CheckResult {
	start := time.Now()
	err := fn()
	res := CheckResult{Name: name, Healthy: err == nil, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

type DBChecker struct{ db *gorm.DB }

func NewDBChecker(db *gorm.DB) DBChecker { return DBChecker{db: db} }

func (c DBChecker) Check(ctx context.Context) CheckResult {
	return timed("db", func() error {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

type RedisChecker struct{ client redis.UniversalClient }

func NewRedisChecker(client redis.UniversalClient) RedisChecker { return RedisChecker{client: client} }

func (c RedisChecker) Check(ctx context.Context) CheckResult {
	return timed("redis", func() error { return c.client.Ping(ctx).Err() })
}
