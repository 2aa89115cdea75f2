package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
	Email       string
	Password    string
	Client      *http.Client
}

type Result struct {
	TotalRequests int64
	Failures      int64
	StatusClasses map[string]int64
	P50           time.Duration
	P95           time.Duration
	Elapsed       time.Duration
}

// Summary renders the result as short human readable lines.
func (r Result) Summary() []string {
	classes := make([]string, 0, len(r.StatusClasses))
	for k, v := range r.StatusClasses {
		classes = append(classes, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(classes)
	return []string{
		fmt.Sprintf("requests total=%d failures=%d elapsed=%s", r.TotalRequests, r.Failures, r.Elapsed.Round(time.Millisecond)),
		"status " + strings.Join(classes, " "),
		fmt.Sprintf("latency p50=%s p95=%s", r.P50, r.P95),
	}
}

var profiles = map[string][]string{
	"auth": {"/api/auth/session", "/health/ready"},
	"read": {"/api/workers", "/api/sites", "/api/attendance", "/api/payments", "/api/dashboard/summary"},
}

func init() {
	profiles["mixed"] = append(append([]string{}, profiles["auth"]...), profiles["read"]...)
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if _, ok := profiles[p]; !ok {
		return "mixed"
	}
	return p
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

type recorder struct {
	mu        sync.Mutex
	total     int64
	failures  int64
	classes   map[string]int64
	latencies []time.Duration
}

func (r *recorder) observe(status int, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if err != nil {
		r.failures++
		r.classes["error"]++
		return
	}
	class := classifyStatusClass(status)
	r.classes[class]++
	if class == "5xx" {
		r.failures++
	}
	r.latencies = append(r.latencies, d)
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// Run drives read traffic against a running API. When credentials are given
// it signs in once and every worker shares the resulting session cookie,
// since a second login would invalidate the first.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		return Result{}, fmt.Errorf("base url is required")
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	paths := profiles[normalizeProfile(cfg.Profile)]

	client := cfg.Client
	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return Result{}, err
		}
		client = &http.Client{Timeout: 10 * time.Second, Jar: jar}
	}
	if cfg.Email != "" {
		if err := login(ctx, client, base, cfg.Email, cfg.Password); err != nil {
			return Result{}, err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	rec := &recorder{classes: map[string]int64{}}
	jobs := make(chan string)
	started := time.Now()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer close(jobs)
		rng := rand.New(rand.NewSource(cfg.Seed))
		ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				select {
				case jobs <- paths[rng.Intn(len(paths))]:
				case <-gctx.Done():
					return nil
				}
			}
		}
	})
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for p := range jobs {
				status, d, err := get(gctx, client, base+p)
				if gctx.Err() != nil {
					return nil
				}
				rec.observe(status, d, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sort.Slice(rec.latencies, func(i, j int) bool { return rec.latencies[i] < rec.latencies[j] })
	return Result{
		TotalRequests: rec.total,
		Failures:      rec.failures,
		StatusClasses: rec.classes,
		P50:           percentile(rec.latencies, 0.50),
		P95:           percentile(rec.latencies, 0.95),
		Elapsed:       time.Since(started),
	}, nil
}

func login(ctx context.Context, client *http.Client, base, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", resp.Status)
	}
	return nil
}

func get(ctx context.Context, client *http.Client, url string) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}
