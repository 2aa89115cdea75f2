package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type countingChecker struct {
	calls int32
	err   error
}

func (c *countingChecker) Check(context.Context) CheckResult {
	atomic.AddInt32(&c.calls, 1)
	return timed("fake", func() error { return c.err })
}

func TestProbeRunnerCachesResults(t *testing.T) {
	c := &countingChecker{}
	p := NewProbeRunner(time.Second, time.Minute, c)
	for i := 0; i < 3; i++ {
		if ok, _ := p.Ready(context.Background()); !ok {
			t.Fatal("expected ready")
		}
	}
	if c.calls != 1 {
		t.Fatalf("expected cached probe, checker ran %d times", c.calls)
	}
}

func TestProbeRunnerReportsFailureAndDrain(t *testing.T) {
	p := NewProbeRunner(time.Second, 0, &countingChecker{}, &countingChecker{err: errors.New("down")})
	ok, results := p.Ready(context.Background())
	if ok || len(results) != 2 || results[1].Error != "down" {
		t.Fatalf("unexpected readiness %v %+v", ok, results)
	}

	p = NewProbeRunner(time.Second, 0, &countingChecker{})
	p.Drain()
	if ok, results := p.Ready(context.Background()); ok || results[0].Name != "shutdown" {
		t.Fatalf("draining runner must be unready, got %v %+v", ok, results)
	}
}

func TestDBAndRedisCheckers(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:health_checker?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if res := NewDBChecker(db).Check(context.Background()); !res.Healthy {
		t.Fatalf("db check failed: %+v", res)
	}

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	if res := NewRedisChecker(client).Check(context.Background()); !res.Healthy {
		t.Fatalf("redis check failed: %+v", res)
	}
	server.Close()
	if res := NewRedisChecker(client).Check(context.Background()); res.Healthy {
		t.Fatal("expected redis check to fail after shutdown")
	}
}
