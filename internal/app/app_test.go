package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/health"
)

func TestNewAssignsDependenciesAndTimeouts(t *testing.T) {
	cfg := &config.Config{
		ShutdownTimeout:              10 * time.Second,
		ShutdownHTTPDrainTimeout:     2 * time.Second,
		ShutdownObservabilityTimeout: 3 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: ":8080", ReadHeaderTimeout: time.Second}
	readiness := health.NewProbeRunner(100*time.Millisecond, 50*time.Millisecond)
	stopped := false
	stop := func() { stopped = true }

	a := New(cfg, logger, server, nil, nil, nil, readiness, stop)
	if a.Config != cfg || a.Logger != logger || a.Server != server || a.Readiness != readiness {
		t.Fatal("expected app dependencies to be assigned")
	}
	if a.ShutdownTimeout != cfg.ShutdownTimeout || a.ShutdownHTTPDrainTimeout != cfg.ShutdownHTTPDrainTimeout || a.ShutdownObservabilityTimeout != cfg.ShutdownObservabilityTimeout {
		t.Fatal("expected app shutdown timeouts copied from config")
	}

	a.StopBackgroundTasks()
	if !stopped {
		t.Fatal("expected stop callback to be set")
	}
}

func TestShutdownDrainsReadinessAndClosesStores(t *testing.T) {
	db, err := database.Open("sqlite", "file:app_shutdown?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	readiness := health.NewProbeRunner(time.Second, 0)
	stopped := 0

	a := New(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), &http.Server{Addr: "127.0.0.1:0"}, db, client, nil, readiness, func() { stopped++ })
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if stopped != 1 {
		t.Fatalf("expected background tasks stopped once, got %d", stopped)
	}
	if ok, _ := readiness.Ready(context.Background()); ok {
		t.Fatal("readiness must fail after shutdown begins")
	}
	if err := client.Ping(context.Background()).Err(); err == nil {
		t.Fatal("expected redis client to be closed")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a := New(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), &http.Server{Addr: "127.0.0.1:0"}, nil, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
