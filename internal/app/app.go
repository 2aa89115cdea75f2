package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/health"
	"github.com/sandeepkv93/siteops-service/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration

	stopBackground func()
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
	stop func(),
) *App {
	if stop == nil {
		stop = func() {}
	}
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		DB:                           db,
		Redis:                        redisClient,
		Observability:                runtime,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityTimeout,
		stopBackground:               stop,
	}
}

// StopBackgroundTasks cancels the rate limiter sweep and any other
// goroutines started while wiring the app.
func (a *App) StopBackgroundTasks() {
	a.stopBackground()
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down in order: readiness, HTTP drain, stores, telemetry.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("http server: %w", err)
		}
	}
	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(serveErr, err)
	}
	return serveErr
}

func (a *App) Shutdown(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, a.timeoutOr(a.ShutdownTimeout, 20*time.Second))
	defer cancel()

	if a.Readiness != nil {
		a.Readiness.Drain()
	}
	a.StopBackgroundTasks()

	var errs []error
	drainCtx, drainCancel := context.WithTimeout(ctx, a.timeoutOr(a.ShutdownHTTPDrainTimeout, 10*time.Second))
	if err := a.Server.Shutdown(drainCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	drainCancel()

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	obsCtx, obsCancel := context.WithTimeout(ctx, a.timeoutOr(a.ShutdownObservabilityTimeout, 5*time.Second))
	defer obsCancel()
	if err := a.Observability.Shutdown(obsCtx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	if len(errs) == 0 {
		a.Logger.Info("shutdown complete")
	}
	return errors.Join(errs...)
}

func (a *App) timeoutOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
