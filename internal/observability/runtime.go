package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sandeepkv93/siteops-service/internal/config"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Runtime owns the OpenTelemetry providers for the life of the process.
type Runtime struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
}

// InitRuntime starts metrics then tracing. lp comes from NewLogger and may be
// nil when log export is off. On a tracing failure the meter provider that
// already started is shut down before returning.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*Runtime, error) {
	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	tp, err := InitTracing(ctx, cfg, logger)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return &Runtime{MeterProvider: mp, TracerProvider: tp, LoggerProvider: lp}, nil
}

// Shutdown flushes spans first so request traces from the final drain are
// exported, then logs, then metrics.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var steps []namedShutdown
	if r.TracerProvider != nil {
		steps = append(steps, namedShutdown{"tracer provider", r.TracerProvider.Shutdown})
	}
	if r.LoggerProvider != nil {
		steps = append(steps, namedShutdown{"logger provider", r.LoggerProvider.Shutdown})
	}
	if r.MeterProvider != nil {
		steps = append(steps, namedShutdown{"meter provider", r.MeterProvider.Shutdown})
	}
	var errs []error
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

type namedShutdown struct {
	name string
	fn   func(context.Context) error
}
