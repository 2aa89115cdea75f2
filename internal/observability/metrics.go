package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/siteops-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type AppMetrics struct {
	authLoginCounter      metric.Int64Counter
	authLogoutCounter     metric.Int64Counter
	sessionCheckCounter   metric.Int64Counter
	sessionRefreshCounter metric.Int64Counter
	sessionRevokeCounter  metric.Int64Counter
	repositoryOpCounter   metric.Int64Counter
	rateLimitCounter      metric.Int64Counter
	idempotencyCounter    metric.Int64Counter
	cacheCounter          metric.Int64Counter
	storageCounter        metric.Int64Counter
	recordMutationCounter metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter("siteops-service"))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	m := &AppMetrics{}
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.logout.attempts", &m.authLogoutCounter},
		{"auth.session.checks", &m.sessionCheckCounter},
		{"auth.session.refreshes", &m.sessionRefreshCounter},
		{"auth.session.revocations", &m.sessionRevokeCounter},
		{"repository.operations", &m.repositoryOpCounter},
		{"http.rate_limit.decisions", &m.rateLimitCounter},
		{"http.idempotency.events", &m.idempotencyCounter},
		{"cache.events", &m.cacheCounter},
		{"storage.operations", &m.storageCounter},
		{"records.mutations", &m.recordMutationCounter},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func add(ctx context.Context, pick func(*AppMetrics) metric.Int64Counter, attrs ...attribute.KeyValue) {
	m := current()
	if m == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pick(m).Add(ctx, 1, metric.WithAttributes(attrs...))
}

func RecordAuthLogin(ctx context.Context, status string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.authLoginCounter },
		attribute.String("status", status))
}

func RecordAuthLogout(ctx context.Context, status string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.authLogoutCounter },
		attribute.String("status", status))
}

// RecordSessionCheck counts ValidateClaim outcomes: valid, invalidated,
// expired, missing or error.
func RecordSessionCheck(ctx context.Context, result string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.sessionCheckCounter },
		attribute.String("result", result))
}

func RecordSessionRefresh(ctx context.Context, status string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.sessionRefreshCounter },
		attribute.String("status", status))
}

func RecordSessionRevocation(ctx context.Context, reason string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.sessionRevokeCounter },
		attribute.String("reason", reason))
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.repositoryOpCounter },
		attribute.String("repository", repo),
		attribute.String("operation", op),
		attribute.String("outcome", outcome))
}

func RecordRateLimitDecision(ctx context.Context, policy, outcome string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.rateLimitCounter },
		attribute.String("policy", policy),
		attribute.String("outcome", outcome))
}

func RecordIdempotencyEvent(ctx context.Context, scope, outcome string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.idempotencyCounter },
		attribute.String("scope", scope),
		attribute.String("outcome", outcome))
}

func RecordCacheEvent(ctx context.Context, cache, outcome string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.cacheCounter },
		attribute.String("cache", cache),
		attribute.String("outcome", outcome))
}

func RecordStorageOperation(ctx context.Context, op, outcome string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.storageCounter },
		attribute.String("operation", op),
		attribute.String("outcome", outcome))
}

func RecordMutation(ctx context.Context, resource, action string) {
	add(ctx, func(m *AppMetrics) metric.Int64Counter { return m.recordMutationCounter },
		attribute.String("resource", resource),
		attribute.String("action", action))
}
