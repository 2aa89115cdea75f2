package config

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadMetricsOnce sync.Once
	loadCounter     metric.Int64Counter
)

// recordConfigValidationEvent counts config loads by environment profile,
// outcome and error class. Meter failures are ignored; startup must not
// depend on telemetry.
func recordConfigValidationEvent(ctx context.Context, profile, outcome, errorClass string) {
	loadMetricsOnce.Do(func() {
		c, err := otel.Meter("siteops-service/config").Int64Counter(
			"siteops.config.load.events",
			metric.WithDescription("Configuration loads by profile, outcome and error class."),
		)
		if err == nil {
			loadCounter = c
		}
	})
	if loadCounter == nil {
		return
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", errorClass),
	))
}

// normalizeConfigProfile folds APP_ENV spellings onto the three profiles the
// service distinguishes so metric cardinality stays bounded.
func normalizeConfigProfile(profile string) string {
	switch v := strings.ToLower(strings.TrimSpace(profile)); v {
	case "":
		return "unknown"
	case "prod", "production":
		return "production"
	case "dev", "development", "local":
		return "development"
	case "test", "testing", "ci":
		return "test"
	default:
		return "other"
	}
}

func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "validate config:"):
		return "validation"
	case strings.HasPrefix(msg, "parse "):
		return "parse"
	case strings.Contains(msg, "env file"):
		return "env_file"
	default:
		return "load"
	}
}
