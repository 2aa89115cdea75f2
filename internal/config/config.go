package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	UIDir    string

	DatabaseDriver      string
	DatabaseURL         string
	DatabaseAutoMigrate bool

	JWTSecret                string
	JWTIssuer                string
	JWTAudience              string
	SessionCookieName        string
	SessionMaxAge            time.Duration
	SessionUpdateAge         time.Duration
	CookieSecure             bool
	CookieDomain             string
	AuthLogoutRevokesSession bool

	CORSAllowedOrigins []string

	RateLimitAPIRPM       int
	RateLimitLoginRPM     int
	RateLimitRedisEnabled bool
	RateLimitFailureMode  string
	RateLimitSweepPeriod  time.Duration

	AuthAbuseFreeAttempts int
	AuthAbuseBaseDelay    time.Duration
	AuthAbuseMultiplier   float64
	AuthAbuseMaxDelay     time.Duration
	AuthAbuseResetWindow  time.Duration

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ListCacheTTL     time.Duration
	NegativeCacheTTL time.Duration
	IdempotencyTTL   time.Duration

	S3Enabled        bool
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3AccessKey      string
	S3SecretKey      string
	S3PresignTTL     time.Duration
	S3MaxUploadBytes int64

	LogLevel string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSampleRatio      float64

	HTTPReadTimeout              time.Duration
	HTTPWriteTimeout             time.Duration
	HTTPIdleTimeout              time.Duration
	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
	ReadinessProbeTimeout        time.Duration
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}

// Load reads configuration from the environment. envFile, when non-empty, is
// applied first without overriding variables that are already set.
func Load(envFile string) (*Config, error) {
	cfg, err := load(envFile)
	profile := os.Getenv("APP_ENV")
	if err != nil {
		recordConfigValidationEvent(context.Background(), profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), profile, "success", "none")
	return cfg, nil
}

func load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}
	p := &envParser{}
	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		UIDir:    getEnv("UI_DIR", ""),

		DatabaseDriver:      strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseAutoMigrate: p.boolean("DATABASE_AUTO_MIGRATE", false),

		JWTSecret:                getEnv("JWT_SECRET", ""),
		JWTIssuer:                getEnv("JWT_ISSUER", "siteops-service"),
		JWTAudience:              getEnv("JWT_AUDIENCE", "siteops-dashboard"),
		SessionCookieName:        getEnv("SESSION_COOKIE_NAME", "session_token"),
		SessionMaxAge:            p.duration("SESSION_MAX_AGE", 24*time.Hour),
		SessionUpdateAge:         p.duration("SESSION_UPDATE_AGE", time.Hour),
		CookieSecure:             p.boolean("COOKIE_SECURE", false),
		CookieDomain:             getEnv("COOKIE_DOMAIN", ""),
		AuthLogoutRevokesSession: p.boolean("AUTH_LOGOUT_REVOKES_SESSION", false),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		RateLimitAPIRPM:       p.integer("RATE_LIMIT_API_RPM", 300),
		RateLimitLoginRPM:     p.integer("RATE_LIMIT_LOGIN_RPM", 10),
		RateLimitRedisEnabled: p.boolean("RATE_LIMIT_REDIS_ENABLED", false),
		RateLimitFailureMode:  strings.ToLower(getEnv("RATE_LIMIT_FAILURE_MODE", "fail_open")),
		RateLimitSweepPeriod:  p.duration("RATE_LIMIT_SWEEP_PERIOD", 5*time.Minute),

		AuthAbuseFreeAttempts: p.integer("AUTH_ABUSE_FREE_ATTEMPTS", 5),
		AuthAbuseBaseDelay:    p.duration("AUTH_ABUSE_BASE_DELAY", 2*time.Second),
		AuthAbuseMultiplier:   p.float("AUTH_ABUSE_MULTIPLIER", 2),
		AuthAbuseMaxDelay:     p.duration("AUTH_ABUSE_MAX_DELAY", 5*time.Minute),
		AuthAbuseResetWindow:  p.duration("AUTH_ABUSE_RESET_WINDOW", 15*time.Minute),

		RedisEnabled:  p.boolean("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.integer("REDIS_DB", 0),

		ListCacheTTL:     p.duration("CACHE_LIST_TTL", 30*time.Second),
		NegativeCacheTTL: p.duration("CACHE_NEGATIVE_TTL", 15*time.Second),
		IdempotencyTTL:   p.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		S3Enabled:        p.boolean("S3_ENABLED", false),
		S3Bucket:         getEnv("S3_BUCKET", "siteops-attachments"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3PresignTTL:     p.duration("S3_PRESIGN_TTL", 15*time.Minute),
		S3MaxUploadBytes: int64(p.integer("S3_MAX_UPLOAD_BYTES", 10<<20)),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "siteops-service"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", getEnv("APP_ENV", "development")),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  p.boolean("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        p.boolean("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:        p.boolean("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:           p.boolean("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: p.duration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second),
		OTELTraceSampleRatio:      p.float("OTEL_TRACE_SAMPLE_RATIO", 1),

		HTTPReadTimeout:              p.duration("HTTP_READ_TIMEOUT", 15*time.Second),
		HTTPWriteTimeout:             p.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		HTTPIdleTimeout:              p.duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:              p.duration("SHUTDOWN_TIMEOUT", 20*time.Second),
		ShutdownHTTPDrainTimeout:     p.duration("SHUTDOWN_HTTP_DRAIN_TIMEOUT", 10*time.Second),
		ShutdownObservabilityTimeout: p.duration("SHUTDOWN_OBSERVABILITY_TIMEOUT", 5*time.Second),
		ReadinessProbeTimeout:        p.duration("READINESS_PROBE_TIMEOUT", 2*time.Second),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE must be positive"))
	}
	if c.SessionUpdateAge < 0 || c.SessionUpdateAge >= c.SessionMaxAge {
		errs = append(errs, errors.New("SESSION_UPDATE_AGE must be non-negative and shorter than SESSION_MAX_AGE"))
	}
	if c.SessionCookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME is required"))
	}
	if c.RateLimitAPIRPM <= 0 || c.RateLimitLoginRPM <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	switch c.RateLimitFailureMode {
	case "fail_open", "fail_closed":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_FAILURE_MODE must be fail_open or fail_closed, got %q", c.RateLimitFailureMode))
	}
	if c.RateLimitRedisEnabled && !c.RedisEnabled {
		errs = append(errs, errors.New("RATE_LIMIT_REDIS_ENABLED requires REDIS_ENABLED"))
	}
	if c.S3Enabled && c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required when S3_ENABLED"))
	}
	if c.IsProduction() {
		if !c.CookieSecure {
			errs = append(errs, errors.New("COOKIE_SECURE must be true in production"))
		}
		for _, origin := range c.CORSAllowedOrigins {
			if origin == "*" {
				errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must not contain * in production"))
			}
		}
	}
	return errors.Join(errs...)
}

type envParser struct {
	err error
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return v
}

func (p *envParser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return v
}

func (p *envParser) float(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return v
}

func (p *envParser) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
		return def
	}
	return v
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
