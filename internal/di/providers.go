package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sandeepkv93/siteops-service/internal/app"
	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/health"
	"github.com/sandeepkv93/siteops-service/internal/http/handler"
	"github.com/sandeepkv93/siteops-service/internal/http/middleware"
	"github.com/sandeepkv93/siteops-service/internal/http/router"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
	"github.com/sandeepkv93/siteops-service/internal/service"
	"github.com/sandeepkv93/siteops-service/internal/storage"
)

const redisKeyPrefix = "siteops"

// Telemetry groups what observability bootstrap hands back so the logger and
// the provider runtime come from a single initialisation.
type Telemetry struct {
	Logger  *slog.Logger
	Runtime *observability.Runtime
}

// IdempotencyMiddleware is a named type so wire can tell it apart from the
// rate limiters.
type IdempotencyMiddleware func(http.Handler) http.Handler

// BackgroundTasks collects stop functions for goroutines started while
// wiring, such as limiter sweepers.
type BackgroundTasks struct {
	stops []func()
}

func (b *BackgroundTasks) add(stop func()) { b.stops = append(b.stops, stop) }

func (b *BackgroundTasks) Stop() {
	for _, stop := range b.stops {
		stop()
	}
}

type RateLimiters struct {
	API   router.APIRateLimiterFunc
	Login router.LoginRateLimiterFunc
}

func provideTelemetry(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	logger, lp, err := observability.NewLogger(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)
	rt, err := observability.InitRuntime(ctx, cfg, logger, lp)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	return &Telemetry{Logger: logger, Runtime: rt}, nil
}

func provideLogger(t *Telemetry) *slog.Logger { return t.Logger }

func provideRuntime(t *Telemetry) *observability.Runtime { return t.Runtime }

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseAutoMigrate {
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
		logger.Info("database schema migrated", "driver", cfg.DatabaseDriver)
	}
	return db, nil
}

// provideRedis returns a nil client when Redis is disabled; every consumer
// falls back to its in-process store in that case.
func provideRedis(cfg *config.Config) redis.UniversalClient {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
}

func provideTokenService(jwtMgr *security.JWTManager, cfg *config.Config) *service.TokenService {
	return service.NewTokenService(jwtMgr, cfg.SessionMaxAge, cfg.SessionUpdateAge)
}

func provideAuthAbuseGuard(cfg *config.Config, client redis.UniversalClient) service.AuthAbuseGuard {
	policy := service.AuthAbusePolicy{
		FreeAttempts: cfg.AuthAbuseFreeAttempts,
		BaseDelay:    cfg.AuthAbuseBaseDelay,
		Multiplier:   cfg.AuthAbuseMultiplier,
		MaxDelay:     cfg.AuthAbuseMaxDelay,
		ResetWindow:  cfg.AuthAbuseResetWindow,
	}
	if client != nil {
		return service.NewRedisAuthAbuseGuard(client, redisKeyPrefix+":abuse", policy)
	}
	return service.NewInMemoryAuthAbuseGuard(policy)
}

func provideAuthOptions(cfg *config.Config) service.AuthOptions {
	return service.AuthOptions{LogoutRevokesSession: cfg.AuthLogoutRevokesSession}
}

func provideEntityCache(cfg *config.Config, client redis.UniversalClient) service.EntityCacheOptions {
	opts := service.EntityCacheOptions{ListTTL: cfg.ListCacheTTL, NotFoundTTL: cfg.NegativeCacheTTL}
	switch {
	case client != nil:
		opts.Lists = service.NewRedisListCacheStore(client, redisKeyPrefix+":list")
		opts.NotFound = service.NewRedisNegativeLookupCacheStore(client, redisKeyPrefix+":notfound")
	default:
		opts.Lists = service.NewInMemoryListCacheStore()
		opts.NotFound = service.NewInMemoryNegativeLookupCacheStore()
	}
	if cfg.ListCacheTTL <= 0 {
		opts.Lists = service.NewNoopListCacheStore()
	}
	if cfg.NegativeCacheTTL <= 0 {
		opts.NotFound = service.NewNoopNegativeLookupCacheStore()
	}
	return opts
}

// provideObjectStore returns an untyped nil when uploads are disabled so the
// upload service reports STORAGE_DISABLED instead of calling a nil client.
func provideObjectStore(ctx context.Context, cfg *config.Config) (service.ObjectStore, error) {
	if !cfg.S3Enabled {
		return nil, nil
	}
	store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:     cfg.S3Bucket,
		Region:     cfg.S3Region,
		Endpoint:   cfg.S3Endpoint,
		AccessKey:  cfg.S3AccessKey,
		SecretKey:  cfg.S3SecretKey,
		PresignTTL: cfg.S3PresignTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	return store, nil
}

func provideUploadService(store service.ObjectStore, repos *repository.EntityRepositories, cfg *config.Config) *service.UploadService {
	return service.NewUploadService(store, repos.WorkUpdates, cfg.S3MaxUploadBytes)
}

func provideCookieOptions(cfg *config.Config) security.CookieOptions {
	return security.CookieOptions{Name: cfg.SessionCookieName, Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
}

func provideBoundary(tokens *service.TokenService, validator service.SessionValidator, cookie security.CookieOptions) middleware.SessionBoundary {
	return middleware.SessionBoundary{Tokens: tokens, Validator: validator, Cookie: cookie}
}

func provideBackgroundTasks() *BackgroundTasks { return &BackgroundTasks{} }

func provideRateLimiters(cfg *config.Config, client redis.UniversalClient, bg *BackgroundTasks) RateLimiters {
	mode := middleware.FailureMode(strings.ToLower(cfg.RateLimitFailureMode))
	build := func(scope string, rpm int) *middleware.RateLimiter {
		var limiter middleware.Limiter
		if cfg.RateLimitRedisEnabled && client != nil {
			limiter = middleware.NewRedisLimiter(client, redisKeyPrefix+":rl:"+scope)
		} else {
			limiter = middleware.NewLocalLimiter()
		}
		return middleware.NewDistributedRateLimiterWithKey(limiter, rpm, time.Minute, mode, scope, middleware.SubjectOrIPKey).
			WithBypassEvaluator(middleware.InfraBypass)
	}
	api := build("api", cfg.RateLimitAPIRPM)
	login := build("login", cfg.RateLimitLoginRPM)

	ctx, cancel := context.WithCancel(context.Background())
	api.StartSweeper(ctx, cfg.RateLimitSweepPeriod)
	login.StartSweeper(ctx, cfg.RateLimitSweepPeriod)
	bg.add(cancel)

	return RateLimiters{
		API:   router.APIRateLimiterFunc(api.Middleware()),
		Login: router.LoginRateLimiterFunc(login.Middleware()),
	}
}

func provideIdempotency(cfg *config.Config, client redis.UniversalClient) IdempotencyMiddleware {
	var store service.IdempotencyStore
	if client != nil {
		store = service.NewRedisIdempotencyStore(client, redisKeyPrefix+":idem")
	} else {
		store = service.NewInMemoryIdempotencyStore()
	}
	return IdempotencyMiddleware(middleware.Idempotency(store, cfg.IdempotencyTTL))
}

func provideReadiness(cfg *config.Config, db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, time.Second, checkers...)
}

func provideRouterDependencies(
	cfg *config.Config,
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	uploadHandler *handler.UploadHandler,
	dashboardHandler *handler.DashboardHandler,
	resources []handler.Resource,
	boundary middleware.SessionBoundary,
	rbac service.RBACAuthorizer,
	limiters RateLimiters,
	idempotency IdempotencyMiddleware,
	readiness *health.ProbeRunner,
	metrics *observability.HTTPMetrics,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		UploadHandler:     uploadHandler,
		DashboardHandler:  dashboardHandler,
		Resources:         resources,
		Boundary:          boundary,
		RBACService:       rbac,
		CORSOrigins:       cfg.CORSAllowedOrigins,
		Production:        cfg.IsProduction(),
		APIRateLimitRPM:   cfg.RateLimitAPIRPM,
		LoginRateLimitRPM: cfg.RateLimitLoginRPM,
		APIRateLimiter:    limiters.API,
		LoginRateLimiter:  limiters.Login,
		Idempotency:       idempotency,
		Readiness:         readiness,
		Metrics:           metrics,
		Logger:            logger,
		UIDir:             cfg.UIDir,
		EnableOTelHTTP:    cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, dep router.Dependencies) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(dep),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	db *gorm.DB,
	client redis.UniversalClient,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
	bg *BackgroundTasks,
) *app.App {
	return app.New(cfg, logger, server, db, client, runtime, readiness, bg.Stop)
}
