//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/sandeepkv93/siteops-service/internal/app"
	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/http/handler"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

var infraSet = wire.NewSet(
	provideTelemetry,
	provideLogger,
	provideRuntime,
	provideDB,
	provideRedis,
	provideReadiness,
	provideBackgroundTasks,
	observability.NewHTTPMetrics,
)

var repositorySet = wire.NewSet(
	repository.NewUserRepository,
	repository.NewSessionRepository,
	repository.NewEntityRepositories,
	repository.NewReferenceChecker,
	repository.NewDashboardRepository,
)

var serviceSet = wire.NewSet(
	provideJWTManager,
	provideTokenService,
	provideAuthAbuseGuard,
	provideAuthOptions,
	provideEntityCache,
	provideObjectStore,
	provideUploadService,
	service.NewAuthService,
	service.NewSessionService,
	service.NewUserService,
	service.NewRoleAuthorizer,
	service.NewEntities,
	service.NewDashboardService,
	wire.Bind(new(service.AuthServiceInterface), new(*service.AuthService)),
	wire.Bind(new(service.SessionValidator), new(*service.SessionService)),
	wire.Bind(new(service.UserServiceInterface), new(*service.UserService)),
	wire.Bind(new(service.RBACAuthorizer), new(*service.RoleAuthorizer)),
)

var httpSet = wire.NewSet(
	provideCookieOptions,
	provideBoundary,
	provideRateLimiters,
	provideIdempotency,
	handler.NewAuthHandler,
	handler.NewUserHandler,
	handler.NewUploadHandler,
	handler.NewDashboardHandler,
	handler.NewResources,
	provideRouterDependencies,
	provideHTTPServer,
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	wire.Build(infraSet, repositorySet, serviceSet, httpSet, provideApp)
	return nil, nil
}
