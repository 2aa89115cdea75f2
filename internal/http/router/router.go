package router

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/health"
	"github.com/sandeepkv93/siteops-service/internal/http/handler"
	"github.com/sandeepkv93/siteops-service/internal/http/middleware"
	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	UploadHandler     *handler.UploadHandler
	DashboardHandler  *handler.DashboardHandler
	Resources         []handler.Resource
	Boundary          middleware.SessionBoundary
	RBACService       service.RBACAuthorizer
	CORSOrigins       []string
	Production        bool
	APIRateLimitRPM   int
	LoginRateLimitRPM int
	APIRateLimiter    APIRateLimiterFunc
	LoginRateLimiter  LoginRateLimiterFunc
	Idempotency       func(http.Handler) http.Handler
	Readiness         *health.ProbeRunner
	Metrics           *observability.HTTPMetrics
	Logger            *slog.Logger
	UIDir             string
	EnableOTelHTTP    bool
}

type APIRateLimiterFunc func(http.Handler) http.Handler
type LoginRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger, dep.Metrics))
	r.Use(middleware.SecurityHeaders(dep.Production))
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(middleware.DefaultMaxBodyBytes))
	r.Use(dep.Boundary.Middleware())

	apiLimiter := dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).
			WithBypassEvaluator(middleware.InfraBypass).Middleware()
	}
	loginLimiter := dep.LoginRateLimiter
	if loginLimiter == nil {
		loginLimiter = middleware.NewRateLimiter(dep.LoginRateLimitRPM, time.Minute).Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})
	if dep.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", dep.Metrics.Handler())
	}

	perm := func(resource, action string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(dep.RBACService, domain.Permission(resource, action))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter).Post("/login", dep.AuthHandler.Login)
			r.Post("/logout", dep.AuthHandler.Logout)
			r.Get("/session", dep.AuthHandler.Session)
			r.With(middleware.RequireAuth).Get("/login-history", dep.AuthHandler.LoginHistory)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(apiLimiter)
			if dep.Idempotency != nil {
				r.Use(dep.Idempotency)
			}

			r.Route("/users", func(r chi.Router) {
				r.With(perm(domain.ResourceUsers, domain.PermissionActionRead)).Get("/", dep.UserHandler.List)
				r.With(perm(domain.ResourceUsers, domain.PermissionActionEdit)).Post("/", dep.UserHandler.Create)
				r.With(perm(domain.ResourceUsers, domain.PermissionActionRead)).Get("/{id}", dep.UserHandler.Get)
				r.With(perm(domain.ResourceUsers, domain.PermissionActionEdit)).Put("/{id}", dep.UserHandler.Update)
				r.With(perm(domain.ResourceUsers, domain.PermissionActionEdit)).Delete("/{id}", dep.UserHandler.Deactivate)
				r.With(perm(domain.ResourceUsers, domain.PermissionActionEdit)).Post("/{id}/revoke-session", dep.UserHandler.RevokeSession)
			})

			for _, res := range dep.Resources {
				read := perm(res.Permission, domain.PermissionActionRead)
				write := perm(res.Permission, domain.PermissionActionEdit)
				r.Route("/"+res.Path, func(r chi.Router) {
					r.With(read).Get("/", res.CRUD.List)
					r.With(write).Post("/", res.CRUD.Create)
					if res.Export != nil {
						r.With(read).Get("/export", res.Export)
					}
					r.With(read).Get("/{id}", res.CRUD.Get)
					r.With(write).Put("/{id}", res.CRUD.Update)
					r.With(write).Delete("/{id}", res.CRUD.Delete)
					if res.Permission == domain.ResourceWorkUpdates && dep.UploadHandler != nil {
						r.With(read).Get("/{id}/attachments/{attachmentID}/url", dep.UploadHandler.AttachmentURL)
					}
				})
			}

			if dep.UploadHandler != nil {
				r.With(perm(domain.ResourceUploads, domain.PermissionActionEdit)).Post("/uploads/presign", dep.UploadHandler.Presign)
				r.With(perm(domain.ResourceUploads, domain.PermissionActionEdit)).Delete("/uploads", dep.UploadHandler.Delete)
			}
			if dep.DashboardHandler != nil {
				r.With(perm(domain.ResourceDashboard, domain.PermissionActionRead)).Get("/dashboard/summary", dep.DashboardHandler.Summary)
			}
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
		})
	})

	if dep.UIDir != "" {
		r.NotFound(uiHandler(dep.UIDir).ServeHTTP)
	}

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

// uiHandler serves the prebuilt dashboard. Unknown paths fall back to
// index.html so client-side routes resolve.
func uiHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		full := filepath.Join(dir, filepath.FromSlash(clean))
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(clean, "/api/") || path.Ext(clean) != "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
