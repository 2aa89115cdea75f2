package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/security"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

type contextKey string

const (
	principalContextKey     contextKey = "principal"
	sessionReasonContextKey contextKey = "session_reason"
)

// Reasons reported to auth routes when a presented claim was not accepted.
const (
	SessionReasonInvalidated = "session_invalidated"
	SessionReasonExpired     = "session_expired"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// SessionBoundary resolves the session claim on every request and enforces
// the redirect and 401 rules for pages and API routes.
type SessionBoundary struct {
	Tokens    *service.TokenService
	Validator service.SessionValidator
	Cookie    security.CookieOptions
}

type sessionResult struct {
	principal *service.Principal
	err       error
}

func (b SessionBoundary) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if isStaticAsset(p) || isInfraPath(p) {
				next.ServeHTTP(w, r)
				return
			}

			res := b.resolve(w, r)
			if res.principal != nil {
				r = r.WithContext(WithPrincipal(r.Context(), res.principal))
			}

			switch {
			case p == "/":
				target := LoginPath
				if res.principal != nil {
					target = DashboardPath
				}
				http.Redirect(w, r, target, http.StatusFound)
				return
			case p == LoginPath:
				if res.principal != nil {
					http.Redirect(w, r, DashboardPath, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			case strings.HasPrefix(p, "/api/auth/"):
				if reason := sessionReason(res.err); reason != "" {
					security.ClearSessionCookie(w, b.Cookie)
					r = r.WithContext(context.WithValue(r.Context(), sessionReasonContextKey, reason))
				}
				next.ServeHTTP(w, r)
				return
			}

			if res.principal == nil {
				b.reject(w, r, res.err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (b SessionBoundary) resolve(w http.ResponseWriter, r *http.Request) sessionResult {
	ctx := r.Context()
	raw := security.SessionFromRequest(r, b.Cookie.Name)
	if raw == "" {
		return sessionResult{err: service.ErrUnauthenticated}
	}
	claims, err := b.Tokens.Parse(raw)
	if err != nil {
		if errors.Is(err, service.ErrSessionExpired) {
			observability.RecordSessionCheck(ctx, "expired")
		} else {
			observability.RecordSessionCheck(ctx, "invalid")
		}
		return sessionResult{err: err}
	}
	principal, err := b.Validator.ValidateClaim(ctx, claims)
	if err != nil {
		return sessionResult{err: err}
	}
	if b.Tokens.NeedsRefresh(claims) {
		issued, rerr := b.Tokens.Refresh(principal)
		if rerr != nil {
			observability.RecordSessionRefresh(ctx, "error")
		} else {
			security.SetSessionCookie(w, b.Cookie, issued.Token, issued.ExpiresAt)
			principal.Claims = issued.Claims
			observability.RecordSessionRefresh(ctx, "success")
		}
	}
	return sessionResult{principal: principal}
}

func (b SessionBoundary) reject(w http.ResponseWriter, r *http.Request, err error) {
	invalidated := errors.Is(err, service.ErrSessionInvalidated)
	expired := errors.Is(err, service.ErrSessionExpired)
	if invalidated || expired {
		security.ClearSessionCookie(w, b.Cookie)
	}
	if isAPIPath(r.URL.Path) {
		switch {
		case invalidated:
			response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALIDATED", "Session invalidated: logged in from another device", nil)
		case expired:
			response.Error(w, r, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired", nil)
		case errors.Is(err, service.ErrAuthenticationFailed):
			response.Error(w, r, http.StatusServiceUnavailable, "SESSION_CHECK_UNAVAILABLE", "session check unavailable", nil)
		default:
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		}
		return
	}
	q := url.Values{}
	q.Set("callbackUrl", r.URL.RequestURI())
	switch {
	case invalidated:
		q.Set("session_invalidated", "1")
	case expired:
		q.Set("session_expired", "1")
	}
	http.Redirect(w, r, LoginPath+"?"+q.Encode(), http.StatusFound)
}

// RequireAuth guards routes the boundary lets through without a session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrSessionInvalidated):
		return SessionReasonInvalidated
	case errors.Is(err, service.ErrSessionExpired):
		return SessionReasonExpired
	default:
		return ""
	}
}

// SessionReasonFromContext reports why the boundary rejected the claim sent
// to an auth route, or "" when none was sent or it was merely malformed.
func SessionReasonFromContext(ctx context.Context) string {
	reason, _ := ctx.Value(sessionReasonContextKey).(string)
	return reason
}

func WithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (*service.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*service.Principal)
	return p, ok && p != nil
}

var staticPrefixes = []string{"/_next/", "/static/", "/assets/"}

func isStaticAsset(p string) bool {
	if p == "/favicon.ico" {
		return true
	}
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return !isAPIPath(p) && assetExtensions[strings.ToLower(path.Ext(p))]
}

// assetExtensions lists the file types a built UI ships. Other dotted paths,
// such as /workers/j.doe, still go through the boundary.
var assetExtensions = map[string]bool{
	".js": true, ".mjs": true, ".css": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".txt": true, ".webmanifest": true,
}

func isInfraPath(p string) bool {
	return p == "/metrics" || p == "/health" || strings.HasPrefix(p, "/health/")
}

func isAPIPath(p string) bool {
	return p == "/api" || strings.HasPrefix(p, "/api/")
}
