package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sandeepkv93/siteops-service/internal/observability"
)

// DefaultMaxBodyBytes caps JSON request bodies. Attachments go straight to
// object storage through presigned URLs and never pass through the API.
const DefaultMaxBodyBytes int64 = 1 << 20

// RequestLogger logs one line per request and feeds the scrape metrics.
// The route label is the chi pattern so ids do not explode cardinality.
func RequestLogger(logger *slog.Logger, metrics *observability.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			if metrics != nil {
				metrics.Begin()
			}
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			if metrics != nil {
				metrics.Observe(r.Method, route, status, elapsed.Seconds())
			}
			if isStaticAsset(r.URL.Path) || isInfraPath(r.URL.Path) {
				return
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", elapsed),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}

// BodyLimit rejects request bodies larger than maxBytes.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
