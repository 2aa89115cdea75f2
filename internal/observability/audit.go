package observability

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

// Audit writes one "audit" record for a security-relevant action such as a
// login, a session revocation or a user change. Records carry the request id
// and, when tracing is on, the trace id so they can be joined with spans.
func Audit(r *http.Request, event string, attrs ...any) {
	ctx := r.Context()
	route := r.URL.Path
	if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	base := []any{
		slog.String("event", event),
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.Group("http",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.String("remote_addr", r.RemoteAddr),
		),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		base = append(base, slog.String("trace_id", sc.TraceID().String()))
	}
	slog.Default().With(base...).InfoContext(ctx, "audit", attrs...)
}
