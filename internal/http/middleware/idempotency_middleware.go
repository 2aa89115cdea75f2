package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/http/response"
	"github.com/sandeepkv93/siteops-service/internal/observability"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

// Idempotency replays the stored response for a repeated POST carrying the
// same Idempotency-Key. Keys are scoped per caller and route. Requests
// without the header pass through untouched.
func Idempotency(store service.IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if r.Method != http.MethodPost || key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > maxIdempotencyKeyLen {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "idempotency key too long", nil)
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope := idempotencyScope(r)
			fingerprint := requestFingerprint(r, body)
			ctx := r.Context()

			begin, err := store.Begin(ctx, scope, key, fingerprint, ttl)
			if err != nil {
				observability.RecordIdempotencyEvent(ctx, scope, "backend_error")
				slog.Warn("idempotency store unavailable, processing without dedupe", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			switch begin.State {
			case service.IdempotencyStateReplay:
				if begin.Cached == nil {
					break
				}
				observability.RecordIdempotencyEvent(ctx, scope, "replay")
				w.Header().Set("Idempotent-Replayed", "true")
				if begin.Cached.ContentType != "" {
					w.Header().Set("Content-Type", begin.Cached.ContentType)
				}
				w.WriteHeader(begin.Cached.StatusCode)
				_, _ = w.Write(begin.Cached.Body)
				return
			case service.IdempotencyStateConflict:
				observability.RecordIdempotencyEvent(ctx, scope, "conflict")
				response.Error(w, r, http.StatusConflict, "IDEMPOTENCY_CONFLICT", "idempotency key reused with a different request", nil)
				return
			case service.IdempotencyStateInProgress:
				observability.RecordIdempotencyEvent(ctx, scope, "in_progress")
				response.Error(w, r, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS", "a request with this idempotency key is still running", nil)
				return
			}

			rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server errors are not stored so the client can retry with the same key.
			if rec.status >= http.StatusInternalServerError {
				observability.RecordIdempotencyEvent(ctx, scope, "abandoned")
				if err := store.Abandon(ctx, scope, key, fingerprint); err != nil {
					slog.Warn("idempotency abandon failed", "error", err.Error())
				}
				return
			}
			cached := service.CachedHTTPResponse{
				StatusCode:  rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.Complete(ctx, scope, key, fingerprint, cached, ttl); err != nil {
				slog.Warn("idempotency complete failed", "error", err.Error())
				return
			}
			observability.RecordIdempotencyEvent(ctx, scope, "stored")
		})
	}
}

func idempotencyScope(r *http.Request) string {
	subject := "anon"
	if p, ok := PrincipalFromContext(r.Context()); ok {
		subject = strconv.FormatUint(uint64(p.UserID), 10)
	}
	return subject + ":" + r.URL.Path
}

func requestFingerprint(r *http.Request, body []byte) string {
	h := sha256.New()
	_, _ = io.WriteString(h, r.Method)
	_, _ = io.WriteString(h, "\n")
	_, _ = io.WriteString(h, r.URL.Path)
	_, _ = io.WriteString(h, "\n")
	_, _ = h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type capturingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (w *capturingWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
