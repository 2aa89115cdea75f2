package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func TestAuditRecordsRouteAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post("/api/users/{id}/revoke-session", func(w http.ResponseWriter, r *http.Request) {
		Audit(r, "session.revoke", "target_user_id", 7)
		w.WriteHeader(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/users/7/revoke-session", nil))

	var rec struct {
		Msg       string `json:"msg"`
		Event     string `json:"event"`
		RequestID string `json:"request_id"`
		Target    int    `json:"target_user_id"`
		HTTP      struct {
			Method string `json:"method"`
			Route  string `json:"route"`
		} `json:"http"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode audit record %q: %v", buf.String(), err)
	}
	if rec.Msg != "audit" || rec.Event != "session.revoke" || rec.Target != 7 {
		t.Fatalf("unexpected audit record %+v", rec)
	}
	if rec.RequestID == "" {
		t.Fatal("expected request id on audit record")
	}
	if rec.HTTP.Method != http.MethodPost || rec.HTTP.Route != "/api/users/{id}/revoke-session" {
		t.Fatalf("expected route pattern, got %+v", rec.HTTP)
	}
}
