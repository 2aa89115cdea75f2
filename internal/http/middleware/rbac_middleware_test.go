package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

func TestRequirePermissionDenied(t *testing.T) {
	mw := RequirePermission(service.NewRoleAuthorizer(), "payments:read")

	req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &service.Principal{UserID: 3, Role: domain.RoleSupervisor}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("expected middleware to block request")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}
}

func TestRequirePermissionMissingPrincipal(t *testing.T) {
	mw := RequirePermission(service.NewRoleAuthorizer(), "workers:read")
	rr := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("expected middleware to block request")
	})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/workers", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRequirePermissionAllowed(t *testing.T) {
	mw := RequirePermission(service.NewRoleAuthorizer(), "attendance:write")
	req := httptest.NewRequest(http.MethodPost, "/api/attendance", nil)
	req = req.WithContext(WithPrincipal(req.Context(), &service.Principal{UserID: 3, Role: domain.RoleSupervisor}))
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}
