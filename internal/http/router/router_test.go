package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/health"
	"github.com/sandeepkv93/siteops-service/internal/http/handler"
	"github.com/sandeepkv93/siteops-service/internal/http/middleware"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

const (
	testSecret   = "abcdefghijklmnopqrstuvwxyz123456"
	testPassword = "correct horse battery"
	cookieName   = "session_token"
)

type unhealthyChecker struct{}

func (unhealthyChecker) Check(ctx context.Context) health.CheckResult {
	return health.CheckResult{Name: "db", Healthy: false, Error: "db down"}
}

type routerFixture struct {
	db  *gorm.DB
	dep Dependencies
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:router_%s?mode=memory&cache=shared", name), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	tokens := service.NewTokenService(security.NewJWTManager("siteops", "siteops-web", testSecret), 24*time.Hour, time.Hour)
	auth := service.NewAuthService(users, sessions, tokens, service.NewInMemoryAuthAbuseGuard(service.AuthAbusePolicy{}), service.AuthOptions{}, logger)
	userSvc := service.NewUserService(users, sessions)
	rbac := service.NewRoleAuthorizer()
	repos := repository.NewEntityRepositories(db)
	entities := service.NewEntities(repos, repository.NewReferenceChecker(db), service.EntityCacheOptions{}, logger)
	cookie := security.CookieOptions{Name: cookieName}

	return &routerFixture{db: db, dep: Dependencies{
		AuthHandler:       handler.NewAuthHandler(auth, userSvc, rbac, cookie, logger),
		UserHandler:       handler.NewUserHandler(userSvc, auth, logger),
		UploadHandler:     handler.NewUploadHandler(service.NewUploadService(nil, repos.WorkUpdates, 1<<20), logger),
		DashboardHandler:  handler.NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepository(db)), logger),
		Resources:         handler.NewResources(entities, logger),
		Boundary:          middleware.SessionBoundary{Tokens: tokens, Validator: service.NewSessionService(sessions, logger), Cookie: cookie},
		RBACService:       rbac,
		CORSOrigins:       []string{"http://localhost:3000"},
		APIRateLimitRPM:   1000,
		LoginRateLimitRPM: 1000,
		Logger:            logger,
	}}
}

func (f *routerFixture) seedUser(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{Email: email, PasswordHash: hash, Name: string(role), Role: role, IsActive: true}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func perform(r http.Handler, method, target string, headers map[string]string, cookies []*http.Cookie, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "10.10.10.10:1234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, r http.Handler, email string) []*http.Cookie {
	t.Helper()
	rr := perform(r, http.MethodPost, "/api/auth/login", nil, nil, fmt.Sprintf(`{"email":%q,"password":%q}`, email, testPassword))
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d %s", email, rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return []*http.Cookie{c}
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
	Meta       struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return env
}

func TestRouterHealthReadyNilAndUnreadyBranches(t *testing.T) {
	t.Run("nil readiness returns ready", func(t *testing.T) {
		r := NewRouter(newRouterFixture(t).dep)
		rr := perform(r, http.MethodGet, "/health/ready", nil, nil, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"status":"ready"`) {
			t.Fatalf("expected ready status payload, got %s", rr.Body.String())
		}
	})

	t.Run("unready dependency returns 503", func(t *testing.T) {
		f := newRouterFixture(t)
		f.dep.Readiness = health.NewProbeRunner(time.Second, 0, unhealthyChecker{})
		r := NewRouter(f.dep)
		rr := perform(r, http.MethodGet, "/health/ready", nil, nil, "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"code":"DEPENDENCY_UNREADY"`) {
			t.Fatalf("expected DEPENDENCY_UNREADY error envelope, got %s", rr.Body.String())
		}
	})
}

func TestRouterHealthLiveCarriesSecurityHeaders(t *testing.T) {
	r := NewRouter(newRouterFixture(t).dep)
	rr := perform(r, http.MethodGet, "/health/live", nil, nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("expected health live payload, got %d %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("security headers must apply to every response")
	}
	if decode(t, rr).Meta.RequestID == "" {
		t.Fatal("expected request id in meta")
	}
}

func TestRouterUnauthenticatedBoundary(t *testing.T) {
	r := NewRouter(newRouterFixture(t).dep)

	rr := perform(r, http.MethodGet, "/api/workers", nil, nil, "")
	if rr.Code != http.StatusUnauthorized || decode(t, rr).Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401 envelope, got %d %s", rr.Code, rr.Body.String())
	}
	rr = perform(r, http.MethodGet, "/workers?site_id=3", nil, nil, "")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/login?callbackUrl=%2Fworkers%3Fsite_id%3D3" {
		t.Fatalf("expected login redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestRouterSecondLoginInvalidatesFirstDevice(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "manager@siteops.test", domain.RoleManager)
	r := NewRouter(f.dep)

	first := login(t, r, "manager@siteops.test")
	if rr := perform(r, http.MethodGet, "/api/workers", nil, first, ""); rr.Code != http.StatusOK {
		t.Fatalf("first device expected 200, got %d", rr.Code)
	}
	second := login(t, r, "manager@siteops.test")

	rr := perform(r, http.MethodGet, "/api/workers", nil, first, "")
	if rr.Code != http.StatusUnauthorized || decode(t, rr).Code != "SESSION_INVALIDATED" {
		t.Fatalf("first device expected SESSION_INVALIDATED, got %d %s", rr.Code, rr.Body.String())
	}
	if rr := perform(r, http.MethodGet, "/api/workers", nil, second, ""); rr.Code != http.StatusOK {
		t.Fatalf("second device expected 200, got %d", rr.Code)
	}

	rr = perform(r, http.MethodGet, "/api/auth/session", nil, second, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"authenticated":true`) {
		t.Fatalf("unexpected session payload %d %s", rr.Code, rr.Body.String())
	}
	rr = perform(r, http.MethodGet, "/api/auth/session", nil, first, "")
	var stale struct {
		Authenticated bool   `json:"authenticated"`
		Reason        string `json:"reason"`
	}
	if err := json.Unmarshal(decode(t, rr).Data, &stale); err != nil || stale.Authenticated || stale.Reason != "session_invalidated" {
		t.Fatalf("first device session poll: %+v err=%v body=%s", stale, err, rr.Body.String())
	}
	rr = perform(r, http.MethodGet, "/api/auth/login-history", nil, second, "")
	var events []domain.LoginEvent
	if err := json.Unmarshal(decode(t, rr).Data, &events); err != nil || len(events) != 2 {
		t.Fatalf("expected two login events, got %v err=%v", len(events), err)
	}
}

func TestRouterLoginFailures(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "admin@siteops.test", domain.RoleAdmin)
	f.dep.LoginRateLimitRPM = 2
	r := NewRouter(f.dep)

	rr := perform(r, http.MethodPost, "/api/auth/login", nil, nil, `{"email":"admin@siteops.test","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized || decode(t, rr).Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %d %s", rr.Code, rr.Body.String())
	}
	rr = perform(r, http.MethodPost, "/api/auth/login", nil, nil, `{"email":"nobody@siteops.test","password":"wrong"}`)
	if rr.Code != http.StatusUnauthorized || decode(t, rr).Code != "INVALID_CREDENTIALS" {
		t.Fatalf("unknown email must look like a wrong password, got %d %s", rr.Code, rr.Body.String())
	}
	rr = perform(r, http.MethodPost, "/api/auth/login", nil, nil, `{"email":"admin@siteops.test","password":"wrong"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected login limiter to deny the third attempt, got %d", rr.Code)
	}
}

func TestRouterWorkerCRUD(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "manager@siteops.test", domain.RoleManager)
	r := NewRouter(f.dep)
	cookies := login(t, r, "manager@siteops.test")

	rr := perform(r, http.MethodPost, "/api/workers", nil, cookies, `{"name":" Ravi ","trade":"mason","daily_wage":850}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	var created domain.Worker
	if err := json.Unmarshal(decode(t, rr).Data, &created); err != nil {
		t.Fatalf("decode worker: %v", err)
	}
	if created.ID == 0 || created.Name != "Ravi" || !created.Active() {
		t.Fatalf("unexpected created worker %+v", created)
	}

	rr = perform(r, http.MethodPut, fmt.Sprintf("/api/workers/%d", created.ID), nil, cookies, `{"daily_wage":900}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	var updated domain.Worker
	_ = json.Unmarshal(decode(t, rr).Data, &updated)
	if updated.DailyWage != 900 || updated.Trade != "mason" {
		t.Fatalf("partial update must keep untouched fields, got %+v", updated)
	}

	rr = perform(r, http.MethodGet, "/api/workers?search=rav&limit=5", nil, cookies, "")
	env := decode(t, rr)
	if rr.Code != http.StatusOK || env.Total != 1 || env.Page != 1 || env.Limit != 5 || env.TotalPages != 1 {
		t.Fatalf("unexpected list envelope %d %s", rr.Code, rr.Body.String())
	}

	rr = perform(r, http.MethodDelete, fmt.Sprintf("/api/workers/%d", created.ID), nil, cookies, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
	rr = perform(r, http.MethodGet, fmt.Sprintf("/api/workers/%d", created.ID), nil, cookies, "")
	var disabled domain.Worker
	_ = json.Unmarshal(decode(t, rr).Data, &disabled)
	if rr.Code != http.StatusOK || disabled.Active() {
		t.Fatalf("delete must soft-disable workers, got %d %+v", rr.Code, disabled)
	}

	if rr := perform(r, http.MethodGet, "/api/workers/9999", nil, cookies, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := perform(r, http.MethodGet, "/api/workers/abc", nil, cookies, ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", rr.Code)
	}
	if rr := perform(r, http.MethodGet, "/api/workers?site_id=x", nil, cookies, ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad filter, got %d", rr.Code)
	}
}

func TestRouterAttendanceRejectsInvertedTimes(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "supervisor@siteops.test", domain.RoleSupervisor)
	worker := &domain.Worker{Name: "Anil", IsActive: domain.Bool(true)}
	if err := f.db.Create(worker).Error; err != nil {
		t.Fatalf("seed worker: %v", err)
	}
	r := NewRouter(f.dep)
	cookies := login(t, r, "supervisor@siteops.test")

	body := fmt.Sprintf(`{"worker_id":%d,"date":"2026-03-07","check_in":"2026-03-07T09:00:00Z","check_out":"2026-03-07T17:30:00Z"}`, worker.ID)
	rr := perform(r, http.MethodPost, "/api/attendance", nil, cookies, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create attendance: expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	var rec domain.AttendanceRecord
	_ = json.Unmarshal(decode(t, rr).Data, &rec)
	if rec.HoursWorked != 8.5 {
		t.Fatalf("expected derived 8.5 hours, got %v", rec.HoursWorked)
	}

	rr = perform(r, http.MethodPut, fmt.Sprintf("/api/attendance/%d", rec.ID), nil, cookies, `{"notes":"late","check_out":"2026-03-07T08:00:00Z"}`)
	if rr.Code != http.StatusBadRequest || decode(t, rr).Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %d %s", rr.Code, rr.Body.String())
	}

	rr = perform(r, http.MethodGet, "/api/attendance/export?from=2026-03-01&to=2026-03-07", nil, cookies, "")
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: unexpected %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "ID,Date,Worker ID,Worker") || !strings.Contains(lines[1], "Anil") {
		t.Fatalf("unexpected csv %q", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "attendance-") {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
}

func TestRouterPermissions(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "supervisor@siteops.test", domain.RoleSupervisor)
	r := NewRouter(f.dep)
	cookies := login(t, r, "supervisor@siteops.test")

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/api/payments", "", http.StatusForbidden},
		{http.MethodGet, "/api/users", "", http.StatusForbidden},
		{http.MethodPost, "/api/workers", `{"name":"x"}`, http.StatusForbidden},
		{http.MethodGet, "/api/workers", "", http.StatusOK},
		{http.MethodPost, "/api/uploads/presign", `{"file_name":"a.jpg","size_bytes":10}`, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rr := perform(r, tc.method, tc.target, nil, cookies, tc.body)
		if rr.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d %s", tc.method, tc.target, tc.want, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterAdminRevokesSession(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "admin@siteops.test", domain.RoleAdmin)
	target := f.seedUser(t, "manager@siteops.test", domain.RoleManager)
	r := NewRouter(f.dep)
	admin := login(t, r, "admin@siteops.test")
	manager := login(t, r, "manager@siteops.test")

	rr := perform(r, http.MethodPost, fmt.Sprintf("/api/users/%d/revoke-session", target.ID), nil, admin, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke: expected 200, got %d %s", rr.Code, rr.Body.String())
	}
	rr = perform(r, http.MethodGet, "/api/sites", nil, manager, "")
	if rr.Code != http.StatusUnauthorized || decode(t, rr).Code != "SESSION_INVALIDATED" {
		t.Fatalf("revoked session expected SESSION_INVALIDATED, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouterIdempotentCreate(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "manager@siteops.test", domain.RoleManager)
	f.dep.Idempotency = middleware.Idempotency(service.NewInMemoryIdempotencyStore(), time.Hour)
	r := NewRouter(f.dep)
	cookies := login(t, r, "manager@siteops.test")

	headers := map[string]string{middleware.IdempotencyKeyHeader: "site-create-1"}
	first := perform(r, http.MethodPost, "/api/sites", headers, cookies, `{"name":"Tower A","status":"active"}`)
	second := perform(r, http.MethodPost, "/api/sites", headers, cookies, `{"name":"Tower A","status":"active"}`)
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("expected two 201s, got %d and %d", first.Code, second.Code)
	}
	var count int64
	f.db.Model(&domain.Site{}).Count(&count)
	if count != 1 {
		t.Fatalf("replayed create must not insert twice, got %d sites", count)
	}
	conflict := perform(r, http.MethodPost, "/api/sites", headers, cookies, `{"name":"Tower B","status":"active"}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 on key reuse, got %d", conflict.Code)
	}
}

func TestRouterServesUIForSignedInPages(t *testing.T) {
	f := newRouterFixture(t)
	f.seedUser(t, "manager@siteops.test", domain.RoleManager)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>siteops</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	f.dep.UIDir = dir
	r := NewRouter(f.dep)
	cookies := login(t, r, "manager@siteops.test")

	rr := perform(r, http.MethodGet, "/dashboard", nil, cookies, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "siteops") {
		t.Fatalf("expected index.html, got %d %s", rr.Code, rr.Body.String())
	}
	rr = perform(r, http.MethodGet, "/", nil, cookies, "")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("expected root redirect to dashboard, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}
