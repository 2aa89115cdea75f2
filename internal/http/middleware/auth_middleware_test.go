package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/security"
	"github.com/sandeepkv93/siteops-service/internal/service"
)

const boundarySecret = "boundary-test-secret-0123456789abcdef"

// stubValidator accepts claims whose sid matches current and fails otherwise.
type stubValidator struct {
	current string
	err     error
}

func (v *stubValidator) ValidateClaim(_ context.Context, claims *security.Claims) (*service.Principal, error) {
	if v.err != nil {
		return nil, v.err
	}
	if claims.SessionID != v.current {
		return nil, service.ErrSessionInvalidated
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, service.ErrUnauthenticated
	}
	return &service.Principal{UserID: id, Role: domain.Role(claims.Role), SessionID: claims.SessionID, Claims: claims}, nil
}

type boundaryFixture struct {
	now       time.Time
	tokens    *service.TokenService
	validator *stubValidator
	handler   http.Handler
}

func newBoundaryFixture(t *testing.T) *boundaryFixture {
	t.Helper()
	f := &boundaryFixture{now: time.Now().UTC().Truncate(time.Second), validator: &stubValidator{current: "sid-1"}}
	f.tokens = service.NewTokenService(security.NewJWTManager("siteops", "siteops-web", boundarySecret), 24*time.Hour, time.Hour).
		WithClock(func() time.Time { return f.now })
	b := SessionBoundary{Tokens: f.tokens, Validator: f.validator, Cookie: security.CookieOptions{Name: "session_token"}}
	f.handler = b.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			w.Header().Set("X-Test-User", p.SessionID)
		}
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *boundaryFixture) claim(t *testing.T, sid string) string {
	t.Helper()
	issued, err := f.tokens.Issue(7, domain.RoleManager, sid)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued.Token
}

func (f *boundaryFixture) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	if body.Success {
		t.Fatalf("expected failure envelope, got %s", rr.Body.String())
	}
	return body.Code
}

func sessionCookieCleared(rr *httptest.ResponseRecorder) bool {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session_token" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestBoundaryRootRedirects(t *testing.T) {
	f := newBoundaryFixture(t)

	rr := f.do(http.MethodGet, "/", "")
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != LoginPath {
		t.Fatalf("anonymous root: got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	rr = f.do(http.MethodGet, "/", f.claim(t, "sid-1"))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != DashboardPath {
		t.Fatalf("signed-in root: got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	rr = f.do(http.MethodGet, LoginPath, f.claim(t, "sid-1"))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != DashboardPath {
		t.Fatalf("signed-in login page: got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if rr := f.do(http.MethodGet, LoginPath, ""); rr.Code != http.StatusOK {
		t.Fatalf("anonymous login page must render, got %d", rr.Code)
	}
}

func TestBoundaryPassThroughPaths(t *testing.T) {
	f := newBoundaryFixture(t)
	for _, p := range []string{"/api/auth/login", "/health/ready", "/metrics", "/_next/static/app.js", "/favicon.ico"} {
		if rr := f.do(http.MethodGet, p, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s: expected pass-through, got %d", p, rr.Code)
		}
	}
}

func TestBoundaryAPIUnauthorized(t *testing.T) {
	f := newBoundaryFixture(t)
	rr := f.do(http.MethodGet, "/api/workers", "")
	if rr.Code != http.StatusUnauthorized || errorCode(t, rr) != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %s", rr.Code, rr.Body.String())
	}
	rr = f.do(http.MethodGet, "/api/workers", "not-a-jwt")
	if rr.Code != http.StatusUnauthorized || errorCode(t, rr) != "UNAUTHORIZED" {
		t.Fatalf("garbage claim: expected 401 UNAUTHORIZED, got %d", rr.Code)
	}
}

func TestBoundaryInvalidatedSession(t *testing.T) {
	f := newBoundaryFixture(t)
	stale := f.claim(t, "sid-1")
	f.validator.current = "sid-2"

	rr := f.do(http.MethodGet, "/api/sites", stale)
	if rr.Code != http.StatusUnauthorized || errorCode(t, rr) != "SESSION_INVALIDATED" {
		t.Fatalf("expected SESSION_INVALIDATED, got %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "logged in from another device") {
		t.Fatalf("unexpected message %s", rr.Body.String())
	}
	if !sessionCookieCleared(rr) {
		t.Fatal("expected session cookie to be cleared")
	}

	rr = f.do(http.MethodGet, "/workers?page=2", stale)
	if rr.Code != http.StatusFound {
		t.Fatalf("page request: expected redirect, got %d", rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Path != LoginPath || loc.Query().Get("session_invalidated") != "1" || loc.Query().Get("callbackUrl") != "/workers?page=2" {
		t.Fatalf("unexpected redirect %q", loc.String())
	}
}

func TestBoundaryExpiredClaim(t *testing.T) {
	f := newBoundaryFixture(t)
	token := f.claim(t, "sid-1")
	f.now = f.now.Add(25 * time.Hour)

	rr := f.do(http.MethodGet, "/api/attendance", token)
	if rr.Code != http.StatusUnauthorized || errorCode(t, rr) != "SESSION_EXPIRED" {
		t.Fatalf("expected SESSION_EXPIRED, got %d %s", rr.Code, rr.Body.String())
	}
	if !sessionCookieCleared(rr) {
		t.Fatal("expected session cookie to be cleared")
	}
	rr = f.do(http.MethodGet, "/attendance", token)
	loc, _ := url.Parse(rr.Header().Get("Location"))
	if rr.Code != http.StatusFound || loc.Query().Get("session_expired") != "1" {
		t.Fatalf("expected expired redirect, got %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestBoundaryStoreFailureFailsClosed(t *testing.T) {
	f := newBoundaryFixture(t)
	token := f.claim(t, "sid-1")
	f.validator.err = service.ErrAuthenticationFailed

	rr := f.do(http.MethodGet, "/api/dashboard", token)
	if rr.Code != http.StatusServiceUnavailable || errorCode(t, rr) != "SESSION_CHECK_UNAVAILABLE" {
		t.Fatalf("expected 503, got %d %s", rr.Code, rr.Body.String())
	}
	if sessionCookieCleared(rr) {
		t.Fatal("a store outage must not clear the cookie")
	}
}

func TestBoundarySlidingRefresh(t *testing.T) {
	f := newBoundaryFixture(t)
	token := f.claim(t, "sid-1")

	rr := f.do(http.MethodGet, "/api/workers", token)
	if rr.Code != http.StatusOK || len(rr.Result().Cookies()) != 0 {
		t.Fatalf("fresh claim must not be reissued: %d cookies=%d", rr.Code, len(rr.Result().Cookies()))
	}

	f.now = f.now.Add(2 * time.Hour)
	rr = f.do(http.MethodGet, "/api/workers", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Test-User") != "sid-1" {
		t.Fatalf("principal not attached")
	}
	var refreshed string
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session_token" {
			refreshed = c.Value
		}
	}
	if refreshed == "" || refreshed == token {
		t.Fatal("expected a reissued session cookie")
	}
	claims, err := f.tokens.Parse(refreshed)
	if err != nil {
		t.Fatalf("parse refreshed claim: %v", err)
	}
	if claims.SessionID != "sid-1" {
		t.Fatalf("refresh must keep the sid, got %q", claims.SessionID)
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestBoundaryAuthRoutesCarryRejectReason(t *testing.T) {
	f := newBoundaryFixture(t)
	var seen string
	b := SessionBoundary{Tokens: f.tokens, Validator: f.validator, Cookie: security.CookieOptions{Name: "session_token"}}
	h := b.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionReasonFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	stale := f.claim(t, "sid-1")

	cases := []struct {
		name    string
		token   string
		current string
		advance time.Duration
		want    string
	}{
		{name: "no claim", want: ""},
		{name: "garbage claim", token: "not-a-jwt", current: "sid-1", want: ""},
		{name: "logged in elsewhere", token: stale, current: "sid-2", want: SessionReasonInvalidated},
		{name: "expired", token: stale, current: "sid-1", advance: 25 * time.Hour, want: SessionReasonExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.validator.current = tc.current
			f.now = f.now.Add(tc.advance)
			t.Cleanup(func() { f.now = f.now.Add(-tc.advance) })
			seen = "unset"
			req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
			if tc.token != "" {
				req.AddCookie(&http.Cookie{Name: "session_token", Value: tc.token})
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK || seen != tc.want {
				t.Fatalf("got status %d reason %q, want reason %q", rr.Code, seen, tc.want)
			}
			if tc.want != "" && !sessionCookieCleared(rr) {
				t.Fatal("expected rejected cookie to be cleared")
			}
		})
	}
}

func TestBoundaryDottedPagePathsNeedSession(t *testing.T) {
	f := newBoundaryFixture(t)
	for _, p := range []string{"/workers/j.doe", "/sites/report.pdf", "/dashboard.html"} {
		rr := f.do(http.MethodGet, p, "")
		if rr.Code != http.StatusFound || !strings.HasPrefix(rr.Header().Get("Location"), LoginPath) {
			t.Fatalf("%s: expected login redirect, got %d %q", p, rr.Code, rr.Header().Get("Location"))
		}
	}
	for _, p := range []string{"/app.CSS", "/logo.svg", "/fonts/inter.woff2", "/site.webmanifest"} {
		if rr := f.do(http.MethodGet, p, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s: expected asset pass-through, got %d", p, rr.Code)
		}
	}
}
