package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/domain"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/security"

	"gorm.io/gorm"
)

const testJWTSecret = "abcdefghijklmnopqrstuvwxyz123456"

// newRedisClientForTest starts a miniredis instance shared by the caches,
// abuse guard and idempotency store tests. The server is returned so TTL
// tests can fast-forward it.
func newRedisClientForTest(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), DB: 0})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := database.Open("sqlite", dsn, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingComparer records how many hash comparisons a login performed.
type countingComparer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingComparer) Compare(hash []byte, password string) bool {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return security.BcryptComparer{}.Compare(hash, password)
}

func (c *countingComparer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type authFixture struct {
	db       *gorm.DB
	auth     *AuthService
	sessions *SessionService
	tokens   *TokenService
	users    repository.UserRepository
	comparer *countingComparer
}

func newAuthFixture(t *testing.T, opts AuthOptions) *authFixture {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	tokens := NewTokenService(security.NewJWTManager("siteops", "siteops-dashboard", testJWTSecret), 24*time.Hour, time.Hour)
	cmp := &countingComparer{}
	auth := NewAuthService(users, sessions, tokens, NewInMemoryAuthAbuseGuard(AuthAbusePolicy{FreeAttempts: 3}), opts, discardLogger()).WithComparer(cmp)
	return &authFixture{
		db:       db,
		auth:     auth,
		sessions: NewSessionService(sessions, discardLogger()),
		tokens:   tokens,
		users:    users,
		comparer: cmp,
	}
}

func (f *authFixture) seedUser(t *testing.T, email, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &domain.User{Email: email, PasswordHash: hash, Name: "Test " + string(role), Role: role, IsActive: true}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
