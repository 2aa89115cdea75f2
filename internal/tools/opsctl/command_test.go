package opsctl

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sandeepkv93/siteops-service/internal/config"
	"github.com/sandeepkv93/siteops-service/internal/database"
	"github.com/sandeepkv93/siteops-service/internal/repository"
	"github.com/sandeepkv93/siteops-service/internal/tools/common"
)

type harness struct {
	dsn      string
	out      *bytes.Buffer
	exitCode int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "opsctl.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", dsn)
	t.Setenv("JWT_SECRET", "abcdefghijklmnopqrstuvwxyz123456")
	return &harness{dsn: dsn, out: &bytes.Buffer{}, exitCode: -1}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) common.CIResult {
	t.Helper()
	h.out.Reset()
	h.exitCode = -1
	opts := &options{
		stdin:  strings.NewReader(stdin),
		stdout: h.out,
		exit:   func(code int) { h.exitCode = code },
		openDB: openDB,
	}
	cmd := newRootCommand(opts)
	cmd.SetArgs(append([]string{"--ci", "--env-file", ""}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	var res common.CIResult
	if err := json.Unmarshal(h.out.Bytes(), &res); err != nil {
		t.Fatalf("decode ci output %q: %v", h.out.String(), err)
	}
	return res
}

func TestMigrateSeedAndRevoke(t *testing.T) {
	h := newHarness(t)

	if res := h.run(t, "", "migrate"); !res.OK {
		t.Fatalf("migrate failed: %+v", res)
	}

	res := h.run(t, "correct-horse-battery\n", "seed-admin", "--email", "Boss@Example.com")
	if !res.OK || !strings.Contains(res.Details[0], "created admin") {
		t.Fatalf("seed failed: %+v", res)
	}
	res = h.run(t, "correct-horse-battery\n", "seed-admin", "--email", "boss@example.com")
	if !res.OK || !strings.Contains(res.Details[0], "already exists") {
		t.Fatalf("expected idempotent seed, got %+v", res)
	}

	cfg := &config.Config{DatabaseDriver: "sqlite", DatabaseURL: h.dsn}
	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = database.Close(db) }()
	u, err := repository.NewUserRepository(db).FindByEmail(t.Context(), "boss@example.com")
	if err != nil {
		t.Fatalf("find seeded admin: %v", err)
	}
	token := "live-token"
	if err := db.Model(u).Update("session_token", token).Error; err != nil {
		t.Fatalf("set token: %v", err)
	}

	if res := h.run(t, "", "revoke-session", "--email", "boss@example.com"); !res.OK {
		t.Fatalf("revoke failed: %+v", res)
	}
	u, err = repository.NewUserRepository(db).FindByID(t.Context(), u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if u.SessionToken != nil {
		t.Fatalf("expected session token cleared, got %q", *u.SessionToken)
	}
}

func TestSeedAdminShortPasswordExitsNonZero(t *testing.T) {
	h := newHarness(t)
	res := h.run(t, "short\n", "seed-admin", "--email", "a@example.com")
	if res.OK || h.exitCode != common.ExitRunFailed {
		t.Fatalf("expected failure exit, got res=%+v code=%d", res, h.exitCode)
	}
	if !strings.Contains(res.Error, "password") {
		t.Fatalf("expected password validation error, got %q", res.Error)
	}
}

func TestRevokeSessionRequiresTarget(t *testing.T) {
	newHarness(t)
	cmd := newRootCommand(&options{stdout: &bytes.Buffer{}, exit: func(int) {}, openDB: openDB})
	cmd.SetArgs([]string{"--ci", "revoke-session"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without --user-id or --email")
	}
}
