package service

import (
	"context"
	"testing"
	"time"
)

func TestRedisIdempotencyStoreCreateAttendanceLifecycle(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisIdempotencyStore(client, "idem_test")
	const scope, key = "7:/api/attendance", "att-2025-03-14-ravi"

	for _, step := range []struct {
		fingerprint string
		want        IdempotencyState
	}{
		{"fp-1", IdempotencyStateNew},
		{"fp-1", IdempotencyStateInProgress},
		{"fp-other-body", IdempotencyStateConflict},
	} {
		res, err := store.Begin(ctx, scope, key, step.fingerprint, time.Second)
		if err != nil {
			t.Fatalf("begin %s: %v", step.fingerprint, err)
		}
		if res.State != step.want {
			t.Fatalf("begin %s: state %s, want %s", step.fingerprint, res.State, step.want)
		}
	}

	redisKey := store.redisKey(scope, key)
	pending := client.PTTL(ctx, redisKey).Val()
	body := []byte(`{"success":true,"data":{"id":12,"hours_worked":8.5}}`)
	if err := store.Complete(ctx, scope, key, "fp-1", CachedHTTPResponse{StatusCode: 201, ContentType: "application/json", Body: body}, 3*time.Second); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done := client.PTTL(ctx, redisKey).Val(); done <= pending {
		t.Fatalf("completion must extend the ttl, pending=%v done=%v", pending, done)
	}

	replay, err := store.Begin(ctx, scope, key, "fp-1", time.Second)
	if err != nil {
		t.Fatalf("begin replay: %v", err)
	}
	if replay.State != IdempotencyStateReplay || replay.Cached == nil || replay.Cached.StatusCode != 201 || string(replay.Cached.Body) != string(body) {
		t.Fatalf("unexpected replay %+v", replay)
	}

	if err := store.Abandon(ctx, scope, key, "fp-1"); err != nil {
		t.Fatalf("abandon completed: %v", err)
	}
	if client.Exists(ctx, redisKey).Val() != 1 {
		t.Fatal("abandon must not drop a completed response")
	}
}

func TestRedisIdempotencyStoreAbandonReleasesKey(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisIdempotencyStore(client, "idem_test")

	if _, err := store.Begin(ctx, "sites.create", "k", "fp", time.Minute); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.Abandon(ctx, "sites.create", "k", "other"); err != nil {
		t.Fatalf("abandon foreign: %v", err)
	}
	if res, _ := store.Begin(ctx, "sites.create", "k", "fp", time.Minute); res.State != IdempotencyStateInProgress {
		t.Fatalf("foreign fingerprint must not release the key, got %s", res.State)
	}
	if err := store.Abandon(ctx, "sites.create", "k", "fp"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if res, _ := store.Begin(ctx, "sites.create", "k", "fp", time.Minute); res.State != IdempotencyStateNew {
		t.Fatalf("expected key to be reusable after abandon, got %s", res.State)
	}
}

func TestRedisIdempotencyStoreMalformedReplayPayloads(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisIdempotencyStore(client, "idem_test")

	scope := "payments.create"
	key := "idem-malformed"
	fp := "fp-1"
	redisKey := store.redisKey(scope, key)

	if err := client.HSet(ctx, redisKey,
		"fingerprint", fp,
		"status", "completed",
		"response_status", "NaN",
		"content_type", "application/json",
		"response_body", "eyJvayI6dHJ1ZX0=",
	).Err(); err != nil {
		t.Fatalf("seed malformed status: %v", err)
	}
	if _, err := store.Begin(ctx, scope, key, fp, time.Second); err == nil {
		t.Fatal("expected parse replay status error")
	}

	if err := client.HSet(ctx, redisKey,
		"response_status", "200",
		"response_body", "!!!not-base64!!!",
	).Err(); err != nil {
		t.Fatalf("seed malformed body: %v", err)
	}
	if _, err := store.Begin(ctx, scope, key, fp, time.Second); err == nil {
		t.Fatal("expected decode replay body error")
	}
}

func TestInMemoryIdempotencyStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryIdempotencyStore()
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if res, _ := store.Begin(ctx, "expenses.create", "k", "fp", time.Minute); res.State != IdempotencyStateNew {
		t.Fatalf("expected new, got %s", res.State)
	}
	if res, _ := store.Begin(ctx, "expenses.create", "k", "fp2", time.Minute); res.State != IdempotencyStateConflict {
		t.Fatalf("expected conflict, got %s", res.State)
	}
	_ = store.Complete(ctx, "expenses.create", "k", "fp", CachedHTTPResponse{StatusCode: 201, Body: []byte("x")}, time.Minute)
	res, _ := store.Begin(ctx, "expenses.create", "k", "fp", time.Minute)
	if res.State != IdempotencyStateReplay || res.Cached.StatusCode != 201 {
		t.Fatalf("expected replay, got %+v", res)
	}

	now = now.Add(2 * time.Minute)
	if res, _ := store.Begin(ctx, "expenses.create", "k", "fp2", time.Minute); res.State != IdempotencyStateNew {
		t.Fatalf("expected expired key to be reusable, got %s", res.State)
	}
}
