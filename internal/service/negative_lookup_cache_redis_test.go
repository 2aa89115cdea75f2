package service

import (
	"context"
	"testing"
	"time"
)

func TestRedisNegativeLookupCacheStoreEpochInvalidationAndExpiry(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	store := NewRedisNegativeLookupCacheStore(client, "neg_test")

	namespace := "payments.not_found"
	if hit, err := store.Get(ctx, namespace, "9"); err != nil || hit {
		t.Fatalf("expected initial miss, hit=%v err=%v", hit, err)
	}

	if err := store.Set(ctx, namespace, "9", 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if hit, err := store.Get(ctx, namespace, "9"); err != nil || !hit {
		t.Fatalf("expected hit after set, hit=%v err=%v", hit, err)
	}

	server.FastForward(3 * time.Second)
	if hit, _ := store.Get(ctx, namespace, "9"); hit {
		t.Fatal("expected miss after ttl expiry")
	}

	if err := store.Set(ctx, namespace, "9", time.Minute); err != nil {
		t.Fatalf("set before invalidate: %v", err)
	}
	if err := store.InvalidateNamespace(ctx, namespace); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if hit, _ := store.Get(ctx, namespace, "9"); hit {
		t.Fatal("expected miss after invalidate")
	}
	if got := client.Get(ctx, store.epochKey(namespace)).Val(); got != "1" {
		t.Fatalf("expected epoch 1, got %q", got)
	}
}

func TestRedisNegativeLookupCacheStoreMalformedEpoch(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisNegativeLookupCacheStore(client, "neg_test")

	if err := client.Set(ctx, store.epochKey("sites.not_found"), "nope", 0).Err(); err != nil {
		t.Fatalf("seed epoch: %v", err)
	}
	if _, err := store.Get(ctx, "sites.not_found", "1"); err == nil {
		t.Fatal("expected malformed epoch error")
	}
}
