package service

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryListCacheStoreAgeExpiryAndInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryListCacheStore()
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "workers", "page=1", []byte(`[1]`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(10 * time.Second)
	payload, ok, age, err := store.GetWithAge(ctx, "workers", "page=1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(payload) != `[1]` || age != 10*time.Second {
		t.Fatalf("unexpected payload=%s age=%v", payload, age)
	}

	now = now.Add(time.Minute)
	if _, ok, _ := store.Get(ctx, "workers", "page=1"); ok {
		t.Fatal("expected expiry")
	}

	_ = store.Set(ctx, "workers", "page=2", []byte(`[2]`), time.Minute)
	_ = store.Set(ctx, "sites", "page=1", []byte(`[3]`), time.Minute)
	if err := store.InvalidateNamespace(ctx, "workers"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "workers", "page=2"); ok {
		t.Fatal("expected workers namespace to be cleared")
	}
	if _, ok, _ := store.Get(ctx, "sites", "page=1"); !ok {
		t.Fatal("other namespaces must survive")
	}
}

func TestRedisListCacheStoreNamespaceIndexAndInvalidateIdempotency(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisListCacheStore(client, "list_test")

	namespace := "attendance"
	if err := store.Set(ctx, namespace, "k1", []byte(`{"a":1}`), time.Minute); err != nil {
		t.Fatalf("set k1: %v", err)
	}
	if err := store.Set(ctx, namespace, "k2", []byte(`{"a":2}`), time.Minute); err != nil {
		t.Fatalf("set k2: %v", err)
	}

	members, err := client.SMembers(ctx, store.namespaceIndexKey(namespace)).Result()
	if err != nil {
		t.Fatalf("smembers namespace index: %v", err)
	}
	if len(members) != 4 {
		t.Fatalf("expected 4 namespace index members (2 data + 2 meta), got %d", len(members))
	}

	if err := store.InvalidateNamespace(ctx, namespace); err != nil {
		t.Fatalf("invalidate first pass: %v", err)
	}
	if err := store.InvalidateNamespace(ctx, namespace); err != nil {
		t.Fatalf("invalidate second pass should be idempotent: %v", err)
	}
	if _, ok, err := store.Get(ctx, namespace, "k1"); err != nil || ok {
		t.Fatalf("expected miss after invalidation, ok=%v err=%v", ok, err)
	}
}

func TestRedisListCacheStoreGetWithAgeMetaFallbacks(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	store := NewRedisListCacheStore(client, "list_test")

	namespace, key := "expenses", "k1"
	if err := client.Set(ctx, store.dataKey(namespace, key), []byte(`{"x":1}`), time.Minute).Err(); err != nil {
		t.Fatalf("seed data key: %v", err)
	}

	payload, ok, age, err := store.GetWithAge(ctx, namespace, key)
	if err != nil || !ok {
		t.Fatalf("expected hit with missing meta, ok=%v err=%v", ok, err)
	}
	if string(payload) != `{"x":1}` || age != 0 {
		t.Fatalf("unexpected payload=%s age=%v", payload, age)
	}

	if err := client.Set(ctx, store.metaKey(namespace, key), "not-a-number", time.Minute).Err(); err != nil {
		t.Fatalf("seed invalid meta: %v", err)
	}
	_, ok, age, err = store.GetWithAge(ctx, namespace, key)
	if err != nil || !ok || age != 0 {
		t.Fatalf("expected hit with age 0 on malformed meta, ok=%v age=%v err=%v", ok, age, err)
	}
}
