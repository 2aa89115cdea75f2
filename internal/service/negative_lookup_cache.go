package service

import (
	"context"
	"sync"
	"time"
)

// NegativeLookupCacheStore remembers ids that recently resolved to nothing so
// repeated GETs for deleted or mistyped records skip the database.
type NegativeLookupCacheStore interface {
	Get(ctx context.Context, namespace, key string) (bool, error)
	Set(ctx context.Context, namespace, key string, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopNegativeLookupCacheStore struct{}

func NewNoopNegativeLookupCacheStore() *NoopNegativeLookupCacheStore {
	return &NoopNegativeLookupCacheStore{}
}

func (NoopNegativeLookupCacheStore) Get(context.Context, string, string) (bool, error) {
	return false, nil
}

func (NoopNegativeLookupCacheStore) Set(context.Context, string, string, time.Duration) error {
	return nil
}

func (NoopNegativeLookupCacheStore) InvalidateNamespace(context.Context, string) error {
	return nil
}

type negativeEntry struct {
	epoch     uint64
	expiresAt time.Time
}

// InMemoryNegativeLookupCacheStore invalidates a namespace by bumping its
// epoch; entries written under an older epoch read as misses and are dropped
// lazily.
type InMemoryNegativeLookupCacheStore struct {
	mu      sync.Mutex
	epochs  map[string]uint64
	entries map[string]negativeEntry
	now     func() time.Time
}

func NewInMemoryNegativeLookupCacheStore() *InMemoryNegativeLookupCacheStore {
	return &InMemoryNegativeLookupCacheStore{
		epochs:  make(map[string]uint64),
		entries: make(map[string]negativeEntry),
		now:     time.Now,
	}
}

func negativeKey(namespace, key string) string {
	return namespace + "\x00" + key
}

func (s *InMemoryNegativeLookupCacheStore) Get(_ context.Context, namespace, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := negativeKey(namespace, key)
	entry, ok := s.entries[k]
	if !ok {
		return false, nil
	}
	if entry.epoch != s.epochs[namespace] || s.now().After(entry.expiresAt) {
		delete(s.entries, k)
		return false, nil
	}
	return true, nil
}

func (s *InMemoryNegativeLookupCacheStore) Set(_ context.Context, namespace, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[negativeKey(namespace, key)] = negativeEntry{
		epoch:     s.epochs[namespace],
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryNegativeLookupCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epochs[namespace]++
	return nil
}
