package service

import (
	"context"
	"sync"
	"time"
)

// ListCacheStore caches rendered list payloads per namespace (one namespace
// per resource). Any write to the resource invalidates its namespace.
type ListCacheStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	GetWithAge(ctx context.Context, namespace, key string) ([]byte, bool, time.Duration, error)
	Set(ctx context.Context, namespace, key string, payload []byte, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopListCacheStore struct{}

func NewNoopListCacheStore() *NoopListCacheStore { return &NoopListCacheStore{} }

func (NoopListCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopListCacheStore) GetWithAge(context.Context, string, string) ([]byte, bool, time.Duration, error) {
	return nil, false, 0, nil
}

func (NoopListCacheStore) Set(context.Context, string, string, []byte, time.Duration) error {
	return nil
}

func (NoopListCacheStore) InvalidateNamespace(context.Context, string) error { return nil }

type listCacheEntry struct {
	payload   []byte
	storedAt  time.Time
	expiresAt time.Time
}

type InMemoryListCacheStore struct {
	mu   sync.RWMutex
	data map[string]map[string]listCacheEntry
	now  func() time.Time
}

func NewInMemoryListCacheStore() *InMemoryListCacheStore {
	return &InMemoryListCacheStore{
		data: make(map[string]map[string]listCacheEntry),
		now:  time.Now,
	}
}

func (s *InMemoryListCacheStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	payload, ok, _, err := s.GetWithAge(ctx, namespace, key)
	return payload, ok, err
}

func (s *InMemoryListCacheStore) GetWithAge(_ context.Context, namespace, key string) ([]byte, bool, time.Duration, error) {
	now := s.now()
	s.mu.RLock()
	entry, ok := s.data[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, 0, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.data[namespace], key)
		s.mu.Unlock()
		return nil, false, 0, nil
	}
	return append([]byte(nil), entry.payload...), true, now.Sub(entry.storedAt), nil
}

func (s *InMemoryListCacheStore) Set(_ context.Context, namespace, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]listCacheEntry)
		s.data[namespace] = ns
	}
	ns[key] = listCacheEntry{
		payload:   append([]byte(nil), payload...),
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *InMemoryListCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, namespace)
	return nil
}
