package service

import (
	"context"
	"sync"
	"time"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateReplay     IdempotencyState = "replay"
)

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

// IdempotencyStore deduplicates POST creates keyed by the Idempotency-Key
// header. fingerprint identifies the request body and caller; reusing a key
// with a different fingerprint is a conflict.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error
	Abandon(ctx context.Context, scope, key, fingerprint string) error
}

type idempotencyRecord struct {
	fingerprint string
	completed   bool
	response    CachedHTTPResponse
	expiresAt   time.Time
}

type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]idempotencyRecord
	now     func() time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{records: make(map[string]idempotencyRecord), now: time.Now}
}

func idempotencyMapKey(scope, key string) string {
	return scope + "\x00" + key
}

func (s *InMemoryIdempotencyStore) Begin(_ context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyMapKey(scope, key)
	rec, ok := s.records[k]
	if !ok || now.After(rec.expiresAt) {
		s.records[k] = idempotencyRecord{fingerprint: fingerprint, expiresAt: now.Add(ttl)}
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	if rec.fingerprint != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if !rec.completed {
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}
	cached := rec.response
	cached.Body = append([]byte(nil), rec.response.Body...)
	return IdempotencyBeginResult{State: IdempotencyStateReplay, Cached: &cached}, nil
}

func (s *InMemoryIdempotencyStore) Complete(_ context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyMapKey(scope, key)
	rec, ok := s.records[k]
	if !ok || rec.fingerprint != fingerprint {
		return nil
	}
	response.Body = append([]byte(nil), response.Body...)
	s.records[k] = idempotencyRecord{
		fingerprint: fingerprint,
		completed:   true,
		response:    response,
		expiresAt:   s.now().Add(ttl),
	}
	return nil
}

// Abandon releases an in-progress key so a failed request can be retried.
func (s *InMemoryIdempotencyStore) Abandon(_ context.Context, scope, key, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyMapKey(scope, key)
	if rec, ok := s.records[k]; ok && rec.fingerprint == fingerprint && !rec.completed {
		delete(s.records, k)
	}
	return nil
}
