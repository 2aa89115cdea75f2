package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNegativeLookupCacheStore shares negative lookups across instances.
// Keys embed a per-namespace epoch counter, so invalidation is a single INCR
// and stale entries age out on their own TTL.
type RedisNegativeLookupCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNegativeLookupCacheStore(client redis.UniversalClient, prefix string) *RedisNegativeLookupCacheStore {
	if prefix == "" {
		prefix = "siteops:negative"
	}
	return &RedisNegativeLookupCacheStore{client: client, prefix: prefix}
}

func (s *RedisNegativeLookupCacheStore) Get(ctx context.Context, namespace, key string) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	dataKey, err := s.dataKey(ctx, namespace, key)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, dataKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisNegativeLookupCacheStore) Set(ctx context.Context, namespace, key string, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	dataKey, err := s.dataKey(ctx, namespace, key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, dataKey, "1", ttl).Err()
}

func (s *RedisNegativeLookupCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Incr(ctx, s.epochKey(namespace)).Err()
}

func (s *RedisNegativeLookupCacheStore) dataKey(ctx context.Context, namespace, key string) (string, error) {
	raw, err := s.client.Get(ctx, s.epochKey(namespace)).Result()
	var epoch uint64
	switch {
	case err == redis.Nil:
	case err != nil:
		return "", err
	default:
		epoch, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return "", fmt.Errorf("parse negative cache epoch: %w", err)
		}
	}
	return fmt.Sprintf("%s:data:%s:%d:%s", s.prefix, normalizeToken(namespace), epoch, hashToken(key)), nil
}

func (s *RedisNegativeLookupCacheStore) epochKey(namespace string) string {
	return fmt.Sprintf("%s:epoch:%s", s.prefix, normalizeToken(namespace))
}
