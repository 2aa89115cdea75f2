package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisListCacheStore keeps each payload under a data key plus a meta key
// holding the store time, and tracks both in a per-namespace index set so the
// namespace can be dropped in one pipeline.
type RedisListCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisListCacheStore(client redis.UniversalClient, prefix string) *RedisListCacheStore {
	if prefix == "" {
		prefix = "siteops:list"
	}
	return &RedisListCacheStore{client: client, prefix: prefix}
}

func (s *RedisListCacheStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, nil
	}
	payload, err := s.client.Get(ctx, s.dataKey(namespace, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// GetWithAge reports age 0 when the meta key is missing or unreadable; the
// payload is still served.
func (s *RedisListCacheStore) GetWithAge(ctx context.Context, namespace, key string) ([]byte, bool, time.Duration, error) {
	if s.client == nil {
		return nil, false, 0, nil
	}
	pipe := s.client.Pipeline()
	dataCmd := pipe.Get(ctx, s.dataKey(namespace, key))
	metaCmd := pipe.Get(ctx, s.metaKey(namespace, key))
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, false, 0, err
	}
	payload, err := dataCmd.Bytes()
	if err == redis.Nil {
		return nil, false, 0, nil
	}
	if err != nil {
		return nil, false, 0, err
	}
	var age time.Duration
	if raw, err := metaCmd.Result(); err == nil {
		if storedMs, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			age = time.Since(time.UnixMilli(storedMs))
			if age < 0 {
				age = 0
			}
		}
	}
	return payload, true, age, nil
}

func (s *RedisListCacheStore) Set(ctx context.Context, namespace, key string, payload []byte, ttl time.Duration) error {
	if s.client == nil || ttl <= 0 {
		return nil
	}
	dataKey := s.dataKey(namespace, key)
	metaKey := s.metaKey(namespace, key)
	indexKey := s.namespaceIndexKey(namespace)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dataKey, payload, ttl)
	pipe.Set(ctx, metaKey, strconv.FormatInt(time.Now().UnixMilli(), 10), ttl)
	pipe.SAdd(ctx, indexKey, dataKey, metaKey)
	pipe.Expire(ctx, indexKey, ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisListCacheStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	if s.client == nil {
		return nil
	}
	indexKey := s.namespaceIndexKey(namespace)
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	pipe := s.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisListCacheStore) dataKey(namespace, key string) string {
	return fmt.Sprintf("%s:data:%s:%s", s.prefix, normalizeToken(namespace), hashToken(key))
}

func (s *RedisListCacheStore) metaKey(namespace, key string) string {
	return fmt.Sprintf("%s:meta:%s:%s", s.prefix, normalizeToken(namespace), hashToken(key))
}

func (s *RedisListCacheStore) namespaceIndexKey(namespace string) string {
	return fmt.Sprintf("%s:index:%s", s.prefix, normalizeToken(namespace))
}
