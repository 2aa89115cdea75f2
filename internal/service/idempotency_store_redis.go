package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisIdempotencyStore(client redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = "siteops:idem"
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) redisKey(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, normalizeToken(scope), hashToken(key))
}

// beginScript claims the key when absent and otherwise returns the stored
// fields for the caller to classify.
var beginScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  redis.call('HSET', KEYS[1], 'fingerprint', ARGV[1], 'status', 'in_progress')
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  return {'new'}
end
return redis.call('HMGET', KEYS[1], 'fingerprint', 'status', 'response_status', 'content_type', 'response_body')
`)

func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	raw, err := beginScript.Run(ctx, s.client, []string{s.redisKey(scope, key)}, fingerprint, ttl.Milliseconds()).Slice()
	if err != nil {
		return IdempotencyBeginResult{}, err
	}
	if len(raw) == 1 {
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}
	fields := make([]string, len(raw))
	for i, v := range raw {
		if str, ok := v.(string); ok {
			fields[i] = str
		}
	}
	if fields[0] != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}
	if fields[1] != "completed" {
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	}
	status, err := strconv.Atoi(fields[2])
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("parse replay status: %w", err)
	}
	body, err := base64.StdEncoding.DecodeString(fields[4])
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("decode replay body: %w", err)
	}
	return IdempotencyBeginResult{
		State:  IdempotencyStateReplay,
		Cached: &CachedHTTPResponse{StatusCode: status, ContentType: fields[3], Body: body},
	}, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error {
	redisKey := s.redisKey(scope, key)
	current, err := s.client.HGet(ctx, redisKey, "fingerprint").Result()
	if err == redis.Nil || (err == nil && current != fingerprint) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKey,
		"status", "completed",
		"response_status", response.StatusCode,
		"content_type", response.ContentType,
		"response_body", base64.StdEncoding.EncodeToString(response.Body),
	)
	pipe.PExpire(ctx, redisKey, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisIdempotencyStore) Abandon(ctx context.Context, scope, key, fingerprint string) error {
	redisKey := s.redisKey(scope, key)
	vals, err := s.client.HMGet(ctx, redisKey, "fingerprint", "status").Result()
	if err != nil {
		return err
	}
	if fp, _ := vals[0].(string); fp != fingerprint {
		return nil
	}
	if status, _ := vals[1].(string); status == "completed" {
		return nil
	}
	return s.client.Del(ctx, redisKey).Err()
}
