package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "idem:"

// RedisClient is the part of *redis.Client the store needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore claims keys with SET NX so only one replica runs a given request. Redis key
// expiry replaces sweeping.
type RedisStore struct {
	client RedisClient
}

func NewRedisStore(client RedisClient) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("idempotency: redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Claim(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Entry, Outcome, error) {
	entry := Entry{Fingerprint: fingerprint, ExpiresAt: now.Add(ttl)}
	raw, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, 0, err
	}
	rkey := redisPrefix + hashKey(key)
	ok, err := s.client.SetNX(ctx, rkey, raw, ttl).Result()
	if err != nil {
		return Entry{}, 0, fmt.Errorf("idempotency: claim: %w", err)
	}
	if ok {
		return entry, Claimed, nil
	}

	stored, err := s.client.Get(ctx, rkey).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller may retry the claim
		return Entry{}, InFlight, nil
	}
	if err != nil {
		return Entry{}, 0, fmt.Errorf("idempotency: load: %w", err)
	}
	var existing Entry
	if err := json.Unmarshal(stored, &existing); err != nil {
		return Entry{}, 0, fmt.Errorf("idempotency: decode: %w", err)
	}
	outcome, err := outcomeFor(existing, fingerprint)
	return existing, outcome, err
}

func (s *RedisStore) Complete(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	entry.Done = true
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisPrefix+hashKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: complete: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisPrefix+hashKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: release: %w", err)
	}
	return nil
}

func (s *RedisStore) Sweep(context.Context, time.Time, int) (int, error) { return 0, nil }
