package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:booking:"

type redisState struct {
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
	Result      string `json:"result,omitempty"`
}

// RedisStore shares keys between API replicas
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(k string) string {
	return keyPrefix + k
}

func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string) (string, error) {
	k := s.key(key)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		data, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			raw, _ := json.Marshal(redisState{Status: statusProcessing, Fingerprint: fingerprint})
			_, err := s.client.SetArgs(ctx, k, raw, redis.SetArgs{Mode: "NX", TTL: s.ttl}).Result()
			if errors.Is(err, redis.Nil) {
				// lost the race to another request; read what it stored
				continue
			}
			if err != nil {
				return "", fmt.Errorf("redis set: %w", err)
			}
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("redis get: %w", err)
		}

		var state redisState
		if err := json.Unmarshal(data, &state); err != nil {
			return "", fmt.Errorf("redis unmarshal: %w", err)
		}
		switch state.Status {
		case statusSuccess, statusProcessing:
			if state.Fingerprint != fingerprint {
				return "", ErrKeyReused
			}
		}
		switch state.Status {
		case statusSuccess:
			return state.Result, nil
		case statusProcessing:
			return "", ErrInProgress
		default:
			if err := s.client.Del(ctx, k).Err(); err != nil {
				return "", fmt.Errorf("redis del: %w", err)
			}
		}
	}
}

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint, result string) error {
	raw, err := json.Marshal(redisState{Status: statusSuccess, Fingerprint: fingerprint, Result: result})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
