package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

const refreshKeyPrefix = "refresh:"

// RedisRefreshStore implements RefreshTokenStore backed by Redis.
type RedisRefreshStore struct {
	client redis.UniversalClient
}

var _ repository.RefreshTokenStore = (*RedisRefreshStore)(nil)

// NewRedisRefreshStore constructs a Redis-backed refresh token store.
func NewRedisRefreshStore(client redis.UniversalClient) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

func refreshKey(tokenID string) string { return refreshKeyPrefix + tokenID }

// Save stores the record with TTL.
func (s *RedisRefreshStore) Save(ctx context.Context, tokenID string, record repository.RefreshRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal refresh record: %w", err)
	}
	if err := s.client.Set(ctx, refreshKey(tokenID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist refresh record: %w", err)
	}
	return nil
}

// Consume loads and deletes the record in one round trip.
func (s *RedisRefreshStore) Consume(ctx context.Context, tokenID string) (*repository.RefreshRecord, error) {
	bytes, err := s.client.GetDel(ctx, refreshKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume refresh record: %w", err)
	}
	var record repository.RefreshRecord
	if err := json.Unmarshal(bytes, &record); err != nil {
		return nil, fmt.Errorf("decode refresh record: %w", err)
	}
	return &record, nil
}

// Delete removes the record if present.
func (s *RedisRefreshStore) Delete(ctx context.Context, tokenID string) error {
	if err := s.client.Del(ctx, refreshKey(tokenID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete refresh record: %w", err)
	}
	return nil
}
