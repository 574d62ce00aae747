package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

const idempotencyKeyTTL = 24 * time.Hour

type RedisAdapter struct {
	client redis.UniversalClient
}

func NewRedisAdapter(client redis.UniversalClient) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) GetRecordPage(ctx context.Context, key string) ([]domain.Record, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false, fmt.Errorf("decode cached page %s: %w", key, err)
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, true, nil
}

func (r *RedisAdapter) SetRecordPage(ctx context.Context, key string, records []domain.Record, ttl time.Duration) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", key, err)
	}
	return r.client.Set(ctx, key, raw, ttl).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
