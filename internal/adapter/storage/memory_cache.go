package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

// MemoryCache keeps list pages and idempotency keys in process. It is meant
// for single-instance deployments and tests.
type MemoryCache struct {
	cache *gocache.Cache
}

func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryCache) GetRecordPage(ctx context.Context, key string) ([]domain.Record, bool, error) {
	value, found := m.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	records, ok := value.([]domain.Record)
	if !ok {
		m.cache.Delete(key)
		return nil, false, nil
	}
	return cloneRecords(records), true, nil
}

func (m *MemoryCache) SetRecordPage(ctx context.Context, key string, records []domain.Record, ttl time.Duration) error {
	m.cache.Set(key, cloneRecords(records), ttl)
	return nil
}

func (m *MemoryCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	// Add fails when the key is already present, which makes the check-and-set atomic.
	if err := m.cache.Add(key, struct{}{}, idempotencyKeyTTL); err != nil {
		return false, nil
	}
	return true, nil
}

// cloneRecords copies the page so callers cannot mutate cached entries.
func cloneRecords(records []domain.Record) []domain.Record {
	out := make([]domain.Record, len(records))
	for i, r := range records {
		r.Tracklist = append([]string{}, r.Tracklist...)
		out[i] = r
	}
	return out
}
