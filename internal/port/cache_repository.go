package port

import (
	"context"
	"time"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

type CacheRepository interface {
	// GetRecordPage returns a cached list page; found is false on a miss
	GetRecordPage(ctx context.Context, key string) (records []domain.Record, found bool, err error)

	// SetRecordPage stores a list page for ttl
	SetRecordPage(ctx context.Context, key string, records []domain.Record, ttl time.Duration) error
}

type IdempotencyRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
