package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"rentcal/internal/app/middleware"
)

// IdempotencyStore keeps command results for ttl, after which a key may be reused.
type IdempotencyStore struct {
	items *cache.Cache
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{items: cache.New(ttl, ttl/2)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	rec, ok := v.(middleware.IdempotencyRecord)
	return rec, ok, nil
}

// Save keeps the first result stored under a key until it expires.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_ = s.items.Add(rec.Key, rec, cache.DefaultExpiration)
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
