package mongodb

import (
	"context"
	"time"
)

// CacheService is the slice of the redis cache the repositories use to
// keep live SOS events and active sessions hot. Satisfied by
// pkg/cache.RedisCache. A nil cache disables caching.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const liveRecordTTL = 5 * time.Minute
