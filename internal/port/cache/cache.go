// Package cache defines the port for the in-process read cache.
package cache

import (
	"context"
	"time"
)

// Cache is a bounded in-process cache of serialized query results.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
