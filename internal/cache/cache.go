// Package cache defines the result-cache boundary of the service.
package cache

import (
	"context"
	"time"
)

// Interface is the result cache used by the analyze handler. A miss
// is (nil, false, nil); backend failures surface as errors and are
// treated as misses by callers.
type Interface interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}
