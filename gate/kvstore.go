package gate

import (
	"context"
	"time"
)

// KVStore is the shared key-value cache service that backs the IP block
// list. Every call is a live round trip: block entries must propagate
// across all serving processes immediately, so implementations must not
// add an in-process caching layer.
type KVStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetWithTTL(ctx context.Context, key string, val string, ttl time.Duration) error
}
