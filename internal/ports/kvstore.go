package ports

import (
	"authbot/internal/types"
	"context"
	"time"
)

// KVStore is a TTL key-value store split into namespaces.
// Values are opaque; callers own their encoding.
// Implementations MUST be safe for concurrent use and MUST NOT panic or exit
// when the backend is unreachable: failures are returned as errors wrapping
// types.ErrCacheUnavailable.
type KVStore interface {
	// Set stores value under (ns, key) for ttl, replacing any previous value and its expiry.
	Set(ctx context.Context, ns types.Namespace, key string, value []byte, ttl time.Duration) error

	// Get returns (value, true, nil) on hit, (nil, false, nil) when absent or
	// expired, and (nil, false, err) when the backend failed.
	Get(ctx context.Context, ns types.Namespace, key string) ([]byte, bool, error)

	// Delete removes (ns, key). Absence is not an error.
	Delete(ctx context.Context, ns types.Namespace, key string) error

	Close() error
}
