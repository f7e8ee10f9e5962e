package scriptstash

import "context"

// TTL sentinels reported by [Store.Get], following the Redis TTL
// convention. Callers must decide existence from the presence of the value,
// never from the ttl number alone.
const (
	TTLAbsent   int64 = -2 // the key does not exist
	TTLNoExpiry int64 = -1 // the key exists but has no associated expiry
)

// Store is the key-value capability backing the server. It is the only
// mutable external dependency: any backend with get-with-remaining-ttl and
// set-with-ttl semantics can satisfy it.
type Store interface {
	// Get returns the bytes stored under key and their remaining
	// time-to-live in seconds. A nil slice means the key is absent, in
	// which case the ttl is [TTLAbsent]. The ttl may also be negative for
	// keys that exist without an expiry; it is only meaningful alongside a
	// non-nil value.
	Get(ctx context.Context, key string) (data []byte, ttlSeconds int64, err error)

	// Set unconditionally writes data under key, expiring after ttlSeconds.
	// Callers are expected to pass a positive ttl; the store does not
	// enforce a minimum.
	Set(ctx context.Context, key string, data []byte, ttlSeconds int64) error
}
