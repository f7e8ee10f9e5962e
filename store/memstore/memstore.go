// Package memstore provides an in-memory TTL store, intended for tests and
// single-process deployments where persistence across restarts is not
// needed. It is safe for concurrent use by multiple goroutines.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/tapwave/scriptstash"
)

// Store is an in-memory implementation of [scriptstash.Store]. Expired
// entries are removed lazily on read; there is no background sweeper.
type Store struct {
	mutex sync.RWMutex
	index map[string]entry
}

type entry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

var _ scriptstash.Store = (*Store)(nil)

// New returns a pointer to an empty instance of Store.
func New() *Store {
	return &Store{index: map[string]entry{}}
}

// Get returns the stored bytes and the remaining ttl in seconds, following
// the sentinel convention of [scriptstash.Store].
func (s *Store) Get(ctx context.Context, key string) ([]byte, int64, error) {
	now := time.Now()

	s.mutex.RLock()
	e, ok := s.index[key]
	s.mutex.RUnlock()

	if !ok {
		return nil, scriptstash.TTLAbsent, nil
	}

	if !e.expiresAt.IsZero() && e.expiresAt.Before(now) {
		s.mutex.Lock()
		if current, ok := s.index[key]; ok && current.expiresAt.Equal(e.expiresAt) {
			delete(s.index, key)
		}
		s.mutex.Unlock()

		return nil, scriptstash.TTLAbsent, nil
	}

	data := make([]byte, len(e.data))
	copy(data, e.data)

	if e.expiresAt.IsZero() {
		return data, scriptstash.TTLNoExpiry, nil
	}
	return data, remainingSeconds(e.expiresAt.Sub(now)), nil
}

// Set stores data under the given key. If ttlSeconds <= 0, the entry never
// expires.
func (s *Store) Set(ctx context.Context, key string, data []byte, ttlSeconds int64) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	var expiresAt time.Time
	if ttlSeconds > 0 {
		expiresAt = time.Now().Add(time.Duration(ttlSeconds) * time.Second)
	}

	s.mutex.Lock()
	s.index[key] = entry{data: buf, expiresAt: expiresAt}
	s.mutex.Unlock()

	return nil
}

// Len returns the number of entries currently stored, including any that
// expired but have not been read since.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.index)
}

// remainingSeconds rounds up like the Redis TTL command, so an entry just
// written with ttl N reports N, not N-1.
func remainingSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
