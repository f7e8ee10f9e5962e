package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapwave/scriptstash"
)

func open(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "scripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGet(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	value := []byte("0,50\n1000,80\n")

	require.NoError(t, s.Set(ctx, "k", value, 100))

	data, ttl, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, value, data)
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, int64(100))
}

func TestGetAbsent(t *testing.T) {
	s := open(t)

	data, ttl, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, scriptstash.TTLAbsent, ttl)
}

func TestNoExpiry(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	data, ttl, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Equal(t, scriptstash.TTLNoExpiry, ttl)
}

func TestExpiry(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 1))

	time.Sleep(1100 * time.Millisecond)

	data, ttl, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, scriptstash.TTLAbsent, ttl)

	// the expired row stays gone
	data, _, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestOverwrite(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("old"), 100))
	require.NoError(t, s.Set(ctx, "k", []byte("new"), 100))

	data, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), data)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 100))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	data, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), data)
}
