package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("identity")

	_, err := c.Get(ctx, "S1")
	assert.ErrorIs(t, err, ErrNotFound)

	val := []byte(`{"id":"S1"}`)
	require.NoError(t, c.Set(ctx, "S1", val, time.Minute))
	val[0] = 'x'

	got, err := c.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"S1"}`, string(got))

	require.NoError(t, c.Delete(ctx, "S1"))
	_, err = c.Get(ctx, "S1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, c.Close())
}

func TestNewDefaultsToMemory(t *testing.T) {
	c, err := New(Config{Driver: ""})
	require.NoError(t, err)
	_, ok := c.(*Memory)
	assert.True(t, ok)
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(Config{Addr: "127.0.0.1:1"})
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestPrefixed(t *testing.T) {
	assert.Equal(t, "k", prefixed("", "k"))
	assert.Equal(t, "identity:k", prefixed("identity", "k"))
}
