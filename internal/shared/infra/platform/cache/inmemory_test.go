package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Total int `json:"total"`
}

func TestInMemoryCache_SetGet(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", summary{Total: 3}, 0))

	var got summary
	hit, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, got.Total)
}

func TestInMemoryCache_ExpiredIsMiss(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", summary{Total: 1}, time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	var got summary
	hit, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, hit, "una clave expirada debe tratarse como miss")
}

func TestInMemoryCache_Delete(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", summary{Total: 1}, 0))
	require.NoError(t, c.Delete(ctx, "k"))

	var got summary
	hit, _ := c.Get(ctx, "k", &got)
	assert.False(t, hit)
	c.Stop() // idempotente
}
