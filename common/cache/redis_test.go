package cache

import (
	"context"
	"testing"
	"time"

	"github.com/lyzr/recipes/common/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	client := testhelpers.StartRedis(t)
	ctx := context.Background()
	c := NewRedisCache(client, "test:")

	_, found, err := c.Get(ctx, "recipe:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "recipe:1", []byte(`[{"name":"flour"}]`), time.Minute))

	value, found, err := c.Get(ctx, "recipe:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `[{"name":"flour"}]`, string(value))

	raw, found, err := client.Get(ctx, "test:recipe:1")
	require.NoError(t, err)
	assert.True(t, found, "keys are prefixed")
	assert.Equal(t, value, raw)

	require.NoError(t, c.Delete(ctx, "recipe:1"))
	_, found, err = c.Get(ctx, "recipe:1")
	require.NoError(t, err)
	assert.False(t, found)
}
