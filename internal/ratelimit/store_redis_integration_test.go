//go:build integration

package ratelimit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escolinha/pkg/testutil/containers"
)

func TestRedisStoreSlidingWindow(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedisStore(rc.Client)
	key := "ip:" + uuid.NewString()

	for i := range 3 {
		res, err := store.Allow(t.Context(), key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := store.Allow(t.Context(), key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.GreaterOrEqual(t, res.RetryAfter, 1)

	n, err := rc.Client.ZCard(t.Context(), redisPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "rejected requests leave no trace")
}
