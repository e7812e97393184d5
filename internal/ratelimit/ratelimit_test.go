package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSlidingWindow(t *testing.T) {
	now := time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := range 3 {
		res, err := store.Allow(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		now = now.Add(10 * time.Second)
	}

	res, err := store.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter)

	other, err := store.Allow(ctx, "ip:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(31 * time.Second)
	res, err = store.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "oldest request left the window")
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	t.Run("rejects over the limit", func(t *testing.T) {
		h := New(NewMemoryStore(), 2, time.Minute, logger).Handler(ok)
		var codes []int
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/reenrollment", nil)
			req.RemoteAddr = "198.51.100.4:5555"
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			codes = append(codes, rr.Code)
			if rr.Code == http.StatusTooManyRequests {
				assert.NotEmpty(t, rr.Header().Get("Retry-After"))
				assert.Contains(t, rr.Body.String(), "rate_limited")
			}
		}
		assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	})

	t.Run("store failures let requests through", func(t *testing.T) {
		h := New(failingStore{}, 1, time.Minute, logger).Handler(ok)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reenrollment", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}
