package cache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResponse(body string) *StoredResponse {
	header := make(http.Header)
	header.Set("ETag", `"abc"`)
	header.Set("Cache-Control", "public, max-age=31536000, stale-while-revalidate=86400, immutable")
	return &StoredResponse{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte(body),
	}
}

func TestMemoryCache_PutAndMatch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(1<<20, time.Hour, nil)

	_, found, err := c.Match(ctx, "GET http://edge/photo.jpg")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, "GET http://edge/photo.jpg", testResponse("jpeg-bytes")))

	resp, found, err := c.Match(ctx, "GET http://edge/photo.jpg")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"abc"`, resp.Header.Get("ETag"))
	assert.Equal(t, "jpeg-bytes", string(resp.Body))
	assert.False(t, resp.StoredAt.IsZero())
}

func TestMemoryCache_MatchReturnsIndependentHeaders(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(1<<20, time.Hour, nil)
	require.NoError(t, c.Put(ctx, "k", testResponse("x")))

	first, _, _ := c.Match(ctx, "k")
	first.Header.Set("ETag", "mutated")

	second, _, _ := c.Match(ctx, "k")
	assert.Equal(t, `"abc"`, second.Header.Get("ETag"))
}

func TestMemoryCache_OverwriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(1<<20, time.Hour, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Put(ctx, "k", testResponse("same")))
	}

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, testResponse("same").size(), c.Size())
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	entrySize := testResponse("0123456789").size()
	c := NewMemoryCache(entrySize*2, time.Hour, nil)

	require.NoError(t, c.Put(ctx, "a", testResponse("0123456789")))
	require.NoError(t, c.Put(ctx, "b", testResponse("0123456789")))

	// "a" становится самой свежей записью
	_, found, _ := c.Match(ctx, "a")
	require.True(t, found)

	require.NoError(t, c.Put(ctx, "c", testResponse("0123456789")))

	_, found, _ = c.Match(ctx, "b")
	assert.False(t, found, "b should be evicted")
	_, found, _ = c.Match(ctx, "a")
	assert.True(t, found)
	_, found, _ = c.Match(ctx, "c")
	assert.True(t, found)
}

func TestMemoryCache_RejectsTooLarge(t *testing.T) {
	c := NewMemoryCache(8, time.Hour, nil)
	err := c.Put(context.Background(), "k", testResponse("much longer than eight bytes"))
	assert.ErrorIs(t, err, ErrEntryTooLarge)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(1<<20, time.Hour, nil)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	resp := testResponse("x")
	resp.Header.Set("Cache-Control", "max-age=60")
	require.NoError(t, c.Put(ctx, "k", resp))

	now = now.Add(59 * time.Second)
	_, found, _ := c.Match(ctx, "k")
	assert.True(t, found)

	now = now.Add(2 * time.Second)
	_, found, _ = c.Match(ctx, "k")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_NoStoreIsNotKept(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(1<<20, time.Hour, nil)

	resp := testResponse("x")
	resp.Header.Set("Cache-Control", "no-store")
	assert.ErrorIs(t, c.Put(ctx, "k", resp), ErrNotStorable)

	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Gauges(t *testing.T) {
	metrics := NewMetrics(nil)
	c := NewMemoryCache(1<<20, time.Hour, metrics)
	resp := testResponse("payload")

	require.NoError(t, c.Put(context.Background(), "k", resp))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Entries))
	assert.Equal(t, float64(resp.size()), testutil.ToFloat64(metrics.SizeBytes))

	require.NoError(t, c.Close())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Entries))
}
