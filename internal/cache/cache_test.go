package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geocontext-service/internal/observability"
)

type result struct{ value string }

func TestCache_GetSet(t *testing.T) {
	c := New[string]("test", time.Minute, 10, clockwork.NewFakeClock())

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	c.Set("a", "again")
	v, _ = c.Get("a")
	assert.Equal(t, "again", v)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[string]("test", 10*time.Minute, 10, clock)
	c.Set("k", "v")

	clock.Advance(9*time.Minute + 59*time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must expire exactly at TTL")
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int]("test", time.Hour, 2, clockwork.NewFakeClock())
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a becomes most recent
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_StoresNilValues(t *testing.T) {
	c := New[*result]("test", time.Minute, 10, clockwork.NewFakeClock())
	c.Set("missing", nil)

	v, ok := c.Get("missing")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestCache_GetOrLoad(t *testing.T) {
	c := New[*result]("test", time.Minute, 10, clockwork.NewFakeClock())
	var calls atomic.Int32
	load := func(context.Context) (*result, bool) {
		calls.Add(1)
		return &result{value: "loaded"}, true
	}

	v, hit := c.GetOrLoad(context.Background(), "k", load)
	assert.False(t, hit)
	assert.Equal(t, "loaded", v.value)

	v, hit = c.GetOrLoad(context.Background(), "k", load)
	assert.True(t, hit)
	assert.Equal(t, "loaded", v.value)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_GetOrLoad_NotStored(t *testing.T) {
	c := New[*result]("test", time.Minute, 10, clockwork.NewFakeClock())
	var calls atomic.Int32
	load := func(context.Context) (*result, bool) {
		calls.Add(1)
		return nil, false
	}

	_, _ = c.GetOrLoad(context.Background(), "k", load)
	_, _ = c.GetOrLoad(context.Background(), "k", load)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_GetOrLoad_SingleFlight(t *testing.T) {
	c := New[*result]("test", time.Minute, 10, clockwork.NewFakeClock())
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (*result, bool) {
		calls.Add(1)
		<-release
		return &result{value: "shared"}, true
	}

	var wg sync.WaitGroup
	results := make([]*result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = c.GetOrLoad(context.Background(), "k", load)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, "shared", r.value)
	}
}

func TestCache_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New[int]("test", time.Minute, 0, clock)
	c.Set("old1", 1)
	c.Set("old2", 2)
	clock.Advance(30 * time.Second)
	c.Set("fresh", 3)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestJanitor_SweepAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	weather := New[int]("weather", time.Minute, 0, clock)
	knowledge := New[int]("knowledge", time.Hour, 0, clock)
	weather.Set("a", 1)
	knowledge.Set("b", 2)
	clock.Advance(2 * time.Minute)

	metrics := observability.NewMetricsForTesting()
	j := NewJanitor(time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics, weather, knowledge)
	j.sweepAll()

	assert.Equal(t, 0, weather.Len())
	assert.Equal(t, 1, knowledge.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CacheEntries.WithLabelValues("weather")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheEntries.WithLabelValues("knowledge")))
}

func TestJanitor_StartStop(t *testing.T) {
	j := NewJanitor(time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	require.NoError(t, j.Start())
	j.Stop()
}
