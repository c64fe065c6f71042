package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcli/internal/timeseries"
)

func testFrame(t *testing.T, value float64) timeseries.Frame {
	t.Helper()
	dates := timeseries.NewNaiveDates([]time.Time{time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)})
	frame, err := timeseries.NewFrame(dates, []int{1},
		[]timeseries.Series{{Name: "V", Values: []float64{value}}})
	require.NoError(t, err)
	return frame
}

// TestFrameCachePutGet tests storage and retrieval round trips
func TestFrameCachePutGet(t *testing.T) {
	c := New(time.Minute, 16)
	defer c.Stop()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Put("a", testFrame(t, 1))
	got, ok := c.Get("a")
	require.True(t, ok)
	values, _ := got.Vector("V")
	assert.Equal(t, []float64{1}, values)

	// overwrite under the same key
	c.Put("a", testFrame(t, 2))
	got, ok = c.Get("a")
	require.True(t, ok)
	values, _ = got.Vector("V")
	assert.Equal(t, []float64{2}, values)
}

// TestFrameCacheExpiry tests TTL-based misses
func TestFrameCacheExpiry(t *testing.T) {
	c := New(10*time.Millisecond, 16)
	defer c.Stop()

	c.Put("a", testFrame(t, 1))
	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(25 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok)
}

// TestFrameCacheEviction tests the size bound
func TestFrameCacheEviction(t *testing.T) {
	t.Run("oldest entry is evicted", func(t *testing.T) {
		c := New(time.Minute, 2)
		defer c.Stop()

		c.Put("a", testFrame(t, 1))
		time.Sleep(2 * time.Millisecond)
		c.Put("b", testFrame(t, 2))
		time.Sleep(2 * time.Millisecond)
		c.Put("c", testFrame(t, 3))

		_, ok := c.Get("a")
		assert.False(t, ok, "oldest entry should be gone")
		_, ok = c.Get("b")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("zero size stores nothing", func(t *testing.T) {
		c := New(time.Minute, 0)
		defer c.Stop()

		c.Put("a", testFrame(t, 1))
		_, ok := c.Get("a")
		assert.False(t, ok)
	})
}

// TestFrameCacheInvalidate tests explicit removal
func TestFrameCacheInvalidate(t *testing.T) {
	c := New(time.Minute, 16)
	defer c.Stop()

	c.Put("a", testFrame(t, 1))
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

// TestFrameCacheStats tests hit and miss accounting
func TestFrameCacheStats(t *testing.T) {
	c := New(time.Minute, 16)
	defer c.Stop()

	c.Put("a", testFrame(t, 1))
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(2), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.InDelta(t, 2.0/3.0, stats.HitRatio, 1e-9)
	assert.Equal(t, time.Minute, stats.TTL)
}
