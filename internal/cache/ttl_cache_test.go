package cache

import (
	"testing"
	"time"

	"github.com/smallbiznis/leadbilling/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](clk.Now)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(2 * time.Minute)

	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.GetStale("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCacheDelete(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", time.Hour)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
	_, ok = c.GetStale("k")
	assert.False(t, ok)
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c Cache[string, int] = NoopCache[string, int]{}
	c.Set("k", 1, time.Hour)

	_, ok := c.Get("k")
	assert.False(t, ok)
	_, ok = c.GetStale("k")
	assert.False(t, ok)
}
