package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fakeClock(c *LRUCache[int], start time.Time) *time.Time {
	now := start
	c.now = func() time.Time { return now }
	return &now
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was the least recently used entry")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	now := fakeClock(c, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	c.Set("a", 1)
	c.Set("b", 2)
	*now = now.Add(30 * time.Second)
	c.Set("c", 3)

	*now = now.Add(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUDeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a@x.io|overview", 1)
	c.Set("a@x.io|reports", 2)
	c.Set("b@x.io|overview", 3)

	assert.Equal(t, 2, c.DeletePrefix("a@x.io|"))
	assert.Equal(t, 1, c.Size())

	c.Delete("b@x.io|overview")
	assert.Equal(t, 0, c.Size())
}

func TestLRUStats(t *testing.T) {
	c := NewLRUCache[string](3, time.Minute)
	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	st := c.Stats()
	assert.Equal(t, Stats{Size: 1, Capacity: 3, Hits: 2, Misses: 1}, st)

	c.Purge()
	assert.Equal(t, 0, c.Size())
	assert.EqualValues(t, 2, c.Stats().Hits)
}

type countingCleaner struct{ calls int }

func (c *countingCleaner) CleanExpired() int { c.calls++; return 2 }

func TestManagerSweep(t *testing.T) {
	m := NewManager()
	a, b := &countingCleaner{}, &countingCleaner{}
	m.Register(a)
	m.Register(b)

	assert.Equal(t, 4, m.Sweep())
	assert.Equal(t, 1, a.calls)

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
