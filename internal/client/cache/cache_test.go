package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type detail struct {
	Name  string
	Score int
}

// fakeClock drives the cache's notion of now.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) now() time.Time {
	return f.current
}

func (f *fakeClock) advance(d time.Duration) {
	f.current = f.current.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache[detail], *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New[detail](ttl)
	c.now = clock.now
	return c, clock
}

func TestCache_PutGet(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	c.Put("s1", detail{Name: "math", Score: 8})

	got, ok := c.Get("s1")
	assert.True(t, ok)
	assert.Equal(t, detail{Name: "math", Score: 8}, got)
}

func TestCache_MissIsNotAnError(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Put("s1", detail{Name: "math"})

	clock.advance(5*time.Minute - time.Second)
	_, ok := c.Get("s1")
	assert.True(t, ok)

	clock.advance(2 * time.Second)
	_, ok = c.Get("s1")
	assert.False(t, ok)
}

func TestCache_PutOverwrites(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Put("s1", detail{Score: 1})
	clock.advance(4 * time.Minute)
	c.Put("s1", detail{Score: 2})

	// overwrite resets the timestamp too
	clock.advance(4 * time.Minute)
	got, ok := c.Get("s1")
	assert.True(t, ok)
	assert.Equal(t, 2, got.Score)
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	c.Put("s1", detail{})
	c.Put("s2", detail{})
	c.Invalidate("s1")

	_, ok := c.Get("s1")
	assert.False(t, ok)
	_, ok = c.Get("s2")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	c.Put("s1", detail{})
	c.Put("s2", detail{})
	c.Clear()

	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictExpired(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	c.Put("old1", detail{})
	c.Put("old2", detail{})
	clock.advance(6 * time.Minute)
	c.Put("fresh", detail{})

	removed := c.EvictExpired()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
}

func TestCache_EvictionThresholdOnPut(t *testing.T) {
	c, clock := newTestCache(5 * time.Minute)

	// two entries go stale: 2 of 3 is past the 30% threshold, so the
	// next Put sweeps them
	c.Put("old1", detail{})
	c.Put("old2", detail{})
	clock.advance(6 * time.Minute)
	c.Put("fresh", detail{})

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("fresh")
	assert.True(t, ok)
}
