package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestCache(ttl time.Duration) (*Cache[int], *time.Time) {
	c := New[int](ttl)
	clock := time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestGetSet(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	defer c.Close()

	_, ok := c.Get("lots")
	assert.False(t, ok)

	c.Set("lots", 42)
	v, ok := c.Get("lots")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, time.Minute, c.TTL())
}

func TestExpiry(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	c.Set("lots", 7)
	*clock = clock.Add(30 * time.Second)

	age, ok := c.Age("lots")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, age)

	*clock = clock.Add(30 * time.Second)
	_, ok = c.Get("lots")
	assert.False(t, ok)

	_, ok = c.Age("lots")
	assert.False(t, ok)

	c.removeExpired()
	assert.Empty(t, c.entries)
}

func TestSetRestartsAge(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	defer c.Close()

	c.Set("lots", 1)
	*clock = clock.Add(45 * time.Second)
	c.Set("lots", 2)
	*clock = clock.Add(30 * time.Second)

	age, ok := c.Age("lots")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, age)
}

func TestCloseTwice(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Close()
	c.Close()
}
