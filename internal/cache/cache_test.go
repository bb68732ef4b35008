package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTLCacheExpires(t *testing.T) {
	clk := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache[string, int](WithNow(clk.Now))

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCacheMaxSize(t *testing.T) {
	c := NewTTLCache[int, int](WithMaxSize(2))
	c.Set(1, 1, time.Hour)
	c.Set(2, 2, time.Hour)
	c.Set(3, 3, time.Hour)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(3)
	assert.True(t, ok)
}

func TestCustomerEmailCacheKeysAreCaseInsensitive(t *testing.T) {
	c := NewCustomerEmailCache(time.Minute)
	c.SetEmail("Stripe", " cus_1 ", "u@x.com")

	email, ok := c.GetEmail("stripe", "CUS_1")
	assert.True(t, ok)
	assert.Equal(t, "u@x.com", email)

	c.SetEmail("stripe", "cus_2", "")
	_, ok = c.GetEmail("stripe", "cus_2")
	assert.False(t, ok)

	c.Forget("stripe", "cus_1")
	_, ok = c.GetEmail("stripe", "cus_1")
	assert.False(t, ok)
}
