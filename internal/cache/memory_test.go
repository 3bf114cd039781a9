package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, Key("m", "hello"), Key("m", "  hello\n"))
	assert.NotEqual(t, Key("m", "hello"), Key("other", "hello"))
	assert.Contains(t, Key("m", "x"), "claimguard:emb:v1:")
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, 0)
	vec := []float32{0.1, 0.2}

	c.Set("k", vec)
	vec[0] = 9

	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, got)
	assert.Equal(t, 1, c.Len())

	got[1] = 7
	again, _ := c.Get("k")
	assert.Equal(t, float32(0.2), again[1])
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(10*time.Millisecond, 0)
	c.Set("k", []float32{1})

	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(0, 0)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	c.Clear()

	assert.Zero(t, c.Len())
}
