package atlas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string](3)

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	v, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")

	// Access "a" to promote it.
	c.get("a")

	// Inserting "c" should evict "b", not "a".
	c.put("c", "C")

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A1")
	c.put("a", "A2")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.len())
}

func TestLRUCache_DeleteFunc(t *testing.T) {
	c := newLRUCache[int](10)

	c.put("1987|1", 1)
	c.put("1987|2", 2)
	c.put("1990|1", 3)

	removed := c.deleteFunc(func(key string) bool { return strings.HasPrefix(key, "1987|") })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.len())

	_, ok := c.get("1990|1")
	assert.True(t, ok)

	// Eviction order stays intact after removal.
	c.put("a", 4)
	c.put("b", 5)
	_, ok = c.get("1990|1")
	assert.True(t, ok)
}
