package collection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string
	Value int
}

func byName(e entry) string { return e.Name }

func names(c *Collection[entry, string]) []string {
	out := make([]string, 0, c.Len())
	for _, e := range c.Items() {
		out = append(out, e.Name)
	}
	return out
}

func TestInsertFrontEvictsTail(t *testing.T) {
	c := New(10, byName)
	for i := 0; i < 11; i++ {
		c.InsertFront(entry{Name: fmt.Sprintf("city-%d", i)})
	}

	require.Equal(t, 10, c.Len())
	assert.Equal(t, "city-10", c.At(0).Name)
	assert.Equal(t, "city-1", c.At(9).Name)
	_, found := c.FindByKey("city-0")
	assert.False(t, found, "first inserted key should have been evicted")
}

func TestAddOrPromoteKeepsCapacityAndUniqueness(t *testing.T) {
	c := New(3, byName)
	seq := []string{"a", "b", "a", "c", "d", "b", "b", "e", "a"}
	for _, n := range seq {
		c.AddOrPromote(entry{Name: n})

		assert.LessOrEqual(t, c.Len(), 3)
		seen := map[string]bool{}
		for _, e := range c.Items() {
			assert.False(t, seen[e.Name], "duplicate key %q", e.Name)
			seen[e.Name] = true
		}
		assert.Equal(t, n, c.At(0).Name)
	}
	assert.Equal(t, []string{"a", "e", "b"}, names(c))
}

func TestAddOrPromoteIsIdempotent(t *testing.T) {
	c := New(5, byName)
	c.AddOrPromote(entry{Name: "x"})
	c.AddOrPromote(entry{Name: "y"})

	c.AddOrPromote(entry{Name: "x", Value: 1})
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "x", c.At(0).Name)

	c.AddOrPromote(entry{Name: "x", Value: 2})
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "x", c.At(0).Name)
	assert.Equal(t, 0, c.At(0).Value, "promotion keeps the stored content")
}

func TestPromoteToFrontNeverEvicts(t *testing.T) {
	c := New(3, byName)
	c.InsertFront(entry{Name: "a"})
	c.InsertFront(entry{Name: "b"})
	c.InsertFront(entry{Name: "c"})

	c.PromoteToFront(2)
	assert.Equal(t, []string{"a", "c", "b"}, names(c))

	c.PromoteToFront(0)
	c.PromoteToFront(7)
	assert.Equal(t, []string{"a", "c", "b"}, names(c))
}

func TestUpsertReplacesContent(t *testing.T) {
	c := New(3, byName)
	c.Upsert(entry{Name: "a", Value: 1})
	c.Upsert(entry{Name: "b", Value: 1})
	c.Upsert(entry{Name: "a", Value: 2})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, entry{Name: "a", Value: 2}, c.At(0))
}

func TestRemoveByKey(t *testing.T) {
	c := New(3, byName)
	c.InsertFront(entry{Name: "a"})
	c.InsertFront(entry{Name: "b"})

	require.NoError(t, c.RemoveByKey("a"))
	assert.Equal(t, []string{"b"}, names(c))

	err := c.RemoveByKey("a")
	assert.ErrorIs(t, err, ErrNotFoundKey)
}

func TestClearAndFromItems(t *testing.T) {
	items := []entry{{Name: "a"}, {Name: "b"}, {Name: "a"}, {Name: "c"}, {Name: "d"}}
	c := FromItems(3, byName, items)
	assert.Equal(t, []string{"a", "b", "c"}, names(c))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 3, c.Cap())
}

func TestUnboundedCollection(t *testing.T) {
	c := New(0, byName)
	for i := 0; i < 50; i++ {
		c.InsertFront(entry{Name: fmt.Sprint(i)})
	}
	assert.Equal(t, 50, c.Len())
}

func TestReplaceKeepsPosition(t *testing.T) {
	c := FromItems(5, byName, []entry{{Name: "a"}, {Name: "b", Value: 1}, {Name: "c"}})

	assert.True(t, c.Replace(entry{Name: "b", Value: 2}))
	assert.Equal(t, []string{"a", "b", "c"}, names(c))
	assert.Equal(t, 2, c.At(1).Value)

	assert.False(t, c.Replace(entry{Name: "z"}))
	assert.Equal(t, 3, c.Len())
}

func TestRemoveFunc(t *testing.T) {
	c := FromItems(5, byName, []entry{{Name: "a", Value: 1}, {Name: "b", Value: 2}, {Name: "c", Value: 1}})

	removed := c.RemoveFunc(func(e entry) bool { return e.Value == 1 })
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"b"}, names(c))

	assert.Equal(t, 0, c.RemoveFunc(func(entry) bool { return false }))
}
