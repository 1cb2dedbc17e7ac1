package containers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolInsertGetErase(t *testing.T) {
	p := NewPool[string](7)
	h := p.Insert("hero")
	require.False(t, h.IsNull())
	assert.Equal(t, TypeID(7), h.Type)
	assert.Equal(t, uint32(1), h.Version)

	v := p.Get(h)
	require.NotNil(t, v)
	assert.Equal(t, "hero", *v)

	assert.True(t, p.Erase(h))
	assert.Nil(t, p.Get(h))
	assert.False(t, p.Erase(h))
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, p.Cap())
}

func TestPoolStaleHandleAfterReuse(t *testing.T) {
	p := NewPool[int](1)
	h1 := p.Insert(1)
	require.True(t, p.Erase(h1))

	for i := 0; i < 10; i++ {
		h := p.Insert(i)
		assert.Nil(t, p.Get(h1), "stale handle resolved after %d inserts", i+1)
		assert.NotEqual(t, h1, h)
	}
}

func TestPoolReuseBumpsVersion(t *testing.T) {
	p := NewPool[int](1)
	h1 := p.Insert(1)
	p.Erase(h1)
	h2 := p.Insert(2)
	assert.Equal(t, h1.Index, h2.Index)
	assert.Greater(t, h2.Version, h1.Version)
	assert.Equal(t, 2, *p.Get(h2))
}

func TestPoolRejectsForeignAndNullHandles(t *testing.T) {
	p := NewPool[int](1)
	h := p.Insert(42)

	assert.Nil(t, p.Get(NullHandle))
	assert.Nil(t, p.Get(Handle{Index: h.Index, Version: h.Version, Type: 2}))
	assert.Nil(t, p.Get(Handle{Index: 99, Version: 1, Type: 1}))
	assert.False(t, p.Erase(Handle{Index: 99, Version: 1, Type: 1}))
}

func TestPoolPointerStability(t *testing.T) {
	p := NewPool[[4]float32](1)
	h := p.Insert([4]float32{1, 2, 3, 4})
	ref := p.Get(h)
	for i := 0; i < 1000; i++ {
		p.Insert([4]float32{})
	}
	ref[0] = 9
	assert.Equal(t, float32(9), p.Get(h)[0])
}

func TestPoolVersionExhaustionRetiresSlot(t *testing.T) {
	p := NewPool[int](1)
	h := p.Insert(1)
	p.slots[h.Index].version = math.MaxUint32
	h.Version = math.MaxUint32

	require.True(t, p.Erase(h))
	next := p.Insert(2)
	assert.NotEqual(t, h.Index, next.Index)
	assert.Nil(t, p.Get(h))
}

func TestPoolEachAndClear(t *testing.T) {
	p := NewPool[int](1)
	a := p.Insert(1)
	p.Insert(2)
	p.Insert(3)
	p.Erase(a)

	sum := 0
	p.Each(func(_ Handle, v *int) bool {
		sum += *v
		return true
	})
	assert.Equal(t, 5, sum)
	assert.Len(t, p.Handles(), 2)

	visited := 0
	p.Each(func(Handle, *int) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)

	handles := p.Handles()
	p.Clear()
	assert.Equal(t, 0, p.Len())
	for _, h := range handles {
		assert.False(t, p.Valid(h))
	}
}

func TestRingQueue(t *testing.T) {
	q := NewRingQueue[string](2)
	assert.True(t, q.Enqueue("a"))
	assert.True(t, q.Enqueue("b"))
	assert.False(t, q.Enqueue("c"))

	v, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, _ = q.Dequeue()
	assert.Equal(t, "a", v)
	assert.True(t, q.Enqueue("c"))
	v, _ = q.Dequeue()
	assert.Equal(t, "b", v)
	v, _ = q.Dequeue()
	assert.Equal(t, "c", v)
	_, ok = q.Dequeue()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}
