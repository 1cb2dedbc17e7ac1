package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type texture struct{ Width, Height int }
type material struct{ Albedo Handle }

func TestRegistryLazyTypeIDs(t *testing.T) {
	r := NewRegistry()
	th := Emplace(r, texture{Width: 4})
	mh := Emplace(r, material{Albedo: th})

	assert.Equal(t, TypeID(1), th.Type)
	assert.Equal(t, TypeID(2), mh.Type)
	assert.Equal(t, TypeOf[texture](r), th.Type)
	assert.Equal(t, "containers.texture", r.TypeName(th.Type))
	assert.Equal(t, "", r.TypeName(42))
	assert.Equal(t, 2, r.Len())
}

func TestRegistryCrossTypeAccessFails(t *testing.T) {
	r := NewRegistry()
	th := Emplace(r, texture{Width: 4})
	Emplace(r, material{})

	assert.Nil(t, Get[material](r, th))
	assert.Nil(t, Get[int](r, th))
	tex := Get[texture](r, th)
	require.NotNil(t, tex)
	assert.Equal(t, 4, tex.Width)
	assert.True(t, Is[texture](r, th))
	assert.False(t, Is[material](r, th))
}

func TestRegistryEraseDispatchesByTag(t *testing.T) {
	r := NewRegistry()
	th := Emplace(r, texture{})
	mh := Emplace(r, material{})

	assert.True(t, r.Erase(th))
	assert.False(t, r.Valid(th))
	assert.True(t, r.Valid(mh))
	assert.False(t, r.Erase(th))
	assert.False(t, r.Erase(Handle{Index: 0, Version: 1, Type: 99}))
	assert.False(t, r.Erase(NullHandle))
}

func TestRegistryGetAny(t *testing.T) {
	r := NewRegistry()
	mh := Emplace(r, material{})
	v, ok := r.GetAny(mh).(*material)
	require.True(t, ok)
	assert.NotNil(t, v)

	r.Erase(mh)
	assert.Nil(t, r.GetAny(mh))
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	a := Emplace(r, texture{})
	b := Emplace(r, material{})
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Valid(a))
	assert.False(t, r.Valid(b))
	assert.Equal(t, a.Type, Emplace(r, texture{}).Type)
}
