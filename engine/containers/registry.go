package containers

import (
	"reflect"
)

type erasedPool interface {
	erase(Handle) bool
	valid(Handle) bool
	getAny(Handle) any
	length() int
	clear()
}

func (p *Pool[T]) erase(h Handle) bool { return p.Erase(h) }
func (p *Pool[T]) valid(h Handle) bool { return p.Valid(h) }
func (p *Pool[T]) length() int         { return p.Len() }
func (p *Pool[T]) clear()              { p.Clear() }

func (p *Pool[T]) getAny(h Handle) any {
	if v := p.Get(h); v != nil {
		return v
	}
	return nil
}

// Registry holds one Pool per stored Go type. Pools are created the first
// time a type is seen and TypeIDs are handed out from 1 upwards.
type Registry struct {
	ids   map[reflect.Type]TypeID
	types []reflect.Type
	pools []erasedPool
}

func NewRegistry() *Registry {
	return &Registry{
		ids: make(map[reflect.Type]TypeID),
	}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TypeOf returns the TypeID of T, creating its pool if needed.
func TypeOf[T any](r *Registry) TypeID {
	return PoolOf[T](r).TypeID()
}

// PoolOf returns the pool storing values of type T.
func PoolOf[T any](r *Registry) *Pool[T] {
	key := typeKey[T]()
	if id, ok := r.ids[key]; ok {
		return r.pools[id-1].(*Pool[T])
	}
	id := TypeID(len(r.pools) + 1)
	p := NewPool[T](id)
	r.ids[key] = id
	r.types = append(r.types, key)
	r.pools = append(r.pools, p)
	return p
}

// Emplace stores value in the pool of T.
func Emplace[T any](r *Registry, value T) Handle {
	return PoolOf[T](r).Insert(value)
}

// Get resolves the handle as a *T. It returns nil for stale handles and for
// handles tagged with another type.
func Get[T any](r *Registry, h Handle) *T {
	id, ok := r.ids[typeKey[T]()]
	if !ok || h.Type != id {
		return nil
	}
	return r.pools[id-1].(*Pool[T]).Get(h)
}

// Is reports whether h is a live handle of type T.
func Is[T any](r *Registry, h Handle) bool {
	return Get[T](r, h) != nil
}

func (r *Registry) pool(id TypeID) erasedPool {
	if id == 0 || int(id) > len(r.pools) {
		return nil
	}
	return r.pools[id-1]
}

// Erase dispatches to the pool named by the handle's type tag.
func (r *Registry) Erase(h Handle) bool {
	p := r.pool(h.Type)
	if p == nil {
		return false
	}
	return p.erase(h)
}

func (r *Registry) Valid(h Handle) bool {
	p := r.pool(h.Type)
	return p != nil && p.valid(h)
}

// GetAny returns the stored *T as an interface, or nil.
func (r *Registry) GetAny(h Handle) any {
	p := r.pool(h.Type)
	if p == nil {
		return nil
	}
	return p.getAny(h)
}

// TypeName is the Go type name behind id, empty when unknown.
func (r *Registry) TypeName(id TypeID) string {
	if id == 0 || int(id) > len(r.types) {
		return ""
	}
	return r.types[id-1].String()
}

// Len is the total number of live values across all pools.
func (r *Registry) Len() int {
	n := 0
	for _, p := range r.pools {
		n += p.length()
	}
	return n
}

// Clear erases every value, pools and TypeIDs stay registered.
func (r *Registry) Clear() {
	for _, p := range r.pools {
		p.clear()
	}
}
