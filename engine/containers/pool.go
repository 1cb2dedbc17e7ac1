package containers

import "math"

type slot[T any] struct {
	value   *T
	version uint32
	alive   bool
}

// Pool is a slot array addressed by generational handles. Values are kept
// behind pointers so references returned by Get survive growth of the pool.
type Pool[T any] struct {
	typeID TypeID
	slots  []slot[T]
	free   []uint32
	count  int
}

func NewPool[T any](typeID TypeID) *Pool[T] {
	return &Pool[T]{typeID: typeID}
}

func (p *Pool[T]) TypeID() TypeID {
	return p.typeID
}

// Insert stores the value, reusing the most recently freed slot if any.
func (p *Pool[T]) Insert(value T) Handle {
	v := new(T)
	*v = value
	var index uint32
	if n := len(p.free); n > 0 {
		index = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		index = uint32(len(p.slots))
		p.slots = append(p.slots, slot[T]{version: 1})
	}
	s := &p.slots[index]
	s.value = v
	s.alive = true
	p.count++
	return Handle{Index: index, Version: s.version, Type: p.typeID}
}

// Get returns nil when the handle is null, stale or tagged for another pool.
func (p *Pool[T]) Get(h Handle) *T {
	if !p.Valid(h) {
		return nil
	}
	return p.slots[h.Index].value
}

func (p *Pool[T]) Valid(h Handle) bool {
	if h.IsNull() || h.Type != p.typeID || int(h.Index) >= len(p.slots) {
		return false
	}
	s := &p.slots[h.Index]
	return s.alive && s.version == h.Version
}

// Erase releases the slot and bumps its version. Storage never shrinks.
func (p *Pool[T]) Erase(h Handle) bool {
	if !p.Valid(h) {
		return false
	}
	s := &p.slots[h.Index]
	s.value = nil
	s.alive = false
	p.count--
	if s.version == math.MaxUint32 {
		// Out of versions, the slot is retired for good.
		return true
	}
	s.version++
	p.free = append(p.free, h.Index)
	return true
}

// Len is the number of live values.
func (p *Pool[T]) Len() int {
	return p.count
}

// Cap is the number of slots, live or free.
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// Each visits live values in slot order until fn returns false. Erasing the
// visited handle from fn is allowed.
func (p *Pool[T]) Each(fn func(Handle, *T) bool) {
	for i := range p.slots {
		s := &p.slots[i]
		if !s.alive {
			continue
		}
		if !fn(Handle{Index: uint32(i), Version: s.version, Type: p.typeID}, s.value) {
			return
		}
	}
}

func (p *Pool[T]) Handles() []Handle {
	out := make([]Handle, 0, p.count)
	p.Each(func(h Handle, _ *T) bool {
		out = append(out, h)
		return true
	})
	return out
}

// Clear erases every live value, bumping versions like Erase does.
func (p *Pool[T]) Clear() {
	for _, h := range p.Handles() {
		p.Erase(h)
	}
}
