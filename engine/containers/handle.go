package containers

import "fmt"

// TypeID tags a Handle with the pool it indexes. Zero means untyped.
type TypeID uint32

// Handle references a slot in a Pool without owning it. A handle becomes
// stale once its slot is erased, every holder must re-validate before use.
type Handle struct {
	Index   uint32
	Version uint32
	Type    TypeID
}

// NullHandle never resolves to a value.
var NullHandle = Handle{}

func (h Handle) IsNull() bool {
	return h.Version == 0
}

func (h Handle) String() string {
	if h.IsNull() {
		return "Handle(null)"
	}
	return fmt.Sprintf("Handle(%d:%d:%d)", h.Type, h.Index, h.Version)
}
