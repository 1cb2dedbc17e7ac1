package renderer

import "time"

type RenderBufferType int

const (
	// Buffer is used for vertex data.
	RenderBufferTypeVertex RenderBufferType = iota
	// Buffer is used for index data.
	RenderBufferTypeIndex
	// Buffer is used for uniform data, read through a dynamic offset.
	RenderBufferTypeUniform
	// Buffer is used for data storage, read through a dynamic offset.
	RenderBufferTypeStorage
	// Buffer holds texel data waiting to be copied into an image.
	RenderBufferTypeStaging
)

func (t RenderBufferType) String() string {
	switch t {
	case RenderBufferTypeVertex:
		return "vertex"
	case RenderBufferTypeIndex:
		return "index"
	case RenderBufferTypeUniform:
		return "uniform"
	case RenderBufferTypeStorage:
		return "storage"
	case RenderBufferTypeStaging:
		return "staging"
	}
	return "unknown"
}

// Buffer is a host-visible GPU buffer.
type Buffer interface {
	Type() RenderBufferType
	Size() uint64
	// Write copies data at offset. Writes past Size fail with core.ErrOutOfBounds.
	Write(offset uint64, data []byte) error
	Destroy()
}

// Fence is signaled by the GPU when the work submitted with it completes.
type Fence interface {
	// Wait blocks for at most timeout. It reports whether the fence is signaled.
	Wait(timeout time.Duration) bool
	Reset() error
	Destroy()
}

// MaxFrameSlots bounds the frames in flight a device must keep stream
// bindings for.
const MaxFrameSlots = 3

// Device is the slice of the GPU layer the engine core needs: buffer
// allocation, descriptor updates and alignment queries.
type Device interface {
	// Alignment is the minimum offset alignment for dynamic offsets into
	// buffers of the given type.
	Alignment(t RenderBufferType) uint64
	CreateBuffer(t RenderBufferType, size uint64) (Buffer, error)
	CreateFence(signaled bool) (Fence, error)
	// BindStream points the dynamic descriptor of a stream at buffer for
	// the frame slot only. Range is the size of one frame region. Callers
	// bind a slot only once its previous frame completed.
	BindStream(slot uint32, stream uint32, buffer Buffer, rng uint64) error
	// Submit hands the frame's recorded work to the GPU, fence is signaled
	// once it completes.
	Submit(fence Fence) error
	WaitIdle() error
	Destroy()
}
