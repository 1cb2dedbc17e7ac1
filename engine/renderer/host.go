package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

// HostDevice implements Device over plain host memory. It backs headless
// runs and tests. With ManualFences set, submitted fences stay unsignaled
// until Signal is called on them, standing in for a GPU still in flight.
type HostDevice struct {
	MinAlignment uint64
	ManualFences bool

	mu      sync.Mutex
	live    map[*HostBuffer]struct{}
	streams map[streamKey]streamBinding
	submits int
}

type streamKey struct {
	slot   uint32
	stream uint32
}

type streamBinding struct {
	buffer Buffer
	rng    uint64
}

func NewHostDevice(minAlignment uint64) *HostDevice {
	if minAlignment == 0 {
		minAlignment = 256
	}
	return &HostDevice{
		MinAlignment: minAlignment,
		live:         make(map[*HostBuffer]struct{}),
		streams:      make(map[streamKey]streamBinding),
	}
}

func (d *HostDevice) Alignment(t RenderBufferType) uint64 {
	switch t {
	case RenderBufferTypeUniform, RenderBufferTypeStorage:
		return d.MinAlignment
	}
	return 4
}

func (d *HostDevice) CreateBuffer(t RenderBufferType, size uint64) (Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("create %s buffer: zero size", t)
	}
	b := &HostBuffer{device: d, kind: t, data: make([]byte, size)}
	d.mu.Lock()
	d.live[b] = struct{}{}
	d.mu.Unlock()
	return b, nil
}

func (d *HostDevice) CreateFence(signaled bool) (Fence, error) {
	return &HostFence{signaled: signaled}, nil
}

func (d *HostDevice) BindStream(slot uint32, stream uint32, buffer Buffer, rng uint64) error {
	if buffer == nil {
		return fmt.Errorf("bind stream %d: nil buffer", stream)
	}
	if slot >= MaxFrameSlots {
		return fmt.Errorf("bind stream %d: frame slot %d out of range", stream, slot)
	}
	d.mu.Lock()
	d.streams[streamKey{slot, stream}] = streamBinding{buffer: buffer, rng: rng}
	d.mu.Unlock()
	return nil
}

// Stream returns the buffer last bound to stream for the frame slot.
func (d *HostDevice) Stream(slot uint32, stream uint32) (Buffer, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.streams[streamKey{slot, stream}]
	return b.buffer, b.rng
}

func (d *HostDevice) Submit(fence Fence) error {
	f, ok := fence.(*HostFence)
	if !ok {
		return fmt.Errorf("submit: foreign fence %T", fence)
	}
	d.mu.Lock()
	d.submits++
	d.mu.Unlock()
	if d.ManualFences {
		_ = f.Reset()
		return nil
	}
	f.Signal()
	return nil
}

// Submits counts the frames handed to the device.
func (d *HostDevice) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

func (d *HostDevice) WaitIdle() error {
	return nil
}

// LiveBuffers is the number of buffers not yet destroyed.
func (d *HostDevice) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

func (d *HostDevice) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.live) > 0 {
		core.LogWarn("host device destroyed with %d live buffers", len(d.live))
	}
	d.live = make(map[*HostBuffer]struct{})
}

type HostBuffer struct {
	device    *HostDevice
	kind      RenderBufferType
	data      []byte
	destroyed bool
}

func (b *HostBuffer) Type() RenderBufferType {
	return b.kind
}

func (b *HostBuffer) Size() uint64 {
	return uint64(len(b.data))
}

func (b *HostBuffer) Write(offset uint64, data []byte) error {
	if b.destroyed {
		return core.ErrBufferDestroyed
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: %d bytes at %d into %d", core.ErrOutOfBounds, len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// Bytes exposes the backing memory for inspection.
func (b *HostBuffer) Bytes() []byte {
	return b.data
}

func (b *HostBuffer) Destroyed() bool {
	return b.destroyed
}

func (b *HostBuffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.device.mu.Lock()
	delete(b.device.live, b)
	b.device.mu.Unlock()
}

type HostFence struct {
	mu       sync.Mutex
	cond     *sync.Cond
	signaled bool
}

func (f *HostFence) init() {
	if f.cond == nil {
		f.cond = sync.NewCond(&f.mu)
	}
}

// Signal marks the fence complete and wakes waiters.
func (f *HostFence) Signal() {
	f.mu.Lock()
	f.init()
	f.signaled = true
	f.cond.Broadcast()
	f.mu.Unlock()
}

func (f *HostFence) Wait(timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if f.signaled {
		return true
	}
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer timer.Stop()
	for !f.signaled {
		if !time.Now().Before(deadline) {
			core.LogWarn("host fence wait timed out after %s", timeout)
			return false
		}
		f.cond.Wait()
	}
	return true
}

func (f *HostFence) Reset() error {
	f.mu.Lock()
	f.signaled = false
	f.mu.Unlock()
	return nil
}

func (f *HostFence) Destroy() {}
