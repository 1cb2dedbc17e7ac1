package batch

import (
	"fmt"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

type retiredBuffer struct {
	buffer renderer.Buffer
	frame  uint64
}

// stream is one device buffer split into an aligned region per frame in
// flight. Each frame slot has its own binding, refreshed when the slot's
// frame is finalized.
type stream struct {
	id      uint32
	kind    renderer.RenderBufferType
	regions uint64
	align   uint64

	regionSize uint64
	buffer     renderer.Buffer
	bound      []renderer.Buffer
	retired    []retiredBuffer
}

func newStream(device renderer.Device, id uint32, kind renderer.RenderBufferType, regions, initial uint64) (*stream, error) {
	s := &stream{
		id:      id,
		kind:    kind,
		regions: regions,
		align:   device.Alignment(kind),
		bound:   make([]renderer.Buffer, regions),
	}
	if err := s.allocate(device, initial, 0); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *stream) allocate(device renderer.Device, regionBytes uint64, frame uint64) error {
	regionBytes = math.AlignUp(max(regionBytes, 4), s.align)
	buffer, err := device.CreateBuffer(s.kind, regionBytes*s.regions)
	if err != nil {
		return fmt.Errorf("stream %d: %w", s.id, err)
	}
	if s.buffer != nil {
		s.retired = append(s.retired, retiredBuffer{buffer: s.buffer, frame: frame})
	}
	s.buffer = buffer
	s.regionSize = regionBytes
	return nil
}

// ensure grows the stream so one region holds need bytes. It reports
// whether a new buffer was created.
func (s *stream) ensure(device renderer.Device, need uint64, frame uint64) (bool, error) {
	if need <= s.regionSize {
		return false, nil
	}
	size := s.regionSize
	for size < need {
		size *= 2
	}
	core.LogDebug("stream %d grows from %d to %d bytes per region", s.id, s.regionSize, size)
	return true, s.allocate(device, size, frame)
}

// bind points the frame's slot at the current buffer. Other slots keep
// the buffer their frame in flight was recorded with.
func (s *stream) bind(device renderer.Device, frame uint64) error {
	slot := frame % s.regions
	if s.bound[slot] == s.buffer {
		return nil
	}
	if err := device.BindStream(uint32(slot), s.id, s.buffer, s.regionSize); err != nil {
		return fmt.Errorf("stream %d: %w", s.id, err)
	}
	s.bound[slot] = s.buffer
	return nil
}

func (s *stream) offset(frame uint64) uint64 {
	return (frame % s.regions) * s.regionSize
}

func (s *stream) write(frame uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return s.buffer.Write(s.offset(frame), data)
}

// collect destroys retired buffers no frame in flight can still read.
func (s *stream) collect(frame uint64) {
	kept := s.retired[:0]
	for _, r := range s.retired {
		if frame >= r.frame+s.regions {
			r.buffer.Destroy()
			continue
		}
		kept = append(kept, r)
	}
	s.retired = kept
}

func (s *stream) destroy() {
	for _, r := range s.retired {
		r.buffer.Destroy()
	}
	s.retired = nil
	clear(s.bound)
	if s.buffer != nil {
		s.buffer.Destroy()
		s.buffer = nil
	}
}
