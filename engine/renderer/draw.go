package renderer

import "github.com/spaghettifunk/anima-engine/engine/containers"

// Streams bound with dynamic offsets, one region per frame in flight.
const (
	StreamInstances uint32 = iota
	StreamSkin
	StreamMorph
	StreamMaterial
	StreamCount
)

// DrawCall is one instanced indexed draw of a submesh.
type DrawCall struct {
	Shader         containers.Handle
	Mesh           containers.Handle
	Submesh        uint32
	IndexOffset    uint32
	IndexCount     uint32
	InstanceOffset uint32
	InstanceCount  uint32
	// DynamicOffsets is indexed by stream.
	DynamicOffsets [StreamCount]uint32
}

// Recorder turns draw calls into GPU commands. Shader pipelines and command
// buffers live behind it.
type Recorder interface {
	BeginFrame(frameIndex uint64)
	BindShader(shader containers.Handle)
	Draw(call DrawCall)
	EndFrame()
}
