package resources

import (
	"encoding/binary"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

// VertexStride is the packed size of one Vertex3D in the vertex buffer.
const VertexStride = 15 * 4

/**
 * @brief A contiguous index range of a mesh drawn with one material.
 */
type Submesh struct {
	IndexOffset uint32
	IndexCount  uint32
	/** @brief Registry handle of the Material, may be null. */
	Material containers.Handle
}

/** @brief Up to four joint influences of a skinned vertex. */
type VertexSkin struct {
	Joints  [4]uint16
	Weights [4]float32
}

/** @brief Per-vertex position deltas of one blend shape. */
type MorphTarget struct {
	Name      string
	Positions []math.Vec3
}

type Mesh struct {
	Name      string
	Vertices  []math.Vertex3D
	Indices   []uint32
	Submeshes []Submesh
	// Skin is either empty or holds one entry per vertex.
	Skin    []VertexSkin
	Morphs  []MorphTarget
	Extents math.Extents3D
	/** @brief Incremented every time the geometry is uploaded. */
	Generation uint32

	VertexBuffer renderer.Buffer
	IndexBuffer  renderer.Buffer
}

// NewMesh builds a mesh and its local extents. With no submeshes the whole
// index range becomes a single submesh with a null material.
func NewMesh(name string, vertices []math.Vertex3D, indices []uint32, submeshes ...Submesh) Mesh {
	if len(submeshes) == 0 {
		submeshes = []Submesh{{IndexOffset: 0, IndexCount: uint32(len(indices))}}
	}
	return Mesh{
		Name:      name,
		Vertices:  vertices,
		Indices:   indices,
		Submeshes: submeshes,
		Extents:   math.GeometryExtents(vertices),
	}
}

func (m *Mesh) IsSkinned() bool {
	return len(m.Skin) > 0 && len(m.Skin) == len(m.Vertices)
}

func (m *Mesh) MorphCount() int {
	return len(m.Morphs)
}

func (m *Mesh) VertexBytes() []byte {
	out := make([]byte, 0, len(m.Vertices)*VertexStride)
	for _, v := range m.Vertices {
		for _, f := range [...]float32{
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y,
			v.Colour.X, v.Colour.Y, v.Colour.Z, v.Colour.W,
			v.Tangent.X, v.Tangent.Y, v.Tangent.Z,
		} {
			out = binary.LittleEndian.AppendUint32(out, math.Float32Bits(f))
		}
	}
	return out
}

func (m *Mesh) IndexBytes() []byte {
	out := make([]byte, 0, len(m.Indices)*4)
	for _, i := range m.Indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

// Upload (re)creates the vertex and index buffers. Previous buffers are
// returned so the caller can retire them once the GPU is done with them.
func (m *Mesh) Upload(device renderer.Device) ([]renderer.Buffer, error) {
	if len(m.Vertices) == 0 || len(m.Indices) == 0 {
		return nil, nil
	}
	vertices, err := uploadBuffer(device, renderer.RenderBufferTypeVertex, m.VertexBytes())
	if err != nil {
		return nil, err
	}
	indices, err := uploadBuffer(device, renderer.RenderBufferTypeIndex, m.IndexBytes())
	if err != nil {
		vertices.Destroy()
		return nil, err
	}
	retired := m.Release()
	m.VertexBuffer, m.IndexBuffer = vertices, indices
	m.Generation++
	return retired, nil
}

// Release detaches the GPU buffers without destroying them.
func (m *Mesh) Release() []renderer.Buffer {
	var out []renderer.Buffer
	if m.VertexBuffer != nil {
		out = append(out, m.VertexBuffer)
	}
	if m.IndexBuffer != nil {
		out = append(out, m.IndexBuffer)
	}
	m.VertexBuffer, m.IndexBuffer = nil, nil
	return out
}

// Upload copies the pixels into a staging buffer, returning the buffer it
// replaced, if any.
func (t *Texture) Upload(device renderer.Device) (renderer.Buffer, error) {
	if len(t.Pixels) == 0 {
		return nil, nil
	}
	buffer, err := uploadBuffer(device, renderer.RenderBufferTypeStaging, t.Pixels)
	if err != nil {
		return nil, err
	}
	retired := t.Buffer
	t.Buffer = buffer
	t.Generation++
	return retired, nil
}

func uploadBuffer(device renderer.Device, t renderer.RenderBufferType, data []byte) (renderer.Buffer, error) {
	buffer, err := device.CreateBuffer(t, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := buffer.Write(0, data); err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}
