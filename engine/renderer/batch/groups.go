package batch

import (
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/math"
)

// DrawEntry is one mesh instance submitted for the current frame.
type DrawEntry struct {
	Shader      containers.Handle
	Mesh        containers.Handle
	Submesh     uint32
	IndexOffset uint32
	IndexCount  uint32
	// MaterialSlot indexes the material stream.
	MaterialSlot uint32
	World        math.Mat4
	// SkeletonNode keys the skin block, instances sharing a skeleton node
	// share one block per frame.
	SkeletonNode containers.Handle
	Skin         []math.Mat4
	MorphWeights []float32
}

type instance struct {
	world        math.Mat4
	materialSlot uint32
	skinOffset   uint32
	morphOffset  uint32
	morphCount   uint32
}

// InstanceStride is the packed size of one instance record: the world
// matrix followed by material slot, skin offset, morph offset and morph
// count. Offsets count elements, not bytes.
const InstanceStride = 64 + 4*4

// NoSkin marks an instance without skin matrices.
const NoSkin = ^uint32(0)

// NoMaterial marks an instance without a material slot.
const NoMaterial = ^uint32(0)

type SubmeshGroup struct {
	Submesh     uint32
	IndexOffset uint32
	IndexCount  uint32
	// InstaOffset and InstaCount locate the group's instances in the
	// frame's instance region, valid after Finalize.
	InstaOffset uint32
	InstaCount  uint32

	instances []instance
}

type MeshGroup struct {
	Mesh      containers.Handle
	Submeshes []*SubmeshGroup

	index map[uint32]*SubmeshGroup
}

type ShaderGroup struct {
	Shader containers.Handle
	Meshes []*MeshGroup

	index map[containers.Handle]*MeshGroup
}

func (sg *ShaderGroup) mesh(h containers.Handle) *MeshGroup {
	if mg, ok := sg.index[h]; ok {
		return mg
	}
	mg := &MeshGroup{Mesh: h, index: make(map[uint32]*SubmeshGroup)}
	sg.index[h] = mg
	sg.Meshes = append(sg.Meshes, mg)
	return mg
}

func (mg *MeshGroup) submesh(e *DrawEntry) *SubmeshGroup {
	if g, ok := mg.index[e.Submesh]; ok {
		return g
	}
	g := &SubmeshGroup{Submesh: e.Submesh, IndexOffset: e.IndexOffset, IndexCount: e.IndexCount}
	mg.index[e.Submesh] = g
	mg.Submeshes = append(mg.Submeshes, g)
	return g
}
