package scene

import (
	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/resources"
)

type ComponentType int

const (
	ComponentTransform3D ComponentType = iota
	ComponentMeshRender3D
	ComponentSkeleton3D
	ComponentBoneAttach3D
	ComponentAnimation3D
	ComponentScript
	ComponentCount
)

func (c ComponentType) String() string {
	switch c {
	case ComponentTransform3D:
		return "Transform3D"
	case ComponentMeshRender3D:
		return "MeshRender3D"
	case ComponentSkeleton3D:
		return "Skeleton3D"
	case ComponentBoneAttach3D:
		return "BoneAttach3D"
	case ComponentAnimation3D:
		return "Animation3D"
	case ComponentScript:
		return "Script"
	}
	return "Unknown"
}

// Node is one element of the scene tree. Components holds a handle into
// the scene's component pools per type, null when absent.
type Node struct {
	Name       string
	Parent     containers.Handle
	Children   []containers.Handle
	Components [ComponentCount]containers.Handle

	// effective world matrix after the last transform pass
	world math.Mat4
	dirty bool
}

func (n *Node) Has(c ComponentType) bool {
	return !n.Components[c].IsNull()
}

// Transform3D is a node's local transform with a cached world matrix. The
// world matrix is rebuilt only when the local transform or an ancestor
// changed.
type Transform3D struct {
	Local math.Transform

	world math.Mat4
	dirty bool
}

func NewTransform3D(local math.Transform) Transform3D {
	local.MarkDirty()
	return Transform3D{Local: local, world: math.NewMat4Identity(), dirty: true}
}

func (t *Transform3D) World() math.Mat4 {
	return t.world
}

func (t *Transform3D) IsDirty() bool {
	return t.dirty || t.Local.IsDirty()
}

// MeshRender3D draws a mesh resource. Materials overrides the submesh
// materials by index where non-null.
type MeshRender3D struct {
	Mesh      containers.Handle
	Materials []containers.Handle
	// Skeleton is the scene node carrying the Skeleton3D that skins the mesh.
	Skeleton     containers.Handle
	MorphWeights []float32
	Hidden       bool
}

// Material resolves the material of a submesh.
func (m *MeshRender3D) Material(submesh int, mesh *resources.Mesh) containers.Handle {
	if submesh < len(m.Materials) && !m.Materials[submesh].IsNull() {
		return m.Materials[submesh]
	}
	if mesh != nil && submesh < len(mesh.Submeshes) {
		return mesh.Submeshes[submesh].Material
	}
	return containers.NullHandle
}

// Skeleton3D is the per-instance pose of a shared skeleton resource.
type Skeleton3D struct {
	Skeleton   containers.Handle
	Local      []math.Transform
	LocalPose  []math.Mat4
	FinalPose  []math.Mat4
	SkinMatrix []math.Mat4
}

// NewSkeleton3D starts every bone at its bind pose.
func NewSkeleton3D(handle containers.Handle, skel *resources.Skeleton) Skeleton3D {
	s := Skeleton3D{Skeleton: handle}
	if skel == nil {
		return s
	}
	n := len(skel.Bones)
	s.Local = make([]math.Transform, n)
	s.LocalPose = make([]math.Mat4, n)
	s.FinalPose = make([]math.Mat4, n)
	s.SkinMatrix = make([]math.Mat4, n)
	for i, b := range skel.Bones {
		s.Local[i] = math.NewTransformFromPRS(b.Bind.Position, b.Bind.Rotation, b.Bind.Scale)
		s.LocalPose[i] = math.NewMat4Identity()
		s.FinalPose[i] = math.NewMat4Identity()
		s.SkinMatrix[i] = math.NewMat4Identity()
	}
	return s
}

// Update recomputes the pose arrays. Bones are ordered parent first.
func (s *Skeleton3D) Update(skel *resources.Skeleton) {
	if skel == nil || len(skel.Bones) != len(s.Local) {
		return
	}
	for i := range s.Local {
		s.LocalPose[i] = s.Local[i].Local()
		if p := skel.Bones[i].Parent; p >= 0 {
			s.FinalPose[i] = s.LocalPose[i].Mul(s.FinalPose[p])
		} else {
			s.FinalPose[i] = s.LocalPose[i]
		}
		s.SkinMatrix[i] = skel.Bones[i].BindInverse.Mul(s.FinalPose[i])
	}
}

// BoneAttach3D parents a node to a bone of another node's Skeleton3D.
type BoneAttach3D struct {
	Skeleton containers.Handle
	Bone     int
}

// Animation3D plays clips of a library resource. Node and morph channels
// resolve their target index through Targets; bone channels drive the
// Skeleton3D on the Skeleton node.
type Animation3D struct {
	Library    containers.Handle
	Controller *animation.Controller
	Targets    []containers.Handle
	Skeleton   containers.Handle

	pose *animation.Pose
}

// Script is user logic run once per frame. Vars persists between runs.
// When Source names a script resource its code replaces Code whenever the
// two differ, which is how hot reloads reach running scripts.
type Script struct {
	Name     string
	Source   containers.Handle
	Code     string
	Vars     map[string]any
	Disabled bool
}
