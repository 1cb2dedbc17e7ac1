package scene

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer/batch"
	"github.com/spaghettifunk/anima-engine/engine/resources"
)

func translate(x, y, z float32) math.Transform {
	return math.NewTransformFromPRS(math.NewVec3(x, y, z), math.NewQuatIdentity(), math.NewVec3One())
}

func TestWorldOfChildUnderBareRoot(t *testing.T) {
	s := New("level", nil)
	c := s.AddNode("C", s.Root())
	s.AddTransform(c, translate(1, 0, 0))
	assert.True(t, s.World(c).Compare(math.NewMat4Translation(math.NewVec3(1, 0, 0)), 1e-6))
}

func TestWorldComposesAndCaches(t *testing.T) {
	s := New("level", nil)
	a := s.AddNode("A", containers.NullHandle)
	b := s.AddNode("B", a)
	s.AddTransform(a, math.NewTransformFromPRS(math.NewVec3(0, 0, 5), math.NewQuatIdentity(), math.NewVec3(2, 2, 2)))
	s.AddTransform(b, translate(1, 0, 0))

	got := math.NewVec3Zero().Transform(s.World(b))
	assert.True(t, got.Compare(math.NewVec3(2, 0, 5), 1e-5), "got %v", got)
	assert.False(t, s.Transform(b).IsDirty())
	assert.False(t, s.chainDirty(b))

	s.Transform(a).Local.Translate(math.NewVec3(0, 1, 0))
	assert.True(t, s.chainDirty(b))
	got = math.NewVec3Zero().Transform(s.World(b))
	assert.True(t, got.Compare(math.NewVec3(2, 1, 5), 1e-5), "got %v", got)
}

func TestReparentRejectsCycles(t *testing.T) {
	s := New("level", nil)
	a := s.AddNode("A", s.Root())
	b := s.AddNode("B", a)
	c := s.AddNode("C", b)

	assert.False(t, s.ReparentNode(a, c))
	assert.False(t, s.ReparentNode(a, a))
	assert.False(t, s.ReparentNode(s.Root(), a))
	assert.Equal(t, []containers.Handle{b}, s.Children(a))

	require.True(t, s.ReparentNode(c, s.Root()))
	assert.Equal(t, []containers.Handle{a, c}, s.Children(s.Root()))
	assert.Empty(t, s.Children(b))
}

func TestRemoveNodeErasesComponents(t *testing.T) {
	s := New("level", nil)
	a := s.AddNode("A", s.Root())
	b := s.AddNode("B", a)
	s.AddTransform(a, math.NewTransform())
	s.AddTransform(b, math.NewTransform())
	s.AddScript(b, Script{Code: "function update(v, scn, node, dt) end"})

	require.True(t, s.RemoveNode(a))
	assert.False(t, s.Valid(a))
	assert.False(t, s.Valid(b))
	assert.Equal(t, 0, s.CountComponents(ComponentTransform3D))
	assert.Equal(t, 0, s.CountComponents(ComponentScript))
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.RemoveNode(a))

	s.AddNode("D", s.Root())
	require.True(t, s.RemoveNode(s.Root()))
	assert.True(t, s.Valid(s.Root()))
	assert.Equal(t, 1, s.Len())
}

func TestFlattenNodeKeepsOrder(t *testing.T) {
	s := New("level", nil)
	first := s.AddNode("first", s.Root())
	mid := s.AddNode("mid", s.Root())
	last := s.AddNode("last", s.Root())
	x := s.AddNode("x", mid)
	y := s.AddNode("y", mid)
	s.AddTransform(mid, translate(5, 0, 0))

	require.True(t, s.FlattenNode(mid))
	assert.False(t, s.Valid(mid))
	assert.Equal(t, []containers.Handle{first, x, y, last}, s.Children(s.Root()))
	assert.Equal(t, s.Root(), s.Node(x).Parent)
	assert.Equal(t, 0, s.CountComponents(ComponentTransform3D))
	assert.False(t, s.FlattenNode(s.Root()))
}

func TestRenameNode(t *testing.T) {
	s := New("level", nil)
	a := s.AddNode("a", s.Root())
	b := s.AddNode("b", s.Root())
	assert.True(t, s.RenameNode(a, "b"))
	assert.Equal(t, "b", s.Node(a).Name)
	assert.Equal(t, "b", s.Node(b).Name)

	s.RemoveNode(a)
	assert.False(t, s.RenameNode(a, "c"))
}

func TestComponentsReplaceAndRemove(t *testing.T) {
	s := New("level", nil)
	n := s.AddNode("n", s.Root())
	h1 := s.AddMeshRender(n, MeshRender3D{Hidden: true})
	h2 := s.AddMeshRender(n, MeshRender3D{})
	assert.Equal(t, h1, h2)
	assert.False(t, s.MeshRender(n).Hidden)

	assert.True(t, s.RemoveComponent(n, ComponentMeshRender3D))
	assert.Nil(t, s.MeshRender(n))
	assert.False(t, s.RemoveComponent(n, ComponentMeshRender3D))
	assert.Equal(t, "MeshRender3D", ComponentMeshRender3D.String())
	assert.Equal(t, n, s.Find("n"))
}

func armSkeleton() resources.Skeleton {
	skel := resources.Skeleton{Name: "arm", Bones: []resources.Bone{
		{Name: "root", Parent: -1, Bind: translate(0, 1, 0)},
		{Name: "elbow", Parent: 0, Bind: translate(0, 2, 0)},
		{Name: "hand", Parent: 1, Bind: translate(0, 1, 0)},
	}}
	skel.ComputeBindInverses()
	return skel
}

func TestSkeletonPosePropagation(t *testing.T) {
	reg := containers.NewRegistry()
	skelH := containers.Emplace(reg, armSkeleton())
	s := New("level", reg)
	n := s.AddNode("rig", s.Root())
	require.False(t, s.AddSkeleton(n, skelH).IsNull())

	sk := s.Skeleton(n)
	sk.Local[1].SetRotation(math.NewQuatFromAxisAngle(math.NewVec3(0, 0, 1), math.HalfPI, true))
	s.Update(&UpdateContext{DeltaTime: 0.016})

	skel := containers.Get[resources.Skeleton](reg, skelH)
	for i, b := range skel.Bones {
		parent := math.NewMat4Identity()
		if b.Parent >= 0 {
			parent = sk.FinalPose[b.Parent]
		}
		want := b.BindInverse.Mul(sk.LocalPose[i].Mul(parent))
		assert.True(t, sk.SkinMatrix[i].Compare(want, 1e-5), "bone %d", i)
	}
	// untouched bind pose yields identity skinning for the root
	assert.True(t, sk.SkinMatrix[0].Compare(math.NewMat4Identity(), 1e-5))
	assert.True(t, s.AddSkeleton(n, containers.NullHandle).IsNull())
}

type sink struct{ entries []batch.DrawEntry }

func (k *sink) Submit(e batch.DrawEntry) { k.entries = append(k.entries, e) }

type jobs struct{ calls atomic.Int32 }

func (j *jobs) ParallelFor(n int, fn func(int)) {
	j.calls.Add(1)
	for i := 0; i < n; i++ {
		fn(i)
	}
}

func modelScene(t *testing.T, reg *containers.Registry) (*Scene, containers.Handle, containers.Handle) {
	t.Helper()
	shader := containers.Emplace(reg, resources.Shader{Name: "pbr"})
	mat := resources.NewMaterial("skin", shader)
	mat.Slot = 4
	matH := containers.Emplace(reg, mat)
	vertices := []math.Vertex3D{{Position: math.NewVec3(-0.5, 0, 0)}, {Position: math.NewVec3(0.5, 1, 0)}, {Position: math.NewVec3(0, 0.5, 0.5)}}
	mesh := resources.NewMesh("body", vertices, []uint32{0, 1, 2}, resources.Submesh{IndexCount: 3, Material: matH})
	mesh.Skin = make([]resources.VertexSkin, 3)
	meshH := containers.Emplace(reg, mesh)
	skelH := containers.Emplace(reg, armSkeleton())

	src := New("hero", reg)
	rig := src.AddNode("rig", src.Root())
	src.AddSkeleton(rig, skelH)
	body := src.AddNode("body", src.Root())
	src.AddTransform(body, math.NewTransform())
	src.AddMeshRender(body, MeshRender3D{Mesh: meshH, Skeleton: rig})
	return src, rig, body
}

func TestAddSceneRemapsReferences(t *testing.T) {
	reg := containers.NewRegistry()
	src, rig, body := modelScene(t, reg)
	lib := containers.Emplace(reg, animation.Library{Name: "hero"})
	src.AddAnimation(src.Root(), Animation3D{Library: lib, Targets: []containers.Handle{body}, Skeleton: rig})
	src.AddScript(body, Script{Name: "spin", Code: "x", Vars: map[string]any{"speed": 2.0}})

	dst := New("level", reg)
	a := dst.AddScene(src, containers.NullHandle)
	b := dst.AddScene(src, containers.NullHandle)
	require.False(t, a.IsNull())
	require.NotEqual(t, a, b)
	assert.Equal(t, "hero", dst.Node(a).Name)

	for _, top := range []containers.Handle{a, b} {
		kids := dst.Children(top)
		require.Len(t, kids, 2)
		newRig, newBody := kids[0], kids[1]
		mr := dst.MeshRender(newBody)
		require.NotNil(t, mr)
		assert.Equal(t, newRig, mr.Skeleton)
		assert.True(t, dst.IsAncestor(top, mr.Skeleton))
		assert.NotNil(t, dst.Skeleton(mr.Skeleton))

		anim := dst.Animation(top)
		require.NotNil(t, anim)
		assert.Equal(t, []containers.Handle{newBody}, anim.Targets)
		assert.Equal(t, newRig, anim.Skeleton)
		assert.NotSame(t, src.Animation(src.Root()).Controller, anim.Controller)

		sc := dst.Script(newBody)
		require.NotNil(t, sc)
		assert.Equal(t, 2.0, sc.Vars["speed"])
	}

	dst.Script(dst.Children(a)[1]).Vars["speed"] = 9.0
	assert.Equal(t, 2.0, src.Script(body).Vars["speed"])
	assert.Equal(t, 7, dst.Len())
}

func TestUpdateSubmitsAndCulls(t *testing.T) {
	reg := containers.NewRegistry()
	src, _, _ := modelScene(t, reg)
	s := New("level", reg)
	near := s.AddScene(src, containers.NullHandle)
	far := s.AddScene(src, containers.NullHandle)
	s.AddTransform(near, math.NewTransform())
	s.AddTransform(far, translate(10, 0, 0))

	frustum := math.NewFrustumFromMatrix(math.NewMat4Identity())
	out := &sink{}
	j := &jobs{}
	stats := s.Update(&UpdateContext{DeltaTime: 0.016, Sink: out, Frustum: &frustum, Jobs: j})

	assert.Equal(t, 1, stats.Submitted)
	assert.Equal(t, 1, stats.Culled)
	assert.Equal(t, 2, stats.Skeletons)
	assert.Equal(t, int32(1), j.calls.Load())
	require.Len(t, out.entries, 1)
	e := out.entries[0]
	assert.Equal(t, uint32(4), e.MaterialSlot)
	assert.False(t, e.Shader.IsNull())
	assert.Len(t, e.Skin, 3)
	assert.Equal(t, s.Children(near)[0], e.SkeletonNode)
}

func TestUpdateWithoutMaterialUsesNoSlot(t *testing.T) {
	reg := containers.NewRegistry()
	vertices := []math.Vertex3D{{Position: math.NewVec3(0, 0, 0)}, {Position: math.NewVec3(1, 0, 0)}, {Position: math.NewVec3(0, 1, 0)}}
	mesh := containers.Emplace(reg, resources.NewMesh("tri", vertices, []uint32{0, 1, 2}))
	unslotted := containers.Emplace(reg, resources.NewMaterial("bare", containers.NullHandle))

	s := New("level", reg)
	a := s.AddNode("a", s.Root())
	s.AddMeshRender(a, MeshRender3D{Mesh: mesh})
	b := s.AddNode("b", s.Root())
	s.AddMeshRender(b, MeshRender3D{Mesh: mesh, Materials: []containers.Handle{unslotted}})

	out := &sink{}
	s.Update(&UpdateContext{DeltaTime: 0.016, Sink: out})
	require.Len(t, out.entries, 2)
	for _, e := range out.entries {
		assert.Equal(t, batch.NoMaterial, e.MaterialSlot)
	}
}

func TestAnimationDrivesTransformsAndMorphs(t *testing.T) {
	reg := containers.NewRegistry()
	lib := containers.Emplace(reg, animation.Library{Clips: []animation.Clip{animation.NewClip("move",
		[]animation.Sampler{
			{Times: []float32{0, 1}, Values: []float32{0, 0, 0, 2, 0, 0}},
			{Times: []float32{0, 1}, Values: []float32{0, 1}},
		},
		[]animation.Channel{
			{Sampler: 0, Target: 0, Kind: animation.TargetNode, Path: animation.PathTranslation},
			{Sampler: 1, Target: 0, Kind: animation.TargetMorph, Path: animation.PathWeights},
		})}})

	s := New("level", reg)
	n := s.AddNode("n", s.Root())
	s.AddTransform(n, math.NewTransform())
	s.AddMeshRender(n, MeshRender3D{})
	ctrl := animation.NewController()
	ctrl.AddState(animation.State{Name: "Move", Clip: "move"})
	ctrl.Play("Move")
	s.AddAnimation(n, Animation3D{Library: lib, Controller: ctrl, Targets: []containers.Handle{n}})

	stats := s.Update(&UpdateContext{DeltaTime: 0.5})
	assert.Equal(t, 1, stats.Animations)
	assert.InDelta(t, 1, s.World(n).Translation().X, 1e-5)
	assert.InDeltaSlice(t, []float32{0.5}, s.MeshRender(n).MorphWeights, 1e-5)
}

func TestBoneAttachFollowsBone(t *testing.T) {
	reg := containers.NewRegistry()
	skelH := containers.Emplace(reg, armSkeleton())
	s := New("level", reg)
	rig := s.AddNode("rig", s.Root())
	s.AddTransform(rig, translate(10, 0, 0))
	s.AddSkeleton(rig, skelH)
	sword := s.AddNode("sword", s.Root())
	s.AddTransform(sword, translate(0, 0, 1))
	s.AddBoneAttach(sword, BoneAttach3D{Skeleton: rig, Bone: 2})
	tip := s.AddNode("tip", sword)

	s.Update(&UpdateContext{})
	// hand bone sits at y=4 in the rig, the rig at x=10
	assert.True(t, s.Node(sword).world.Translation().Compare(math.NewVec3(10, 4, 1), 1e-5))
	assert.True(t, s.Node(tip).world.Translation().Compare(math.NewVec3(10, 4, 1), 1e-5))
}

type scriptHost struct {
	ran []containers.Handle
}

func (h *scriptHost) Run(s *Scene, node containers.Handle, script *Script, dt float32) error {
	if script.Code == "broken" {
		return errors.New("syntax error")
	}
	h.ran = append(h.ran, node)
	s.Transform(node).Local.Translate(math.NewVec3(dt, 0, 0))
	return nil
}

func TestScriptsRunBeforeTransforms(t *testing.T) {
	s := New("level", nil)
	a := s.AddNode("a", s.Root())
	b := s.AddNode("b", s.Root())
	c := s.AddNode("c", s.Root())
	for _, h := range []containers.Handle{a, b, c} {
		s.AddTransform(h, math.NewTransform())
	}
	s.AddScript(a, Script{Code: "ok"})
	s.AddScript(b, Script{Code: "broken"})
	s.AddScript(c, Script{Code: "ok", Disabled: true})

	host := &scriptHost{}
	stats := s.Update(&UpdateContext{DeltaTime: 2, Scripts: host})
	assert.Equal(t, 1, stats.Scripts)
	assert.Equal(t, []containers.Handle{a}, host.ran)
	assert.InDelta(t, 2, s.Node(a).world.Translation().X, 1e-6)
}
