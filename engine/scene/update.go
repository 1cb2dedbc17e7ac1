package scene

import (
	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer/batch"
	"github.com/spaghettifunk/anima-engine/engine/resources"
)

// ScriptHost runs the Script component of a node for one frame.
type ScriptHost interface {
	Run(s *Scene, node containers.Handle, script *Script, dt float32) error
}

// JobRunner spreads independent work items over workers and returns once
// all of them ran.
type JobRunner interface {
	ParallelFor(n int, fn func(i int))
}

type DrawSink interface {
	Submit(e batch.DrawEntry)
}

// UpdateContext carries the collaborators of one frame update. Every field
// but DeltaTime is optional.
type UpdateContext struct {
	DeltaTime float32
	Scripts   ScriptHost
	Jobs      JobRunner
	Frustum   *math.Frustum
	Sink      DrawSink
}

type UpdateStats struct {
	Scripts    int
	Animations int
	Skeletons  int
	Submitted  int
	Culled     int
}

// Update runs one frame: scripts, animation, transforms, skeleton poses,
// bone attachments, then culling and submission of mesh instances.
func (s *Scene) Update(ctx *UpdateContext) UpdateStats {
	var stats UpdateStats
	if ctx.Scripts != nil {
		stats.Scripts = s.runScripts(ctx)
	}
	queue := s.Queue(s.root)
	stats.Animations = s.animate(queue, ctx.DeltaTime)
	s.propagate(s.root, math.NewMat4Identity(), false)
	stats.Skeletons = s.updateSkeletons(queue, ctx.Jobs)
	s.attachToBones(queue)
	if ctx.Sink != nil {
		stats.Submitted, stats.Culled = s.submit(queue, ctx)
	}
	return stats
}

func (s *Scene) runScripts(ctx *UpdateContext) int {
	ran := 0
	for _, h := range s.Queue(s.root) {
		sc := s.Script(h)
		if sc == nil || sc.Disabled {
			continue
		}
		if src := s.scriptResource(sc.Source); src != nil && src.Code != sc.Code {
			sc.Code = src.Code
		}
		if err := ctx.Scripts.Run(s, h, sc, ctx.DeltaTime); err != nil {
			core.LogError("scene %s: script %q on node %s: %s", s.Name, sc.Name, s.nodes.Get(h).Name, err)
			continue
		}
		ran++
	}
	return ran
}

func (s *Scene) animate(queue []containers.Handle, dt float32) int {
	n := 0
	for _, h := range queue {
		a := s.Animation(h)
		if a == nil || a.Controller == nil {
			continue
		}
		lib := s.libraryResource(a.Library)
		if lib == nil {
			continue
		}
		if a.pose == nil {
			a.pose = animation.NewPose()
		}
		a.Controller.Update(dt, lib)
		if !a.Controller.Evaluate(lib, a.pose) {
			continue
		}
		s.applyPose(a)
		n++
	}
	return n
}

func applyTRS(t *math.Transform, tp *animation.TargetPose) {
	if tp.Mask.Has(animation.PathTranslation) {
		t.SetPosition(tp.Translation)
	}
	if tp.Mask.Has(animation.PathRotation) {
		t.SetRotation(tp.Rotation)
	}
	if tp.Mask.Has(animation.PathScale) {
		t.SetScale(tp.Scale)
	}
}

func (s *Scene) applyPose(a *Animation3D) {
	for k, tp := range a.pose.Targets {
		switch k.Kind {
		case animation.TargetNode:
			if k.Target < len(a.Targets) {
				if t := s.Transform(a.Targets[k.Target]); t != nil {
					applyTRS(&t.Local, tp)
				}
			}
		case animation.TargetBone:
			if sk := s.Skeleton(a.Skeleton); sk != nil && k.Target < len(sk.Local) {
				applyTRS(&sk.Local[k.Target], tp)
			}
		case animation.TargetMorph:
			if k.Target < len(a.Targets) && tp.Mask.Has(animation.PathWeights) {
				if mr := s.MeshRender(a.Targets[k.Target]); mr != nil {
					mr.MorphWeights = append(mr.MorphWeights[:0], tp.Weights...)
				}
			}
		}
	}
}

type walkItem struct {
	node        containers.Handle
	parentWorld math.Mat4
	changed     bool
}

// propagate refreshes the world matrices below h top-down. A node is
// recomputed only when it, its transform or an ancestor changed.
func (s *Scene) propagate(h containers.Handle, parentWorld math.Mat4, force bool) {
	stack := []walkItem{{node: h, parentWorld: parentWorld, changed: force}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := s.nodes.Get(it.node)
		if n == nil {
			continue
		}
		t := s.Transform(it.node)
		changed := it.changed || n.dirty || (t != nil && t.IsDirty())
		if changed {
			world := it.parentWorld
			if t != nil {
				world = t.Local.Local().Mul(it.parentWorld)
				t.world = world
				t.dirty = false
			}
			n.world = world
			n.dirty = false
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{node: n.Children[i], parentWorld: n.world, changed: changed})
		}
	}
}

func (s *Scene) updateSkeletons(queue []containers.Handle, jobs JobRunner) int {
	type work struct {
		pose *Skeleton3D
		skel *resources.Skeleton
	}
	var items []work
	for _, h := range queue {
		sk := s.Skeleton(h)
		if sk == nil {
			continue
		}
		if skel := s.skeletonResource(sk.Skeleton); skel != nil {
			items = append(items, work{pose: sk, skel: skel})
		}
	}
	run := func(i int) { items[i].pose.Update(items[i].skel) }
	if jobs != nil && len(items) > 1 {
		jobs.ParallelFor(len(items), run)
	} else {
		for i := range items {
			run(i)
		}
	}
	return len(items)
}

// attachToBones places bone-attached nodes under their bone and refreshes
// their subtrees.
func (s *Scene) attachToBones(queue []containers.Handle) {
	for _, h := range queue {
		ba := s.BoneAttach(h)
		if ba == nil {
			continue
		}
		sk := s.Skeleton(ba.Skeleton)
		owner := s.nodes.Get(ba.Skeleton)
		if sk == nil || owner == nil || ba.Bone < 0 || ba.Bone >= len(sk.FinalPose) {
			continue
		}
		s.propagate(h, sk.FinalPose[ba.Bone].Mul(owner.world), true)
	}
}

// UpdateTransforms refreshes world matrices outside of a frame update.
func (s *Scene) UpdateTransforms() {
	s.propagate(s.root, math.NewMat4Identity(), false)
	s.attachToBones(s.Queue(s.root))
}

func (s *Scene) chainDirty(h containers.Handle) bool {
	for !h.IsNull() {
		n := s.nodes.Get(h)
		if n == nil {
			return false
		}
		if n.dirty {
			return true
		}
		if t := s.Transform(h); t != nil && t.IsDirty() {
			return true
		}
		h = n.Parent
	}
	return false
}

// World is the node's world matrix, refreshed first if the node or one of
// its ancestors changed. Stale handles yield identity.
func (s *Scene) World(h containers.Handle) math.Mat4 {
	if !s.nodes.Valid(h) {
		return math.NewMat4Identity()
	}
	if s.chainDirty(h) {
		s.UpdateTransforms()
	}
	return s.nodes.Get(h).world
}

func (s *Scene) submit(queue []containers.Handle, ctx *UpdateContext) (submitted, culled int) {
	for _, h := range queue {
		mr := s.MeshRender(h)
		if mr == nil || mr.Hidden {
			continue
		}
		mesh := s.meshResource(mr.Mesh)
		if mesh == nil {
			continue
		}
		world := s.nodes.Get(h).world
		if ctx.Frustum != nil && !mesh.Extents.IsEmpty() && !ctx.Frustum.IntersectsAABB(mesh.Extents.Transform(world)) {
			culled++
			continue
		}

		var skin []math.Mat4
		skeletonNode := containers.NullHandle
		if sk := s.Skeleton(mr.Skeleton); sk != nil && mesh.IsSkinned() {
			skin = sk.SkinMatrix
			skeletonNode = mr.Skeleton
		}
		for i, sub := range mesh.Submeshes {
			e := batch.DrawEntry{
				Mesh:         mr.Mesh,
				Submesh:      uint32(i),
				IndexOffset:  sub.IndexOffset,
				IndexCount:   sub.IndexCount,
				World:        world,
				SkeletonNode: skeletonNode,
				Skin:         skin,
				MorphWeights: mr.MorphWeights,
				MaterialSlot: batch.NoMaterial,
			}
			if mat := s.materialResource(mr.Material(i, mesh)); mat != nil {
				e.Shader = mat.Shader
				if mat.Slot != resources.NoSlot {
					e.MaterialSlot = mat.Slot
				}
			}
			ctx.Sink.Submit(e)
			submitted++
		}
	}
	return submitted, culled
}
