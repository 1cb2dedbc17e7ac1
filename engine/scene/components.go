package scene

import (
	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/resources"
)

// attach stores value as the node's component of type c, replacing any
// previous one.
func attach[T any](s *Scene, node containers.Handle, c ComponentType, value T) containers.Handle {
	n := s.nodes.Get(node)
	if n == nil {
		return containers.NullHandle
	}
	if old := n.Components[c]; !old.IsNull() {
		if v := containers.Get[T](s.store, old); v != nil {
			*v = value
			return old
		}
	}
	h := containers.Emplace(s.store, value)
	n.Components[c] = h
	return h
}

func component[T any](s *Scene, node containers.Handle, c ComponentType) *T {
	n := s.nodes.Get(node)
	if n == nil {
		return nil
	}
	return containers.Get[T](s.store, n.Components[c])
}

func (s *Scene) AddTransform(node containers.Handle, local math.Transform) containers.Handle {
	h := attach(s, node, ComponentTransform3D, NewTransform3D(local))
	if n := s.nodes.Get(node); n != nil {
		n.dirty = true
	}
	return h
}

func (s *Scene) AddMeshRender(node containers.Handle, mr MeshRender3D) containers.Handle {
	return attach(s, node, ComponentMeshRender3D, mr)
}

// AddSkeleton gives node a pose for the skeleton resource, starting at the
// bind pose. It fails when the resource is unknown.
func (s *Scene) AddSkeleton(node, skeleton containers.Handle) containers.Handle {
	skel := s.skeletonResource(skeleton)
	if skel == nil {
		return containers.NullHandle
	}
	return attach(s, node, ComponentSkeleton3D, NewSkeleton3D(skeleton, skel))
}

func (s *Scene) AddBoneAttach(node containers.Handle, ba BoneAttach3D) containers.Handle {
	return attach(s, node, ComponentBoneAttach3D, ba)
}

func (s *Scene) AddAnimation(node containers.Handle, anim Animation3D) containers.Handle {
	if anim.Controller == nil {
		anim.Controller = animation.NewController()
	}
	anim.pose = animation.NewPose()
	return attach(s, node, ComponentAnimation3D, anim)
}

func (s *Scene) AddScript(node containers.Handle, script Script) containers.Handle {
	if script.Vars == nil {
		script.Vars = make(map[string]any)
	}
	return attach(s, node, ComponentScript, script)
}

func (s *Scene) RemoveComponent(node containers.Handle, c ComponentType) bool {
	n := s.nodes.Get(node)
	if n == nil || c < 0 || c >= ComponentCount || n.Components[c].IsNull() {
		return false
	}
	s.store.Erase(n.Components[c])
	n.Components[c] = containers.NullHandle
	if c == ComponentTransform3D || c == ComponentBoneAttach3D {
		n.dirty = true
	}
	return true
}

func (s *Scene) Transform(node containers.Handle) *Transform3D {
	return component[Transform3D](s, node, ComponentTransform3D)
}

func (s *Scene) MeshRender(node containers.Handle) *MeshRender3D {
	return component[MeshRender3D](s, node, ComponentMeshRender3D)
}

func (s *Scene) Skeleton(node containers.Handle) *Skeleton3D {
	return component[Skeleton3D](s, node, ComponentSkeleton3D)
}

func (s *Scene) BoneAttach(node containers.Handle) *BoneAttach3D {
	return component[BoneAttach3D](s, node, ComponentBoneAttach3D)
}

func (s *Scene) Animation(node containers.Handle) *Animation3D {
	return component[Animation3D](s, node, ComponentAnimation3D)
}

func (s *Scene) Script(node containers.Handle) *Script {
	return component[Script](s, node, ComponentScript)
}

// CountComponents reports how many live components of type c the scene holds.
func (s *Scene) CountComponents(c ComponentType) int {
	switch c {
	case ComponentTransform3D:
		return containers.PoolOf[Transform3D](s.store).Len()
	case ComponentMeshRender3D:
		return containers.PoolOf[MeshRender3D](s.store).Len()
	case ComponentSkeleton3D:
		return containers.PoolOf[Skeleton3D](s.store).Len()
	case ComponentBoneAttach3D:
		return containers.PoolOf[BoneAttach3D](s.store).Len()
	case ComponentAnimation3D:
		return containers.PoolOf[Animation3D](s.store).Len()
	case ComponentScript:
		return containers.PoolOf[Script](s.store).Len()
	}
	return 0
}

func (s *Scene) skeletonResource(h containers.Handle) *resources.Skeleton {
	if s.Resources == nil {
		return nil
	}
	return containers.Get[resources.Skeleton](s.Resources, h)
}

func (s *Scene) meshResource(h containers.Handle) *resources.Mesh {
	if s.Resources == nil {
		return nil
	}
	return containers.Get[resources.Mesh](s.Resources, h)
}

func (s *Scene) materialResource(h containers.Handle) *resources.Material {
	if s.Resources == nil {
		return nil
	}
	return containers.Get[resources.Material](s.Resources, h)
}

func (s *Scene) libraryResource(h containers.Handle) *animation.Library {
	if s.Resources == nil {
		return nil
	}
	return containers.Get[animation.Library](s.Resources, h)
}

func (s *Scene) scriptResource(h containers.Handle) *resources.Script {
	if s.Resources == nil {
		return nil
	}
	return containers.Get[resources.Script](s.Resources, h)
}
