package scene

import (
	"github.com/jinzhu/copier"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
)

func deepCopy[T any](src *T) T {
	var dst T
	if err := copier.CopyWithOption(&dst, src, copier.Option{DeepCopy: true}); err != nil {
		core.LogError("scene: copy of %T failed: %s", dst, err)
	}
	return dst
}

// AddScene instantiates src under parent: the source root becomes a new
// node named after src, followed by a copy of every descendant. Node
// references held by components are remapped into the copy; references
// that do not resolve inside the source become null. It returns the new
// top node.
func (s *Scene) AddScene(src *Scene, parent containers.Handle) containers.Handle {
	if src == nil {
		return containers.NullHandle
	}
	if parent.IsNull() {
		parent = s.root
	}
	if !s.nodes.Valid(parent) {
		return containers.NullHandle
	}

	queue := src.Queue(src.root)
	remap := make(map[containers.Handle]containers.Handle, len(queue))
	for _, h := range queue {
		sn := src.nodes.Get(h)
		p := parent
		if h != src.root {
			p = remap[sn.Parent]
		}
		name := sn.Name
		if h == src.root {
			name = src.Name
		}
		remap[h] = s.AddNode(name, p)
	}

	mapNode := func(h containers.Handle) containers.Handle {
		if m, ok := remap[h]; ok {
			return m
		}
		return containers.NullHandle
	}

	for _, h := range queue {
		dst := remap[h]
		if t := src.Transform(h); t != nil {
			local := t.Local
			local.MarkDirty()
			s.AddTransform(dst, local)
		}
		if mr := src.MeshRender(h); mr != nil {
			c := deepCopy(mr)
			c.Skeleton = mapNode(mr.Skeleton)
			s.AddMeshRender(dst, c)
		}
		if sk := src.Skeleton(h); sk != nil {
			c := deepCopy(sk)
			for i := range c.Local {
				c.Local[i].MarkDirty()
			}
			attach(s, dst, ComponentSkeleton3D, c)
		}
		if ba := src.BoneAttach(h); ba != nil {
			s.AddBoneAttach(dst, BoneAttach3D{Skeleton: mapNode(ba.Skeleton), Bone: ba.Bone})
		}
		if a := src.Animation(h); a != nil {
			c := Animation3D{Library: a.Library, Skeleton: mapNode(a.Skeleton)}
			if a.Controller != nil {
				c.Controller = a.Controller.Clone()
			}
			for _, t := range a.Targets {
				c.Targets = append(c.Targets, mapNode(t))
			}
			s.AddAnimation(dst, c)
		}
		if sc := src.Script(h); sc != nil {
			c := deepCopy(sc)
			s.AddScript(dst, c)
		}
	}
	return remap[src.root]
}
