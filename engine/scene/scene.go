package scene

import (
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
)

// Scene is a tree of nodes with a single root. Nodes and components live
// in the scene's own registry; Resources is the engine registry holding
// meshes, materials, skeletons and animation libraries.
type Scene struct {
	Name      string
	Resources *containers.Registry

	store *containers.Registry
	nodes *containers.Pool[Node]
	root  containers.Handle
}

func New(name string, resources *containers.Registry) *Scene {
	s := &Scene{
		Name:      name,
		Resources: resources,
		store:     containers.NewRegistry(),
	}
	s.nodes = containers.PoolOf[Node](s.store)
	s.root = s.nodes.Insert(Node{Name: name, Parent: containers.NullHandle, world: math.NewMat4Identity()})
	return s
}

func (s *Scene) Root() containers.Handle {
	return s.root
}

func (s *Scene) Node(h containers.Handle) *Node {
	return s.nodes.Get(h)
}

func (s *Scene) Valid(h containers.Handle) bool {
	return s.nodes.Valid(h)
}

// Len counts the nodes, root included.
func (s *Scene) Len() int {
	return s.nodes.Len()
}

// AddNode creates a node under parent, the root when parent is null. It
// returns the null handle for an invalid parent.
func (s *Scene) AddNode(name string, parent containers.Handle) containers.Handle {
	if parent.IsNull() {
		parent = s.root
	}
	p := s.nodes.Get(parent)
	if p == nil {
		return containers.NullHandle
	}
	h := s.nodes.Insert(Node{Name: name, Parent: parent, world: math.NewMat4Identity(), dirty: true})
	// pool values live behind pointers, p survives the insert
	p.Children = append(p.Children, h)
	return h
}

// RenameNode sets the display name of h. Scene names need not be unique.
func (s *Scene) RenameNode(h containers.Handle, name string) bool {
	n := s.nodes.Get(h)
	if n == nil {
		return false
	}
	n.Name = name
	return true
}

func (s *Scene) Children(h containers.Handle) []containers.Handle {
	n := s.nodes.Get(h)
	if n == nil {
		return nil
	}
	return slices.Clone(n.Children)
}

// Queue lists h and its descendants in depth-first pre-order.
func (s *Scene) Queue(h containers.Handle) []containers.Handle {
	if !s.nodes.Valid(h) {
		return nil
	}
	var out []containers.Handle
	stack := []containers.Handle{h}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := s.nodes.Get(top)
		if n == nil {
			continue
		}
		out = append(out, top)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// IsAncestor reports whether ancestor is node or one of its parents.
func (s *Scene) IsAncestor(ancestor, node containers.Handle) bool {
	for h := node; !h.IsNull(); {
		if h == ancestor {
			return true
		}
		n := s.nodes.Get(h)
		if n == nil {
			return false
		}
		h = n.Parent
	}
	return false
}

// Find returns the first node named name in depth-first order.
func (s *Scene) Find(name string) containers.Handle {
	for _, h := range s.Queue(s.root) {
		if s.nodes.Get(h).Name == name {
			return h
		}
	}
	return containers.NullHandle
}

func (s *Scene) unlink(h containers.Handle) int {
	n := s.nodes.Get(h)
	p := s.nodes.Get(n.Parent)
	if p == nil {
		return -1
	}
	i := slices.Index(p.Children, h)
	if i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	return i
}

// ReparentNode moves h under newParent. It refuses the root, stale handles
// and any move that would make h its own ancestor.
func (s *Scene) ReparentNode(h, newParent containers.Handle) bool {
	if newParent.IsNull() {
		newParent = s.root
	}
	n := s.nodes.Get(h)
	p := s.nodes.Get(newParent)
	if n == nil || p == nil || h == s.root {
		return false
	}
	if s.IsAncestor(h, newParent) {
		core.LogDebug("scene %s: reparent of %s under %s refused, cycle", s.Name, n.Name, p.Name)
		return false
	}
	if n.Parent == newParent {
		return true
	}
	s.unlink(h)
	n.Parent = newParent
	p.Children = append(p.Children, h)
	n.dirty = true
	return true
}

// RemoveNode deletes h, its descendants and all their components. Removing
// the root clears the scene but keeps the root.
func (s *Scene) RemoveNode(h containers.Handle) bool {
	if !s.nodes.Valid(h) {
		return false
	}
	queue := s.Queue(h)
	if h == s.root {
		queue = queue[1:]
		s.nodes.Get(s.root).Children = nil
	} else {
		s.unlink(h)
	}
	for _, q := range queue {
		s.eraseNode(q)
	}
	return true
}

func (s *Scene) eraseNode(h containers.Handle) {
	n := s.nodes.Get(h)
	if n == nil {
		return
	}
	for _, c := range n.Components {
		if !c.IsNull() {
			s.store.Erase(c)
		}
	}
	s.nodes.Erase(h)
}

// FlattenNode replaces h by its children in its parent, keeping their
// order and position. The components of h are dropped.
func (s *Scene) FlattenNode(h containers.Handle) bool {
	n := s.nodes.Get(h)
	if n == nil || h == s.root {
		return false
	}
	p := s.nodes.Get(n.Parent)
	at := s.unlink(h)
	if at < 0 {
		at = len(p.Children)
	}
	children := n.Children
	for _, c := range children {
		if cn := s.nodes.Get(c); cn != nil {
			cn.Parent = n.Parent
			cn.dirty = true
		}
	}
	p.Children = slices.Insert(p.Children, at, children...)
	n.Children = nil
	s.eraseNode(h)
	return true
}

// Clear removes every node but the root and every component.
func (s *Scene) Clear() {
	s.RemoveNode(s.root)
	root := s.nodes.Get(s.root)
	for i, c := range root.Components {
		if !c.IsNull() {
			s.store.Erase(c)
			root.Components[i] = containers.NullHandle
		}
	}
}
