package vfs

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
)

const RootName = "root"

// folders own no data and are erased after every file of a cascading rm
const folderRmOrder = math.MaxInt

// FS is an in-memory tree of folders and files. Nodes and file data both
// live in the Registry, the FS only keeps the links between them. It is not
// safe for concurrent use.
type FS struct {
	registry *containers.Registry
	nodes    *containers.Pool[Node]
	root     containers.Handle
	types    map[containers.TypeID]*TypeInfo

	fileByData   map[containers.Handle]containers.Handle
	fileByUUID   map[uuid.UUID]containers.Handle
	fileBySource map[string]containers.Handle

	events *core.EventBus
}

func New(registry *containers.Registry) *FS {
	fs := &FS{
		registry:     registry,
		nodes:        containers.PoolOf[Node](registry),
		types:        make(map[containers.TypeID]*TypeInfo),
		fileByData:   make(map[containers.Handle]containers.Handle),
		fileByUUID:   make(map[uuid.UUID]containers.Handle),
		fileBySource: make(map[string]containers.Handle),
	}
	fs.root = fs.nodes.Insert(Node{Name: RootName, UUID: uuid.New()})
	fs.nodes.Get(fs.root).path = []containers.Handle{fs.root}
	fs.fileByUUID[fs.nodes.Get(fs.root).UUID] = fs.root
	return fs
}

// SetEventBus enables change notifications. Passing nil disables them.
func (fs *FS) SetEventBus(bus *core.EventBus) {
	fs.events = bus
}

func (fs *FS) Registry() *containers.Registry {
	return fs.registry
}

func (fs *FS) Root() containers.Handle {
	return fs.root
}

// RegisterType installs the callback table for files holding a T.
func RegisterType[T any](fs *FS, info TypeInfo) containers.TypeID {
	id := containers.TypeOf[T](fs.registry)
	if info.Name == "" {
		info.Name = fs.registry.TypeName(id)
	}
	fs.types[id] = &info
	return id
}

// TypeInfoOf returns the callback table of a file node, nil for folders and
// unregistered types.
func (fs *FS) TypeInfoOf(node containers.Handle) *TypeInfo {
	n := fs.nodes.Get(node)
	if n == nil || n.IsFolder() {
		return nil
	}
	return fs.types[n.Data.Type]
}

func (fs *FS) Node(h containers.Handle) *Node {
	return fs.nodes.Get(h)
}

func (fs *FS) Valid(h containers.Handle) bool {
	return fs.nodes.Valid(h)
}

func (fs *FS) IsFile(h containers.Handle) bool {
	n := fs.nodes.Get(h)
	return n != nil && n.IsFile()
}

func (fs *FS) IsFolder(h containers.Handle) bool {
	n := fs.nodes.Get(h)
	return n != nil && n.IsFolder()
}

// Data returns the registry handle held by a file node.
func (fs *FS) Data(h containers.Handle) containers.Handle {
	n := fs.nodes.Get(h)
	if n == nil {
		return containers.NullHandle
	}
	return n.Data
}

// DataOf resolves a file's data as a *T.
func DataOf[T any](fs *FS, file containers.Handle) *T {
	return containers.Get[T](fs.registry, fs.Data(file))
}

// FileOf maps registry data back to the file wrapping it.
func (fs *FS) FileOf(data containers.Handle) containers.Handle {
	h, ok := fs.fileByData[data]
	if !ok || !fs.nodes.Valid(h) {
		return containers.NullHandle
	}
	return h
}

func (fs *FS) FindByUUID(id uuid.UUID) containers.Handle {
	h, ok := fs.fileByUUID[id]
	if !ok || !fs.nodes.Valid(h) {
		return containers.NullHandle
	}
	return h
}

// SetSourcePath records where a file was loaded from on disk.
func (fs *FS) SetSourcePath(file containers.Handle, path string) bool {
	n := fs.nodes.Get(file)
	if n == nil || n.IsFolder() {
		return false
	}
	if n.SourcePath != "" {
		delete(fs.fileBySource, n.SourcePath)
	}
	n.SourcePath = filepath.Clean(path)
	fs.fileBySource[n.SourcePath] = file
	return true
}

func (fs *FS) FileBySource(path string) containers.Handle {
	h, ok := fs.fileBySource[filepath.Clean(path)]
	if !ok || !fs.nodes.Valid(h) {
		return containers.NullHandle
	}
	return h
}

func (fs *FS) resolveParent(parent containers.Handle) containers.Handle {
	if parent.IsNull() {
		return fs.root
	}
	return parent
}

// CreateFolder returns the null handle when parent is not a live folder or
// name is not valid. A null parent means the root.
func (fs *FS) CreateFolder(name string, parent containers.Handle) containers.Handle {
	parent = fs.resolveParent(parent)
	if !fs.IsFolder(parent) || !ValidName(name) {
		core.LogDebug("vfs: cannot create folder %q under %s", name, parent)
		return containers.NullHandle
	}
	h := fs.link(name, parent, containers.NullHandle)
	fs.fire(core.EventCodeFileCreated, h)
	return h
}

// CreateFile stores data in the registry and wraps it in a new file node.
func CreateFile[T any](fs *FS, name string, data T, parent containers.Handle, userData any) containers.Handle {
	parent = fs.resolveParent(parent)
	if !fs.IsFolder(parent) || !ValidName(name) {
		core.LogDebug("vfs: cannot create file %q under %s", name, parent)
		return containers.NullHandle
	}
	d := containers.Emplace(fs.registry, data)
	return fs.CreateFileFromHandle(name, d, parent, userData)
}

// CreateFileFromHandle wraps data that already lives in the registry.
func (fs *FS) CreateFileFromHandle(name string, data containers.Handle, parent containers.Handle, userData any) containers.Handle {
	parent = fs.resolveParent(parent)
	if !fs.IsFolder(parent) || !fs.registry.Valid(data) || !ValidName(name) {
		core.LogDebug("vfs: cannot create file %q under %s", name, parent)
		return containers.NullHandle
	}
	info := fs.types[data.Type]
	if info != nil && info.Extension != "" && filepath.Ext(name) == "" {
		name += info.Extension
	}
	h := fs.link(name, parent, data)
	fs.fileByData[data] = h
	if info != nil && info.OnCreate != nil {
		info.OnCreate(fs, h, userData)
	}
	fs.fire(core.EventCodeFileCreated, h)
	return h
}

func (fs *FS) link(name string, parent containers.Handle, data containers.Handle) containers.Handle {
	name = fs.uniqueName(parent, name, !data.IsNull(), containers.NullHandle)
	n := Node{
		Name:   name,
		UUID:   uuid.New(),
		Parent: parent,
		Data:   data,
	}
	h := fs.nodes.Insert(n)
	p := fs.nodes.Get(parent)
	p.Children = append(p.Children, h)
	node := fs.nodes.Get(h)
	node.path = append(slices.Clone(p.path), h)
	fs.fileByUUID[node.UUID] = h
	return h
}

// IsAncestor reports whether ancestor is node or lies on its parent chain.
func (fs *FS) IsAncestor(ancestor, node containers.Handle) bool {
	for h := node; fs.nodes.Valid(h); h = fs.nodes.Get(h).Parent {
		if h == ancestor {
			return true
		}
	}
	return false
}

// Move relinks node under newParent, keeping its subtree. It refuses moves
// into files and into the node's own subtree.
func (fs *FS) Move(node, newParent containers.Handle) bool {
	n := fs.nodes.Get(node)
	if n == nil || node == fs.root {
		return false
	}
	if !fs.IsFolder(newParent) {
		core.LogDebug("vfs: move target %s is not a folder", newParent)
		return false
	}
	if fs.IsAncestor(node, newParent) {
		core.LogDebug("vfs: moving %s under %s would create a cycle", node, newParent)
		return false
	}
	if n.Parent == newParent {
		return true
	}
	fs.unlink(node)
	n.Name = fs.uniqueName(newParent, n.Name, n.IsFile(), node)
	n.Parent = newParent
	p := fs.nodes.Get(newParent)
	p.Children = append(p.Children, node)
	fs.rebuildPaths(node)
	fs.fire(core.EventCodeNodeMoved, node)
	return true
}

// Rename changes the node name, suffixing it when a sibling already uses it.
// Returns the final name, empty when the node or the name is invalid.
func (fs *FS) Rename(node containers.Handle, newName string) string {
	n := fs.nodes.Get(node)
	if n == nil || !ValidName(newName) {
		return ""
	}
	old := n.Name
	n.Name = fs.uniqueName(n.Parent, newName, n.IsFile(), node)
	if n.Name != old {
		ctx := core.EventContext{}
		ctx.C[0] = old
		ctx.C[1] = n.Name
		fs.fireContext(core.EventCodeNodeRenamed, node, ctx)
	}
	return n.Name
}

// Detach unlinks the node from its parent without erasing anything. The
// subtree stays reachable by handle only.
func (fs *FS) Detach(node containers.Handle) bool {
	n := fs.nodes.Get(node)
	if n == nil || node == fs.root {
		return false
	}
	fs.unlink(node)
	n.Parent = containers.NullHandle
	fs.rebuildPaths(node)
	return true
}

func (fs *FS) unlink(node containers.Handle) {
	n := fs.nodes.Get(node)
	p := fs.nodes.Get(n.Parent)
	if p == nil {
		return
	}
	if i := slices.Index(p.Children, node); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
}

// rebuildPaths refreshes the cached ancestor chain of the subtree.
func (fs *FS) rebuildPaths(node containers.Handle) {
	n := fs.nodes.Get(node)
	if p := fs.nodes.Get(n.Parent); p != nil {
		n.path = append(slices.Clone(p.path), node)
	} else {
		n.path = []containers.Handle{node}
	}
	for _, ch := range n.Children {
		if fs.nodes.Valid(ch) {
			fs.rebuildPaths(ch)
		}
	}
}

// Path joins the node names from the root down, the root segment omitted.
func (fs *FS) Path(h containers.Handle) string {
	return fs.path(h, false, "")
}

// PathWithRoot is like Path but starts with rootAlias in place of the root.
func (fs *FS) PathWithRoot(h containers.Handle, rootAlias string) string {
	return fs.path(h, true, rootAlias)
}

func (fs *FS) path(h containers.Handle, withRoot bool, alias string) string {
	n := fs.nodes.Get(h)
	if n == nil {
		return ""
	}
	parts := make([]string, 0, len(n.path))
	for _, a := range n.path {
		if a == fs.root {
			if withRoot {
				parts = append(parts, alias)
			}
			continue
		}
		if an := fs.nodes.Get(a); an != nil {
			parts = append(parts, an.Name)
		}
	}
	return strings.Join(parts, Separator)
}

// Find resolves a '/' separated path relative to the root.
func (fs *FS) Find(path string) containers.Handle {
	cur := fs.root
	for _, part := range strings.Split(path, Separator) {
		if part == "" || part == "." {
			continue
		}
		next := containers.NullHandle
		for _, ch := range fs.nodes.Get(cur).Children {
			if c := fs.nodes.Get(ch); c != nil && c.Name == part {
				next = ch
				break
			}
		}
		if next.IsNull() {
			return containers.NullHandle
		}
		cur = next
	}
	return cur
}

// Children returns a copy of the node's child list.
func (fs *FS) Children(h containers.Handle) []containers.Handle {
	n := fs.nodes.Get(h)
	if n == nil {
		return nil
	}
	return slices.Clone(n.Children)
}

// Queue lists the subtree of h depth first, h included and first.
func (fs *FS) Queue(h containers.Handle) []containers.Handle {
	if !fs.nodes.Valid(h) {
		return nil
	}
	var out []containers.Handle
	var walk func(containers.Handle)
	walk = func(c containers.Handle) {
		out = append(out, c)
		for _, ch := range fs.nodes.Get(c).Children {
			if fs.nodes.Valid(ch) {
				walk(ch)
			}
		}
	}
	walk(h)
	return out
}

// Len is the number of nodes including the root.
func (fs *FS) Len() int {
	return fs.nodes.Len()
}

func (fs *FS) fire(code core.SystemEventCode, h containers.Handle) {
	fs.fireContext(code, h, core.EventContext{})
}

func (fs *FS) fireContext(code core.SystemEventCode, h containers.Handle, ctx core.EventContext) {
	if fs.events == nil {
		return
	}
	ctx.U32[0] = h.Index
	ctx.U32[1] = h.Version
	ctx.U32[2] = uint32(h.Type)
	if ctx.C[0] == "" {
		ctx.C[0] = fs.Path(h)
	}
	fs.events.Fire(code, fs, ctx)
}

// HandleFromEvent rebuilds the node handle carried by an FS event.
func HandleFromEvent(ctx core.EventContext) containers.Handle {
	return containers.Handle{Index: ctx.U32[0], Version: ctx.U32[1], Type: containers.TypeID(ctx.U32[2])}
}
