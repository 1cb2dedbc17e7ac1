package vfs

import (
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
)

func (fs *FS) rmOrder(h containers.Handle) int {
	n := fs.nodes.Get(h)
	if n == nil || n.IsFolder() {
		return folderRmOrder
	}
	if info := fs.types[n.Data.Type]; info != nil {
		return info.RmOrder
	}
	return 0
}

// RmQueue is the order in which Rm would visit the subtree of h.
func (fs *FS) RmQueue(h containers.Handle) []containers.Handle {
	queue := fs.Queue(h)
	slices.SortStableFunc(queue, func(a, b containers.Handle) int {
		oa, ob := fs.rmOrder(a), fs.rmOrder(b)
		switch {
		case oa < ob:
			return -1
		case oa > ob:
			return 1
		}
		return 0
	})
	return queue
}

// Rm erases the subtree of h, lower RmOrder first and folders last. A node
// whose OnDelete vetoes survives detached from the tree, reachable only by
// its handle. Removing the root clears its children and keeps the root.
// Returns false only when h is not a live node.
func (fs *FS) Rm(h containers.Handle, userData any) bool {
	if !fs.nodes.Valid(h) {
		return false
	}
	if h == fs.root {
		for _, ch := range fs.Children(h) {
			fs.Rm(ch, userData)
		}
		return true
	}

	queue := fs.RmQueue(h)
	fs.unlink(h)
	fs.nodes.Get(h).Parent = containers.NullHandle

	for _, q := range queue {
		if !fs.nodes.Valid(q) {
			continue
		}
		if !fs.deleteData(q, userData) {
			continue
		}
		fs.eraseNode(q)
	}
	if fs.nodes.Valid(h) {
		fs.rebuildPaths(h)
	}
	return true
}

// RmRaw erases only h. Its children are handed to h's parent at h's
// position. When OnDelete vetoes, h stays alive, detached and childless.
func (fs *FS) RmRaw(h containers.Handle, userData any) bool {
	n := fs.nodes.Get(h)
	if n == nil || h == fs.root {
		return false
	}
	parent := n.Parent
	children := n.Children
	n.Children = nil

	if p := fs.nodes.Get(parent); p != nil {
		i := slices.Index(p.Children, h)
		if i < 0 {
			i = len(p.Children)
		} else {
			p.Children = slices.Delete(p.Children, i, i+1)
		}
		for _, ch := range children {
			c := fs.nodes.Get(ch)
			if c == nil {
				continue
			}
			c.Parent = parent
			c.Name = fs.uniqueName(parent, c.Name, c.IsFile(), ch)
			p.Children = slices.Insert(p.Children, i, ch)
			i++
			fs.rebuildPaths(ch)
		}
	} else {
		for _, ch := range children {
			if c := fs.nodes.Get(ch); c != nil {
				c.Parent = containers.NullHandle
				fs.rebuildPaths(ch)
			}
		}
	}
	n.Parent = containers.NullHandle
	fs.rebuildPaths(h)

	if !fs.deleteData(h, userData) {
		return false
	}
	fs.eraseNode(h)
	return true
}

// Reload runs the type's OnReload callback. Folders and unregistered types
// report false.
func (fs *FS) Reload(file containers.Handle, userData any) bool {
	info := fs.TypeInfoOf(file)
	if info == nil {
		return false
	}
	if info.OnReload != nil {
		info.OnReload(fs, file, userData)
	}
	fs.fire(core.EventCodeFileReloaded, file)
	return true
}

// deleteData asks OnDelete and erases the registry data. False means vetoed.
func (fs *FS) deleteData(h containers.Handle, userData any) bool {
	n := fs.nodes.Get(h)
	if n.IsFolder() {
		return true
	}
	if info := fs.types[n.Data.Type]; info != nil && info.OnDelete != nil {
		if !info.OnDelete(fs, h, userData) {
			core.LogDebug("vfs: deletion of %q vetoed", n.Name)
			return false
		}
	}
	// OnDelete may have moved the data on, re-read the node.
	n = fs.nodes.Get(h)
	delete(fs.fileByData, n.Data)
	fs.registry.Erase(n.Data)
	n.Data = containers.NullHandle
	return true
}

func (fs *FS) eraseNode(h containers.Handle) {
	n := fs.nodes.Get(h)
	fs.fire(core.EventCodeFileRemoved, h)
	fs.unlink(h)
	for _, ch := range n.Children {
		// children still alive here were vetoed
		if c := fs.nodes.Get(ch); c != nil && c.Parent == h {
			c.Parent = containers.NullHandle
			fs.rebuildPaths(ch)
		}
	}
	delete(fs.fileByUUID, n.UUID)
	if n.SourcePath != "" {
		delete(fs.fileBySource, n.SourcePath)
	}
	fs.nodes.Erase(h)
}
