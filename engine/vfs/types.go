package vfs

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/anima-engine/engine/containers"
)

// FnOnCreate runs right after a file of the type is linked into the tree.
type FnOnCreate func(fs *FS, file containers.Handle, userData any)

// FnOnDelete runs before the file's data is erased. Returning false keeps
// the node and its data alive.
type FnOnDelete func(fs *FS, file containers.Handle, userData any) bool

// FnOnReload runs when the file is reloaded in place.
type FnOnReload func(fs *FS, file containers.Handle, userData any)

// TypeInfo is the per-type callback table for file data.
type TypeInfo struct {
	Name      string
	Extension string
	// RmOrder sequences a cascading rm, lower values are erased first.
	RmOrder  int
	OnCreate FnOnCreate
	OnDelete FnOnDelete
	OnReload FnOnReload
}

// Node is a folder when Data is null and a file otherwise.
type Node struct {
	Name     string
	UUID     uuid.UUID
	Parent   containers.Handle
	Children []containers.Handle
	Data     containers.Handle
	// SourcePath is the on-disk origin of the file, if any.
	SourcePath string

	// ancestor chain from the root down to the node itself
	path []containers.Handle
}

func (n *Node) IsFile() bool {
	return !n.Data.IsNull()
}

func (n *Node) IsFolder() bool {
	return n.Data.IsNull()
}
