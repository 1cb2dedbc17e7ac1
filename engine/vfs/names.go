package vfs

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/anima-engine/engine/containers"
)

// Separator joins node names in paths.
const Separator = "/"

// ValidName reports whether name can label a node: non-empty and free of
// the path separator.
func ValidName(name string) bool {
	return name != "" && !strings.Contains(name, Separator)
}

// SafeName turns name into a valid node name, replacing separators with
// underscores. An empty name becomes fallback.
func SafeName(name, fallback string) string {
	name = strings.ReplaceAll(name, Separator, "_")
	if name == "" {
		return fallback
	}
	return name
}

// splitName separates the extension of a file name. Folders have none.
func splitName(name string, isFile bool) (string, string) {
	if !isFile {
		return name, ""
	}
	ext := filepath.Ext(name)
	if ext == name {
		// ".hidden" style names keep the dot in the stem.
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// stripSuffix removes a trailing " (N)" collision suffix.
func stripSuffix(stem string) string {
	if !strings.HasSuffix(stem, ")") {
		return stem
	}
	open := strings.LastIndex(stem, " (")
	if open < 0 {
		return stem
	}
	n, err := strconv.Atoi(stem[open+2 : len(stem)-1])
	if err != nil || n < 2 {
		return stem
	}
	return stem[:open]
}

func (fs *FS) siblingHasName(parent containers.Handle, name string, exclude containers.Handle) bool {
	p := fs.nodes.Get(parent)
	if p == nil {
		return false
	}
	for _, ch := range p.Children {
		if ch == exclude {
			continue
		}
		if c := fs.nodes.Get(ch); c != nil && c.Name == name {
			return true
		}
	}
	return false
}

// uniqueName resolves collisions under parent by suffixing " (2)", " (3)"...
// before the extension. exclude is ignored while comparing, used on rename.
func (fs *FS) uniqueName(parent containers.Handle, name string, isFile bool, exclude containers.Handle) string {
	if !fs.siblingHasName(parent, name, exclude) {
		return name
	}
	stem, ext := splitName(name, isFile)
	stem = stripSuffix(stem)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if !fs.siblingHasName(parent, candidate, exclude) {
			return candidate
		}
	}
}
