package assets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// AddScript imports a Lua source file under parent.
func (im *Importer) AddScript(path string, parent containers.Handle) (containers.Handle, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return containers.NullHandle, err
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	file := vfs.CreateFile(im.fs, name, resources.Script{Name: name, Code: string(code)}, parent, nil)
	im.bindSource(file, path)
	return file, nil
}
