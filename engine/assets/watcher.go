package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// Watcher hot reloads files whose source changes on disk. Change events are
// collected by a goroutine; Poll applies them on the control thread, the
// filesystem is never touched from the event goroutine.
type Watcher struct {
	fs       *vfs.FS
	importer *Importer
	fsnotify *fsnotify.Watcher

	// mutex guards pending, queued and isClosed
	mutex    sync.Mutex
	pending  *containers.RingQueue[string]
	queued   map[string]bool
	isClosed bool

	done chan struct{}
	wg   sync.WaitGroup
}

func NewWatcher(fs *vfs.FS, importer *Importer, queueSize int) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if importer == nil {
		importer = NewImporter(fs)
	}
	w := &Watcher{
		fs:       fs,
		importer: importer,
		fsnotify: fsWatch,
		pending:  containers.NewRingQueue[string](queueSize),
		queued:   make(map[string]bool),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Watch starts watching the named directory and all sub-directories.
func (w *Watcher) Watch(dir string) error {
	if w.closed() {
		return errors.New("watcher already closed")
	}
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		return nil
	})
}

// Bind records path as the source of file so that changes to it reload it.
func (w *Watcher) Bind(file containers.Handle, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return w.fs.SetSourcePath(file, abs)
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := w.Watch(e.Name); err != nil {
						core.LogError("watch %s: %s", e.Name, err)
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.enqueue(e.Name)
			}
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) enqueue(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.queued[path] {
		return
	}
	if !w.pending.Enqueue(path) {
		core.LogWarn("reload queue full, dropping change of %s", path)
		return
	}
	w.queued[path] = true
}

func (w *Watcher) drain() []string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	var out []string
	for {
		p, ok := w.pending.Dequeue()
		if !ok {
			break
		}
		delete(w.queued, p)
		out = append(out, p)
	}
	return out
}

// Poll reloads every bound file changed since the last call and returns how
// many were reloaded. Must run on the thread owning the filesystem.
func (w *Watcher) Poll() int {
	reloaded := 0
	for _, path := range w.drain() {
		file := w.fs.FileBySource(path)
		if file.IsNull() {
			continue
		}
		if err := w.refresh(file, path); err != nil {
			core.LogError("reload %s: %s", path, err)
			continue
		}
		if w.fs.Reload(file, nil) {
			reloaded++
		}
	}
	return reloaded
}

// refresh replaces the data of file with the content of path in place, so
// handles held elsewhere stay valid.
func (w *Watcher) refresh(file containers.Handle, path string) error {
	switch {
	case vfs.DataOf[resources.Texture](w.fs, file) != nil:
		tex, err := LoadTexture(path)
		if err != nil {
			return err
		}
		dst := vfs.DataOf[resources.Texture](w.fs, file)
		dst.Width, dst.Height = tex.Width, tex.Height
		dst.ChannelCount, dst.Flags = tex.ChannelCount, tex.Flags
		dst.Pixels = tex.Pixels
	case vfs.DataOf[resources.Script](w.fs, file) != nil:
		code, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		vfs.DataOf[resources.Script](w.fs, file).Code = string(code)
	case vfs.DataOf[resources.Material](w.fs, file) != nil:
		cfg, err := LoadMaterialConfig(path)
		if err != nil {
			return err
		}
		dst := vfs.DataOf[resources.Material](w.fs, file)
		m := w.importer.Material(cfg)
		m.Slot, m.Generation = dst.Slot, dst.Generation
		*dst = m
	}
	return nil
}

func (w *Watcher) closed() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.isClosed
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return nil
	}
	w.isClosed = true
	w.mutex.Unlock()
	close(w.done)
	err := w.fsnotify.Close()
	w.wg.Wait()
	return err
}
