package systems

import (
	"time"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// RemovalCategory groups file types whose data may still be read by frames
// in flight. Categories flush in declaration order, which follows RmOrder.
type RemovalCategory int

const (
	RemovalTexture RemovalCategory = iota
	RemovalMaterial
	RemovalMesh
	RemovalScene
	RemovalCategoryCount
)

func (c RemovalCategory) String() string {
	switch c {
	case RemovalTexture:
		return "texture"
	case RemovalMaterial:
		return "material"
	case RemovalMesh:
		return "mesh"
	case RemovalScene:
		return "scene"
	}
	return "unknown"
}

// FenceWaiter blocks until every submitted frame completed or timeout
// elapsed. It reports whether the GPU is done.
type FenceWaiter interface {
	WaitFrames(timeout time.Duration) bool
}

// DeferredRemover postpones the erase of GPU backed files until a fence wait
// proves no frame in flight can still reference them.
type DeferredRemover struct {
	fs      *vfs.FS
	waiter  FenceWaiter
	timeout time.Duration
	events  *core.EventBus

	categories map[containers.TypeID]RemovalCategory
	queues     [RemovalCategoryCount][]containers.Handle
	retired    []renderer.Buffer
}

func NewDeferredRemover(fs *vfs.FS, timeout time.Duration) *DeferredRemover {
	return &DeferredRemover{
		fs:         fs,
		timeout:    timeout,
		categories: make(map[containers.TypeID]RemovalCategory),
	}
}

// SetWaiter installs the fence gate. Without one, flushes never wait.
func (r *DeferredRemover) SetWaiter(w FenceWaiter) {
	r.waiter = w
}

func (r *DeferredRemover) SetEventBus(bus *core.EventBus) {
	r.events = bus
}

// Classify marks files holding data of the given type as GPU backed.
func (r *DeferredRemover) Classify(t containers.TypeID, c RemovalCategory) {
	r.categories[t] = c
}

func (r *DeferredRemover) category(file containers.Handle) (RemovalCategory, bool) {
	n := r.fs.Node(file)
	if n == nil || n.IsFolder() {
		return 0, false
	}
	c, ok := r.categories[n.Data.Type]
	return c, ok
}

// Remove erases trivial files and folders right away with RmRaw and queues
// GPU backed files until the next flush. It reports whether anything was
// erased or queued.
func (r *DeferredRemover) Remove(file containers.Handle, userData any) bool {
	if r.fs.Node(file) == nil {
		return false
	}
	c, deferred := r.category(file)
	if !deferred {
		return r.fs.RmRaw(file, userData)
	}
	if slices.Contains(r.queues[c], file) {
		return true
	}
	r.queues[c] = append(r.queues[c], file)
	core.LogDebug("deferred removal of %q (%s)", r.fs.Path(file), c)
	return true
}

// Retire schedules buffers replaced by a reload for destruction at the next
// flush.
func (r *DeferredRemover) Retire(buffers ...renderer.Buffer) {
	for _, b := range buffers {
		if b != nil {
			r.retired = append(r.retired, b)
		}
	}
}

func (r *DeferredRemover) Has(c RemovalCategory) bool {
	return len(r.queues[c]) > 0
}

// HasAny lets the render loop skip the fence wait when nothing is pending.
func (r *DeferredRemover) HasAny() bool {
	for c := RemovalCategory(0); c < RemovalCategoryCount; c++ {
		if r.Has(c) {
			return true
		}
	}
	return len(r.retired) > 0
}

// Pending returns the files queued in category c.
func (r *DeferredRemover) Pending(c RemovalCategory) []containers.Handle {
	return r.queues[c]
}

func (r *DeferredRemover) wait() bool {
	if r.waiter == nil {
		return true
	}
	if !r.waiter.WaitFrames(r.timeout) {
		core.LogWarn("deferred removal postponed: %s", core.ErrFenceTimeout)
		return false
	}
	return true
}

// Exec waits for the frames in flight and erases every file queued in
// category c. On timeout nothing is erased and false is returned.
func (r *DeferredRemover) Exec(c RemovalCategory, userData any) bool {
	if !r.Has(c) {
		return true
	}
	if !r.wait() {
		return false
	}
	r.notify(r.exec(c, userData))
	return true
}

// ExecAll flushes every category and the retired buffers behind a single
// fence wait.
func (r *DeferredRemover) ExecAll(userData any) bool {
	if !r.HasAny() {
		return true
	}
	if !r.wait() {
		return false
	}
	erased := 0
	for c := RemovalCategory(0); c < RemovalCategoryCount; c++ {
		erased += r.exec(c, userData)
	}
	for _, b := range r.retired {
		b.Destroy()
	}
	r.retired = r.retired[:0]
	r.notify(erased)
	return true
}

func (r *DeferredRemover) exec(c RemovalCategory, userData any) int {
	queue := r.queues[c]
	r.queues[c] = nil
	erased := 0
	for _, file := range queue {
		// removed some other way since it was queued
		if r.fs.Node(file) == nil {
			continue
		}
		if r.fs.Rm(file, userData) {
			erased++
		}
	}
	return erased
}

func (r *DeferredRemover) notify(erased int) {
	ctx := core.EventContext{}
	ctx.U32[0] = uint32(erased)
	r.events.Fire(core.EventCodeDeferredFlushed, r, ctx)
}
