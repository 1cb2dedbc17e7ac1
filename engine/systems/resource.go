package systems

import (
	"github.com/spaghettifunk/anima-engine/engine/animation"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/scene"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// Removal order of the resource types. Lower values are erased first, so
// data is always erased before whatever refers to it.
const (
	RmOrderTexture  = 0
	RmOrderMaterial = 10
	RmOrderFont     = 10
	RmOrderMesh     = 20
	RmOrderSkeleton = 20
	RmOrderLibrary  = 20
	RmOrderScript   = 20
	RmOrderShader   = 30
	RmOrderScene    = 40
)

// ScriptCache drops compiled scripts when their source goes away.
type ScriptCache interface {
	Invalidate(code string)
	Reset()
}

/** @brief The configuration for the resource system */
type ResourceSystemConfig struct {
	/** @brief The relative base path for assets. */
	AssetBasePath string
	/** @brief The device GPU data is uploaded to. Nil keeps everything on the CPU. */
	Device renderer.Device
	/** @brief Receives buffers replaced by reloads. Nil destroys them right away. */
	Remover *DeferredRemover
	/** @brief Compiled script cache to invalidate on script changes. Optional. */
	Scripts ScriptCache
}

// ResourceTypes are the ids the resource types were registered under.
type ResourceTypes struct {
	Texture  containers.TypeID
	Material containers.TypeID
	Font     containers.TypeID
	Mesh     containers.TypeID
	Skeleton containers.TypeID
	Library  containers.TypeID
	Script   containers.TypeID
	Shader   containers.TypeID
	Scene    containers.TypeID
}

// ResourceSystem owns the per-type callbacks of every resource stored in
// the filesystem and the material slot table.
type ResourceSystem struct {
	Config ResourceSystemConfig
	Types  ResourceTypes

	fs *vfs.FS

	slots         []containers.Handle
	freeSlots     []uint32
	materialsGen  uint64
	materialsSent uint64
	materialData  []byte
}

func NewResourceSystem(fs *vfs.FS, config ResourceSystemConfig) *ResourceSystem {
	rs := &ResourceSystem{
		Config: config,
		fs:     fs,
	}
	rs.register()

	if config.Remover != nil {
		config.Remover.Classify(rs.Types.Texture, RemovalTexture)
		config.Remover.Classify(rs.Types.Material, RemovalMaterial)
		config.Remover.Classify(rs.Types.Mesh, RemovalMesh)
		config.Remover.Classify(rs.Types.Scene, RemovalScene)
	}

	core.LogInfo("Resource system initialized with base path '%s'.", config.AssetBasePath)
	return rs
}

func (rs *ResourceSystem) register() {
	rs.Types.Texture = vfs.RegisterType[resources.Texture](rs.fs, vfs.TypeInfo{
		Name:      "Texture",
		Extension: ".tex",
		RmOrder:   RmOrderTexture,
		OnCreate:  rs.onCreateTexture,
		OnDelete:  rs.onDeleteTexture,
		OnReload:  rs.onReloadTexture,
	})
	rs.Types.Material = vfs.RegisterType[resources.Material](rs.fs, vfs.TypeInfo{
		Name:      "Material",
		Extension: ".mat",
		RmOrder:   RmOrderMaterial,
		OnCreate:  rs.onCreateMaterial,
		OnDelete:  rs.onDeleteMaterial,
		OnReload:  rs.onReloadMaterial,
	})
	rs.Types.Font = vfs.RegisterType[resources.Font](rs.fs, vfs.TypeInfo{
		Name:      "Font",
		Extension: ".font",
		RmOrder:   RmOrderFont,
	})
	rs.Types.Mesh = vfs.RegisterType[resources.Mesh](rs.fs, vfs.TypeInfo{
		Name:      "Mesh",
		Extension: ".mesh",
		RmOrder:   RmOrderMesh,
		OnCreate:  rs.onCreateMesh,
		OnDelete:  rs.onDeleteMesh,
		OnReload:  rs.onReloadMesh,
	})
	rs.Types.Skeleton = vfs.RegisterType[resources.Skeleton](rs.fs, vfs.TypeInfo{
		Name:      "Skeleton",
		Extension: ".skel",
		RmOrder:   RmOrderSkeleton,
	})
	rs.Types.Library = vfs.RegisterType[animation.Library](rs.fs, vfs.TypeInfo{
		Name:      "Animation",
		Extension: ".anim",
		RmOrder:   RmOrderLibrary,
	})
	rs.Types.Script = vfs.RegisterType[resources.Script](rs.fs, vfs.TypeInfo{
		Name:      "Script",
		Extension: ".lua",
		RmOrder:   RmOrderScript,
		OnDelete:  rs.onDeleteScript,
		OnReload:  rs.onReloadScript,
	})
	rs.Types.Shader = vfs.RegisterType[resources.Shader](rs.fs, vfs.TypeInfo{
		Name:      "Shader",
		Extension: ".shader",
		RmOrder:   RmOrderShader,
	})
	rs.Types.Scene = vfs.RegisterType[*scene.Scene](rs.fs, vfs.TypeInfo{
		Name:      "Scene",
		Extension: ".scene",
		RmOrder:   RmOrderScene,
		OnDelete:  rs.onDeleteScene,
	})
}

func (rs *ResourceSystem) retire(buffers ...renderer.Buffer) {
	if rs.Config.Remover != nil {
		rs.Config.Remover.Retire(buffers...)
		return
	}
	for _, b := range buffers {
		if b != nil {
			b.Destroy()
		}
	}
}

func (rs *ResourceSystem) onCreateTexture(fs *vfs.FS, file containers.Handle, userData any) {
	t := vfs.DataOf[resources.Texture](fs, file)
	if rs.Config.Device == nil || t == nil {
		return
	}
	if _, err := t.Upload(rs.Config.Device); err != nil {
		core.LogError("failed to upload texture '%s': %s", t.Name, err)
	}
}

func (rs *ResourceSystem) onDeleteTexture(fs *vfs.FS, file containers.Handle, userData any) bool {
	if t := vfs.DataOf[resources.Texture](fs, file); t != nil && t.Buffer != nil {
		t.Buffer.Destroy()
		t.Buffer = nil
	}
	return true
}

func (rs *ResourceSystem) onReloadTexture(fs *vfs.FS, file containers.Handle, userData any) {
	t := vfs.DataOf[resources.Texture](fs, file)
	if rs.Config.Device == nil || t == nil {
		return
	}
	old, err := t.Upload(rs.Config.Device)
	if err != nil {
		core.LogError("failed to reload texture '%s': %s", t.Name, err)
		return
	}
	rs.retire(old)
}

func (rs *ResourceSystem) onCreateMaterial(fs *vfs.FS, file containers.Handle, userData any) {
	m := vfs.DataOf[resources.Material](fs, file)
	if m == nil {
		return
	}
	data := fs.Data(file)
	if n := len(rs.freeSlots); n > 0 {
		m.Slot = rs.freeSlots[n-1]
		rs.freeSlots = rs.freeSlots[:n-1]
		rs.slots[m.Slot] = data
	} else {
		m.Slot = uint32(len(rs.slots))
		rs.slots = append(rs.slots, data)
	}
	rs.materialsGen++
}

func (rs *ResourceSystem) onDeleteMaterial(fs *vfs.FS, file containers.Handle, userData any) bool {
	m := vfs.DataOf[resources.Material](fs, file)
	if m == nil || m.Slot == resources.NoSlot {
		return true
	}
	rs.slots[m.Slot] = containers.NullHandle
	rs.freeSlots = append(rs.freeSlots, m.Slot)
	m.Slot = resources.NoSlot
	rs.materialsGen++
	return true
}

func (rs *ResourceSystem) onReloadMaterial(fs *vfs.FS, file containers.Handle, userData any) {
	if m := vfs.DataOf[resources.Material](fs, file); m != nil {
		m.Generation++
		rs.materialsGen++
	}
}

func (rs *ResourceSystem) onCreateMesh(fs *vfs.FS, file containers.Handle, userData any) {
	m := vfs.DataOf[resources.Mesh](fs, file)
	if rs.Config.Device == nil || m == nil {
		return
	}
	if _, err := m.Upload(rs.Config.Device); err != nil {
		core.LogError("failed to upload mesh '%s': %s", m.Name, err)
	}
}

func (rs *ResourceSystem) onDeleteMesh(fs *vfs.FS, file containers.Handle, userData any) bool {
	if m := vfs.DataOf[resources.Mesh](fs, file); m != nil {
		for _, b := range m.Release() {
			b.Destroy()
		}
	}
	return true
}

func (rs *ResourceSystem) onReloadMesh(fs *vfs.FS, file containers.Handle, userData any) {
	m := vfs.DataOf[resources.Mesh](fs, file)
	if rs.Config.Device == nil || m == nil {
		return
	}
	old, err := m.Upload(rs.Config.Device)
	if err != nil {
		core.LogError("failed to reload mesh '%s': %s", m.Name, err)
		return
	}
	rs.retire(old...)
}

func (rs *ResourceSystem) onDeleteScript(fs *vfs.FS, file containers.Handle, userData any) bool {
	if s := vfs.DataOf[resources.Script](fs, file); s != nil && rs.Config.Scripts != nil {
		rs.Config.Scripts.Invalidate(s.Code)
	}
	return true
}

func (rs *ResourceSystem) onReloadScript(fs *vfs.FS, file containers.Handle, userData any) {
	s := vfs.DataOf[resources.Script](fs, file)
	if s == nil {
		return
	}
	s.Generation++
	// the previous code is gone by now, start from a clean cache
	if rs.Config.Scripts != nil {
		rs.Config.Scripts.Reset()
	}
}

func (rs *ResourceSystem) onDeleteScene(fs *vfs.FS, file containers.Handle, userData any) bool {
	if s := vfs.DataOf[*scene.Scene](fs, file); s != nil && *s != nil {
		(*s).Clear()
	}
	return true
}

// MaterialSlots is the number of slots handed out so far, free or not.
func (rs *ResourceSystem) MaterialSlots() int {
	return len(rs.slots)
}

// MaterialsDirty reports whether material data changed since the last
// MaterialData call.
func (rs *ResourceSystem) MaterialsDirty() bool {
	return rs.materialsGen != rs.materialsSent
}

// MaterialData packs every material at its slot. Free slots are zeroed.
func (rs *ResourceSystem) MaterialData() []byte {
	rs.materialData = rs.materialData[:0]
	for _, h := range rs.slots {
		m := containers.Get[resources.Material](rs.fs.Registry(), h)
		if m == nil {
			rs.materialData = append(rs.materialData, make([]byte, resources.MaterialDataSize)...)
			continue
		}
		rs.materialData = m.AppendData(rs.materialData)
	}
	rs.materialsSent = rs.materialsGen
	return rs.materialData
}
