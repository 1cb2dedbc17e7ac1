package systems

import (
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/renderer/batch"
	"github.com/spaghettifunk/anima-engine/engine/scripting"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

// SystemManager builds the engine systems in dependency order and tears
// them down in reverse.
type SystemManager struct {
	Registry *containers.Registry
	FS       *vfs.FS
	Events   *core.EventBus
	Metrics  *core.Metrics

	JobSystem      *JobSystem
	ScriptVM       *scripting.VM
	Remover        *DeferredRemover
	ResourceSystem *ResourceSystem
	RendererSystem *RendererSystem
}

func NewSystemManager(config *core.EngineConfig, device renderer.Device, events *core.EventBus) (*SystemManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout, err := config.FenceTimeout()
	if err != nil {
		return nil, err
	}

	js, err := NewJobSystem(config.Jobs.Workers, config.Jobs.QueueSize)
	if err != nil {
		return nil, err
	}

	reg := containers.NewRegistry()
	fs := vfs.New(reg)
	fs.SetEventBus(events)

	vm := scripting.NewVM()

	remover := NewDeferredRemover(fs, timeout)
	remover.SetEventBus(events)

	rs := NewResourceSystem(fs, ResourceSystemConfig{
		AssetBasePath: config.Assets.BasePath,
		Device:        device,
		Remover:       remover,
		Scripts:       vm,
	})

	metrics := core.NewMetrics()
	bc := batch.DefaultConfig()
	if c := config.Renderer.InitialInstanceCapacity; c > 0 {
		bc.InstanceCapacity = c
	}
	if c := config.Renderer.InitialSkinCapacity; c > 0 {
		bc.SkinCapacity = c
	}
	if c := config.Renderer.InitialMorphCapacity; c > 0 {
		bc.MorphCapacity = c
	}
	rend, err := NewRendererSystem(RendererSystemConfig{
		MaxFramesInFlight: int(config.Renderer.MaxFramesInFlight),
		FenceTimeout:      timeout,
		Batch:             bc,
	}, device, remover, rs, metrics)
	if err != nil {
		vm.Close()
		js.Shutdown()
		return nil, err
	}
	rend.Scripts = vm
	rend.Jobs = js

	return &SystemManager{
		Registry:       reg,
		FS:             fs,
		Events:         events,
		Metrics:        metrics,
		JobSystem:      js,
		ScriptVM:       vm,
		Remover:        remover,
		ResourceSystem: rs,
		RendererSystem: rend,
	}, nil
}

// Shutdown waits for the GPU, erases everything still in the filesystem so
// the resource callbacks release their buffers, then stops the workers.
func (sm *SystemManager) Shutdown() error {
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	sm.Remover.SetWaiter(nil)
	sm.Remover.ExecAll(nil)
	sm.FS.Rm(sm.FS.Root(), nil)
	sm.ScriptVM.Close()
	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
