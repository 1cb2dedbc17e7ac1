package engine

import (
	"os"

	"github.com/spaghettifunk/anima-engine/engine/assets"
	"github.com/spaghettifunk/anima-engine/engine/containers"
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/resources"
	"github.com/spaghettifunk/anima-engine/engine/scene"
	"github.com/spaghettifunk/anima-engine/engine/systems"
	"github.com/spaghettifunk/anima-engine/engine/vfs"
)

const (
	ScenesFolder  = "Scenes"
	ShadersFolder = "Shaders"
	DefaultShader = "default"
)

// Project is the game-facing view of a running engine: the filesystem, the
// importers, the camera and the scene drawn every frame.
type Project struct {
	Name    string
	Config  *core.EngineConfig
	Systems *systems.SystemManager

	Importer *assets.Importer
	// Watcher is nil unless assets.watch is set.
	Watcher *assets.Watcher
	Camera  *renderer.Camera
	// Scene is the active scene, nil draws empty frames.
	Scene *scene.Scene
	// Recorder receives the draw calls of every frame when set.
	Recorder renderer.Recorder

	scenes  containers.Handle
	shaders containers.Handle
}

func NewProject(config *core.EngineConfig, sm *systems.SystemManager) (*Project, error) {
	p := &Project{
		Name:     config.Application.Name,
		Config:   config,
		Systems:  sm,
		Importer: assets.NewImporter(sm.FS),
		Camera:   renderer.NewCamera(float32(config.Application.StartWidth) / float32(max(config.Application.StartHeight, 1))),
	}
	p.shaders = sm.FS.CreateFolder(ShadersFolder, containers.NullHandle)
	p.scenes = sm.FS.CreateFolder(ScenesFolder, containers.NullHandle)
	shader := vfs.CreateFile(sm.FS, DefaultShader, resources.Shader{
		Name:   DefaultShader,
		Stages: []resources.ShaderStage{resources.ShaderStageVertex, resources.ShaderStageFragment},
	}, p.shaders, nil)
	p.Importer.DefaultShader = sm.FS.Data(shader)

	if config.Assets.Watch {
		w, err := assets.NewWatcher(sm.FS, p.Importer, config.Jobs.QueueSize)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(config.Assets.BasePath); err == nil {
			if err := w.Watch(config.Assets.BasePath); err != nil {
				w.Close()
				return nil, err
			}
		} else {
			core.LogWarn("asset folder '%s' not found, hot reload only covers bound files", config.Assets.BasePath)
		}
		p.Watcher = w
	}
	return p, nil
}

func (p *Project) FS() *vfs.FS {
	return p.Systems.FS
}

func (p *Project) Events() *core.EventBus {
	return p.Systems.Events
}

// NewScene creates an empty scene stored as a file of the Scenes folder.
// The first scene created becomes the active one.
func (p *Project) NewScene(name string) (*scene.Scene, containers.Handle) {
	s := scene.New(name, p.Systems.Registry)
	file := vfs.CreateFile(p.Systems.FS, name, s, p.scenes, nil)
	if p.Scene == nil {
		p.Scene = s
	}
	return s, file
}

// Quit asks the engine to stop after the current frame.
func (p *Project) Quit() {
	p.Systems.Events.Fire(core.EventCodeApplicationQuit, p, core.EventContext{})
}

func (p *Project) Close() error {
	if p.Watcher != nil {
		return p.Watcher.Close()
	}
	return nil
}
