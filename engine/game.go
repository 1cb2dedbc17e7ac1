package engine

import (
	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/systems"
)

// Game is the set of callbacks the engine drives. Only FnUpdate is required.
type Game struct {
	Config *core.EngineConfig
	// Project is set by the engine before FnInitialize runs.
	Project      *Project
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnOnResize   OnResize
	FnShutdown   Shutdown
}

type Initialize func(p *Project) error
type Update func(deltaTime float64) error

// Render runs after the frame was submitted and receives its statistics.
type Render func(stats *systems.FrameStats, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
