package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/platform"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-engine/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *core.EngineConfig
	isRunning     atomic.Bool
	isSuspended   bool
	events        *core.EventBus
	platform      *platform.Platform
	device        renderer.Device
	ownsDevice    bool
	systemManager *systems.SystemManager
	project       *Project
	width         uint32
	height        uint32
	clock         *core.Clock
	lastTime      float64
	frames        uint64
	// LimitFrames sleeps away the rest of a frame when it ran faster than
	// the target rate.
	LimitFrames bool
}

// New prepares an engine for the game. A nil device selects the host device
// when the configuration is headless and a Vulkan device otherwise.
func New(g *Game, device renderer.Device) (*Engine, error) {
	if g == nil || g.FnUpdate == nil {
		return nil, fmt.Errorf("%w: game must define an update function", core.ErrInvalidConfig)
	}
	cfg := g.Config
	if cfg == nil {
		cfg = core.DefaultConfig()
		g.Config = cfg
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(core.ParseLogLevel(cfg.Logging.Level))

	events := core.NewEventBus()
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		events:       events,
		device:       device,
		clock:        core.NewClock(),
		width:        cfg.Application.StartWidth,
		height:       cfg.Application.StartHeight,
	}
	if !cfg.Application.Headless {
		e.platform = platform.New(events)
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	app := e.config.Application

	e.events.Register(core.EventCodeApplicationQuit, e, e.onEvent)
	e.events.Register(core.EventCodeKeyPressed, e, e.onKey)
	e.events.Register(core.EventCodeKeyReleased, e, e.onKey)
	e.events.Register(core.EventCodeResized, e, e.onResized)

	if e.platform != nil {
		if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
			return err
		}
	}

	if e.device == nil {
		if app.Headless {
			e.device = renderer.NewHostDevice(0)
		} else {
			d, err := vulkan.NewHeadlessDevice(app.Name)
			if err != nil {
				return err
			}
			e.device = d
		}
		e.ownsDevice = true
	}

	sm, err := systems.NewSystemManager(e.config, e.device, e.events)
	if err != nil {
		return err
	}
	e.systemManager = sm

	p, err := NewProject(e.config, sm)
	if err != nil {
		return err
	}
	e.project = p
	e.gameInstance.Project = p

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(p); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives frames until the application quits or the game fails.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	var targetFrameSeconds float64 = 1.0 / 60.0

	for e.isRunning.Load() {
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			if e.platform != nil {
				e.platform.Sleep(10)
			}
			continue
		}

		e.clock.Update()
		var currentTime float64 = e.clock.Elapsed()
		var delta float64 = (currentTime - e.lastTime)
		var frameStartTime float64 = platform.GetAbsoluteTime()

		if err := e.Frame(delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		// Figure out how long the frame took and, if below
		var frameElapsedTime float64 = platform.GetAbsoluteTime() - frameStartTime
		e.systemManager.Metrics.Update(frameElapsedTime)
		var remainingSeconds float64 = targetFrameSeconds - frameElapsedTime
		if remainingSeconds > 0 && e.LimitFrames && e.platform != nil {
			// If there is time left, give it back to the OS.
			e.platform.Sleep(remainingSeconds*1000 - 1)
		}

		e.lastTime = currentTime
	}
	return nil
}

// Frame runs a single frame: hot reload, game update, scene draw and the
// game's render callback. A frame skipped because the GPU is still busy is
// not an error.
func (e *Engine) Frame(delta float64) error {
	p := e.project
	if p.Watcher != nil {
		if n := p.Watcher.Poll(); n > 0 {
			core.LogDebug("hot reloaded %d files", n)
		}
	}

	if err := e.gameInstance.FnUpdate(delta); err != nil {
		return fmt.Errorf("game update: %w", err)
	}
	frustum := p.Camera.Frustum()
	rs := e.systemManager.RendererSystem
	rs.Frustum = &frustum
	stats, err := rs.DrawFrame(p.Scene, float32(delta), p.Recorder)
	if errors.Is(err, core.ErrFenceTimeout) {
		core.LogDebug("frame %d skipped: %s", rs.Frame(), err)
		return nil
	}
	if err != nil {
		return err
	}
	e.frames++

	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(&stats, delta); err != nil {
			return fmt.Errorf("game render: %w", err)
		}
	}
	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.project != nil {
		errs = append(errs, e.project.Close())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.ownsDevice && e.device != nil {
		e.device.Destroy()
	}
	if e.platform != nil {
		errs = append(errs, e.platform.Shutdown())
	}
	e.events.Shutdown()
	e.currentStage = EngineStageShutdown
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Frames is the number of frames submitted so far.
func (e *Engine) Frames() uint64 {
	return e.frames
}

func (e *Engine) Project() *Project {
	return e.project
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	if code == core.EventCodeApplicationQuit {
		core.LogInfo("EventCodeApplicationQuit received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	if code == core.EventCodeKeyPressed {
		core.LogDebug("key %d pressed", data.U32[0])
	} else {
		core.LogDebug("key %d released", data.U32[0])
	}
	return false
}

func (e *Engine) onResized(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	width, height := data.U32[0], data.U32[1]
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.project != nil {
		e.project.Camera.Aspect = float32(width) / float32(height)
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	return true
}
