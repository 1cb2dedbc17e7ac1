package platform

import (
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

var startTime = time.Now()

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the application window. Input and resize callbacks are
// forwarded to the event bus.
type Platform struct {
	Window *glfw.Window
	events *core.EventBus
}

func New(events *core.EventBus) *Platform {
	return &Platform{events: events}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. Returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	if p.Window == nil {
		return true
	}
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

func (p *Platform) Sleep(ms float64) {
	time.Sleep(time.Duration(ms * float64(time.Millisecond)))
}

// GetAbsoluteTime returns seconds since process start.
func GetAbsoluteTime() float64 {
	return time.Since(startTime).Seconds()
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	ctx := core.EventContext{}
	ctx.U32[0] = uint32(key)
	switch action {
	case glfw.Press:
		if key == glfw.KeyEscape {
			p.events.Fire(core.EventCodeApplicationQuit, p, core.EventContext{})
			return
		}
		p.events.Fire(core.EventCodeKeyPressed, p, ctx)
	case glfw.Release:
		p.events.Fire(core.EventCodeKeyReleased, p, ctx)
	}
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	ctx := core.EventContext{}
	ctx.U32[0] = uint32(width)
	ctx.U32[1] = uint32(height)
	p.events.Fire(core.EventCodeResized, p, ctx)
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.events.Fire(core.EventCodeApplicationQuit, p, core.EventContext{})
}
