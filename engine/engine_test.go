package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/systems"
)

func headlessGame() *Game {
	cfg := core.DefaultConfig()
	cfg.Jobs.Workers = 1
	return &Game{Config: cfg, FnUpdate: func(float64) error { return nil }}
}

func TestNewRejectsGameWithoutUpdate(t *testing.T) {
	_, err := New(&Game{}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	g := headlessGame()
	g.Config.Renderer.MaxFramesInFlight = 7
	_, err = New(g, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestRunUntilQuit(t *testing.T) {
	g := headlessGame()
	var rendered []uint64
	updates := 0
	g.FnInitialize = func(p *Project) error {
		s, file := p.NewScene("level")
		assert.Same(t, s, p.Scene)
		assert.Equal(t, "Scenes/level.scene", p.FS().Path(file))
		return nil
	}
	g.FnUpdate = func(float64) error {
		updates++
		if updates == 3 {
			g.Project.Quit()
		}
		return nil
	}
	g.FnRender = func(stats *systems.FrameStats, dt float64) error {
		rendered = append(rendered, stats.Frame)
		return nil
	}

	e, err := New(g, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.False(t, e.Project().Importer.DefaultShader.IsNull())

	require.NoError(t, e.Run())
	assert.Equal(t, []uint64{0, 1, 2}, rendered)
	assert.Equal(t, uint64(3), e.Frames())
	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
}

func TestRunStopsOnUpdateError(t *testing.T) {
	g := headlessGame()
	boom := errors.New("boom")
	g.FnUpdate = func(float64) error { return boom }

	e, err := New(g, renderer.NewHostDevice(0))
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Run(), boom)
	require.NoError(t, e.Shutdown())
}

func TestFrameSkipsBusySlot(t *testing.T) {
	g := headlessGame()
	device := renderer.NewHostDevice(0)
	device.ManualFences = true
	g.Config.Renderer.MaxFramesInFlight = 1
	g.Config.Renderer.FenceTimeout = "10ms"

	e, err := New(g, device)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	require.NoError(t, e.Frame(0.016))
	// the only slot was never signaled
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, uint64(1), e.Frames())

	e.systemManager.RendererSystem.Fence(0).(*renderer.HostFence).Signal()
	require.NoError(t, e.Frame(0.016))
	assert.Equal(t, uint64(2), e.Frames())
	require.NoError(t, e.Shutdown())
}

func TestResizeUpdatesCameraAndSuspends(t *testing.T) {
	g := headlessGame()
	var sizes [][2]uint32
	g.FnOnResize = func(w, h uint32) error {
		sizes = append(sizes, [2]uint32{w, h})
		return nil
	}
	e, err := New(g, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	resize := func(w, h uint32) {
		ctx := core.EventContext{}
		ctx.U32[0], ctx.U32[1] = w, h
		e.Events().Fire(core.EventCodeResized, nil, ctx)
	}
	resize(800, 400)
	assert.InDelta(t, 2.0, e.Project().Camera.Aspect, 1e-6)
	resize(0, 0)
	assert.True(t, e.isSuspended)
	resize(640, 480)
	assert.False(t, e.isSuspended)

	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(480), h)
	assert.Equal(t, [][2]uint32{{1280, 720}, {800, 400}, {640, 480}}, sizes)
	require.NoError(t, e.Shutdown())
}
