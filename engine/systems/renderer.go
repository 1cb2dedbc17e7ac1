package systems

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/math"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
	"github.com/spaghettifunk/anima-engine/engine/renderer/batch"
	"github.com/spaghettifunk/anima-engine/engine/scene"
)

/** @brief The configuration for the renderer system */
type RendererSystemConfig struct {
	/** @brief Frames the CPU may record ahead of the GPU. */
	MaxFramesInFlight int
	/** @brief Bound on every fence wait. */
	FenceTimeout time.Duration
	/** @brief Initial stream capacities of the batcher. */
	Batch batch.Config
}

// FrameStats describes the last drawn frame.
type FrameStats struct {
	Frame   uint64
	Scene   scene.UpdateStats
	Batch   batch.Stats
	Flushed bool
}

// RendererSystem drives one frame at a time: it waits for the frame slot's
// fence, flushes deferred removals, updates the scene into the batcher and
// submits the recorded work.
type RendererSystem struct {
	Config RendererSystemConfig

	device    renderer.Device
	batcher   *batch.Batcher
	fences    []renderer.Fence
	frame     uint64
	remover   *DeferredRemover
	resources *ResourceSystem
	metrics   *core.Metrics

	// Optional collaborators handed to the scene update.
	Scripts scene.ScriptHost
	Jobs    scene.JobRunner
	Frustum *math.Frustum
}

func NewRendererSystem(config RendererSystemConfig, device renderer.Device, remover *DeferredRemover, rs *ResourceSystem, metrics *core.Metrics) (*RendererSystem, error) {
	if config.MaxFramesInFlight < 1 {
		return nil, fmt.Errorf("%w: renderer needs at least one frame in flight", core.ErrInvalidConfig)
	}
	config.Batch.MaxFramesInFlight = config.MaxFramesInFlight

	b, err := batch.New(device, config.Batch)
	if err != nil {
		return nil, err
	}
	r := &RendererSystem{
		Config:    config,
		device:    device,
		batcher:   b,
		remover:   remover,
		resources: rs,
		metrics:   metrics,
	}
	for i := 0; i < config.MaxFramesInFlight; i++ {
		// signaled so the first wait on every slot returns at once
		f, err := device.CreateFence(true)
		if err != nil {
			r.Shutdown()
			return nil, err
		}
		r.fences = append(r.fences, f)
	}
	if remover != nil {
		remover.SetWaiter(r)
	}
	core.LogInfo("Renderer system initialized with %d frames in flight.", config.MaxFramesInFlight)
	return r, nil
}

func (r *RendererSystem) Batcher() *batch.Batcher {
	return r.batcher
}

// Frame is the index of the next frame to draw.
func (r *RendererSystem) Frame() uint64 {
	return r.frame
}

// Fence returns the fence of the given frame slot.
func (r *RendererSystem) Fence(slot int) renderer.Fence {
	return r.fences[slot]
}

// WaitFrames waits on every frame slot, sharing one timeout.
func (r *RendererSystem) WaitFrames(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for _, f := range r.fences {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if !f.Wait(remaining) {
			return false
		}
	}
	return true
}

/**
 * @brief Draws one frame of s. A nil recorder still updates and streams the
 * frame, nothing is recorded. Returns core.ErrFenceTimeout when the frame
 * slot is still busy, the frame is skipped then.
 */
func (r *RendererSystem) DrawFrame(s *scene.Scene, dt float32, rec renderer.Recorder) (FrameStats, error) {
	stats := FrameStats{Frame: r.frame}
	slot := int(r.frame % uint64(len(r.fences)))
	fence := r.fences[slot]
	if !fence.Wait(r.Config.FenceTimeout) {
		core.LogWarn("frame %d skipped: %s", r.frame, core.ErrFenceTimeout)
		return stats, core.ErrFenceTimeout
	}

	if r.remover != nil && r.remover.HasAny() {
		stats.Flushed = r.remover.ExecAll(nil)
	}
	if r.resources != nil && r.resources.MaterialsDirty() {
		r.batcher.SetMaterialData(r.resources.MaterialData())
	}

	r.batcher.StartFrame(r.frame)
	if s != nil {
		stats.Scene = s.Update(&scene.UpdateContext{
			DeltaTime: dt,
			Scripts:   r.Scripts,
			Jobs:      r.Jobs,
			Frustum:   r.Frustum,
			Sink:      r.batcher,
		})
	}
	if err := r.batcher.Finalize(); err != nil {
		return stats, err
	}
	if rec != nil {
		r.batcher.Record(rec)
	}

	if err := fence.Reset(); err != nil {
		return stats, err
	}
	if err := r.device.Submit(fence); err != nil {
		// nothing was queued, the slot must not wait on the reset fence
		if ferr := r.replaceFence(slot); ferr != nil {
			return stats, errors.Join(err, ferr)
		}
		return stats, err
	}

	stats.Batch = r.batcher.Stats()
	if r.metrics != nil {
		r.metrics.RecordDraws(stats.Batch.Instances, stats.Batch.Groups, stats.Batch.Skins)
	}
	r.frame++
	return stats, nil
}

// replaceFence swaps the slot's fence for a new signaled one.
func (r *RendererSystem) replaceFence(slot int) error {
	f, err := r.device.CreateFence(true)
	if err != nil {
		return err
	}
	r.fences[slot].Destroy()
	r.fences[slot] = f
	return nil
}

func (r *RendererSystem) Shutdown() error {
	if err := r.device.WaitIdle(); err != nil {
		core.LogError("renderer shutdown: %s", err)
	}
	if r.batcher != nil {
		r.batcher.Destroy()
	}
	for _, f := range r.fences {
		f.Destroy()
	}
	r.fences = nil
	return nil
}
