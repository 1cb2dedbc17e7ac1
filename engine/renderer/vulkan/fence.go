package vulkan

import (
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool

	context *VulkanContext
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
		context:    context,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if err := check("create fence", vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence)); err != nil {
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) Destroy() {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(vf.context.Device.LogicalDevice, vf.Handle, vf.context.Allocator)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait reports false on timeout and on device errors, both are logged.
func (vf *VulkanFence) Wait(timeout time.Duration) bool {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return true
	}
	result := vk.WaitForFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, uint64(timeout.Nanoseconds()))
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out after %s", timeout)
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result))
	}
	return false
}

func (vf *VulkanFence) Reset() error {
	if !vf.IsSignaled {
		return nil
	}
	if err := check("reset fence", vk.ResetFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle})); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}
