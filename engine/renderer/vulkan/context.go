package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex uint32
	GraphicsQueue      vk.Queue

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

// VulkanContext holds the objects shared by every Vulkan call of the engine.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Device    *VulkanDevice

	// set when the context created the instance and device itself
	ownsDevice bool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	memory := vc.Device.Memory
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
