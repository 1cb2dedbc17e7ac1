package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

// VulkanBuffer is a persistently mapped host-visible, host-coherent buffer.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory

	kind    renderer.RenderBufferType
	size    uint64
	mapped  unsafe.Pointer
	context *VulkanContext
}

func usageFlags(t renderer.RenderBufferType) vk.BufferUsageFlags {
	switch t {
	case renderer.RenderBufferTypeVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	case renderer.RenderBufferTypeIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	case renderer.RenderBufferTypeUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	case renderer.RenderBufferTypeStaging:
		return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
}

func NewBuffer(context *VulkanContext, t renderer.RenderBufferType, size uint64) (*VulkanBuffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("create %s buffer: zero size", t)
	}
	b := &VulkanBuffer{kind: t, size: size, context: context}
	device := context.Device.LogicalDevice

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usageFlags(t),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := check("create buffer", vk.CreateBuffer(device, &bufferInfo, context.Allocator, &b.Handle)); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, b.Handle, &requirements)
	requirements.Deref()

	flags := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	index := context.FindMemoryIndex(requirements.MemoryTypeBits, flags)
	if index < 0 {
		b.Destroy()
		return nil, fmt.Errorf("create %s buffer: no host visible memory type", t)
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	if err := check("allocate buffer memory", vk.AllocateMemory(device, &allocInfo, context.Allocator, &b.Memory)); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := check("bind buffer memory", vk.BindBufferMemory(device, b.Handle, b.Memory, 0)); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := check("map buffer memory", vk.MapMemory(device, b.Memory, 0, vk.DeviceSize(size), 0, &b.mapped)); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *VulkanBuffer) Type() renderer.RenderBufferType {
	return b.kind
}

func (b *VulkanBuffer) Size() uint64 {
	return b.size
}

func (b *VulkanBuffer) Write(offset uint64, data []byte) error {
	if b.mapped == nil {
		return core.ErrBufferDestroyed
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: %d bytes at %d into %d", core.ErrOutOfBounds, len(data), offset, b.size)
	}
	if len(data) == 0 {
		return nil
	}
	vk.Memcopy(unsafe.Add(b.mapped, offset), data)
	return nil
}

func (b *VulkanBuffer) Destroy() {
	device := b.context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.mapped = nil
	}
	if b.Handle != vk.NullBuffer {
		vk.DestroyBuffer(device, b.Handle, b.context.Allocator)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, b.Memory, b.context.Allocator)
		b.Memory = vk.NullDeviceMemory
	}
}
