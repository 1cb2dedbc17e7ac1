package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

// streamDescriptors owns one descriptor set per frame slot with a dynamic
// buffer binding per stream. Binding index equals the stream id. A slot's
// set is only updated while no submitted frame reads it.
type streamDescriptors struct {
	context *VulkanContext
	layout  vk.DescriptorSetLayout
	pool    vk.DescriptorPool
	sets    [renderer.MaxFrameSlots]vk.DescriptorSet
}

func streamDescriptorType(stream uint32) vk.DescriptorType {
	if stream == renderer.StreamMaterial {
		return vk.DescriptorTypeUniformBufferDynamic
	}
	return vk.DescriptorTypeStorageBufferDynamic
}

func newStreamDescriptors(context *VulkanContext) (*streamDescriptors, error) {
	sd := &streamDescriptors{context: context}
	device := context.Device.LogicalDevice

	bindings := make([]vk.DescriptorSetLayoutBinding, renderer.StreamCount)
	for i := range bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  streamDescriptorType(uint32(i)),
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if err := check("create stream descriptor layout", vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &sd.layout)); err != nil {
		return nil, err
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageBufferDynamic, DescriptorCount: (renderer.StreamCount - 1) * renderer.MaxFrameSlots},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: renderer.MaxFrameSlots},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       renderer.MaxFrameSlots,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if err := check("create stream descriptor pool", vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &sd.pool)); err != nil {
		sd.destroy()
		return nil, err
	}

	for i := range sd.sets {
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     sd.pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{sd.layout},
		}
		if err := check("allocate stream descriptor set", vk.AllocateDescriptorSets(device, &allocInfo, &sd.sets[i])); err != nil {
			sd.destroy()
			return nil, err
		}
	}
	return sd, nil
}

func (sd *streamDescriptors) bind(slot uint32, stream uint32, buffer *VulkanBuffer, rng uint64) error {
	if stream >= renderer.StreamCount {
		return fmt.Errorf("bind stream %d: unknown stream", stream)
	}
	if slot >= renderer.MaxFrameSlots {
		return fmt.Errorf("bind stream %d: frame slot %d out of range", stream, slot)
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          sd.sets[slot],
		DstBinding:      stream,
		DescriptorCount: 1,
		DescriptorType:  streamDescriptorType(stream),
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: 0,
			Range:  vk.DeviceSize(rng),
		}},
	}
	vk.UpdateDescriptorSets(sd.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func (sd *streamDescriptors) destroy() {
	device := sd.context.Device.LogicalDevice
	if sd.pool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(device, sd.pool, sd.context.Allocator)
		sd.pool = vk.NullDescriptorPool
	}
	if sd.layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(device, sd.layout, sd.context.Allocator)
		sd.layout = vk.NullDescriptorSetLayout
	}
}
