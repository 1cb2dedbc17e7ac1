package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-engine/engine/core"
	"github.com/spaghettifunk/anima-engine/engine/renderer"
)

// Device implements renderer.Device on top of a Vulkan logical device.
type Device struct {
	context *VulkanContext
	streams *streamDescriptors
}

// NewDevice wraps a context whose instance and logical device were created
// elsewhere, typically by the windowed bootstrap.
func NewDevice(context *VulkanContext) (*Device, error) {
	if context == nil || context.Device == nil {
		return nil, fmt.Errorf("vulkan device: context has no logical device")
	}
	vk.GetPhysicalDeviceProperties(context.Device.PhysicalDevice, &context.Device.Properties)
	context.Device.Properties.Deref()
	context.Device.Properties.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(context.Device.PhysicalDevice, &context.Device.Memory)
	context.Device.Memory.Deref()

	streams, err := newStreamDescriptors(context)
	if err != nil {
		return nil, err
	}
	return &Device{context: context, streams: streams}, nil
}

// NewHeadlessDevice creates an instance and a logical device with a single
// graphics queue and no surface.
func NewHeadlessDevice(appName string) (*Device, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, fmt.Errorf("vulkan loader: %w", err)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vulkan init: %w", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima Engine"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
		createInfo.EnabledExtensionCount = 1
		createInfo.PpEnabledExtensionNames = []string{VulkanSafeString("VK_KHR_portability_enumeration")}
	}

	context := &VulkanContext{Device: &VulkanDevice{}, ownsDevice: true}
	if err := check("create instance", vk.CreateInstance(&createInfo, context.Allocator, &context.Instance)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		return nil, fmt.Errorf("vulkan init instance: %w", err)
	}
	if err := selectPhysicalDevice(context); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		return nil, err
	}

	queuePriority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
	}
	if err := check("create device", vk.CreateDevice(context.Device.PhysicalDevice, &deviceInfo, context.Allocator, &context.Device.LogicalDevice)); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		return nil, err
	}
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.GraphicsQueueIndex, 0, &context.Device.GraphicsQueue)
	core.LogInfo("Headless Vulkan device created.")

	return NewDevice(context)
}

func selectPhysicalDevice(context *VulkanContext) error {
	var count uint32
	if err := check("enumerate physical devices", vk.EnumeratePhysicalDevices(context.Instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("enumerate physical devices", vk.EnumeratePhysicalDevices(context.Instance, &count, devices)); err != nil {
		return err
	}

	for _, pd := range devices {
		var familyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
		families := make([]vk.QueueFamilyProperties, familyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
		for i := range families {
			families[i].Deref()
			if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
				context.Device.PhysicalDevice = pd
				context.Device.GraphicsQueueIndex = uint32(i)
				return nil
			}
		}
	}
	return fmt.Errorf("no device with a graphics queue was found")
}

func (d *Device) Context() *VulkanContext {
	return d.context
}

func (d *Device) Alignment(t renderer.RenderBufferType) uint64 {
	limits := d.context.Device.Properties.Limits
	switch t {
	case renderer.RenderBufferTypeStorage:
		return uint64(limits.MinStorageBufferOffsetAlignment)
	case renderer.RenderBufferTypeUniform:
		return uint64(limits.MinUniformBufferOffsetAlignment)
	}
	return 4
}

func (d *Device) CreateBuffer(t renderer.RenderBufferType, size uint64) (renderer.Buffer, error) {
	return NewBuffer(d.context, t, size)
}

func (d *Device) CreateFence(signaled bool) (renderer.Fence, error) {
	return NewFence(d.context, signaled)
}

func (d *Device) BindStream(slot uint32, stream uint32, buffer renderer.Buffer, rng uint64) error {
	vb, ok := buffer.(*VulkanBuffer)
	if !ok {
		return fmt.Errorf("bind stream %d: foreign buffer %T", stream, buffer)
	}
	return d.streams.bind(slot, stream, vb, rng)
}

// StreamSet is the descriptor set holding the frame slot's dynamic stream
// bindings.
func (d *Device) StreamSet(slot uint32) vk.DescriptorSet {
	return d.streams.sets[slot%renderer.MaxFrameSlots]
}

func (d *Device) Submit(fence renderer.Fence) error {
	vf, ok := fence.(*VulkanFence)
	if !ok {
		return fmt.Errorf("submit: foreign fence %T", fence)
	}
	submit := vk.SubmitInfo{SType: vk.StructureTypeSubmitInfo}
	if err := check("queue submit", vk.QueueSubmit(d.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submit}, vf.Handle)); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}

func (d *Device) WaitIdle() error {
	return check("device wait idle", vk.DeviceWaitIdle(d.context.Device.LogicalDevice))
}

func (d *Device) Destroy() {
	if d.context.Device.LogicalDevice == nil {
		return
	}
	_ = d.WaitIdle()
	d.streams.destroy()
	if d.context.ownsDevice {
		vk.DestroyDevice(d.context.Device.LogicalDevice, d.context.Allocator)
		vk.DestroyInstance(d.context.Instance, d.context.Allocator)
	}
	d.context.Device.LogicalDevice = nil
}
