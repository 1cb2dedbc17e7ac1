package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-engine/engine/core"
)

var resultNames = map[vk.Result]string{
	vk.Success:                   "VK_SUCCESS",
	vk.NotReady:                  "VK_NOT_READY",
	vk.Timeout:                   "VK_TIMEOUT",
	vk.Incomplete:                "VK_INCOMPLETE",
	vk.ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	vk.ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	vk.ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	vk.ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	vk.ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	vk.ErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	vk.ErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	vk.ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	vk.ErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	vk.ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	vk.ErrorFragmentedPool:       "VK_ERROR_FRAGMENTED_POOL",
	vk.ErrorOutOfPoolMemory:      "VK_ERROR_OUT_OF_POOL_MEMORY",
	vk.ErrorUnknown:              "VK_ERROR_UNKNOWN",
}

func VulkanResultString(result vk.Result) string {
	if s, ok := resultNames[result]; ok {
		return s
	}
	return fmt.Sprintf("VkResult(%d)", int32(result))
}

// resultError wraps a failed call. Device loss unwraps to core.ErrDeviceLost.
type resultError struct {
	op     string
	result vk.Result
}

func (e *resultError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, VulkanResultString(e.result))
}

func (e *resultError) Unwrap() error {
	if e.result == vk.ErrorDeviceLost {
		return core.ErrDeviceLost
	}
	return nil
}

// check logs and wraps a non-success result.
func check(op string, result vk.Result) error {
	if result == vk.Success {
		return nil
	}
	err := &resultError{op: op, result: result}
	core.LogError(err.Error())
	return err
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}
