// Package vk implements the rhi interfaces on top of Vulkan 1.2 with
// dynamic rendering, via github.com/vulkan-go/vulkan.
package vk

import (
	"fmt"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

func isError(ret vulkan.Result) bool {
	return ret != vulkan.Success
}

// checkResult classifies a vulkan.Result into the rhi.Error taxonomy
// for operation op. It returns nil on vulkan.Success.
func checkResult(op string, ret vulkan.Result) error {
	switch ret {
	case vulkan.Success:
		return nil
	case vulkan.ErrorOutOfHostMemory, vulkan.ErrorOutOfDeviceMemory:
		return rhi.NewError(rhi.OutOfMemory, op, fmt.Errorf("vulkan result %d", ret))
	case vulkan.ErrorDeviceLost:
		return rhi.NewError(rhi.DeviceLost, op, fmt.Errorf("vulkan result %d", ret))
	case vulkan.ErrorExtensionNotPresent, vulkan.ErrorFeatureNotPresent, vulkan.ErrorIncompatibleDriver:
		return rhi.NewError(rhi.Unsupported, op, fmt.Errorf("vulkan result %d", ret))
	default:
		return rhi.NewDriverError(op, int64(ret), fmt.Errorf("vulkan result %d", ret))
	}
}
