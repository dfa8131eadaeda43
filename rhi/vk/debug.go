package vk

import (
	"unsafe"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// dbgCallback adapts the Vulkan debug report sink to rhi's structured
// logger, mapping VK_EXT_debug_report severities onto rhi.Logger's
// slog levels. When breakOnError is set, an error-level report panics
// instead of merely logging, useful while iterating under validation.
func dbgCallback(breakOnError bool) func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vulkan.Bool32 {
	return func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType,
		object uint64, location uint, messageCode int32, pLayerPrefix string,
		pMessage string, pUserData unsafe.Pointer) vulkan.Bool32 {

		log := rhi.Logger()
		switch {
		case flags&vulkan.DebugReportFlags(vulkan.DebugReportErrorBit) != 0:
			log.Error("vulkan validation", "layer", pLayerPrefix, "code", messageCode, "message", pMessage)
			if breakOnError {
				panic(pMessage)
			}
		case flags&vulkan.DebugReportFlags(vulkan.DebugReportWarningBit) != 0:
			log.Warn("vulkan validation", "layer", pLayerPrefix, "code", messageCode, "message", pMessage)
		case flags&vulkan.DebugReportFlags(vulkan.DebugReportPerformanceWarningBit) != 0:
			log.Warn("vulkan performance", "layer", pLayerPrefix, "code", messageCode, "message", pMessage)
		case flags&vulkan.DebugReportFlags(vulkan.DebugReportDebugBit) != 0:
			log.Debug("vulkan validation", "layer", pLayerPrefix, "code", messageCode, "message", pMessage)
		default:
			log.Info("vulkan validation", "layer", pLayerPrefix, "code", messageCode, "message", pMessage)
		}
		return vulkan.Bool32(vulkan.False)
	}
}
