package vk

import (
	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

func toVkFormat(f rhi.Format) vulkan.Format {
	switch f {
	case rhi.FormatR8G8B8A8Unorm:
		return vulkan.FormatR8g8b8a8Unorm
	case rhi.FormatB8G8R8A8Srgb:
		return vulkan.FormatB8g8r8a8Srgb
	case rhi.FormatR32G32B32Float:
		return vulkan.FormatR32g32b32Sfloat
	case rhi.FormatR32G32Float:
		return vulkan.FormatR32g32Sfloat
	case rhi.FormatD32Float:
		return vulkan.FormatD32Sfloat
	default:
		return vulkan.FormatUndefined
	}
}

func toVkImageLayout(l rhi.ImageLayout) vulkan.ImageLayout {
	switch l {
	case rhi.LayoutUnknown:
		return vulkan.ImageLayoutUndefined
	case rhi.LayoutTransferDst:
		return vulkan.ImageLayoutTransferDstOptimal
	case rhi.LayoutShaderResource:
		return vulkan.ImageLayoutShaderReadOnlyOptimal
	case rhi.LayoutRenderTarget:
		return vulkan.ImageLayoutColorAttachmentOptimal
	case rhi.LayoutPresent:
		return vulkan.ImageLayoutPresentSrc
	default:
		return vulkan.ImageLayoutUndefined
	}
}

func toVkAccess(a rhi.Access) vulkan.AccessFlags {
	var out vulkan.AccessFlagBits
	if a&rhi.AccessTransferWrite != 0 {
		out |= vulkan.AccessTransferWriteBit
	}
	if a&rhi.AccessShaderRead != 0 {
		out |= vulkan.AccessShaderReadBit
	}
	if a&rhi.AccessColorAttachmentWrite != 0 {
		out |= vulkan.AccessColorAttachmentWriteBit
	}
	return vulkan.AccessFlags(out)
}

func toVkPipelineStage(s rhi.PipelineStage) vulkan.PipelineStageFlags {
	var out vulkan.PipelineStageFlagBits
	if s&rhi.StageTop != 0 {
		out |= vulkan.PipelineStageTopOfPipeBit
	}
	if s&rhi.StageTransfer != 0 {
		out |= vulkan.PipelineStageTransferBit
	}
	if s&rhi.StageFragmentShader != 0 {
		out |= vulkan.PipelineStageFragmentShaderBit
	}
	if s&rhi.StageColorAttachmentOutput != 0 {
		out |= vulkan.PipelineStageColorAttachmentOutputBit
	}
	if s&rhi.StageBottom != 0 {
		out |= vulkan.PipelineStageBottomOfPipeBit
	}
	return vulkan.PipelineStageFlags(out)
}

func toVkBufferUsage(u rhi.BufferUsage) vulkan.BufferUsageFlags {
	var out vulkan.BufferUsageFlagBits
	if u&rhi.BufferUsageVertex != 0 {
		out |= vulkan.BufferUsageVertexBufferBit
	}
	if u&rhi.BufferUsageIndex != 0 {
		out |= vulkan.BufferUsageIndexBufferBit
	}
	if u&rhi.BufferUsageConstant != 0 {
		out |= vulkan.BufferUsageUniformBufferBit
	}
	if u&rhi.BufferUsageStorage != 0 {
		out |= vulkan.BufferUsageStorageBufferBit
	}
	if u&rhi.BufferUsageTransferSrc != 0 {
		out |= vulkan.BufferUsageTransferSrcBit
	}
	if u&rhi.BufferUsageTransferDst != 0 {
		out |= vulkan.BufferUsageTransferDstBit
	}
	if u&rhi.BufferUsageIndirect != 0 {
		out |= vulkan.BufferUsageIndirectBufferBit
	}
	return vulkan.BufferUsageFlags(out)
}

func toVkImageUsage(u rhi.ImageUsage) vulkan.ImageUsageFlags {
	var out vulkan.ImageUsageFlagBits
	if u&rhi.ImageUsageTransferSrc != 0 {
		out |= vulkan.ImageUsageTransferSrcBit
	}
	if u&rhi.ImageUsageTransferDst != 0 {
		out |= vulkan.ImageUsageTransferDstBit
	}
	if u&rhi.ImageUsageColorAttachment != 0 {
		out |= vulkan.ImageUsageColorAttachmentBit
	}
	if u&rhi.ImageUsageDepthStencilAttachment != 0 {
		out |= vulkan.ImageUsageDepthStencilAttachmentBit
	}
	if u&rhi.ImageUsageSampled != 0 {
		out |= vulkan.ImageUsageSampledBit
	}
	if u&rhi.ImageUsageInputAttachment != 0 {
		out |= vulkan.ImageUsageInputAttachmentBit
	}
	return vulkan.ImageUsageFlags(out)
}
