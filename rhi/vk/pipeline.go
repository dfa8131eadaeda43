package vk

import (
	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

func toVkTopology(t rhi.Topology) vulkan.PrimitiveTopology {
	switch t {
	case rhi.TopologyTriangleStrip:
		return vulkan.PrimitiveTopologyTriangleStrip
	case rhi.TopologyLineList:
		return vulkan.PrimitiveTopologyLineList
	case rhi.TopologyPointList:
		return vulkan.PrimitiveTopologyPointList
	default:
		return vulkan.PrimitiveTopologyTriangleList
	}
}

func toVkCullMode(c rhi.CullMode) vulkan.CullModeFlagBits {
	switch c {
	case rhi.CullFront:
		return vulkan.CullModeFrontBit
	case rhi.CullBack:
		return vulkan.CullModeBackBit
	default:
		return vulkan.CullModeNone
	}
}

func toVkFrontFace(f rhi.FrontFace) vulkan.FrontFace {
	if f == rhi.FrontFaceClockwise {
		return vulkan.FrontFaceClockwise
	}
	return vulkan.FrontFaceCounterClockwise
}

func toVkCompareOp(c rhi.CompareOp) vulkan.CompareOp {
	switch c {
	case rhi.CompareLess:
		return vulkan.CompareOpLess
	case rhi.CompareLessEqual:
		return vulkan.CompareOpLessOrEqual
	case rhi.CompareGreater:
		return vulkan.CompareOpGreater
	case rhi.CompareGreaterEqual:
		return vulkan.CompareOpGreaterOrEqual
	case rhi.CompareEqual:
		return vulkan.CompareOpEqual
	case rhi.CompareNever:
		return vulkan.CompareOpNever
	default:
		return vulkan.CompareOpAlways
	}
}

// CreateGraphicsPipeline builds a VkPipeline configured for dynamic
// rendering (VkPipelineRenderingCreateInfo in the PNext chain) instead
// of the teacher's VkRenderPass/subpass-bound pipeline, generalized
// from the teacher's PipelineBuilder's hardcoded 2-stage/no-blend
// triangle setup to the full descriptor surface.
func (d *Device) CreateGraphicsPipeline(desc rhi.GraphicsPipelineDesc) (rhi.Handle, error) {
	layoutRes, ok := d.pipelineLayouts.Get(desc.Layout)
	if !ok {
		return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateGraphicsPipeline", nil)
	}

	vsMod, ok := d.shaderModules.Get(desc.VertexStage.Module)
	if !ok {
		return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateGraphicsPipeline", nil)
	}
	fsMod, ok := d.shaderModules.Get(desc.FragmentStage.Module)
	if !ok {
		return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateGraphicsPipeline", nil)
	}

	stages := []vulkan.PipelineShaderStageCreateInfo{
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageVertexBit,
			Module: vsMod.module,
			PName:  safeString(desc.VertexStage.EntryPoint),
		},
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: fsMod.module,
			PName:  safeString(desc.FragmentStage.EntryPoint),
		},
	}

	var bindings []vulkan.VertexInputBindingDescription
	var attrs []vulkan.VertexInputAttributeDescription
	for bi, vb := range desc.VertexBindings {
		rate := vulkan.VertexInputRateVertex
		if vb.InputRate == rhi.InputRateInstance {
			rate = vulkan.VertexInputRateInstance
		}
		bindings = append(bindings, vulkan.VertexInputBindingDescription{
			Binding:   uint32(bi),
			Stride:    vb.Stride,
			InputRate: rate,
		})
		offset := uint32(0)
		for ai, attr := range vb.Attributes {
			off := attr.Offset
			if off == 0 {
				off = offset
			}
			attrs = append(attrs, vulkan.VertexInputAttributeDescription{
				Location: uint32(ai),
				Binding:  uint32(bi),
				Format:   toVkFormat(attr.Format),
				Offset:   off,
			})
			offset += formatSize(attr.Format)
		}
	}

	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	inputAssembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:    vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: toVkTopology(desc.Topology),
	}

	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	polygonMode := vulkan.PolygonModeFill
	if !desc.Rasterizer.Fill {
		polygonMode = vulkan.PolygonModeLine
	}
	rasterizer := vulkan.PipelineRasterizationStateCreateInfo{
		SType:       vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: polygonMode,
		CullMode:    vulkan.CullModeFlags(toVkCullMode(desc.Rasterizer.Cull)),
		FrontFace:   toVkFrontFace(desc.Rasterizer.FrontFace),
		LineWidth:   1.0,
	}

	multisample := vulkan.PipelineMultisampleStateCreateInfo{
		SType:               vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vulkan.SampleCount1Bit,
	}

	depthStencil := vulkan.PipelineDepthStencilStateCreateInfo{
		SType:            vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vulkan.Bool32(boolToUint(desc.DepthStencil.DepthTestEnable)),
		DepthWriteEnable: vulkan.Bool32(boolToUint(desc.DepthStencil.DepthWriteEnable)),
		DepthCompareOp:   toVkCompareOp(desc.DepthStencil.DepthCompare),
	}

	blendAttachments := make([]vulkan.PipelineColorBlendAttachmentState, len(desc.RenderTargetFormats))
	if len(blendAttachments) == 0 {
		blendAttachments = make([]vulkan.PipelineColorBlendAttachmentState, 1)
	}
	for i := range blendAttachments {
		enable := false
		if i < len(desc.BlendStates) {
			enable = desc.BlendStates[i].Enable
		}
		blendAttachments[i] = vulkan.PipelineColorBlendAttachmentState{
			BlendEnable: vulkan.Bool32(boolToUint(enable)),
			ColorWriteMask: vulkan.ColorComponentFlags(vulkan.ColorComponentRBit | vulkan.ColorComponentGBit |
				vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
		}
	}
	colorBlend := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vulkan.DynamicState{vulkan.DynamicStateViewport, vulkan.DynamicStateScissor}
	dynamicState := vulkan.PipelineDynamicStateCreateInfo{
		SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	colorFormats := make([]vulkan.Format, len(desc.RenderTargetFormats))
	for i, f := range desc.RenderTargetFormats {
		colorFormats[i] = toVkFormat(f)
	}
	renderingInfo := vulkan.PipelineRenderingCreateInfo{
		SType:                   vulkan.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    uint32(len(colorFormats)),
		PColorAttachmentFormats: colorFormats,
		DepthAttachmentFormat:   toVkFormat(desc.DepthFormat),
	}

	createInfo := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafePointer(&renderingInfo),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layoutRes.layout,
	}

	pipelines := make([]vulkan.Pipeline, 1)
	ret := vulkan.CreateGraphicsPipelines(d.handle, vulkan.NullPipelineCache, 1,
		[]vulkan.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines)
	if err := checkResult("CreateGraphicsPipeline", ret); err != nil {
		return rhi.Handle{}, err
	}

	return d.pipelines.Insert(pipelineResource{pipeline: pipelines[0], layout: desc.Layout, desc: desc}), nil
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// formatSize returns the packed byte size of a vertex attribute
// format, used to auto-pack attribute offsets left unset in a
// VertexBinding.
func formatSize(f rhi.Format) uint32 {
	switch f {
	case rhi.FormatR32G32Float:
		return 8
	case rhi.FormatR32G32B32Float:
		return 12
	case rhi.FormatR8G8B8A8Unorm, rhi.FormatB8G8R8A8Srgb:
		return 4
	case rhi.FormatD32Float:
		return 4
	default:
		return 0
	}
}
