package vk

import (
	"testing"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

func TestToVkFormat(t *testing.T) {
	cases := map[rhi.Format]vulkan.Format{
		rhi.FormatR8G8B8A8Unorm:   vulkan.FormatR8g8b8a8Unorm,
		rhi.FormatB8G8R8A8Srgb:    vulkan.FormatB8g8r8a8Srgb,
		rhi.FormatR32G32B32Float:  vulkan.FormatR32g32b32Sfloat,
		rhi.FormatR32G32Float:     vulkan.FormatR32g32Sfloat,
		rhi.FormatD32Float:        vulkan.FormatD32Sfloat,
		rhi.FormatUndefined:       vulkan.FormatUndefined,
		rhi.Format(0xFFFF):        vulkan.FormatUndefined,
	}
	for in, want := range cases {
		if got := toVkFormat(in); got != want {
			t.Errorf("toVkFormat(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestToVkImageLayout(t *testing.T) {
	cases := map[rhi.ImageLayout]vulkan.ImageLayout{
		rhi.LayoutUnknown:        vulkan.ImageLayoutUndefined,
		rhi.LayoutTransferDst:    vulkan.ImageLayoutTransferDstOptimal,
		rhi.LayoutShaderResource: vulkan.ImageLayoutShaderReadOnlyOptimal,
		rhi.LayoutRenderTarget:   vulkan.ImageLayoutColorAttachmentOptimal,
		rhi.LayoutPresent:        vulkan.ImageLayoutPresentSrc,
	}
	for in, want := range cases {
		if got := toVkImageLayout(in); got != want {
			t.Errorf("toVkImageLayout(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestToVkBufferUsageCombinesBits(t *testing.T) {
	u := rhi.BufferUsageVertex | rhi.BufferUsageTransferDst
	got := toVkBufferUsage(u)
	want := vulkan.BufferUsageFlags(vulkan.BufferUsageVertexBufferBit | vulkan.BufferUsageTransferDstBit)
	if got != want {
		t.Errorf("toVkBufferUsage(%v) = %v, want %v", u, got, want)
	}
}

func TestToVkImageUsageCombinesBits(t *testing.T) {
	u := rhi.ImageUsageColorAttachment | rhi.ImageUsageSampled
	got := toVkImageUsage(u)
	want := vulkan.ImageUsageFlags(vulkan.ImageUsageColorAttachmentBit | vulkan.ImageUsageSampledBit)
	if got != want {
		t.Errorf("toVkImageUsage(%v) = %v, want %v", u, got, want)
	}
}

func TestToVkPipelineStageCombinesBits(t *testing.T) {
	s := rhi.StageTransfer | rhi.StageFragmentShader
	got := toVkPipelineStage(s)
	want := vulkan.PipelineStageFlags(vulkan.PipelineStageTransferBit | vulkan.PipelineStageFragmentShaderBit)
	if got != want {
		t.Errorf("toVkPipelineStage(%v) = %v, want %v", s, got, want)
	}
}

func TestToVkAccessCombinesBits(t *testing.T) {
	a := rhi.AccessTransferWrite | rhi.AccessShaderRead
	got := toVkAccess(a)
	want := vulkan.AccessFlags(vulkan.AccessTransferWriteBit | vulkan.AccessShaderReadBit)
	if got != want {
		t.Errorf("toVkAccess(%v) = %v, want %v", a, got, want)
	}
}
