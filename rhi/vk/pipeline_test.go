package vk

import (
	"testing"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

func TestToVkTopology(t *testing.T) {
	cases := map[rhi.Topology]vulkan.PrimitiveTopology{
		rhi.TopologyTriangleList:  vulkan.PrimitiveTopologyTriangleList,
		rhi.TopologyTriangleStrip: vulkan.PrimitiveTopologyTriangleStrip,
		rhi.TopologyLineList:      vulkan.PrimitiveTopologyLineList,
		rhi.TopologyPointList:     vulkan.PrimitiveTopologyPointList,
	}
	for in, want := range cases {
		if got := toVkTopology(in); got != want {
			t.Errorf("toVkTopology(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestToVkCullMode(t *testing.T) {
	if got := toVkCullMode(rhi.CullNone); got != vulkan.CullModeNone {
		t.Errorf("CullNone = %v, want CullModeNone", got)
	}
	if got := toVkCullMode(rhi.CullBack); got != vulkan.CullModeBackBit {
		t.Errorf("CullBack = %v, want CullModeBackBit", got)
	}
}

func TestToVkCompareOp(t *testing.T) {
	cases := map[rhi.CompareOp]vulkan.CompareOp{
		rhi.CompareAlways:       vulkan.CompareOpAlways,
		rhi.CompareLess:         vulkan.CompareOpLess,
		rhi.CompareLessEqual:    vulkan.CompareOpLessOrEqual,
		rhi.CompareGreater:      vulkan.CompareOpGreater,
		rhi.CompareGreaterEqual: vulkan.CompareOpGreaterOrEqual,
		rhi.CompareEqual:        vulkan.CompareOpEqual,
		rhi.CompareNever:        vulkan.CompareOpNever,
	}
	for in, want := range cases {
		if got := toVkCompareOp(in); got != want {
			t.Errorf("toVkCompareOp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[rhi.Format]uint32{
		rhi.FormatR32G32Float:    8,
		rhi.FormatR32G32B32Float: 12,
		rhi.FormatR8G8B8A8Unorm:  4,
		rhi.FormatB8G8R8A8Srgb:   4,
		rhi.FormatD32Float:       4,
		rhi.FormatUndefined:      0,
	}
	for in, want := range cases {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestBoolToUint(t *testing.T) {
	if boolToUint(true) != 1 {
		t.Error("boolToUint(true) != 1")
	}
	if boolToUint(false) != 0 {
		t.Error("boolToUint(false) != 0")
	}
}
