// Package rhi implements the backend-agnostic core of a cross-backend
// render hardware interface: generational resource handles, a pooled
// allocator for typed resources, a recorded command list with its
// legality state machine, the image layout transition table, and a
// per-frame orchestrator tying a device, a queue and a swapchain
// together.
package rhi

import "fmt"

// HandleKind tags a Handle with the resource type it refers to, so a
// Handle can identify itself in diagnostics without a side table.
type HandleKind uint8

const (
	KindBuffer HandleKind = iota
	KindImage
	KindImageView
	KindSampler
	KindPipeline
	KindPipelineLayout
	KindBindGroupLayout
	KindBindGroup
	KindShaderModule
	KindSemaphore
	KindFence
	KindCommandList
	KindSwapchain
	KindDescriptorPool
)

func (k HandleKind) String() string {
	switch k {
	case KindBuffer:
		return "Buffer"
	case KindImage:
		return "Image"
	case KindImageView:
		return "ImageView"
	case KindSampler:
		return "Sampler"
	case KindPipeline:
		return "Pipeline"
	case KindPipelineLayout:
		return "PipelineLayout"
	case KindBindGroupLayout:
		return "BindGroupLayout"
	case KindBindGroup:
		return "BindGroup"
	case KindShaderModule:
		return "ShaderModule"
	case KindSemaphore:
		return "Semaphore"
	case KindFence:
		return "Fence"
	case KindCommandList:
		return "CommandList"
	case KindSwapchain:
		return "Swapchain"
	case KindDescriptorPool:
		return "DescriptorPool"
	default:
		return "Unknown"
	}
}

// Handle is a generational reference into a ResourcePool: Index selects
// a slot, Generation guards against using a handle whose slot has since
// been recycled for a different resource. The zero Handle is never
// valid (generation 0 is never issued by a pool).
type Handle struct {
	Kind       HandleKind
	Index      uint32
	Generation uint32
}

// Valid reports whether h could possibly refer to a live resource. It
// does not consult any pool; Generation 0 is reserved to mark "no
// handle" so a zero-valued Handle is always invalid.
func (h Handle) Valid() bool {
	return h.Generation != 0
}

// Pack encodes the handle as a single 64-bit value with the index in
// the lower 32 bits and the generation in the upper 32 bits, as named
// in the data model.
func (h Handle) Pack() uint64 {
	return uint64(h.Index) | uint64(h.Generation)<<32
}

// UnpackHandle decodes a packed 64-bit value produced by Pack back into an
// index/generation pair, tagging it with kind (the kind is not part of
// the packed representation, matching the per-kind pool layout).
func UnpackHandle(kind HandleKind, packed uint64) Handle {
	return Handle{
		Kind:       kind,
		Index:      uint32(packed & 0xFFFFFFFF),
		Generation: uint32(packed >> 32),
	}
}

func (h Handle) String() string {
	return fmt.Sprintf("%s{%d,%d}", h.Kind, h.Index, h.Generation)
}
