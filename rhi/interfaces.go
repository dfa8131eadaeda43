package rhi

import "context"

// Adapter is a logical GPU exposed by an Instance's enumeration.
type Adapter interface {
	Describe() AdapterDesc
}

// Instance owns the driver instance and enumerates adapters. A backend
// constructs a concrete Instance (see rhi/vk.NewInstance) and the
// application layer is expected to depend only on this interface.
type Instance interface {
	EnumerateAdapters() ([]AdapterDesc, error)
	CreateDevice(ctx context.Context, adapterIndex uint32) (Device, error)
	Close() error
}

// Device owns the logical device, a memory allocator, one Queue per
// distinct family, and every ResourcePool. Every mutating method takes
// a descriptor struct by value and returns a typed Handle.
type Device interface {
	DeviceWaiter

	CreateBindGroupLayout(desc BindGroupLayoutDesc) (Handle, error)
	CreateBindGroup(desc BindGroupDesc) (Handle, error)
	CreateBuffer(desc BufferDesc) (Handle, error)
	CreateImage(desc ImageDesc) (Handle, error)
	CreateImageView(desc ImageViewDesc) (Handle, error)
	CreateSampler(desc SamplerDesc) (Handle, error)
	CreatePipelineLayout(desc PipelineLayoutDesc) (Handle, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Handle, error)
	CreateShaderModule(src []byte) (Handle, error)
	CreateFence(desc FenceDesc) (Handle, error)
	CreateSemaphore() (Handle, error)
	CreateCommandAllocator() (*CommandAllocator, error)

	// Destroy places handle's driver object on the deferred deletion
	// queue keyed by the current frame index; real release happens in
	// a later FlushDeferred call, once that frame index is old enough.
	Destroy(handle Handle) error

	// FlushDeferred advances the frame index and releases every driver
	// object whose deferred deletion is now safe. The caller runs it
	// once per frame; FrameOrchestrator does not call it and does not
	// tie it to any fence.
	FlushDeferred() error

	// Map returns a byte slice backing a host-visible buffer. A second
	// Map without an intervening Unmap is an error.
	Map(buffer Handle) ([]byte, error)
	Unmap(buffer Handle) error

	Queue(family QueueFamily) (Queue, error)

	// CreateSwapchain builds a Swapchain bound to the given platform
	// surface. surface is an opaque backend-specific handle supplied by
	// an external collaborator (see rhi/glfwsurface).
	CreateSwapchain(surface PlatformSurface, desc SwapchainDesc) (Swapchain, error)
}

// PlatformSurface is an opaque platform-native surface handle, e.g. a
// Win32 instance+window pair or a Vulkan VkSurfaceKHR. The core does
// not define its internal shape; a backend type-asserts it to its own
// concrete surface type.
type PlatformSurface struct {
	Backend any
}

// QueueFamily selects which of a Device's queues an operation targets.
type QueueFamily uint8

const (
	QueueGraphics QueueFamily = iota
	QueueTransfer
	QueueCompute
)

// Queue is one per-family ordered submission channel.
type Queue interface {
	// Wait enqueues a wait on semaphore before the next Submit or
	// SubmitImmediate.
	Wait(semaphore Handle)
	// Signal enqueues a signal of semaphore after the next Submit or
	// SubmitImmediate.
	Signal(semaphore Handle)
	// Submit flushes the pending waits/signals along with lists.
	// signalFence may be the zero Handle.
	Submit(ctx context.Context, lists []*CommandList, signalFence Handle) error
	// SubmitImmediate submits and blocks until a transient fence
	// signals.
	SubmitImmediate(ctx context.Context, lists []*CommandList) error
}

// Swapchain holds the platform surface and a ring of driver-owned
// images.
type Swapchain interface {
	// CurrentImageIndex lazily acquires a new image from the driver
	// the first time it is called after Present.
	CurrentImageIndex(ctx context.Context) (uint32, error)
	GetImage(index uint32) (Handle, error)
	Resize(ctx context.Context, desc SwapchainDesc) error
	// Present queues the current image, waiting on renderDone before the
	// presentation engine reads it (the step 7 "present, waiting on
	// render_done" rule).
	Present(ctx context.Context, renderDone Handle) error
}
