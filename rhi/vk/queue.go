package vk

import (
	"context"
	"fmt"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// Queue is one per-family ordered submission channel, grounded on the
// teacher's CoreQueue/submit_pipeline but generalized to an arbitrary
// set of CommandLists and explicit wait/signal semaphores instead of
// one hardcoded image-acquired/queue-complete pair.
type Queue struct {
	device *Device
	family uint32
	queue  vulkan.Queue

	pendingWaits   []vulkan.Semaphore
	pendingSignals []vulkan.Semaphore
}

func newQueue(d *Device, family uint32) *Queue {
	var q vulkan.Queue
	vulkan.GetDeviceQueue(d.handle, family, 0, &q)
	return &Queue{device: d, family: family, queue: q}
}

func (q *Queue) Wait(semaphore rhi.Handle) {
	res, ok := q.device.semaphores.Get(semaphore)
	if !ok {
		return
	}
	q.pendingWaits = append(q.pendingWaits, res.semaphore)
}

func (q *Queue) Signal(semaphore rhi.Handle) {
	res, ok := q.device.semaphores.Get(semaphore)
	if !ok {
		return
	}
	q.pendingSignals = append(q.pendingSignals, res.semaphore)
}

// commandBuffersFor allocates one primary VkCommandBuffer per list from
// its owning allocator's pool and records it, returning the buffers in
// submission order.
func (q *Queue) commandBuffersFor(lists []*rhi.CommandList) ([]vulkan.CommandBuffer, error) {
	buffers := make([]vulkan.CommandBuffer, len(lists))
	for i, list := range lists {
		if list.State() != rhi.StateRecorded {
			return nil, rhi.NewError(rhi.InvalidArgument, "Submit", fmt.Errorf("command list %s is not in the Recorded state", list.Handle()))
		}
		if err := list.Err(); err != nil {
			return nil, err
		}
		pool, ok := q.device.commandPool(list.Allocator())
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Submit", fmt.Errorf("command list %s has no backing command pool", list.Handle()))
		}

		bufs := make([]vulkan.CommandBuffer, 1)
		ret := vulkan.AllocateCommandBuffers(q.device.handle, &vulkan.CommandBufferAllocateInfo{
			SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        pool,
			Level:              vulkan.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}, bufs)
		if err := checkResult("Submit.AllocateCommandBuffers", ret); err != nil {
			return nil, err
		}

		if err := q.device.record(bufs[0], list); err != nil {
			return nil, err
		}
		buffers[i] = bufs[0]
	}
	return buffers, nil
}

// Submit flushes the pending waits/signals set by Wait/Signal along
// with lists, signaling signalFence (which may be the zero Handle).
func (q *Queue) Submit(ctx context.Context, lists []*rhi.CommandList, signalFence rhi.Handle) error {
	buffers, err := q.commandBuffersFor(lists)
	if err != nil {
		return err
	}

	var fence vulkan.Fence
	if signalFence.Valid() {
		res, ok := q.device.fences.Get(signalFence)
		if !ok {
			return rhi.NewError(rhi.InvalidArgument, "Submit", fmt.Errorf("unknown fence handle %s", signalFence))
		}
		fence = res.fence
	}

	waitStages := make([]vulkan.PipelineStageFlags, len(q.pendingWaits))
	for i := range waitStages {
		waitStages[i] = vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)
	}

	ret := vulkan.QueueSubmit(q.queue, 1, []vulkan.SubmitInfo{{
		SType:                vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(q.pendingWaits)),
		PWaitSemaphores:      q.pendingWaits,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(q.pendingSignals)),
		PSignalSemaphores:    q.pendingSignals,
	}}, fence)

	q.pendingWaits = nil
	q.pendingSignals = nil

	return checkResult("Submit", ret)
}

// SubmitImmediate submits lists on a transient fence and blocks until
// it signals, grounded on the teacher's flushInitCmd one-shot pattern
// (context.go, referenced via DESIGN.md) used for upload commands that
// must complete before the caller proceeds.
func (q *Queue) SubmitImmediate(ctx context.Context, lists []*rhi.CommandList) error {
	buffers, err := q.commandBuffersFor(lists)
	if err != nil {
		return err
	}

	var fence vulkan.Fence
	ret := vulkan.CreateFence(q.device.handle, &vulkan.FenceCreateInfo{SType: vulkan.StructureTypeFenceCreateInfo}, nil, &fence)
	if err := checkResult("SubmitImmediate.CreateFence", ret); err != nil {
		return err
	}
	defer vulkan.DestroyFence(q.device.handle, fence, nil)

	waitStages := make([]vulkan.PipelineStageFlags, len(q.pendingWaits))
	for i := range waitStages {
		waitStages[i] = vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit)
	}

	ret = vulkan.QueueSubmit(q.queue, 1, []vulkan.SubmitInfo{{
		SType:                vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(q.pendingWaits)),
		PWaitSemaphores:      q.pendingWaits,
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(q.pendingSignals)),
		PSignalSemaphores:    q.pendingSignals,
	}}, fence)

	q.pendingWaits = nil
	q.pendingSignals = nil

	if err := checkResult("SubmitImmediate", ret); err != nil {
		return err
	}

	ret = vulkan.WaitForFences(q.device.handle, 1, []vulkan.Fence{fence}, vulkan.True, vulkan.MaxUint64)
	return checkResult("SubmitImmediate.Wait", ret)
}
