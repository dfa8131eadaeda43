package rhi

import (
	"context"
	"fmt"
)

// DeferredDelete is one driver object release deferred until the frame
// it was retired during has fully retired.
type DeferredDelete struct {
	Handle Handle
	Free   func()
}

// DeviceWaiter is the subset of Device a FrameOrchestrator needs to
// block on host-visible completion. A backend's Device implements this.
type DeviceWaiter interface {
	WaitForFence(ctx context.Context, fence Handle) error
	ResetFence(fence Handle) error
}

// frameRecord is one slot of the orchestrator's ring, matching
// {command_allocator, fence, image_available_sem, render_done_sem,
// deferred_delete_bucket}.
type frameRecord struct {
	allocator        *CommandAllocator
	fence            Handle
	imageAvailable   Handle
	renderDone       Handle
	deferredDeletes  []DeferredDelete
	submitted        bool // true once a submit has used this slot's fence at least once
}

// FrameOrchestrator holds a ring of framesInFlight per-frame records
// and drives the 7-step per-frame sequence: advance, wait+reset fence,
// drain deferred deletes, reset allocator, (caller records+submits),
// submit with wait/signal semaphores, present.
type FrameOrchestrator struct {
	device  DeviceWaiter
	frames  []frameRecord
	current int
}

// NewFrameOrchestrator builds an orchestrator over framesInFlight
// frame records, each given its own command allocator and sync
// primitives by the caller (a backend Device constructs the fences
// and semaphores and wires them in).
func NewFrameOrchestrator(device DeviceWaiter, allocators []*CommandAllocator, fences, imageAvailable, renderDone []Handle) (*FrameOrchestrator, error) {
	n := len(allocators)
	if len(fences) != n || len(imageAvailable) != n || len(renderDone) != n {
		return nil, NewError(InvalidArgument, "NewFrameOrchestrator", fmt.Errorf("mismatched ring lengths"))
	}
	if n == 0 {
		return nil, NewError(InvalidArgument, "NewFrameOrchestrator", fmt.Errorf("frames_in_flight must be > 0"))
	}
	frames := make([]frameRecord, n)
	for i := range frames {
		frames[i] = frameRecord{
			allocator:      allocators[i],
			fence:          fences[i],
			imageAvailable: imageAvailable[i],
			renderDone:     renderDone[i],
		}
	}
	return &FrameOrchestrator{device: device, frames: frames, current: -1}, nil
}

// FramesInFlight reports the constant ring size N.
func (f *FrameOrchestrator) FramesInFlight() int { return len(f.frames) }

// Current returns the index of the frame record currently being
// prepared, valid after BeginFrame.
func (f *FrameOrchestrator) Current() int { return f.current }

// BeginFrame runs steps 1-4 of the per-frame sequence: advances the
// ring index, waits on and resets that slot's fence (if it has been
// used by a prior submit), drains its deferred-delete bucket, and
// resets its command allocator. It returns the allocator the caller
// should record this frame's commands into, plus the image-available
// and render-done semaphore handles to use for step 6.
func (f *FrameOrchestrator) BeginFrame(ctx context.Context) (alloc *CommandAllocator, imageAvailable, renderDone Handle, err error) {
	f.current = (f.current + 1) % len(f.frames)
	fr := &f.frames[f.current]

	if fr.submitted {
		if err := f.device.WaitForFence(ctx, fr.fence); err != nil {
			return nil, Handle{}, Handle{}, err
		}
		if err := f.device.ResetFence(fr.fence); err != nil {
			return nil, Handle{}, Handle{}, err
		}
	}

	for _, d := range fr.deferredDeletes {
		if d.Free != nil {
			d.Free()
		}
	}
	fr.deferredDeletes = fr.deferredDeletes[:0]

	fr.allocator.Reset()

	return fr.allocator, fr.imageAvailable, fr.renderDone, nil
}

// DeferDelete adds a release to the current frame's deferred-delete
// bucket, to be run the next time this ring slot comes back around in
// BeginFrame (i.e. once frames_in_flight frames have passed, so no
// in-flight submission can still reference the resource).
func (f *FrameOrchestrator) DeferDelete(handle Handle, free func()) error {
	if f.current < 0 {
		return NewError(InvalidArgument, "FrameOrchestrator.DeferDelete", fmt.Errorf("no frame is active"))
	}
	fr := &f.frames[f.current]
	fr.deferredDeletes = append(fr.deferredDeletes, DeferredDelete{Handle: handle, Free: free})
	return nil
}

// MarkSubmitted records that the current frame's fence has been handed
// to a submit call, so the next time this slot is reused BeginFrame
// knows to wait on it.
func (f *FrameOrchestrator) MarkSubmitted() error {
	if f.current < 0 {
		return NewError(InvalidArgument, "FrameOrchestrator.MarkSubmitted", fmt.Errorf("no frame is active"))
	}
	f.frames[f.current].submitted = true
	return nil
}

// Fence returns the current frame's fence handle, for the caller's
// submit(command_lists, signal_fence) call (step 6).
func (f *FrameOrchestrator) Fence() (Handle, error) {
	if f.current < 0 {
		return Handle{}, NewError(InvalidArgument, "FrameOrchestrator.Fence", fmt.Errorf("no frame is active"))
	}
	return f.frames[f.current].fence, nil
}
