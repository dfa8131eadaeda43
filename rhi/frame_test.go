package rhi

import (
	"context"
	"testing"
)

// fakeDevice is a minimal DeviceWaiter that records wait/reset calls
// against a set of fence handles it considers "signaled" once told to.
type fakeDevice struct {
	waits     []Handle
	resets    []Handle
	signaled  map[Handle]bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{signaled: map[Handle]bool{}}
}

func (d *fakeDevice) WaitForFence(ctx context.Context, fence Handle) error {
	d.waits = append(d.waits, fence)
	return nil
}

func (d *fakeDevice) ResetFence(fence Handle) error {
	d.resets = append(d.resets, fence)
	delete(d.signaled, fence)
	return nil
}

func buildOrchestrator(t *testing.T, n int) (*FrameOrchestrator, *fakeDevice, []Handle) {
	t.Helper()
	dev := newFakeDevice()
	allocators := make([]*CommandAllocator, n)
	fences := make([]Handle, n)
	avail := make([]Handle, n)
	done := make([]Handle, n)
	for i := 0; i < n; i++ {
		allocators[i] = NewCommandAllocator(Handle{Kind: KindCommandList, Index: uint32(i), Generation: 1})
		fences[i] = Handle{Kind: KindFence, Index: uint32(i), Generation: 1}
		avail[i] = Handle{Kind: KindSemaphore, Index: uint32(i), Generation: 1}
		done[i] = Handle{Kind: KindSemaphore, Index: uint32(i + 100), Generation: 1}
	}
	fo, err := NewFrameOrchestrator(dev, allocators, fences, avail, done)
	if err != nil {
		t.Fatalf("NewFrameOrchestrator failed: %v", err)
	}
	return fo, dev, fences
}

// TestFrameFenceDiscipline covers invariant 7: on frame N the
// orchestrator only waits on the fence belonging to slot N once that
// slot comes back around, i.e. after frames_in_flight frames, and not
// before.
func TestFrameFenceDiscipline(t *testing.T) {
	const n = 2
	fo, dev, fences := buildOrchestrator(t, n)
	ctx := context.Background()

	// Frame 0 uses slot 0; no prior submit, so no wait should occur.
	if _, _, _, err := fo.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame(0) failed: %v", err)
	}
	if len(dev.waits) != 0 {
		t.Fatalf("unexpected wait on first use of slot 0: %v", dev.waits)
	}
	if err := fo.MarkSubmitted(); err != nil {
		t.Fatalf("MarkSubmitted failed: %v", err)
	}

	// Frame 1 uses slot 1; also first use, no wait expected.
	if _, _, _, err := fo.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame(1) failed: %v", err)
	}
	if len(dev.waits) != 0 {
		t.Fatalf("unexpected wait on first use of slot 1: %v", dev.waits)
	}
	fo.MarkSubmitted()

	// Frame 2 reuses slot 0, which was submitted on frame 0: this must
	// wait on slot 0's fence (frame 2 - frames_in_flight(2) = frame 0).
	if _, _, _, err := fo.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame(2) failed: %v", err)
	}
	if len(dev.waits) != 1 || dev.waits[0] != fences[0] {
		t.Fatalf("waits = %v, want exactly [%v]", dev.waits, fences[0])
	}
}

// TestDeferredDestroyScenario covers S6: destroying a resource while a
// frame referencing it is in flight must not free it until that
// frame's slot is revisited (i.e. its fence has been waited on).
func TestDeferredDestroyScenario(t *testing.T) {
	const n = 2
	fo, _, _ := buildOrchestrator(t, n)
	ctx := context.Background()

	freed := false
	buf := Handle{Kind: KindBuffer, Index: 7, Generation: 1}

	// Frame 0: defer-delete buf, then submit.
	if _, _, _, err := fo.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame(0) failed: %v", err)
	}
	if err := fo.DeferDelete(buf, func() { freed = true }); err != nil {
		t.Fatalf("DeferDelete failed: %v", err)
	}
	fo.MarkSubmitted()

	// Frame 1: a different slot; buf must still be alive.
	if _, _, _, err := fo.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame(1) failed: %v", err)
	}
	if freed {
		t.Fatal("buffer freed before its frame's fence was waited on")
	}
	fo.MarkSubmitted()

	// Frame 2: slot 0 comes back around; BeginFrame waits on frame 0's
	// fence before draining its deferred-delete bucket, so now it's
	// safe for buf to be freed.
	if _, _, _, err := fo.BeginFrame(ctx); err != nil {
		t.Fatalf("BeginFrame(2) failed: %v", err)
	}
	if !freed {
		t.Fatal("buffer was not freed after its frame's slot came back around")
	}
}

func TestFrameOrchestratorRejectsMismatchedRingLengths(t *testing.T) {
	dev := newFakeDevice()
	allocators := []*CommandAllocator{NewCommandAllocator(Handle{})}
	fences := []Handle{{}, {}}
	_, err := NewFrameOrchestrator(dev, allocators, fences, fences[:1], fences[:1])
	if err == nil {
		t.Error("NewFrameOrchestrator with mismatched ring lengths succeeded, want error")
	}
}
