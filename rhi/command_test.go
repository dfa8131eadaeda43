package rhi

import (
	"errors"
	"testing"
)

func newTestList() *CommandList {
	alloc := NewCommandAllocator(Handle{Kind: KindCommandList, Index: 0, Generation: 1})
	return alloc.Alloc(Handle{Kind: KindCommandList, Index: 1, Generation: 1})
}

// TestEncoderStateMachine covers invariant 4.
func TestEncoderStateMachine(t *testing.T) {
	t.Run("end without begin is an error", func(t *testing.T) {
		cl := newTestList()
		if err := cl.End(); err == nil {
			t.Error("End() without Begin() succeeded, want error")
		}
	})

	t.Run("draw outside begin_rendering is an error", func(t *testing.T) {
		cl := newTestList()
		if err := cl.Begin(); err != nil {
			t.Fatalf("Begin() failed: %v", err)
		}
		cl.DrawInstanced(3, 1, 0, 0)
		if err := cl.End(); err == nil {
			t.Error("End() succeeded after an out-of-scope draw, want error")
		}
	})

	t.Run("copy_buffer inside begin_rendering is an error", func(t *testing.T) {
		cl := newTestList()
		cl.Begin()
		cl.BeginRendering(nil, Rect2D{})
		cl.CopyBuffer(Handle{}, Handle{}, 0, 0, 16)
		if err := cl.End(); err == nil {
			t.Error("End() succeeded after a copy inside a render scope, want error")
		}
	})

	t.Run("nested begin_rendering without end_rendering is an error", func(t *testing.T) {
		cl := newTestList()
		cl.Begin()
		cl.BeginRendering(nil, Rect2D{})
		cl.BeginRendering(nil, Rect2D{})
		if err := cl.End(); err == nil {
			t.Error("End() succeeded after nested begin_rendering, want error")
		}
	})
}

// TestMapUnmapExclusivity covers invariant 5 using a minimal in-memory
// Device-like map tracker, since the real exclusivity check lives on
// Device.Map/Unmap; this exercises the same rule the backend must
// enforce.
func TestMapUnmapExclusivity(t *testing.T) {
	tracker := newMapTracker()
	buf := Handle{Kind: KindBuffer, Index: 0, Generation: 1}

	if err := tracker.Map(buf); err != nil {
		t.Fatalf("first Map failed: %v", err)
	}
	if err := tracker.Map(buf); err == nil {
		t.Error("second Map without Unmap succeeded, want error")
	}
	if err := tracker.Unmap(buf); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if err := tracker.Unmap(buf); err == nil {
		t.Error("Unmap without a prior Map succeeded, want error")
	}
}

// mapTracker is the piece of Device.Map/Unmap bookkeeping that
// enforces exclusivity; kept here standalone so the rule is testable
// without a full Device.
type mapTracker struct {
	mapped map[Handle]bool
}

func newMapTracker() *mapTracker { return &mapTracker{mapped: map[Handle]bool{}} }

func (m *mapTracker) Map(h Handle) error {
	if m.mapped[h] {
		return NewError(InvalidArgument, "Map", errors.New("buffer is already mapped"))
	}
	m.mapped[h] = true
	return nil
}

func (m *mapTracker) Unmap(h Handle) error {
	if !m.mapped[h] {
		return NewError(InvalidArgument, "Unmap", errors.New("buffer is not mapped"))
	}
	delete(m.mapped, h)
	return nil
}

// TestDrawTriangleScenario covers S4: a minimal triangle draw produces
// exactly the expected command stream in order.
func TestDrawTriangleScenario(t *testing.T) {
	cl := newTestList()
	view := Handle{Kind: KindImageView, Index: 0, Generation: 1}
	pipeline := Handle{Kind: KindPipeline, Index: 0, Generation: 1}
	layout := Handle{Kind: KindPipelineLayout, Index: 0, Generation: 1}

	if err := cl.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	cl.BeginRendering([]RenderAttachment{{View: view}}, Rect2D{Width: 800, Height: 600})
	cl.SetPipeline(pipeline, layout)
	cl.SetViewports(0, []Viewport{{Width: 800, Height: 600, MaxDepth: 1}})
	cl.SetScissors(0, []Scissor{{Width: 800, Height: 600}})
	cl.DrawInstanced(3, 1, 0, 0)
	cl.EndRendering()
	if err := cl.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	cmds := cl.Commands()
	wantKinds := []any{
		CmdBeginRendering{},
		CmdSetPipeline{},
		CmdSetViewports{},
		CmdSetScissors{},
		CmdDrawInstanced{},
		CmdEndRendering{},
	}
	if len(cmds) != len(wantKinds) {
		t.Fatalf("recorded %d commands, want %d", len(cmds), len(wantKinds))
	}
	for i := range cmds {
		gotType := typeName(cmds[i])
		wantType := typeName(wantKinds[i])
		if gotType != wantType {
			t.Errorf("command %d = %s, want %s", i, gotType, wantType)
		}
	}

	draw := cmds[4].(CmdDrawInstanced)
	if draw.VertexCount != 3 || draw.InstanceCount != 1 {
		t.Errorf("draw = %+v, want VertexCount=3 InstanceCount=1", draw)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case CmdBeginRendering:
		return "CmdBeginRendering"
	case CmdEndRendering:
		return "CmdEndRendering"
	case CmdSetPipeline:
		return "CmdSetPipeline"
	case CmdSetViewports:
		return "CmdSetViewports"
	case CmdSetScissors:
		return "CmdSetScissors"
	case CmdDrawInstanced:
		return "CmdDrawInstanced"
	default:
		return "unknown"
	}
}

func TestAllocatorResetInvalidatesCommandLists(t *testing.T) {
	alloc := NewCommandAllocator(Handle{Kind: KindCommandList, Index: 0, Generation: 1})
	cl := alloc.Alloc(Handle{Kind: KindCommandList, Index: 1, Generation: 1})
	if err := cl.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	alloc.Reset()

	if err := cl.Begin(); err == nil {
		t.Error("Begin() on a list invalidated by Reset succeeded, want error")
	}
}

func TestBindGroupLayoutHashing(t *testing.T) {
	a := BindGroupLayoutDesc{Bindings: []BindGroupLayoutBinding{
		{Index: 0, Kind: ConstantBuffer, Count: 1, Visible: StageVertex},
		{Index: 1, Kind: SampledImage, Count: 1, Visible: StageFragment},
	}}
	b := BindGroupLayoutDesc{Bindings: []BindGroupLayoutBinding{
		{Index: 0, Kind: ConstantBuffer, Count: 1, Visible: StageVertex},
		{Index: 1, Kind: SampledImage, Count: 1, Visible: StageFragment},
	}}
	c := BindGroupLayoutDesc{Bindings: []BindGroupLayoutBinding{
		{Index: 0, Kind: ConstantBuffer, Count: 1, Visible: StageVertex},
		{Index: 1, Kind: SampledImage, Count: 2, Visible: StageFragment},
	}}

	if HashBindGroupLayout(a) != HashBindGroupLayout(b) {
		t.Error("identical layouts hashed differently")
	}
	if HashBindGroupLayout(a) == HashBindGroupLayout(c) {
		t.Error("layouts differing in Count hashed the same")
	}
}
