package rhi

import "fmt"

// RecordState is the legality state of a CommandList, matching the
// {Initial, Recording, Recorded} machine from the command encoder
// contract.
type RecordState uint8

const (
	StateInitial RecordState = iota
	StateRecording
	StateRecorded
)

func (s RecordState) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateRecording:
		return "Recording"
	case StateRecorded:
		return "Recorded"
	default:
		return "Unknown"
	}
}

// IndexType selects the element width of a bound index buffer.
type IndexType uint8

const (
	IndexTypeU16 IndexType = iota
	IndexTypeU32
)

// Viewport is a dynamic viewport register.
type Viewport struct {
	X, Y, Width, Height       float32
	MinDepth, MaxDepth        float32
}

// Scissor is a dynamic scissor register.
type Scissor struct {
	X, Y, Width, Height int32
}

// ClearColor is an RGBA clear value for a color attachment.
type ClearColor struct {
	R, G, B, A float32
}

// RenderAttachment names one render-target image view and its clear
// color for a begin_rendering scope.
type RenderAttachment struct {
	View  Handle
	Clear ClearColor
}

// Rect2D is the render area passed to begin_rendering.
type Rect2D struct {
	X, Y, Width, Height int32
}

// VertexBufferView binds one vertex buffer to a binding slot.
type VertexBufferView struct {
	Buffer Handle
	Offset uint64
	Stride uint32
}

// The Cmd* types are the recorded representation of each command in
// the repertoire. CommandList.commands holds a slice of these in
// recording order; a backend's translator switches on the concrete
// type.

type CmdBeginRendering struct {
	Attachments []RenderAttachment
	Area        Rect2D
}

type CmdEndRendering struct{}

type CmdTransitionBarrier struct {
	Image         Handle
	Before, After ImageLayout
	Barrier       Barrier
}

type CmdSetPipeline struct {
	Pipeline Handle
	Layout   Handle
}

type CmdSetViewports struct {
	Start     uint32
	Viewports []Viewport
}

type CmdSetScissors struct {
	Start    uint32
	Scissors []Scissor
}

type CmdSetVertexBuffers struct {
	Start uint32
	Views []VertexBufferView
}

type CmdSetIndexBuffer struct {
	Buffer    Handle
	IndexType IndexType
}

type CmdSetBindGroup struct {
	Index          uint32
	BindGroup      Handle
	PipelineLayout Handle
}

type CmdDrawInstanced struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

type CmdDrawIndexedInstanced struct {
	IndexCount, InstanceCount, FirstIndex, FirstInstance uint32
	VertexOffset                                         int32
}

type CmdCopyBuffer struct {
	Src, Dst         Handle
	SrcOffset, DstOffset, Size uint64
}

type CmdCopyBufferToImage struct {
	Src   Handle
	Dst   Handle
	Image ImageDesc // carries extent/format context needed by the backend
}

type CmdPushConstants struct {
	Layout  Handle
	Visible ShaderStage
	Offset  uint32
	Data    []byte
}

// CommandList is a linear, write-once command recorder. Record-time
// calls never return an error directly; an illegal call records a
// latent error visible at End(), matching the propagation rule that a
// CommandList's contents are not enqueued if it ended in error.
type CommandList struct {
	handle      Handle
	allocator   Handle // the CommandAllocator.handle that produced this list
	state       RecordState
	commands    []any
	inScope     bool // true while between BeginRendering/EndRendering
	err         error
	invalidated bool // set by the owning CommandAllocator's Reset
}

// Handle returns this list's own identity handle.
func (c *CommandList) Handle() Handle { return c.handle }

// Allocator returns the handle of the CommandAllocator that produced
// this list, so a backend can recover the pool its driver objects were
// allocated from at submit time.
func (c *CommandList) Allocator() Handle { return c.allocator }

// Begin transitions Initial -> Recording. Calling it from any other
// state, or on a CommandList whose allocator has since been reset, is
// an error.
func (c *CommandList) Begin() error {
	if c.invalidated {
		return NewError(InvalidArgument, "CommandList.Begin", fmt.Errorf("command list was invalidated by an allocator reset"))
	}
	if c.state != StateInitial {
		return NewError(InvalidArgument, "CommandList.Begin", fmt.Errorf("command list is in state %s, not Initial", c.state))
	}
	c.state = StateRecording
	return nil
}

// End transitions Recording -> Recorded and surfaces any latent error
// recorded during this session; the command list's contents must not
// be submitted if this returns an error.
func (c *CommandList) End() error {
	if c.state != StateRecording {
		return NewError(InvalidArgument, "CommandList.End", fmt.Errorf("command list is in state %s, not Recording", c.state))
	}
	c.state = StateRecorded
	if c.err != nil {
		return c.err
	}
	return nil
}

// State reports the current legality state.
func (c *CommandList) State() RecordState { return c.state }

// Commands returns the recorded command stream in submission order.
// Valid to call once State() == StateRecorded.
func (c *CommandList) Commands() []any { return c.commands }

// Err returns the latent error recorded so far, or nil.
func (c *CommandList) Err() error { return c.err }

func (c *CommandList) fail(op string, err error) {
	if c.err == nil {
		c.err = NewError(InvalidArgument, op, err)
	}
}

func (c *CommandList) requireRecording(op string) bool {
	if c.invalidated {
		c.fail(op, fmt.Errorf("command list was invalidated by an allocator reset"))
		return false
	}
	if c.state != StateRecording {
		c.fail(op, fmt.Errorf("not legal in state %s", c.state))
		return false
	}
	return true
}

// BeginRendering opens a render scope. Nesting without a matching
// EndRendering is a latent error.
func (c *CommandList) BeginRendering(attachments []RenderAttachment, area Rect2D) {
	if !c.requireRecording("BeginRendering") {
		return
	}
	if c.inScope {
		c.fail("BeginRendering", fmt.Errorf("begin_rendering without matching end_rendering"))
		return
	}
	c.inScope = true
	c.commands = append(c.commands, CmdBeginRendering{Attachments: attachments, Area: area})
}

// EndRendering closes the render scope opened by BeginRendering.
func (c *CommandList) EndRendering() {
	if !c.requireRecording("EndRendering") {
		return
	}
	if !c.inScope {
		c.fail("EndRendering", fmt.Errorf("end_rendering without matching begin_rendering"))
		return
	}
	c.inScope = false
	c.commands = append(c.commands, CmdEndRendering{})
}

// TransitionBarrier encodes a pipeline barrier for before->after. The
// masks come from the fixed transition table; a pair outside it is a
// latent InvalidArgument.
func (c *CommandList) TransitionBarrier(image Handle, before, after ImageLayout) {
	if !c.requireRecording("TransitionBarrier") {
		return
	}
	barrier, ok := LookupTransition(before, after)
	if !ok {
		c.fail("TransitionBarrier", fmt.Errorf("no transition defined for %v -> %v", before, after))
		return
	}
	c.commands = append(c.commands, CmdTransitionBarrier{Image: image, Before: before, After: after, Barrier: barrier})
}

// SetPipeline binds pipeline for subsequent draws.
func (c *CommandList) SetPipeline(pipeline, layout Handle) {
	if !c.requireRecording("SetPipeline") {
		return
	}
	c.commands = append(c.commands, CmdSetPipeline{Pipeline: pipeline, Layout: layout})
}

// SetViewports sets dynamic viewport registers starting at start.
func (c *CommandList) SetViewports(start uint32, viewports []Viewport) {
	if !c.requireRecording("SetViewports") {
		return
	}
	c.commands = append(c.commands, CmdSetViewports{Start: start, Viewports: viewports})
}

// SetScissors sets dynamic scissor registers starting at start.
func (c *CommandList) SetScissors(start uint32, scissors []Scissor) {
	if !c.requireRecording("SetScissors") {
		return
	}
	c.commands = append(c.commands, CmdSetScissors{Start: start, Scissors: scissors})
}

// SetVertexBuffers binds per-binding vertex buffer views.
func (c *CommandList) SetVertexBuffers(start uint32, views []VertexBufferView) {
	if !c.requireRecording("SetVertexBuffers") {
		return
	}
	c.commands = append(c.commands, CmdSetVertexBuffers{Start: start, Views: views})
}

// SetIndexBuffer binds the index buffer for subsequent indexed draws.
func (c *CommandList) SetIndexBuffer(buffer Handle, indexType IndexType) {
	if !c.requireRecording("SetIndexBuffer") {
		return
	}
	c.commands = append(c.commands, CmdSetIndexBuffer{Buffer: buffer, IndexType: indexType})
}

// SetBindGroup binds bindGroup to resource set slot index.
func (c *CommandList) SetBindGroup(index uint32, bindGroup, pipelineLayout Handle) {
	if !c.requireRecording("SetBindGroup") {
		return
	}
	c.commands = append(c.commands, CmdSetBindGroup{Index: index, BindGroup: bindGroup, PipelineLayout: pipelineLayout})
}

// DrawInstanced records a non-indexed draw. Only legal inside a render
// scope.
func (c *CommandList) DrawInstanced(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if !c.requireRecording("DrawInstanced") {
		return
	}
	if !c.inScope {
		c.fail("DrawInstanced", fmt.Errorf("draw outside begin_rendering"))
		return
	}
	c.commands = append(c.commands, CmdDrawInstanced{
		VertexCount: vertexCount, InstanceCount: instanceCount,
		FirstVertex: firstVertex, FirstInstance: firstInstance,
	})
}

// DrawIndexedInstanced records an indexed draw. Only legal inside a
// render scope.
func (c *CommandList) DrawIndexedInstanced(indexCount, instanceCount, firstIndex, firstInstance uint32, vertexOffset int32) {
	if !c.requireRecording("DrawIndexedInstanced") {
		return
	}
	if !c.inScope {
		c.fail("DrawIndexedInstanced", fmt.Errorf("draw outside begin_rendering"))
		return
	}
	c.commands = append(c.commands, CmdDrawIndexedInstanced{
		IndexCount: indexCount, InstanceCount: instanceCount,
		FirstIndex: firstIndex, FirstInstance: firstInstance, VertexOffset: vertexOffset,
	})
}

// CopyBuffer records a buffer-to-buffer copy. Only legal outside a
// render scope.
func (c *CommandList) CopyBuffer(src, dst Handle, srcOffset, dstOffset, size uint64) {
	if !c.requireRecording("CopyBuffer") {
		return
	}
	if c.inScope {
		c.fail("CopyBuffer", fmt.Errorf("copy_buffer inside begin_rendering"))
		return
	}
	c.commands = append(c.commands, CmdCopyBuffer{Src: src, Dst: dst, SrcOffset: srcOffset, DstOffset: dstOffset, Size: size})
}

// CopyBufferToImage records a buffer-to-image copy. Only legal outside
// a render scope.
func (c *CommandList) CopyBufferToImage(src, dst Handle, image ImageDesc) {
	if !c.requireRecording("CopyBufferToImage") {
		return
	}
	if c.inScope {
		c.fail("CopyBufferToImage", fmt.Errorf("copy_buffer_to_image inside begin_rendering"))
		return
	}
	c.commands = append(c.commands, CmdCopyBufferToImage{Src: src, Dst: dst, Image: image})
}

// PushConstants records a push-constant update. Legal inside or
// outside a render scope.
func (c *CommandList) PushConstants(layout Handle, visible ShaderStage, offset uint32, data []byte) {
	if !c.requireRecording("PushConstants") {
		return
	}
	c.commands = append(c.commands, CmdPushConstants{Layout: layout, Visible: visible, Offset: offset, Data: data})
}

// CommandAllocator owns the backing memory for CommandLists it
// allocates. Reset invalidates every CommandList previously produced by
// this allocator.
type CommandAllocator struct {
	handle Handle
	lists  []*CommandList
}

// NewCommandAllocator constructs an empty allocator.
func NewCommandAllocator(handle Handle) *CommandAllocator {
	return &CommandAllocator{handle: handle}
}

// Alloc produces a fresh CommandList in the Initial state, owned by
// this allocator.
func (a *CommandAllocator) Alloc(handle Handle) *CommandList {
	cl := &CommandList{handle: handle, allocator: a.handle}
	a.lists = append(a.lists, cl)
	return cl
}

// Handle returns this allocator's own identity handle.
func (a *CommandAllocator) Handle() Handle { return a.handle }

// Reset invalidates every CommandList this allocator produced and
// forgets them. An invalidated list keeps its state and recorded
// commands, but Begin on it fails and every record call on it leaves a
// latent error.
func (a *CommandAllocator) Reset() {
	for _, cl := range a.lists {
		cl.invalidated = true
	}
	a.lists = a.lists[:0]
}
