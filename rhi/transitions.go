package rhi

// Access is a bitmask of pipeline memory-access types, named after the
// Vulkan access-flag bits this table was derived from but kept backend
// neutral.
type Access uint32

const (
	AccessNone                  Access = 0
	AccessTransferWrite         Access = 1 << iota
	AccessShaderRead
	AccessColorAttachmentWrite
)

// PipelineStage is a bitmask of pipeline stages a barrier synchronizes
// against.
type PipelineStage uint32

const (
	StageTop PipelineStage = 1 << iota
	StageTransfer
	StageFragmentShader
	StageColorAttachmentOutput
	StageBottom
)

// Barrier is the fully-derived set of masks for one transition_barrier
// command, produced by LookupTransition.
type Barrier struct {
	SrcAccess Access
	DstAccess Access
	SrcStage  PipelineStage
	DstStage  PipelineStage
	OldLayout ImageLayout
	NewLayout ImageLayout
}

type transitionKey struct {
	before, after ImageLayout
}

// transitionTable is the closed set of legal {before,after} image state
// transitions. Any pair absent from this table is InvalidArgument — the
// encoder never infers a barrier outside it.
var transitionTable = map[transitionKey]Barrier{
	{LayoutUnknown, LayoutTransferDst}: {
		SrcAccess: AccessNone, DstAccess: AccessTransferWrite,
		SrcStage: StageTop, DstStage: StageTransfer,
		OldLayout: LayoutUnknown, NewLayout: LayoutTransferDst,
	},
	{LayoutTransferDst, LayoutShaderResource}: {
		SrcAccess: AccessTransferWrite, DstAccess: AccessShaderRead,
		SrcStage: StageTransfer, DstStage: StageFragmentShader,
		OldLayout: LayoutTransferDst, NewLayout: LayoutShaderResource,
	},
	{LayoutUnknown, LayoutRenderTarget}: {
		SrcAccess: AccessNone, DstAccess: AccessColorAttachmentWrite,
		SrcStage: StageTop, DstStage: StageColorAttachmentOutput,
		OldLayout: LayoutUnknown, NewLayout: LayoutRenderTarget,
	},
	{LayoutRenderTarget, LayoutShaderResource}: {
		SrcAccess: AccessColorAttachmentWrite, DstAccess: AccessShaderRead,
		SrcStage: StageColorAttachmentOutput, DstStage: StageFragmentShader,
		OldLayout: LayoutRenderTarget, NewLayout: LayoutShaderResource,
	},
	{LayoutRenderTarget, LayoutPresent}: {
		SrcAccess: AccessColorAttachmentWrite, DstAccess: AccessNone,
		SrcStage: StageColorAttachmentOutput, DstStage: StageBottom,
		OldLayout: LayoutRenderTarget, NewLayout: LayoutPresent,
	},
}

// LookupTransition derives the barrier masks for a before/after image
// layout pair, or reports false if the pair is not one of the table's
// fixed entries.
func LookupTransition(before, after ImageLayout) (Barrier, bool) {
	b, ok := transitionTable[transitionKey{before, after}]
	return b, ok
}
