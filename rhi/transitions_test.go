package rhi

import "testing"

// TestTransitionTableCoverage covers invariant 6 and scenario S2: each
// of the table's five entries, including the two used for a typical
// upload-then-sample sequence, produces the exact masks specified.
// Pairs outside the table are checked by
// TestTransitionOutsideTableIsInvalid.
func TestTransitionTableCoverage(t *testing.T) {
	tests := []struct {
		name          string
		before, after ImageLayout
		want          Barrier
	}{
		{
			name: "Unknown->TransferDst", before: LayoutUnknown, after: LayoutTransferDst,
			want: Barrier{
				SrcAccess: AccessNone, DstAccess: AccessTransferWrite,
				SrcStage: StageTop, DstStage: StageTransfer,
				OldLayout: LayoutUnknown, NewLayout: LayoutTransferDst,
			},
		},
		{
			name: "TransferDst->ShaderResource", before: LayoutTransferDst, after: LayoutShaderResource,
			want: Barrier{
				SrcAccess: AccessTransferWrite, DstAccess: AccessShaderRead,
				SrcStage: StageTransfer, DstStage: StageFragmentShader,
				OldLayout: LayoutTransferDst, NewLayout: LayoutShaderResource,
			},
		},
		{
			name: "Unknown->RenderTarget", before: LayoutUnknown, after: LayoutRenderTarget,
			want: Barrier{
				SrcAccess: AccessNone, DstAccess: AccessColorAttachmentWrite,
				SrcStage: StageTop, DstStage: StageColorAttachmentOutput,
				OldLayout: LayoutUnknown, NewLayout: LayoutRenderTarget,
			},
		},
		{
			name: "RenderTarget->ShaderResource", before: LayoutRenderTarget, after: LayoutShaderResource,
			want: Barrier{
				SrcAccess: AccessColorAttachmentWrite, DstAccess: AccessShaderRead,
				SrcStage: StageColorAttachmentOutput, DstStage: StageFragmentShader,
				OldLayout: LayoutRenderTarget, NewLayout: LayoutShaderResource,
			},
		},
		{
			name: "RenderTarget->Present", before: LayoutRenderTarget, after: LayoutPresent,
			want: Barrier{
				SrcAccess: AccessColorAttachmentWrite, DstAccess: AccessNone,
				SrcStage: StageColorAttachmentOutput, DstStage: StageBottom,
				OldLayout: LayoutRenderTarget, NewLayout: LayoutPresent,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LookupTransition(tt.before, tt.after)
			if !ok {
				t.Fatalf("LookupTransition(%v, %v) not found", tt.before, tt.after)
			}
			if got != tt.want {
				t.Errorf("LookupTransition(%v, %v) = %+v, want %+v", tt.before, tt.after, got, tt.want)
			}
		})
	}
}

func TestTransitionOutsideTableIsInvalid(t *testing.T) {
	pairs := []struct{ before, after ImageLayout }{
		{LayoutShaderResource, LayoutTransferDst},
		{LayoutPresent, LayoutRenderTarget},
		{LayoutUnknown, LayoutShaderResource},
		{LayoutTransferDst, LayoutPresent},
	}
	for _, p := range pairs {
		if _, ok := LookupTransition(p.before, p.after); ok {
			t.Errorf("LookupTransition(%v, %v) succeeded, want not-found", p.before, p.after)
		}
	}
}
