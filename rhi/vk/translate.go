package vk

import (
	"fmt"
	"unsafe"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// record translates list's already-validated Commands() into real
// vkCmd* calls against cb. list must have ended without error; the
// caller (Queue.Submit/SubmitImmediate) checks that before calling.
func (d *Device) record(cb vulkan.CommandBuffer, list *rhi.CommandList) error {
	ret := vulkan.BeginCommandBuffer(cb, &vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
		Flags: vulkan.CommandBufferUsageFlags(vulkan.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := checkResult("record.Begin", ret); err != nil {
		return err
	}

	for _, c := range list.Commands() {
		if err := d.recordOne(cb, c); err != nil {
			vulkan.EndCommandBuffer(cb)
			return err
		}
	}

	if ret := vulkan.EndCommandBuffer(cb); isError(ret) {
		return checkResult("record.End", ret)
	}
	return nil
}

func (d *Device) recordOne(cb vulkan.CommandBuffer, c any) error {
	switch cmd := c.(type) {
	case rhi.CmdBeginRendering:
		return d.cmdBeginRendering(cb, cmd)
	case rhi.CmdEndRendering:
		vulkan.CmdEndRenderingKHR(cb)
		return nil
	case rhi.CmdTransitionBarrier:
		return d.cmdTransitionBarrier(cb, cmd)
	case rhi.CmdSetPipeline:
		return d.cmdSetPipeline(cb, cmd)
	case rhi.CmdSetViewports:
		vps := make([]vulkan.Viewport, len(cmd.Viewports))
		for i, v := range cmd.Viewports {
			vps[i] = vulkan.Viewport{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height, MinDepth: v.MinDepth, MaxDepth: v.MaxDepth}
		}
		vulkan.CmdSetViewport(cb, cmd.Start, uint32(len(vps)), vps)
		return nil
	case rhi.CmdSetScissors:
		scs := make([]vulkan.Rect2D, len(cmd.Scissors))
		for i, s := range cmd.Scissors {
			scs[i] = vulkan.Rect2D{
				Offset: vulkan.Offset2D{X: s.X, Y: s.Y},
				Extent: vulkan.Extent2D{Width: uint32(s.Width), Height: uint32(s.Height)},
			}
		}
		vulkan.CmdSetScissor(cb, cmd.Start, uint32(len(scs)), scs)
		return nil
	case rhi.CmdSetVertexBuffers:
		return d.cmdSetVertexBuffers(cb, cmd)
	case rhi.CmdSetIndexBuffer:
		return d.cmdSetIndexBuffer(cb, cmd)
	case rhi.CmdSetBindGroup:
		return d.cmdSetBindGroup(cb, cmd)
	case rhi.CmdDrawInstanced:
		vulkan.CmdDraw(cb, cmd.VertexCount, cmd.InstanceCount, cmd.FirstVertex, cmd.FirstInstance)
		return nil
	case rhi.CmdDrawIndexedInstanced:
		vulkan.CmdDrawIndexed(cb, cmd.IndexCount, cmd.InstanceCount, cmd.FirstIndex, cmd.VertexOffset, cmd.FirstInstance)
		return nil
	case rhi.CmdCopyBuffer:
		return d.cmdCopyBuffer(cb, cmd)
	case rhi.CmdCopyBufferToImage:
		return d.cmdCopyBufferToImage(cb, cmd)
	case rhi.CmdPushConstants:
		return d.cmdPushConstants(cb, cmd)
	default:
		return rhi.NewError(rhi.InvalidArgument, "record", fmt.Errorf("unrecognized recorded command %T", c))
	}
}

func (d *Device) cmdBeginRendering(cb vulkan.CommandBuffer, cmd rhi.CmdBeginRendering) error {
	attachments := make([]vulkan.RenderingAttachmentInfo, len(cmd.Attachments))
	for i, a := range cmd.Attachments {
		view, ok := d.imageViews.Get(a.View)
		if !ok {
			return rhi.NewError(rhi.InvalidArgument, "BeginRendering", fmt.Errorf("unknown image view handle %s", a.View))
		}
		attachments[i] = vulkan.RenderingAttachmentInfo{
			SType:       vulkan.StructureTypeRenderingAttachmentInfo,
			ImageView:   view.view,
			ImageLayout: vulkan.ImageLayoutColorAttachmentOptimal,
			LoadOp:      vulkan.AttachmentLoadOpClear,
			StoreOp:     vulkan.AttachmentStoreOpStore,
			ClearValue: vulkan.NewClearValue([]float32{
				a.Clear.R, a.Clear.G, a.Clear.B, a.Clear.A,
			}),
		}
	}

	vulkan.CmdBeginRenderingKHR(cb, &vulkan.RenderingInfo{
		SType: vulkan.StructureTypeRenderingInfo,
		RenderArea: vulkan.Rect2D{
			Offset: vulkan.Offset2D{X: cmd.Area.X, Y: cmd.Area.Y},
			Extent: vulkan.Extent2D{Width: uint32(cmd.Area.Width), Height: uint32(cmd.Area.Height)},
		},
		LayerCount:           1,
		ColorAttachmentCount: uint32(len(attachments)),
		PColorAttachments:    attachments,
	})
	return nil
}

func (d *Device) cmdTransitionBarrier(cb vulkan.CommandBuffer, cmd rhi.CmdTransitionBarrier) error {
	img, ok := d.images.Get(cmd.Image)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "TransitionBarrier", fmt.Errorf("unknown image handle %s", cmd.Image))
	}

	aspect := vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit)
	if img.desc.Format == rhi.FormatD32Float {
		aspect = vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit)
	}

	barrier := vulkan.ImageMemoryBarrier{
		SType:               vulkan.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       toVkAccess(cmd.Barrier.SrcAccess),
		DstAccessMask:       toVkAccess(cmd.Barrier.DstAccess),
		OldLayout:           toVkImageLayout(cmd.Before),
		NewLayout:           toVkImageLayout(cmd.After),
		SrcQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		DstQueueFamilyIndex: vulkan.QueueFamilyIgnored,
		Image:               img.image,
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vulkan.CmdPipelineBarrier(cb,
		toVkPipelineStage(cmd.Barrier.SrcStage), toVkPipelineStage(cmd.Barrier.DstStage),
		0, 0, nil, 0, nil, 1, []vulkan.ImageMemoryBarrier{barrier})
	return nil
}

func (d *Device) cmdSetPipeline(cb vulkan.CommandBuffer, cmd rhi.CmdSetPipeline) error {
	res, ok := d.pipelines.Get(cmd.Pipeline)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "SetPipeline", fmt.Errorf("unknown pipeline handle %s", cmd.Pipeline))
	}
	vulkan.CmdBindPipeline(cb, vulkan.PipelineBindPointGraphics, res.pipeline)
	return nil
}

func (d *Device) cmdSetVertexBuffers(cb vulkan.CommandBuffer, cmd rhi.CmdSetVertexBuffers) error {
	buffers := make([]vulkan.Buffer, len(cmd.Views))
	offsets := make([]vulkan.DeviceSize, len(cmd.Views))
	for i, v := range cmd.Views {
		res, ok := d.buffers.Get(v.Buffer)
		if !ok {
			return rhi.NewError(rhi.InvalidArgument, "SetVertexBuffers", fmt.Errorf("unknown buffer handle %s", v.Buffer))
		}
		buffers[i] = res.buffer
		offsets[i] = vulkan.DeviceSize(v.Offset)
	}
	vulkan.CmdBindVertexBuffers(cb, cmd.Start, uint32(len(buffers)), buffers, offsets)
	return nil
}

func (d *Device) cmdSetIndexBuffer(cb vulkan.CommandBuffer, cmd rhi.CmdSetIndexBuffer) error {
	res, ok := d.buffers.Get(cmd.Buffer)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "SetIndexBuffer", fmt.Errorf("unknown buffer handle %s", cmd.Buffer))
	}
	idxType := vulkan.IndexTypeUint16
	if cmd.IndexType == rhi.IndexTypeU32 {
		idxType = vulkan.IndexTypeUint32
	}
	vulkan.CmdBindIndexBuffer(cb, res.buffer, 0, idxType)
	return nil
}

func (d *Device) cmdSetBindGroup(cb vulkan.CommandBuffer, cmd rhi.CmdSetBindGroup) error {
	bg, ok := d.bindGroups.Get(cmd.BindGroup)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "SetBindGroup", fmt.Errorf("unknown bind group handle %s", cmd.BindGroup))
	}
	layout, ok := d.pipelineLayouts.Get(cmd.PipelineLayout)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "SetBindGroup", fmt.Errorf("unknown pipeline layout handle %s", cmd.PipelineLayout))
	}
	vulkan.CmdBindDescriptorSets(cb, vulkan.PipelineBindPointGraphics, layout.layout,
		cmd.Index, 1, []vulkan.DescriptorSet{bg.set}, 0, nil)
	return nil
}

func (d *Device) cmdCopyBuffer(cb vulkan.CommandBuffer, cmd rhi.CmdCopyBuffer) error {
	src, ok := d.buffers.Get(cmd.Src)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "CopyBuffer", fmt.Errorf("unknown src buffer handle %s", cmd.Src))
	}
	dst, ok := d.buffers.Get(cmd.Dst)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "CopyBuffer", fmt.Errorf("unknown dst buffer handle %s", cmd.Dst))
	}
	vulkan.CmdCopyBuffer(cb, src.buffer, dst.buffer, 1, []vulkan.BufferCopy{{
		SrcOffset: vulkan.DeviceSize(cmd.SrcOffset),
		DstOffset: vulkan.DeviceSize(cmd.DstOffset),
		Size:      vulkan.DeviceSize(cmd.Size),
	}})
	return nil
}

func (d *Device) cmdCopyBufferToImage(cb vulkan.CommandBuffer, cmd rhi.CmdCopyBufferToImage) error {
	src, ok := d.buffers.Get(cmd.Src)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "CopyBufferToImage", fmt.Errorf("unknown src buffer handle %s", cmd.Src))
	}
	dst, ok := d.images.Get(cmd.Dst)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "CopyBufferToImage", fmt.Errorf("unknown dst image handle %s", cmd.Dst))
	}
	vulkan.CmdCopyBufferToImage(cb, src.buffer, dst.image, vulkan.ImageLayoutTransferDstOptimal, 1, []vulkan.BufferImageCopy{{
		ImageSubresource: vulkan.ImageSubresourceLayers{
			AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vulkan.Extent3D{
			Width:  cmd.Image.Extent.Width,
			Height: cmd.Image.Extent.Height,
			Depth:  cmd.Image.Extent.Depth,
		},
	}})
	return nil
}

func (d *Device) cmdPushConstants(cb vulkan.CommandBuffer, cmd rhi.CmdPushConstants) error {
	layout, ok := d.pipelineLayouts.Get(cmd.Layout)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "PushConstants", fmt.Errorf("unknown pipeline layout handle %s", cmd.Layout))
	}
	var data unsafe.Pointer
	if len(cmd.Data) > 0 {
		data = unsafe.Pointer(&cmd.Data[0])
	}
	vulkan.CmdPushConstants(cb, layout.layout, toVkShaderStageFlags(cmd.Visible), cmd.Offset, uint32(len(cmd.Data)), data)
	return nil
}
