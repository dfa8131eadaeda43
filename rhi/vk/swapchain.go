package vk

import (
	"context"
	"fmt"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// Swapchain holds the platform surface and a ring of driver-owned
// images, grounded on the teacher's CoreSwapchain but generalized to
// expose plain image handles instead of VkFramebuffers (dynamic
// rendering attaches swapchain image views directly, no framebuffer
// object is needed).
type Swapchain struct {
	device  *Device
	surface vulkan.Surface

	handle     vulkan.Swapchain
	format     vulkan.SurfaceFormat
	extent     vulkan.Extent2D
	images     []rhi.Handle // KindImage handles wrapping the swapchain's driver images
	imageViews []rhi.Handle

	currentIndex   uint32
	haveCurrent    bool
	imageAvailable vulkan.Semaphore
}

func toVkPresentMode(p rhi.PresentMode) vulkan.PresentMode {
	switch p {
	case rhi.PresentModeMailbox:
		return vulkan.PresentModeMailbox
	case rhi.PresentModeImmediate:
		return vulkan.PresentModeImmediate
	default:
		return vulkan.PresentModeFifo
	}
}

// CreateSwapchain builds a Swapchain bound to surface, selecting a
// format/extent/present-mode from the surface's capabilities the way
// the teacher's NewCoreSwapchain does, but driven by desc instead of a
// single hardcoded depth.
func (d *Device) CreateSwapchain(surface rhi.PlatformSurface, desc rhi.SwapchainDesc) (rhi.Swapchain, error) {
	vkSurface, ok := surface.Backend.(vulkan.Surface)
	if !ok {
		return nil, rhi.NewError(rhi.InvalidArgument, "CreateSwapchain", fmt.Errorf("surface.Backend is not a vulkan.Surface"))
	}

	var sem vulkan.Semaphore
	if ret := vulkan.CreateSemaphore(d.handle, &vulkan.SemaphoreCreateInfo{SType: vulkan.StructureTypeSemaphoreCreateInfo}, nil, &sem); isError(ret) {
		return nil, checkResult("CreateSwapchain.CreateSemaphore", ret)
	}

	sc := &Swapchain{device: d, surface: vkSurface, imageAvailable: sem}
	if err := sc.build(vulkan.NullSwapchain, desc); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) build(oldSwapchain vulkan.Swapchain, desc rhi.SwapchainDesc) error {
	d := sc.device

	var caps vulkan.SurfaceCapabilities
	vulkan.GetPhysicalDeviceSurfaceCapabilities(d.gpu, sc.surface, &caps)
	caps.Deref()

	var formatCount uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(d.gpu, sc.surface, &formatCount, nil)
	formats := make([]vulkan.SurfaceFormat, formatCount)
	vulkan.GetPhysicalDeviceSurfaceFormats(d.gpu, sc.surface, &formatCount, formats)

	format := vulkan.SurfaceFormat{Format: toVkFormat(desc.Format), ColorSpace: vulkan.ColorSpaceSrgbNonlinear}
	if formatCount >= 1 {
		formats[0].Deref()
		if formats[0].Format != vulkan.FormatUndefined {
			format = formats[0]
		}
	}
	if formatCount == 0 {
		return rhi.NewError(rhi.Unsupported, "CreateSwapchain", fmt.Errorf("no surface formats available"))
	}
	sc.format = format

	extent := caps.CurrentExtent
	extent.Deref()
	if extent.Width == vulkan.MaxUint32 {
		extent = vulkan.Extent2D{Width: desc.Extent.Width, Height: desc.Extent.Height}
	}
	sc.extent = extent

	imageCount := desc.ImageCount
	if imageCount == 0 {
		imageCount = caps.MinImageCount + 1
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}

	preTransform := caps.CurrentTransform
	if vulkan.SurfaceTransformFlagBits(caps.SupportedTransforms)&vulkan.SurfaceTransformIdentityBit != 0 {
		preTransform = vulkan.SurfaceTransformIdentityBit
	}

	compositeAlpha := vulkan.CompositeAlphaOpaqueBit
	for _, candidate := range []vulkan.CompositeAlphaFlagBits{
		vulkan.CompositeAlphaOpaqueBit, vulkan.CompositeAlphaPreMultipliedBit,
		vulkan.CompositeAlphaPostMultipliedBit, vulkan.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vulkan.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	var handle vulkan.Swapchain
	ret := vulkan.CreateSwapchain(d.handle, &vulkan.SwapchainCreateInfo{
		SType:            vulkan.StructureTypeSwapchainCreateInfo,
		Surface:          sc.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       toVkImageUsage(desc.Usage | rhi.ImageUsageColorAttachment),
		ImageSharingMode: vulkan.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      toVkPresentMode(desc.PresentMode),
		Clipped:          vulkan.True,
		OldSwapchain:     oldSwapchain,
	}, nil, &handle)
	if err := checkResult("CreateSwapchain", ret); err != nil {
		return err
	}

	if oldSwapchain != vulkan.NullSwapchain {
		vulkan.DestroySwapchain(d.handle, oldSwapchain, nil)
	}
	sc.handle = handle

	var count uint32
	vulkan.GetSwapchainImages(d.handle, handle, &count, nil)
	rawImages := make([]vulkan.Image, count)
	vulkan.GetSwapchainImages(d.handle, handle, &count, rawImages)

	sc.images = make([]rhi.Handle, count)
	sc.imageViews = make([]rhi.Handle, count)
	for i, img := range rawImages {
		imgHandle := d.images.Insert(imageResource{
			image:  img,
			desc:   rhi.ImageDesc{Format: desc.Format, Extent: rhi.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}},
			layout: rhi.LayoutUnknown,
		})
		sc.images[i] = imgHandle

		var view vulkan.ImageView
		ret := vulkan.CreateImageView(d.handle, &vulkan.ImageViewCreateInfo{
			SType:    vulkan.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vulkan.ImageViewType2d,
			Format:   format.Format,
			Components: vulkan.ComponentMapping{
				R: vulkan.ComponentSwizzleR, G: vulkan.ComponentSwizzleG,
				B: vulkan.ComponentSwizzleB, A: vulkan.ComponentSwizzleA,
			},
			SubresourceRange: vulkan.ImageSubresourceRange{
				AspectMask: vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if err := checkResult("CreateSwapchain.CreateImageView", ret); err != nil {
			return err
		}
		sc.imageViews[i] = d.imageViews.Insert(imageViewResource{view: view, image: imgHandle})
	}

	sc.haveCurrent = false
	return nil
}

// CurrentImageIndex lazily acquires a new image the first time it is
// called after Present, per the swapchain's acquire contract.
func (sc *Swapchain) CurrentImageIndex(ctx context.Context) (uint32, error) {
	if sc.haveCurrent {
		return sc.currentIndex, nil
	}

	var index uint32
	ret := vulkan.AcquireNextImage(sc.device.handle, sc.handle, vulkan.MaxUint64, sc.imageAvailable, vulkan.NullFence, &index)
	switch ret {
	case vulkan.Success:
	case vulkan.Suboptimal:
		rhi.Logger().Warn("swapchain image suboptimal", "index", index)
	default:
		return 0, checkResult("CurrentImageIndex", ret)
	}

	sc.currentIndex = index
	sc.haveCurrent = true
	return index, nil
}

// GetImage returns the Image handle for the driver image at index.
func (sc *Swapchain) GetImage(index uint32) (rhi.Handle, error) {
	if int(index) >= len(sc.images) {
		return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "GetImage", fmt.Errorf("image index %d out of range", index))
	}
	return sc.images[index], nil
}

// Resize rebuilds the swapchain, passing the current handle as the old
// swapchain migration hint the way the teacher's resize() does.
func (sc *Swapchain) Resize(ctx context.Context, desc rhi.SwapchainDesc) error {
	for _, h := range sc.imageViews {
		if res, ok := sc.device.imageViews.Get(h); ok {
			vulkan.DestroyImageView(sc.device.handle, res.view, nil)
		}
		sc.device.imageViews.Remove(h)
	}
	for _, h := range sc.images {
		sc.device.images.Remove(h)
	}
	old := sc.handle
	if err := sc.build(old, desc); err != nil {
		return err
	}
	return nil
}

// Present queues the current image for presentation, waiting on
// renderDone so the presentation engine never reads the image before
// rendering to it has finished; a suboptimal result is logged as a
// warning, not treated as failure, matching the teacher's Update() loop
// triggering a resize only on ErrorOutOfDate.
func (sc *Swapchain) Present(ctx context.Context, renderDone rhi.Handle) error {
	if !sc.haveCurrent {
		return rhi.NewError(rhi.InvalidArgument, "Present", fmt.Errorf("no image has been acquired"))
	}

	queue, err := sc.device.Queue(rhi.QueueGraphics)
	if err != nil {
		return err
	}
	vkQueue := queue.(*Queue)

	var waits []vulkan.Semaphore
	if renderDone.Valid() {
		res, ok := sc.device.semaphores.Get(renderDone)
		if !ok {
			return rhi.NewError(rhi.InvalidArgument, "Present", fmt.Errorf("unknown semaphore handle %s", renderDone))
		}
		waits = []vulkan.Semaphore{res.semaphore}
	}

	ret := vulkan.QueuePresent(vkQueue.queue, &vulkan.PresentInfo{
		SType:              vulkan.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(waits)),
		PWaitSemaphores:    waits,
		SwapchainCount:     1,
		PSwapchains:        []vulkan.Swapchain{sc.handle},
		PImageIndices:      []uint32{sc.currentIndex},
	})
	sc.haveCurrent = false

	switch ret {
	case vulkan.Success:
		return nil
	case vulkan.Suboptimal:
		rhi.Logger().Warn("present returned suboptimal", "index", sc.currentIndex)
		return nil
	default:
		return checkResult("Present", ret)
	}
}
