package vk

import (
	"context"
	"fmt"
	"sort"
	"unsafe"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// bufferResource is the driver-side object backing a rhi.KindBuffer handle.
type bufferResource struct {
	buffer vulkan.Buffer
	memory vulkan.DeviceMemory
	size   vulkan.DeviceSize
	mapped bool
	desc   rhi.BufferDesc
}

type imageResource struct {
	image  vulkan.Image
	memory vulkan.DeviceMemory
	desc   rhi.ImageDesc
	layout rhi.ImageLayout
}

type imageViewResource struct {
	view  vulkan.ImageView
	image rhi.Handle
}

type samplerResource struct {
	sampler vulkan.Sampler
}

type bindGroupLayoutResource struct {
	setLayout vulkan.DescriptorSetLayout
	desc      rhi.BindGroupLayoutDesc
	hash      rhi.LayoutHash
}

type bindGroupResource struct {
	set  vulkan.DescriptorSet
	pool vulkan.DescriptorPool
}

type pipelineLayoutResource struct {
	layout vulkan.PipelineLayout
	hash   rhi.LayoutHash
}

type pipelineResource struct {
	pipeline vulkan.Pipeline
	layout   rhi.Handle
	desc     rhi.GraphicsPipelineDesc
}

type shaderModuleResource struct {
	module vulkan.ShaderModule
}

type fenceResource struct {
	fence vulkan.Fence
}

type semaphoreResource struct {
	semaphore vulkan.Semaphore
}

// commandPoolResource backs one rhi.CommandAllocator with a real
// VkCommandPool; CommandBuffers are allocated from it lazily when a
// Queue translates a CommandList's recorded commands at submit time.
type commandPoolResource struct {
	pool vulkan.CommandPool
}

// framesInFlight is the fixed size of Device's own deferred-delete
// ring, the same ring size cmd/triangle gives its FrameOrchestrator.
const framesInFlight = 3

// Device owns the logical device, one resource pool per kind, and a
// frame-indexed deferred deletion queue. All Create*/Destroy methods
// assume single-threaded access from the owning goroutine, matching
// ResourcePool's documented concurrency contract.
type Device struct {
	instance vulkan.Instance
	gpu      vulkan.PhysicalDevice
	handle   vulkan.Device
	sel      queueFamilySelection
	memProps vulkan.PhysicalDeviceMemoryProperties

	buffers         *rhi.ResourcePool[*bufferResource]
	images          *rhi.ResourcePool[imageResource]
	imageViews      *rhi.ResourcePool[imageViewResource]
	samplers        *rhi.ResourcePool[samplerResource]
	bindGroupLayout *rhi.ResourcePool[bindGroupLayoutResource]
	bindGroups      *rhi.ResourcePool[bindGroupResource]
	pipelineLayouts *rhi.ResourcePool[pipelineLayoutResource]
	pipelines       *rhi.ResourcePool[pipelineResource]
	shaderModules   *rhi.ResourcePool[shaderModuleResource]
	fences          *rhi.ResourcePool[fenceResource]
	semaphores      *rhi.ResourcePool[semaphoreResource]
	commandPools    *rhi.ResourcePool[commandPoolResource]

	layoutCache *rhi.LayoutCache
	descPool    vulkan.DescriptorPool

	queues map[rhi.QueueFamily]*Queue

	frameIndex int
	deferred   [framesInFlight][]rhi.DeferredDelete
}

func newDevice(instance vulkan.Instance, gpu vulkan.PhysicalDevice, handle vulkan.Device, sel queueFamilySelection) *Device {
	d := &Device{
		instance:        instance,
		gpu:             gpu,
		handle:          handle,
		sel:             sel,
		buffers:         rhi.NewResourcePool[*bufferResource](rhi.KindBuffer),
		images:          rhi.NewResourcePool[imageResource](rhi.KindImage),
		imageViews:      rhi.NewResourcePool[imageViewResource](rhi.KindImageView),
		samplers:        rhi.NewResourcePool[samplerResource](rhi.KindSampler),
		bindGroupLayout: rhi.NewResourcePool[bindGroupLayoutResource](rhi.KindBindGroupLayout),
		bindGroups:      rhi.NewResourcePool[bindGroupResource](rhi.KindBindGroup),
		pipelineLayouts: rhi.NewResourcePool[pipelineLayoutResource](rhi.KindPipelineLayout),
		pipelines:       rhi.NewResourcePool[pipelineResource](rhi.KindPipeline),
		shaderModules:   rhi.NewResourcePool[shaderModuleResource](rhi.KindShaderModule),
		fences:          rhi.NewResourcePool[fenceResource](rhi.KindFence),
		semaphores:      rhi.NewResourcePool[semaphoreResource](rhi.KindSemaphore),
		commandPools:    rhi.NewResourcePool[commandPoolResource](rhi.KindCommandList),
		layoutCache:     rhi.NewLayoutCache(),
		queues:          map[rhi.QueueFamily]*Queue{},
	}
	vulkan.GetPhysicalDeviceMemoryProperties(gpu, &d.memProps)
	d.memProps.Deref()

	d.queues[rhi.QueueGraphics] = newQueue(d, sel.graphics)
	if sel.hasTransfer {
		d.queues[rhi.QueueTransfer] = newQueue(d, sel.transfer)
	} else {
		d.queues[rhi.QueueTransfer] = d.queues[rhi.QueueGraphics]
	}
	if sel.hasCompute {
		d.queues[rhi.QueueCompute] = newQueue(d, sel.compute)
	} else {
		d.queues[rhi.QueueCompute] = d.queues[rhi.QueueGraphics]
	}

	return d
}

// findMemoryType mirrors the teacher's FindRequiredMemoryType, scanning
// the physical device's memory types for one matching requirementBits
// and carrying every flag in propertyFlags.
func (d *Device) findMemoryType(requirementBits uint32, propertyFlags vulkan.MemoryPropertyFlagBits) (uint32, error) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if requirementBits&(1<<i) == 0 {
			continue
		}
		d.memProps.MemoryTypes[i].Deref()
		if d.memProps.MemoryTypes[i].PropertyFlags&vulkan.MemoryPropertyFlags(propertyFlags) == vulkan.MemoryPropertyFlags(propertyFlags) {
			return i, nil
		}
	}
	return 0, rhi.NewError(rhi.Unsupported, "findMemoryType", fmt.Errorf("no matching memory type for bits %#x", requirementBits))
}

func (d *Device) CreateBuffer(desc rhi.BufferDesc) (rhi.Handle, error) {
	var buf vulkan.Buffer
	ret := vulkan.CreateBuffer(d.handle, &vulkan.BufferCreateInfo{
		SType:       vulkan.StructureTypeBufferCreateInfo,
		Size:        vulkan.DeviceSize(desc.Size),
		Usage:       toVkBufferUsage(desc.Usage),
		SharingMode: vulkan.SharingModeExclusive,
	}, nil, &buf)
	if err := checkResult("CreateBuffer", ret); err != nil {
		return rhi.Handle{}, err
	}

	var req vulkan.MemoryRequirements
	vulkan.GetBufferMemoryRequirements(d.handle, buf, &req)
	req.Deref()

	propFlags := vulkan.MemoryPropertyDeviceLocalBit
	if desc.HostVisible {
		propFlags = vulkan.MemoryPropertyHostVisibleBit | vulkan.MemoryPropertyHostCoherentBit
	}
	typeIndex, err := d.findMemoryType(req.MemoryTypeBits, propFlags)
	if err != nil {
		vulkan.DestroyBuffer(d.handle, buf, nil)
		return rhi.Handle{}, err
	}

	var mem vulkan.DeviceMemory
	ret = vulkan.AllocateMemory(d.handle, &vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := checkResult("CreateBuffer.AllocateMemory", ret); err != nil {
		vulkan.DestroyBuffer(d.handle, buf, nil)
		return rhi.Handle{}, err
	}
	if ret := vulkan.BindBufferMemory(d.handle, buf, mem, 0); isError(ret) {
		vulkan.FreeMemory(d.handle, mem, nil)
		vulkan.DestroyBuffer(d.handle, buf, nil)
		return rhi.Handle{}, checkResult("CreateBuffer.BindBufferMemory", ret)
	}

	h := d.buffers.Insert(&bufferResource{buffer: buf, memory: mem, size: vulkan.DeviceSize(desc.Size), desc: desc})
	return h, nil
}

func (d *Device) CreateImage(desc rhi.ImageDesc) (rhi.Handle, error) {
	mipLevels, arrayLayers, samples := desc.MipLevels, desc.ArrayLayers, desc.SampleCount
	if mipLevels == 0 {
		mipLevels = 1
	}
	if arrayLayers == 0 {
		arrayLayers = 1
	}
	if samples == 0 {
		samples = 1
	}

	imgType := vulkan.ImageType2d
	switch desc.Type {
	case rhi.ImageType1D:
		imgType = vulkan.ImageType1d
	case rhi.ImageType3D:
		imgType = vulkan.ImageType3d
	}

	var img vulkan.Image
	ret := vulkan.CreateImage(d.handle, &vulkan.ImageCreateInfo{
		SType:     vulkan.StructureTypeImageCreateInfo,
		ImageType: imgType,
		Format:    toVkFormat(desc.Format),
		Extent: vulkan.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  desc.Extent.Depth,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   arrayLayers,
		Samples:       vulkan.SampleCountFlagBits(samples),
		Tiling:        vulkan.ImageTilingOptimal,
		Usage:         toVkImageUsage(desc.Usage),
		SharingMode:   vulkan.SharingModeExclusive,
		InitialLayout: vulkan.ImageLayoutUndefined,
	}, nil, &img)
	if err := checkResult("CreateImage", ret); err != nil {
		return rhi.Handle{}, err
	}

	var req vulkan.MemoryRequirements
	vulkan.GetImageMemoryRequirements(d.handle, img, &req)
	req.Deref()

	propFlags := vulkan.MemoryPropertyDeviceLocalBit
	if desc.HostVisible {
		propFlags = vulkan.MemoryPropertyHostVisibleBit | vulkan.MemoryPropertyHostCoherentBit
	}
	typeIndex, err := d.findMemoryType(req.MemoryTypeBits, propFlags)
	if err != nil {
		vulkan.DestroyImage(d.handle, img, nil)
		return rhi.Handle{}, err
	}

	var mem vulkan.DeviceMemory
	ret = vulkan.AllocateMemory(d.handle, &vulkan.MemoryAllocateInfo{
		SType:           vulkan.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIndex,
	}, nil, &mem)
	if err := checkResult("CreateImage.AllocateMemory", ret); err != nil {
		vulkan.DestroyImage(d.handle, img, nil)
		return rhi.Handle{}, err
	}
	if ret := vulkan.BindImageMemory(d.handle, img, mem, 0); isError(ret) {
		vulkan.FreeMemory(d.handle, mem, nil)
		vulkan.DestroyImage(d.handle, img, nil)
		return rhi.Handle{}, checkResult("CreateImage.BindImageMemory", ret)
	}

	h := d.images.Insert(imageResource{image: img, memory: mem, desc: desc, layout: rhi.LayoutUnknown})
	return h, nil
}

func (d *Device) CreateImageView(desc rhi.ImageViewDesc) (rhi.Handle, error) {
	img, ok := d.images.Get(desc.Image)
	if !ok {
		return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateImageView", fmt.Errorf("unknown image handle %s", desc.Image))
	}

	aspect := vulkan.ImageAspectFlags(vulkan.ImageAspectColorBit)
	if desc.Format == rhi.FormatD32Float {
		aspect = vulkan.ImageAspectFlags(vulkan.ImageAspectDepthBit)
	}

	var view vulkan.ImageView
	ret := vulkan.CreateImageView(d.handle, &vulkan.ImageViewCreateInfo{
		SType:    vulkan.StructureTypeImageViewCreateInfo,
		Image:    img.image,
		ViewType: vulkan.ImageViewType2d,
		Format:   toVkFormat(desc.Format),
		SubresourceRange: vulkan.ImageSubresourceRange{
			AspectMask:     aspect,
			LevelCount:     1,
			LayerCount:     1,
		},
	}, nil, &view)
	if err := checkResult("CreateImageView", ret); err != nil {
		return rhi.Handle{}, err
	}

	return d.imageViews.Insert(imageViewResource{view: view, image: desc.Image}), nil
}

func (d *Device) CreateSampler(desc rhi.SamplerDesc) (rhi.Handle, error) {
	var sampler vulkan.Sampler
	ret := vulkan.CreateSampler(d.handle, &vulkan.SamplerCreateInfo{
		SType:        vulkan.StructureTypeSamplerCreateInfo,
		MagFilter:    vulkan.FilterLinear,
		MinFilter:    vulkan.FilterLinear,
		AddressModeU: vulkan.SamplerAddressModeClampToEdge,
		AddressModeV: vulkan.SamplerAddressModeClampToEdge,
		AddressModeW: vulkan.SamplerAddressModeClampToEdge,
	}, nil, &sampler)
	if err := checkResult("CreateSampler", ret); err != nil {
		return rhi.Handle{}, err
	}
	return d.samplers.Insert(samplerResource{sampler: sampler}), nil
}

func toVkDescriptorType(k rhi.BindingKind) vulkan.DescriptorType {
	switch k {
	case rhi.ConstantBuffer:
		return vulkan.DescriptorTypeUniformBuffer
	case rhi.StorageBuffer:
		return vulkan.DescriptorTypeStorageBuffer
	case rhi.SampledImage:
		return vulkan.DescriptorTypeSampledImage
	case rhi.Sampler:
		return vulkan.DescriptorTypeSampler
	default:
		return vulkan.DescriptorTypeUniformBuffer
	}
}

func toVkShaderStageFlags(s rhi.ShaderStage) vulkan.ShaderStageFlags {
	var out vulkan.ShaderStageFlagBits
	if s&rhi.StageVertex != 0 {
		out |= vulkan.ShaderStageVertexBit
	}
	if s&rhi.StageFragment != 0 {
		out |= vulkan.ShaderStageFragmentBit
	}
	if s&rhi.StageCompute != 0 {
		out |= vulkan.ShaderStageComputeBit
	}
	return vulkan.ShaderStageFlags(out)
}

// orderedBindings returns bindings sorted by Index, rejecting a
// repeated Index as rhi.InvalidArgument, matching the
// "reordered by Index on creation; duplicate indices are InvalidArgument"
// contract documented on rhi.BindGroupLayoutDesc.
func orderedBindings(bindings []rhi.BindGroupLayoutBinding) ([]rhi.BindGroupLayoutBinding, error) {
	out := make([]rhi.BindGroupLayoutBinding, len(bindings))
	copy(out, bindings)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	for i := 1; i < len(out); i++ {
		if out[i].Index == out[i-1].Index {
			return nil, rhi.NewError(rhi.InvalidArgument, "CreateBindGroupLayout",
				fmt.Errorf("duplicate binding index %d", out[i].Index))
		}
	}
	return out, nil
}

// CreateBindGroupLayout creates the VkDescriptorSetLayout for desc,
// caching by (kind, content hash) so identical layouts resolve to the
// same driver object.
func (d *Device) CreateBindGroupLayout(desc rhi.BindGroupLayoutDesc) (rhi.Handle, error) {
	ordered, err := orderedBindings(desc.Bindings)
	if err != nil {
		return rhi.Handle{}, err
	}
	desc.Bindings = ordered

	hash := rhi.HashBindGroupLayout(desc)
	if h, ok := d.layoutCache.Lookup(rhi.KindBindGroupLayout, hash); ok {
		return h, nil
	}

	bindings := make([]vulkan.DescriptorSetLayoutBinding, len(desc.Bindings))
	for i, b := range desc.Bindings {
		count := b.Count
		if count == 0 {
			count = 1
		}
		bindings[i] = vulkan.DescriptorSetLayoutBinding{
			Binding:         b.Index,
			DescriptorType:  toVkDescriptorType(b.Kind),
			DescriptorCount: count,
			StageFlags:      toVkShaderStageFlags(b.Visible),
		}
	}

	var setLayout vulkan.DescriptorSetLayout
	ret := vulkan.CreateDescriptorSetLayout(d.handle, &vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &setLayout)
	if err := checkResult("CreateBindGroupLayout", ret); err != nil {
		return rhi.Handle{}, err
	}

	h := d.bindGroupLayout.Insert(bindGroupLayoutResource{setLayout: setLayout, desc: desc, hash: hash})
	d.layoutCache.Store(rhi.KindBindGroupLayout, hash, h)
	return h, nil
}

// ensureDescriptorPool lazily allocates a single fixed-size descriptor
// pool (256 sets) shared by every BindGroup; Destroy of a BindGroup
// frees its set back to this pool. The pool is never grown, reset or
// recreated: once it is exhausted, CreateBindGroup fails with the
// driver's allocation error.
func (d *Device) ensureDescriptorPool() error {
	if d.descPool != vulkan.NullDescriptorPool {
		return nil
	}
	sizes := []vulkan.DescriptorPoolSize{
		{Type: vulkan.DescriptorTypeUniformBuffer, DescriptorCount: 256},
		{Type: vulkan.DescriptorTypeStorageBuffer, DescriptorCount: 256},
		{Type: vulkan.DescriptorTypeSampledImage, DescriptorCount: 256},
		{Type: vulkan.DescriptorTypeSampler, DescriptorCount: 256},
	}
	var pool vulkan.DescriptorPool
	ret := vulkan.CreateDescriptorPool(d.handle, &vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vulkan.DescriptorPoolCreateFlags(vulkan.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       256,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if err := checkResult("ensureDescriptorPool", ret); err != nil {
		return err
	}
	d.descPool = pool
	return nil
}

func (d *Device) CreateBindGroup(desc rhi.BindGroupDesc) (rhi.Handle, error) {
	layoutRes, ok := d.bindGroupLayout.Get(desc.Layout)
	if !ok {
		return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateBindGroup", fmt.Errorf("unknown layout handle %s", desc.Layout))
	}
	if err := d.ensureDescriptorPool(); err != nil {
		return rhi.Handle{}, err
	}

	setLayouts := []vulkan.DescriptorSetLayout{layoutRes.setLayout}
	var set vulkan.DescriptorSet
	ret := vulkan.AllocateDescriptorSets(d.handle, &vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descPool,
		DescriptorSetCount: 1,
		PSetLayouts:        setLayouts,
	}, &set)
	if err := checkResult("CreateBindGroup", ret); err != nil {
		return rhi.Handle{}, err
	}

	var writes []vulkan.WriteDescriptorSet
	for _, b := range desc.Buffers {
		buf, ok := d.buffers.Get(b.Buffer)
		if !ok {
			return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateBindGroup", fmt.Errorf("unknown buffer handle %s", b.Buffer))
		}
		size := b.Size
		if size == 0 {
			size = uint64(buf.size)
		}
		descType := vulkan.DescriptorTypeUniformBuffer
		for _, lb := range layoutRes.desc.Bindings {
			if lb.Index == b.Index {
				descType = toVkDescriptorType(lb.Kind)
				break
			}
		}
		writes = append(writes, vulkan.WriteDescriptorSet{
			SType:           vulkan.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      b.Index,
			DescriptorCount: 1,
			DescriptorType:  descType,
			PBufferInfo: []vulkan.DescriptorBufferInfo{{
				Buffer: buf.buffer,
				Offset: vulkan.DeviceSize(b.Offset),
				Range:  vulkan.DeviceSize(size),
			}},
		})
	}
	for _, v := range desc.Views {
		view, ok := d.imageViews.Get(v.View)
		if !ok {
			return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateBindGroup", fmt.Errorf("unknown image view handle %s", v.View))
		}
		writes = append(writes, vulkan.WriteDescriptorSet{
			SType:           vulkan.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      v.Index,
			DescriptorCount: 1,
			DescriptorType:  vulkan.DescriptorTypeSampledImage,
			PImageInfo: []vulkan.DescriptorImageInfo{{
				ImageView:   view.view,
				ImageLayout: vulkan.ImageLayoutShaderReadOnlyOptimal,
			}},
		})
	}
	for _, s := range desc.Samplers {
		samp, ok := d.samplers.Get(s.Sampler)
		if !ok {
			return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreateBindGroup", fmt.Errorf("unknown sampler handle %s", s.Sampler))
		}
		writes = append(writes, vulkan.WriteDescriptorSet{
			SType:           vulkan.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      s.Index,
			DescriptorCount: 1,
			DescriptorType:  vulkan.DescriptorTypeSampler,
			PImageInfo:      []vulkan.DescriptorImageInfo{{Sampler: samp.sampler}},
		})
	}
	if len(writes) > 0 {
		vulkan.UpdateDescriptorSets(d.handle, uint32(len(writes)), writes, 0, nil)
	}

	return d.bindGroups.Insert(bindGroupResource{set: set, pool: d.descPool}), nil
}

func (d *Device) CreatePipelineLayout(desc rhi.PipelineLayoutDesc) (rhi.Handle, error) {
	hash := rhi.HashPipelineLayout(desc)
	if h, ok := d.layoutCache.Lookup(rhi.KindPipelineLayout, hash); ok {
		return h, nil
	}

	setLayouts := make([]vulkan.DescriptorSetLayout, len(desc.BindGroupLayouts))
	for i, lh := range desc.BindGroupLayouts {
		res, ok := d.bindGroupLayout.Get(lh)
		if !ok {
			return rhi.Handle{}, rhi.NewError(rhi.InvalidArgument, "CreatePipelineLayout", fmt.Errorf("unknown bind group layout handle %s", lh))
		}
		setLayouts[i] = res.setLayout
	}

	pushRanges := make([]vulkan.PushConstantRange, len(desc.PushConstantRanges))
	for i, r := range desc.PushConstantRanges {
		pushRanges[i] = vulkan.PushConstantRange{
			StageFlags: toVkShaderStageFlags(r.Visible),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}

	var layout vulkan.PipelineLayout
	ret := vulkan.CreatePipelineLayout(d.handle, &vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushRanges)),
		PPushConstantRanges:    pushRanges,
	}, nil, &layout)
	if err := checkResult("CreatePipelineLayout", ret); err != nil {
		return rhi.Handle{}, err
	}

	h := d.pipelineLayouts.Insert(pipelineLayoutResource{layout: layout, hash: hash})
	d.layoutCache.Store(rhi.KindPipelineLayout, hash, h)
	return h, nil
}

func (d *Device) CreateShaderModule(src []byte) (rhi.Handle, error) {
	if len(src)%4 != 0 {
		return rhi.Handle{}, rhi.NewShaderCompileError("CreateShaderModule", "SPIR-V blob length must be a multiple of 4")
	}
	code := sliceUint32(src)

	var module vulkan.ShaderModule
	ret := vulkan.CreateShaderModule(d.handle, &vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(src)),
		PCode:    code,
	}, nil, &module)
	if isError(ret) {
		return rhi.Handle{}, rhi.NewShaderCompileError("CreateShaderModule", fmt.Sprintf("vkCreateShaderModule failed: result %d", ret))
	}
	return d.shaderModules.Insert(shaderModuleResource{module: module}), nil
}

func (d *Device) CreateFence(desc rhi.FenceDesc) (rhi.Handle, error) {
	var flags vulkan.FenceCreateFlagBits
	if desc.InitiallySignaled {
		flags = vulkan.FenceCreateSignaledBit
	}
	var fence vulkan.Fence
	ret := vulkan.CreateFence(d.handle, &vulkan.FenceCreateInfo{
		SType: vulkan.StructureTypeFenceCreateInfo,
		Flags: vulkan.FenceCreateFlags(flags),
	}, nil, &fence)
	if err := checkResult("CreateFence", ret); err != nil {
		return rhi.Handle{}, err
	}
	return d.fences.Insert(fenceResource{fence: fence}), nil
}

func (d *Device) CreateSemaphore() (rhi.Handle, error) {
	var sem vulkan.Semaphore
	ret := vulkan.CreateSemaphore(d.handle, &vulkan.SemaphoreCreateInfo{
		SType: vulkan.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem)
	if err := checkResult("CreateSemaphore", ret); err != nil {
		return rhi.Handle{}, err
	}
	return d.semaphores.Insert(semaphoreResource{semaphore: sem}), nil
}

func (d *Device) CreateCommandAllocator() (*rhi.CommandAllocator, error) {
	var pool vulkan.CommandPool
	ret := vulkan.CreateCommandPool(d.handle, &vulkan.CommandPoolCreateInfo{
		SType:            vulkan.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.sel.graphics,
		Flags:            vulkan.CommandPoolCreateFlags(vulkan.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := checkResult("CreateCommandAllocator", ret); err != nil {
		return nil, err
	}

	h := d.commandPools.Insert(commandPoolResource{pool: pool})
	return rhi.NewCommandAllocator(h), nil
}

// commandPool returns the VkCommandPool backing allocator, used by
// Queue when translating a submitted CommandList's recorded commands.
func (d *Device) commandPool(allocatorHandle rhi.Handle) (vulkan.CommandPool, bool) {
	res, ok := d.commandPools.Get(allocatorHandle)
	if !ok {
		return vulkan.NullCommandPool, false
	}
	return res.pool, true
}

// WaitForFence blocks until fence signals, satisfying rhi.DeviceWaiter.
func (d *Device) WaitForFence(ctx context.Context, fence rhi.Handle) error {
	res, ok := d.fences.Get(fence)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "WaitForFence", fmt.Errorf("unknown fence handle %s", fence))
	}
	ret := vulkan.WaitForFences(d.handle, 1, []vulkan.Fence{res.fence}, vulkan.True, vulkan.MaxUint64)
	return checkResult("WaitForFence", ret)
}

// ResetFence resets fence to the unsignaled state.
func (d *Device) ResetFence(fence rhi.Handle) error {
	res, ok := d.fences.Get(fence)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "ResetFence", fmt.Errorf("unknown fence handle %s", fence))
	}
	ret := vulkan.ResetFences(d.handle, 1, []vulkan.Fence{res.fence})
	return checkResult("ResetFence", ret)
}

// Map returns a byte slice backing a host-visible buffer's memory.
func (d *Device) Map(buffer rhi.Handle) ([]byte, error) {
	res, ok := d.buffers.Get(buffer)
	if !ok {
		return nil, rhi.NewError(rhi.InvalidArgument, "Map", fmt.Errorf("unknown buffer handle %s", buffer))
	}
	if res.mapped {
		return nil, rhi.NewError(rhi.InvalidArgument, "Map", fmt.Errorf("buffer %s already mapped", buffer))
	}

	var data unsafe.Pointer
	ret := vulkan.MapMemory(d.handle, res.memory, 0, vulkan.DeviceSize(vulkan.WholeSize), 0, &data)
	if err := checkResult("Map", ret); err != nil {
		return nil, err
	}
	res.mapped = true

	return bytesFromPointer(data, int(res.size)), nil
}

func (d *Device) Unmap(buffer rhi.Handle) error {
	res, ok := d.buffers.Get(buffer)
	if !ok {
		return rhi.NewError(rhi.InvalidArgument, "Unmap", fmt.Errorf("unknown buffer handle %s", buffer))
	}
	if !res.mapped {
		return rhi.NewError(rhi.InvalidArgument, "Unmap", fmt.Errorf("buffer %s is not mapped", buffer))
	}
	vulkan.UnmapMemory(d.handle, res.memory)
	res.mapped = false
	return nil
}

func (d *Device) Queue(family rhi.QueueFamily) (rhi.Queue, error) {
	q, ok := d.queues[family]
	if !ok {
		return nil, rhi.NewError(rhi.InvalidArgument, "Queue", fmt.Errorf("unknown queue family %d", family))
	}
	return q, nil
}

// Destroy enqueues handle's driver release on the current frame's
// deferred-delete bucket; FlushDeferred runs it once that bucket's
// frame has fully retired.
func (d *Device) Destroy(handle rhi.Handle) error {
	free, err := d.releaserFor(handle)
	if err != nil {
		return err
	}
	d.deferred[d.frameIndex%framesInFlight] = append(d.deferred[d.frameIndex%framesInFlight], rhi.DeferredDelete{Handle: handle, Free: free})
	return nil
}

// FlushDeferred advances the frame index and runs every release queued
// framesInFlight frames ago, the bucket that is now guaranteed to be
// off the GPU timeline.
func (d *Device) FlushDeferred() error {
	d.frameIndex++
	bucket := d.frameIndex % framesInFlight
	for _, del := range d.deferred[bucket] {
		if del.Free != nil {
			del.Free()
		}
	}
	d.deferred[bucket] = nil
	return nil
}

func (d *Device) releaserFor(handle rhi.Handle) (func(), error) {
	switch handle.Kind {
	case rhi.KindBuffer:
		res, ok := d.buffers.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown buffer handle %s", handle))
		}
		return func() {
			vulkan.DestroyBuffer(d.handle, res.buffer, nil)
			vulkan.FreeMemory(d.handle, res.memory, nil)
			d.buffers.Remove(handle)
		}, nil
	case rhi.KindImage:
		res, ok := d.images.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown image handle %s", handle))
		}
		return func() {
			vulkan.DestroyImage(d.handle, res.image, nil)
			vulkan.FreeMemory(d.handle, res.memory, nil)
			d.images.Remove(handle)
		}, nil
	case rhi.KindImageView:
		res, ok := d.imageViews.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown image view handle %s", handle))
		}
		return func() {
			vulkan.DestroyImageView(d.handle, res.view, nil)
			d.imageViews.Remove(handle)
		}, nil
	case rhi.KindSampler:
		res, ok := d.samplers.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown sampler handle %s", handle))
		}
		return func() {
			vulkan.DestroySampler(d.handle, res.sampler, nil)
			d.samplers.Remove(handle)
		}, nil
	case rhi.KindBindGroup:
		res, ok := d.bindGroups.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown bind group handle %s", handle))
		}
		return func() {
			vulkan.FreeDescriptorSets(d.handle, res.pool, 1, []vulkan.DescriptorSet{res.set})
			d.bindGroups.Remove(handle)
		}, nil
	case rhi.KindPipeline:
		res, ok := d.pipelines.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown pipeline handle %s", handle))
		}
		return func() {
			vulkan.DestroyPipeline(d.handle, res.pipeline, nil)
			d.pipelines.Remove(handle)
		}, nil
	case rhi.KindShaderModule:
		res, ok := d.shaderModules.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown shader module handle %s", handle))
		}
		return func() {
			vulkan.DestroyShaderModule(d.handle, res.module, nil)
			d.shaderModules.Remove(handle)
		}, nil
	case rhi.KindFence:
		res, ok := d.fences.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown fence handle %s", handle))
		}
		return func() {
			vulkan.DestroyFence(d.handle, res.fence, nil)
			d.fences.Remove(handle)
		}, nil
	case rhi.KindSemaphore:
		res, ok := d.semaphores.Get(handle)
		if !ok {
			return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unknown semaphore handle %s", handle))
		}
		return func() {
			vulkan.DestroySemaphore(d.handle, res.semaphore, nil)
			d.semaphores.Remove(handle)
		}, nil
	default:
		return nil, rhi.NewError(rhi.InvalidArgument, "Destroy", fmt.Errorf("unsupported handle kind %s", handle.Kind))
	}
}
