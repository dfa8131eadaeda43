package rhi

// BindingKind enumerates the resource kinds a BindGroupLayout entry can
// describe.
type BindingKind uint8

const (
	ConstantBuffer BindingKind = iota
	StorageBuffer
	SampledImage
	Sampler
)

// ShaderStage is a bitmask of shader stages a binding is visible to.
type ShaderStage uint32

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
)

// BindGroupLayoutBinding describes one slot of a BindGroupLayout.
type BindGroupLayoutBinding struct {
	Index   uint32
	Kind    BindingKind
	Count   uint32
	Visible ShaderStage
}

// BindGroupLayoutDesc is an ordered set of bindings. Bindings are
// reordered by Index on creation; duplicate indices are InvalidArgument.
type BindGroupLayoutDesc struct {
	Label    string
	Bindings []BindGroupLayoutBinding
}

// BufferBinding names a buffer (and byte range) bound to a BindGroup
// slot of kind ConstantBuffer or StorageBuffer.
type BufferBinding struct {
	Index  uint32
	Buffer Handle
	Offset uint64
	Size   uint64
}

// ImageBinding names an image view bound to a slot of kind SampledImage.
type ImageBinding struct {
	Index uint32
	View  Handle
}

// SamplerBinding names a sampler bound to a slot of kind Sampler.
type SamplerBinding struct {
	Index   uint32
	Sampler Handle
}

// BindGroupDesc is a snapshot of concrete resources matching a layout.
// Un-filled bindings remain unbound.
type BindGroupDesc struct {
	Label    string
	Layout   Handle
	Buffers  []BufferBinding
	Views    []ImageBinding
	Samplers []SamplerBinding
}

// BufferUsage is a bitmask of how a buffer may be used.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageConstant
	BufferUsageStorage
	BufferUsageTransferSrc
	BufferUsageTransferDst
	BufferUsageIndirect
)

// BufferDesc describes a buffer to be created by Device.CreateBuffer.
type BufferDesc struct {
	Label       string
	Size        uint64
	Usage       BufferUsage
	HostVisible bool
}

// ImageType enumerates the dimensionality of an Image.
type ImageType uint8

const (
	ImageType1D ImageType = iota
	ImageType2D
	ImageType3D
)

// Format is an opaque pixel/vertex-attribute format tag. A backend maps
// these onto its native format enum.
type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR32G32B32Float
	FormatR32G32Float
	FormatD32Float
)

// ImageUsage is a bitmask of how an image may be used.
type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
	ImageUsageSampled
	ImageUsageInputAttachment
)

// Extent3D is a width/height/depth triple.
type Extent3D struct {
	Width, Height, Depth uint32
}

// ImageDesc describes an image to be created by Device.CreateImage.
type ImageDesc struct {
	Label       string
	Type        ImageType
	Format      Format
	Extent      Extent3D
	MipLevels   uint32 // defaults to 1 if zero
	ArrayLayers uint32 // defaults to 1 if zero
	SampleCount uint32 // defaults to 1 if zero
	Usage       ImageUsage
	HostVisible bool
}

// ImageLayout is the client-tracked layout state of an Image, named by
// the transition table in transitions.go.
type ImageLayout uint8

const (
	LayoutUnknown ImageLayout = iota
	LayoutTransferDst
	LayoutShaderResource
	LayoutRenderTarget
	LayoutPresent
)

// VertexInputRate selects whether a vertex binding advances per vertex
// or per instance.
type VertexInputRate uint8

const (
	InputRateVertex VertexInputRate = iota
	InputRateInstance
)

// VertexAttribute is one attribute within a vertex binding.
type VertexAttribute struct {
	Name   string
	Format Format
	Offset uint32 // zero: placed right after the binding's preceding attributes, by format size
}

// VertexBinding describes one vertex buffer binding slot of a pipeline.
type VertexBinding struct {
	Stride     uint32
	InputRate  VertexInputRate
	Attributes []VertexAttribute
}

// Topology enumerates primitive topologies.
type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

// CullMode enumerates rasterizer face culling.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// FrontFace enumerates rasterizer winding convention.
type FrontFace uint8

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

// RasterizerState is the fixed-function rasterizer configuration.
type RasterizerState struct {
	Fill      bool // true = solid fill, false = wireframe
	Cull      CullMode
	FrontFace FrontFace
}

// CompareOp enumerates depth/stencil comparison functions.
type CompareOp uint8

const (
	CompareAlways CompareOp = iota
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
	CompareNever
)

// DepthStencilState is the fixed-function depth/stencil configuration.
type DepthStencilState struct {
	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthCompare     CompareOp
}

// BlendState is the per-attachment blend configuration. A zero value
// means blending is disabled for that attachment.
type BlendState struct {
	Enable bool
}

// ShaderStageDesc names a compiled shader blob and its entry point.
type ShaderStageDesc struct {
	Module     Handle
	EntryPoint string
}

// PushConstantRange describes one push-constant range visible to the
// given stages.
type PushConstantRange struct {
	Offset  uint32
	Size    uint32
	Visible ShaderStage
}

// PipelineLayoutDesc is an ordered list of BindGroupLayouts plus
// push-constant ranges.
type PipelineLayoutDesc struct {
	Label              string
	BindGroupLayouts   []Handle
	PushConstantRanges []PushConstantRange
}

// GraphicsPipelineDesc fully specifies a GraphicsPipeline.
type GraphicsPipelineDesc struct {
	Label               string
	VertexStage         ShaderStageDesc
	FragmentStage       ShaderStageDesc
	VertexBindings      []VertexBinding
	Topology            Topology
	Rasterizer          RasterizerState
	DepthStencil        DepthStencilState
	BlendStates         []BlendState
	RenderTargetFormats []Format
	DepthFormat         Format // FormatUndefined if no depth attachment
	Layout              Handle
}

// SamplerDesc describes a sampler to be created by Device.CreateSampler.
type SamplerDesc struct {
	Label string
}

// ImageViewDesc describes an image view onto an existing image.
type ImageViewDesc struct {
	Label  string
	Image  Handle
	Format Format
}

// FenceDesc describes a fence to be created by Device.CreateFence.
type FenceDesc struct {
	Label            string
	InitiallySignaled bool
}

// AdapterKind enumerates the physical class of GPU an Adapter reports.
type AdapterKind uint8

const (
	AdapterDiscrete AdapterKind = iota
	AdapterIntegrated
	AdapterVirtual
	AdapterCPU
	AdapterOther
)

// AdapterDesc describes one physical device an Instance enumerated.
type AdapterDesc struct {
	Index uint32
	Name  string
	Kind  AdapterKind
}

// SwapchainDesc describes a swapchain to be created or resized.
type SwapchainDesc struct {
	ImageCount  uint32
	Format      Format
	Extent      Extent3D
	Usage       ImageUsage
	PresentMode PresentMode
}

// PresentMode enumerates presentation engine behaviors.
type PresentMode uint8

const (
	PresentModeFIFO PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)
