package vk

import (
	"context"
	"fmt"
	"sort"

	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// InstanceOptions configures instance creation, replacing the
// teacher's per-field Usage struct with a typed descriptor.
type InstanceOptions struct {
	AppName      string
	AppVersion   uint32
	Debug        bool // enables VK_LAYER_KHRONOS_validation and the debug report sink
	BreakOnError bool
	Extensions   []string // instance extensions to enable, e.g. those the platform surface requires; not deduplicated
}

// Instance owns the VkInstance and enumerates adapters.
type Instance struct {
	handle        vulkan.Instance
	debugCallback vulkan.DebugReportCallback
	opts          InstanceOptions
	gpus          []vulkan.PhysicalDevice
}

// NewInstance creates the driver instance, enabling the validation
// layer and a debug report sink when opts.Debug is set.
func NewInstance(opts InstanceOptions) (*Instance, error) {
	var layers []string
	if opts.Debug {
		layers = append(layers, "VK_LAYER_KHRONOS_validation\x00")
	}

	extensions := append([]string(nil), opts.Extensions...)
	if opts.Debug {
		extensions = append(extensions, "VK_EXT_debug_report")
	}

	var handle vulkan.Instance
	ret := vulkan.CreateInstance(&vulkan.InstanceCreateInfo{
		SType: vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vulkan.ApplicationInfo{
			SType:              vulkan.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vulkan.MakeVersion(1, 2, 0)),
			ApplicationVersion: opts.AppVersion,
			PApplicationName:   safeString(opts.AppName),
			PEngineName:        safeString("orionrhi"),
		},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &handle)
	if err := checkResult("NewInstance", ret); err != nil {
		return nil, err
	}
	vulkan.InitInstance(handle)

	inst := &Instance{handle: handle, opts: opts}

	if opts.Debug {
		ret := vulkan.CreateDebugReportCallback(handle, &vulkan.DebugReportCallbackCreateInfo{
			SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
			Flags: vulkan.DebugReportFlags(vulkan.DebugReportErrorBit | vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit | vulkan.DebugReportInformationBit | vulkan.DebugReportDebugBit),
			PfnCallback: dbgCallback(opts.BreakOnError),
		}, nil, &inst.debugCallback)
		if err := checkResult("NewInstance.CreateDebugReportCallback", ret); err != nil {
			return nil, err
		}
		rhi.Logger().Info("vulkan debug report callback enabled")
	}

	var gpuCount uint32
	vulkan.EnumeratePhysicalDevices(handle, &gpuCount, nil)
	if gpuCount == 0 {
		return nil, rhi.NewError(rhi.Unsupported, "NewInstance", fmt.Errorf("no physical devices found"))
	}
	gpus := make([]vulkan.PhysicalDevice, gpuCount)
	vulkan.EnumeratePhysicalDevices(handle, &gpuCount, gpus)
	inst.gpus = gpus

	return inst, nil
}

func adapterKind(t vulkan.PhysicalDeviceType) rhi.AdapterKind {
	switch t {
	case vulkan.PhysicalDeviceTypeDiscreteGpu:
		return rhi.AdapterDiscrete
	case vulkan.PhysicalDeviceTypeIntegratedGpu:
		return rhi.AdapterIntegrated
	case vulkan.PhysicalDeviceTypeVirtualGpu:
		return rhi.AdapterVirtual
	case vulkan.PhysicalDeviceTypeCpu:
		return rhi.AdapterCPU
	default:
		return rhi.AdapterOther
	}
}

// Handle returns the underlying VkInstance, for collaborators (e.g.
// rhi/glfwsurface) that need it to create a platform surface.
func (inst *Instance) Handle() vulkan.Instance {
	return inst.handle
}

// EnumerateAdapters reports every physical device the instance found.
func (inst *Instance) EnumerateAdapters() ([]rhi.AdapterDesc, error) {
	out := make([]rhi.AdapterDesc, len(inst.gpus))
	for i, gpu := range inst.gpus {
		var props vulkan.PhysicalDeviceProperties
		vulkan.GetPhysicalDeviceProperties(gpu, &props)
		props.Deref()
		out[i] = rhi.AdapterDesc{
			Index: uint32(i),
			Name:  vulkan.ToString(props.DeviceName[:]),
			Kind:  adapterKind(props.DeviceType),
		}
	}
	return out, nil
}

// queueFamilySelection is the set of family indices chosen for each
// logical queue role, deduplicated before device creation per the
// spec's queue-family-selection resolution.
type queueFamilySelection struct {
	graphics, transfer, compute uint32
	hasTransfer, hasCompute     bool
}

func selectQueueFamilies(gpu vulkan.PhysicalDevice) (queueFamilySelection, error) {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	var sel queueFamilySelection
	graphicsFound := false
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		flags := props[i].QueueFlags
		if !graphicsFound && flags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 {
			sel.graphics = i
			graphicsFound = true
		}
	}
	if !graphicsFound {
		return sel, rhi.NewError(rhi.Unsupported, "selectQueueFamilies", fmt.Errorf("no graphics-capable queue family"))
	}

	// Prefer a dedicated transfer family (transfer-capable, not the
	// graphics family), falling back to the graphics family.
	sel.transfer = sel.graphics
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		flags := props[i].QueueFlags
		if i != sel.graphics && flags&vulkan.QueueFlags(vulkan.QueueTransferBit) != 0 {
			sel.transfer = i
			sel.hasTransfer = true
			break
		}
	}

	// Prefer a dedicated compute family.
	sel.compute = sel.graphics
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		flags := props[i].QueueFlags
		if i != sel.graphics && flags&vulkan.QueueFlags(vulkan.QueueComputeBit) != 0 {
			sel.compute = i
			sel.hasCompute = true
			break
		}
	}

	return sel, nil
}

// uniqueFamilies returns the distinct family indices in sel, sorted,
// matching the spec's "unique family indices are deduplicated before
// creation" contract.
func (sel queueFamilySelection) uniqueFamilies() []uint32 {
	set := map[uint32]struct{}{sel.graphics: {}, sel.transfer: {}, sel.compute: {}}
	out := make([]uint32, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// requiredDeviceExtensions are the extensions Device needs: swapchain
// support and dynamic rendering (Vulkan 1.2 core does not yet include
// VK_KHR_dynamic_rendering, so it must be requested explicitly).
var requiredDeviceExtensions = []string{
	"VK_KHR_swapchain\x00",
	"VK_KHR_dynamic_rendering\x00",
	"VK_KHR_create_renderpass2\x00",
	"VK_KHR_depth_stencil_resolve\x00",
}

// CreateDevice selects queue families once for the chosen adapter,
// deduplicates their indices, and creates a logical device enabling
// swapchain and dynamic-rendering support.
func (inst *Instance) CreateDevice(ctx context.Context, adapterIndex uint32) (rhi.Device, error) {
	if int(adapterIndex) >= len(inst.gpus) {
		return nil, rhi.NewError(rhi.InvalidArgument, "CreateDevice", fmt.Errorf("adapter index %d out of range", adapterIndex))
	}
	gpu := inst.gpus[adapterIndex]

	sel, err := selectQueueFamilies(gpu)
	if err != nil {
		return nil, err
	}
	families := sel.uniqueFamilies()

	queueInfos := make([]vulkan.DeviceQueueCreateInfo, len(families))
	priority := []float32{1.0}
	for i, f := range families {
		queueInfos[i] = vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: priority,
		}
	}

	dynamicRendering := vulkan.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vulkan.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vulkan.True,
	}

	var device vulkan.Device
	ret := vulkan.CreateDevice(gpu, &vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		PNext:                   unsafePointer(&dynamicRendering),
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(requiredDeviceExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredDeviceExtensions),
	}, nil, &device)
	if err := checkResult("CreateDevice", ret); err != nil {
		return nil, err
	}
	return newDevice(inst.handle, gpu, device, sel), nil
}

// Close destroys the instance and its debug report callback.
func (inst *Instance) Close() error {
	if inst.debugCallback != vulkan.NullDebugReportCallback {
		vulkan.DestroyDebugReportCallback(inst.handle, inst.debugCallback, nil)
	}
	vulkan.DestroyInstance(inst.handle, nil)
	return nil
}
