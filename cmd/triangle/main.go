// Command triangle renders a single hardcoded triangle through the rhi
// package's backend-neutral API on top of the rhi/vk Vulkan 1.2 dynamic
// rendering backend, grounded on the teacher's test/render_test.go run
// loop (window creation, core/instance setup, per-frame Update+PollEvents).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/andewx/orionrhi/rhi"
	"github.com/andewx/orionrhi/rhi/glfwsurface"
	"github.com/andewx/orionrhi/rhi/vk"
)

const framesInFlight = 3

var (
	vertexShaderPath = flag.String("vs", "triangle.vert.spv", "path to a compiled SPIR-V vertex shader")
	fragShaderPath   = flag.String("fs", "triangle.frag.spv", "path to a compiled SPIR-V fragment shader")
	debug            = flag.Bool("debug", false, "enable the Vulkan validation layer and debug report sink")
	breakOnError     = flag.Bool("break-on-error", false, "panic on a validation layer error report (needs -debug)")
)

func run() error {
	flag.Parse()

	win, err := glfwsurface.Init(800, 600, "orionrhi triangle")
	if err != nil {
		return fmt.Errorf("init window: %w", err)
	}
	defer win.Destroy()

	instance, err := vk.NewInstance(vk.InstanceOptions{
		AppName:      "triangle",
		AppVersion:   1,
		Debug:        *debug,
		BreakOnError: *breakOnError,
		Extensions:   win.RequiredInstanceExtensions(),
	})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Close()

	adapters, err := instance.EnumerateAdapters()
	if err != nil {
		return fmt.Errorf("enumerate adapters: %w", err)
	}
	if len(adapters) == 0 {
		return fmt.Errorf("no adapters found")
	}
	chosen := adapters[0]
	for _, a := range adapters {
		if a.Kind == rhi.AdapterDiscrete {
			chosen = a
			break
		}
	}
	rhi.Logger().Info("selected adapter", "name", chosen.Name, "kind", chosen.Kind)

	ctx := context.Background()
	device, err := instance.CreateDevice(ctx, chosen.Index)
	if err != nil {
		return fmt.Errorf("create device: %w", err)
	}

	vkInstance := instance.Handle()
	surface, err := win.CreateSurface(vkInstance)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}

	w, h := win.Size()
	swapchain, err := device.CreateSwapchain(surface, rhi.SwapchainDesc{
		Format:      rhi.FormatB8G8R8A8Srgb,
		Extent:      rhi.Extent3D{Width: uint32(w), Height: uint32(h), Depth: 1},
		Usage:       rhi.ImageUsageColorAttachment,
		PresentMode: rhi.PresentModeFIFO,
	})
	if err != nil {
		return fmt.Errorf("create swapchain: %w", err)
	}

	pipeline, layout, err := buildTrianglePipeline(device)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	allocators := make([]*rhi.CommandAllocator, framesInFlight)
	fences := make([]rhi.Handle, framesInFlight)
	imageAvailable := make([]rhi.Handle, framesInFlight)
	renderDone := make([]rhi.Handle, framesInFlight)
	for i := 0; i < framesInFlight; i++ {
		alloc, err := device.CreateCommandAllocator()
		if err != nil {
			return fmt.Errorf("create command allocator: %w", err)
		}
		allocators[i] = alloc

		fences[i], err = device.CreateFence(rhi.FenceDesc{InitiallySignaled: false})
		if err != nil {
			return fmt.Errorf("create fence: %w", err)
		}
		imageAvailable[i], err = device.CreateSemaphore()
		if err != nil {
			return fmt.Errorf("create semaphore: %w", err)
		}
		renderDone[i], err = device.CreateSemaphore()
		if err != nil {
			return fmt.Errorf("create semaphore: %w", err)
		}
	}

	orchestrator, err := rhi.NewFrameOrchestrator(device, allocators, fences, imageAvailable, renderDone)
	if err != nil {
		return fmt.Errorf("create frame orchestrator: %w", err)
	}

	listHandles := rhi.NewResourcePool[struct{}](rhi.KindCommandList)

	for !win.ShouldClose() {
		glfwsurface.PollEvents()

		alloc, imgAvail, done, err := orchestrator.BeginFrame(ctx)
		if err != nil {
			return fmt.Errorf("begin frame: %w", err)
		}

		imageIndex, err := swapchain.CurrentImageIndex(ctx)
		if err != nil {
			return fmt.Errorf("acquire image: %w", err)
		}
		image, err := swapchain.GetImage(imageIndex)
		if err != nil {
			return fmt.Errorf("get swapchain image: %w", err)
		}

		view, err := device.CreateImageView(rhi.ImageViewDesc{Image: image, Format: rhi.FormatB8G8R8A8Srgb})
		if err != nil {
			return fmt.Errorf("create image view: %w", err)
		}

		clHandle := listHandles.Insert(struct{}{})
		list := alloc.Alloc(clHandle)
		if err := list.Begin(); err != nil {
			return fmt.Errorf("begin command list: %w", err)
		}

		list.TransitionBarrier(image, rhi.LayoutUnknown, rhi.LayoutRenderTarget)
		list.BeginRendering([]rhi.RenderAttachment{
			{View: view, Clear: rhi.ClearColor{R: 0.02, G: 0.02, B: 0.05, A: 1.0}},
		}, rhi.Rect2D{Width: int32(w), Height: int32(h)})

		list.SetPipeline(pipeline, layout)
		list.SetViewports(0, []rhi.Viewport{{Width: float32(w), Height: float32(h), MinDepth: 0, MaxDepth: 1}})
		list.SetScissors(0, []rhi.Scissor{{Width: int32(w), Height: int32(h)}})
		list.DrawInstanced(3, 1, 0, 0)

		list.EndRendering()
		list.TransitionBarrier(image, rhi.LayoutRenderTarget, rhi.LayoutPresent)

		if err := list.End(); err != nil {
			return fmt.Errorf("end command list: %w", err)
		}

		queue, err := device.Queue(rhi.QueueGraphics)
		if err != nil {
			return fmt.Errorf("get queue: %w", err)
		}
		fence, err := orchestrator.Fence()
		if err != nil {
			return fmt.Errorf("get frame fence: %w", err)
		}

		queue.Wait(imgAvail)
		queue.Signal(done)
		if err := queue.Submit(ctx, []*rhi.CommandList{list}, fence); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		if err := orchestrator.MarkSubmitted(); err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}

		if err := swapchain.Present(ctx, done); err != nil {
			return fmt.Errorf("present: %w", err)
		}

		if err := orchestrator.DeferDelete(view, func() { device.Destroy(view) }); err != nil {
			return fmt.Errorf("defer delete: %w", err)
		}
		if err := device.FlushDeferred(); err != nil {
			return fmt.Errorf("flush deferred: %w", err)
		}
	}

	return nil
}

func buildTrianglePipeline(device rhi.Device) (pipeline, layout rhi.Handle, err error) {
	vsBytes, err := os.ReadFile(*vertexShaderPath)
	if err != nil {
		return rhi.Handle{}, rhi.Handle{}, fmt.Errorf("read vertex shader: %w", err)
	}
	fsBytes, err := os.ReadFile(*fragShaderPath)
	if err != nil {
		return rhi.Handle{}, rhi.Handle{}, fmt.Errorf("read fragment shader: %w", err)
	}

	vsModule, err := device.CreateShaderModule(vsBytes)
	if err != nil {
		return rhi.Handle{}, rhi.Handle{}, fmt.Errorf("create vertex shader module: %w", err)
	}
	fsModule, err := device.CreateShaderModule(fsBytes)
	if err != nil {
		return rhi.Handle{}, rhi.Handle{}, fmt.Errorf("create fragment shader module: %w", err)
	}

	layoutHandle, err := device.CreatePipelineLayout(rhi.PipelineLayoutDesc{Label: "triangle"})
	if err != nil {
		return rhi.Handle{}, rhi.Handle{}, fmt.Errorf("create pipeline layout: %w", err)
	}

	pipelineHandle, err := device.CreateGraphicsPipeline(rhi.GraphicsPipelineDesc{
		Label:               "triangle",
		VertexStage:         rhi.ShaderStageDesc{Module: vsModule, EntryPoint: "main"},
		FragmentStage:       rhi.ShaderStageDesc{Module: fsModule, EntryPoint: "main"},
		Topology:            rhi.TopologyTriangleList,
		Rasterizer:          rhi.RasterizerState{Fill: true, Cull: rhi.CullNone, FrontFace: rhi.FrontFaceCounterClockwise},
		RenderTargetFormats: []rhi.Format{rhi.FormatB8G8R8A8Srgb},
		BlendStates:         []rhi.BlendState{{Enable: false}},
		Layout:              layoutHandle,
	})
	if err != nil {
		return rhi.Handle{}, rhi.Handle{}, fmt.Errorf("create graphics pipeline: %w", err)
	}

	return pipelineHandle, layoutHandle, nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("triangle exited with error", "err", err)
		os.Exit(1)
	}
}
