// Package glfwsurface wires a *glfw.Window into the rhi package's
// backend-neutral Instance/PlatformSurface contract, grounded on the
// teacher's CoreDisplay (display.go) and BaseCore.CreateGraphicsInstance
// (core.go).
package glfwsurface

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vulkan "github.com/vulkan-go/vulkan"

	"github.com/andewx/orionrhi/rhi"
)

// Window wraps a GLFW window, providing the instance extensions a
// backend needs at Instance creation time and the surface it needs at
// Swapchain creation time.
type Window struct {
	win *glfw.Window
}

// Init initializes GLFW and the Vulkan loader's proc-address table,
// then requests a window with no client API, matching the teacher's
// render_test.go setup (SetGetInstanceProcAddr before vk.Init, then
// WindowHint(ClientAPI, NoAPI) so GLFW does not create a GL context).
func Init(width, height int, title string) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfwsurface: glfw.Init: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, fmt.Errorf("glfwsurface: vulkan not supported by this GLFW build")
	}

	vulkan.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vulkan.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfwsurface: vulkan.Init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfwsurface: CreateWindow: %w", err)
	}
	return &Window{win: win}, nil
}

// Destroy tears down the window and terminates GLFW.
func (w *Window) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}

// ShouldClose reports whether the user requested the window be closed.
func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// PollEvents pumps the platform event queue, matching the teacher's
// per-frame glfw.PollEvents() call in its application run loop.
func PollEvents() {
	glfw.PollEvents()
}

// Size returns the window's current framebuffer size in pixels.
func (w *Window) Size() (int, int) {
	return w.win.GetFramebufferSize()
}

// RequiredInstanceExtensions returns the Vulkan instance extensions
// GLFW requires to present to this window, grounded on the teacher's
// base.display.window.GetRequiredInstanceExtensions() call in
// CreateGraphicsInstance.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.win.GetRequiredInstanceExtensions()
}

// CreateSurface creates a VkSurfaceKHR for this window against instance
// and wraps it as an rhi.PlatformSurface, grounded on the teacher's
// CoreDisplay.GetVulkanSurface.
func (w *Window) CreateSurface(instance vulkan.Instance) (rhi.PlatformSurface, error) {
	surfacePtr, err := w.win.CreateWindowSurface(instance, nil)
	if err != nil {
		return rhi.PlatformSurface{}, fmt.Errorf("glfwsurface: CreateWindowSurface: %w", err)
	}
	return rhi.PlatformSurface{Backend: vulkan.SurfaceFromPointer(surfacePtr)}, nil
}
