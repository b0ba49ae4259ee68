package vulkan

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/assets"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/config"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/platform"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/renderer"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/scene"
)

// VulkanRenderer implements renderer.Backend on a real device. One
// command buffer, one fence and two semaphores per frame slot; the
// snowfall simulation runs as a compute dispatch recorded ahead of the
// render pass in the same command buffer.
type VulkanRenderer struct {
	platform *platform.Platform
	context  *VulkanContext
	cfg      *config.Renderer

	scn *scene.Scene

	commandBuffers           []*VulkanCommandBuffer
	imageAvailableSemaphores []vk.Semaphore
	renderFinishedSemaphores []vk.Semaphore
	inFlightFences           []*VulkanFence

	uniforms         *GraphicsUniforms
	graphicsPipeline *VulkanPipeline
	snowCompute      *SnowCompute

	meshes   []*VulkanMesh
	snowMesh *VulkanMesh

	// Software simulation only: host-visible staging for the instance
	// records computed on the CPU.
	snowStaging *VulkanBuffer

	debugMessenger vk.DebugReportCallback
	debug          bool
}

func New(p *platform.Platform, cfg *config.Renderer) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		cfg:      cfg,
		context:  &VulkanContext{},
		debug:    false,
	}
}

// Initialize brings the whole backend up: instance, surface, device,
// swapchain, pipelines and per-slot synchronization objects.
func (vr *VulkanRenderer) Initialize(appName string, width, height uint32, scn *scene.Scene, shaders *assets.ShaderSet) error {
	vr.scn = scn

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("GetInstanceProcAddress is nil")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan: %s", err)
		return err
	}

	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	if err := vr.createInstance(appName); err != nil {
		return err
	}

	surface, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("vulkan surface creation failed: %v", err)
		return err
	}
	vr.context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	sc, err := SwapchainCreate(vr.context, width, height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(vr.context, vr.cfg.ClearColor)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}

	vr.uniforms, err = NewGraphicsUniforms(vr.context)
	if err != nil {
		return err
	}
	if err := vr.uniforms.UpdateCamera(vr.context, scn.Camera); err != nil {
		return err
	}
	if err := vr.uniforms.UpdateLights(vr.context, scn.Lights); err != nil {
		return err
	}

	if err := vr.createPipelines(shaders); err != nil {
		return err
	}

	if err := vr.uploadMeshes(scn, shaders); err != nil {
		return err
	}

	if err := vr.createFrameSlots(); err != nil {
		return err
	}

	core.LogInfo("vulkan renderer initialized, %d frames in flight", vr.cfg.FramesInFlight)
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString(appName),
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}
	if runtime.GOOS == "darwin" {
		createInfo.Flags |= 1
	}

	layers := []string{}
	if vr.debug {
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
		createInfo.EnabledExtensionCount++
		createInfo.PpEnabledExtensionNames = append(createInfo.PpEnabledExtensionNames, VulkanSafeString(vk.ExtDebugReportExtensionName))
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create vulkan instance: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	if vr.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
			core.LogWarn("failed to create debug callback: %s", VulkanResultString(res))
		} else {
			vr.debugMessenger = dbg
		}
	}

	core.LogInfo("vulkan instance created")
	return nil
}

func (vr *VulkanRenderer) createPipelines(shaders *assets.ShaderSet) error {
	vert, err := NewShaderModule(vr.context, "scene.vert", shaders.Vertex, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	defer vert.Destroy(vr.context)
	frag, err := NewShaderModule(vr.context, "scene.frag", shaders.Fragment, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	defer frag.Destroy(vr.context)

	vr.graphicsPipeline, err = NewGraphicsPipeline(vr.context, vert, frag, vr.uniforms.Layout)
	return err
}

func (vr *VulkanRenderer) uploadMeshes(scn *scene.Scene, shaders *assets.ShaderSet) error {
	for _, mesh := range scn.Meshes {
		vm, err := NewVulkanMesh(vr.context, mesh)
		if err != nil {
			return err
		}
		vr.meshes = append(vr.meshes, vm)
		if mesh.Dynamic {
			vr.snowMesh = vm
		}
	}
	if vr.snowMesh == nil {
		err := fmt.Errorf("scene has no dynamic snow mesh")
		core.LogError(err.Error())
		return err
	}

	if vr.cfg.SoftwareSimulation {
		staging, err := NewBuffer(vr.context, vr.snowMesh.InstanceBuffer.Size,
			vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
		if err != nil {
			return err
		}
		vr.snowStaging = staging
		core.LogInfo("snowfall simulation running on the CPU")
		return nil
	}

	comp, err := NewShaderModule(vr.context, "snow.comp", shaders.Compute, vk.ShaderStageComputeBit)
	if err != nil {
		return err
	}
	defer comp.Destroy(vr.context)

	vr.snowCompute, err = NewSnowCompute(vr.context, comp, scn.Snowfall, vr.snowMesh.InstanceBuffer)
	return err
}

func (vr *VulkanRenderer) createFrameSlots() error {
	slots := int(vr.cfg.FramesInFlight)
	vr.commandBuffers = make([]*VulkanCommandBuffer, slots)
	vr.imageAvailableSemaphores = make([]vk.Semaphore, slots)
	vr.renderFinishedSemaphores = make([]vk.Semaphore, slots)
	vr.inFlightFences = make([]*VulkanFence, slots)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < slots; i++ {
		cb, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool)
		if err != nil {
			return err
		}
		vr.commandBuffers[i] = cb

		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.imageAvailableSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create image-available semaphore: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.renderFinishedSemaphores[i]); res != vk.Success {
			err := fmt.Errorf("failed to create render-finished semaphore: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}

		// Signaled, so the slot's very first acquisition never blocks.
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.inFlightFences[i] = fence
	}
	return nil
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	swapchain := vr.context.Swapchain
	swapchain.Framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass,
			vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

// SlotFences implements renderer.Backend.
func (vr *VulkanRenderer) SlotFences() []renderer.CompletionFence {
	fences := make([]renderer.CompletionFence, len(vr.inFlightFences))
	for i, f := range vr.inFlightFences {
		fences[i] = f
	}
	return fences
}

// AcquireImage implements renderer.Backend. The wait is bounded by the
// configured sync timeout; expiry means the device stopped responding.
func (vr *VulkanRenderer) AcquireImage(slot int) (uint32, error) {
	timeoutNs := uint64(vr.cfg.SyncTimeoutMs) * uint64(time.Millisecond)
	return vr.context.Swapchain.AcquireNextImageIndex(vr.context, timeoutNs, vr.imageAvailableSemaphores[slot])
}

// Record implements renderer.Backend: simulation step, ownership
// barrier, then the render pass with one instanced draw per mesh.
func (vr *VulkanRenderer) Record(slot int, imageIndex uint32, dt float32) error {
	commandBuffer := vr.commandBuffers[slot]
	commandBuffer.Reset()
	if err := commandBuffer.Begin(false); err != nil {
		return err
	}

	if vr.snowCompute != nil {
		vr.snowCompute.RecordDispatch(commandBuffer, dt)
		vr.snowCompute.RecordBarrier(commandBuffer)
	} else if err := vr.recordSoftwareSnow(commandBuffer, dt); err != nil {
		return err
	}

	extent := vk.Extent2D{
		Width:  vr.context.FramebufferWidth,
		Height: vr.context.FramebufferHeight,
	}
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{Extent: extent}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.Begin(commandBuffer, vr.context.Swapchain.Framebuffers[imageIndex].Handle, extent)

	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, vr.graphicsPipeline.Handle)
	vr.uniforms.RecordBind(commandBuffer, vr.graphicsPipeline.Layout)
	for _, mesh := range vr.meshes {
		mesh.RecordDraw(commandBuffer)
	}

	vr.context.MainRenderpass.End(commandBuffer)
	return commandBuffer.End()
}

// recordSoftwareSnow advances the particles on the CPU and records the
// staging copy that replaces the compute dispatch.
func (vr *VulkanRenderer) recordSoftwareSnow(commandBuffer *VulkanCommandBuffer, dt float32) error {
	vr.scn.Snowfall.Step(dt)
	if err := vr.snowStaging.LoadData(vr.context, 0, PackInstances(vr.scn.Snowfall.Instances())); err != nil {
		return err
	}

	copyRegion := vk.BufferCopy{Size: vr.snowStaging.Size}
	vk.CmdCopyBuffer(commandBuffer.Handle, vr.snowStaging.Handle, vr.snowMesh.InstanceBuffer.Handle, 1, []vk.BufferCopy{copyRegion})

	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessVertexAttributeReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              vr.snowMesh.InstanceBuffer.Handle,
		Size:                vr.snowMesh.InstanceBuffer.Size,
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
	return nil
}

// Submit implements renderer.Backend. The submission waits for the
// slot's image at the color attachment stage and signals both the
// render-finished semaphore and the slot fence.
func (vr *VulkanRenderer) Submit(slot int, imageIndex uint32) error {
	commandBuffer := vr.commandBuffers[slot]

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.imageAvailableSemaphores[slot]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.renderFinishedSemaphores[slot]},
	}

	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vr.inFlightFences[slot].Handle); res != vk.Success {
		err := fmt.Errorf("queue submit failed: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()
	return nil
}

// Present implements renderer.Backend.
func (vr *VulkanRenderer) Present(slot int, imageIndex uint32) error {
	return vr.context.Swapchain.Present(vr.context, vr.context.Device.PresentQueue, vr.renderFinishedSemaphores[slot], imageIndex)
}

// Recreate implements renderer.Backend. The graphics pipeline uses
// dynamic viewport state, so only the swapchain and its framebuffers
// are rebuilt.
func (vr *VulkanRenderer) Recreate(width, height uint32) error {
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	DeviceQuerySwapchainSupport(vr.context)

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, width, height)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}

	vr.scn.Camera.Resize(width, height)
	return vr.uniforms.UpdateCamera(vr.context, vr.scn.Camera)
}

// UpdateCamera pushes the current camera state to the device. Called by
// the application after input moves the camera.
func (vr *VulkanRenderer) UpdateCamera() error {
	return vr.uniforms.UpdateCamera(vr.context, vr.scn.Camera)
}

// ReloadShaders rebuilds the pipelines from fresh SPIR-V. The device is
// drained first, so it is safe mid-run.
func (vr *VulkanRenderer) ReloadShaders(shaders *assets.ShaderSet) error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	oldGraphics := vr.graphicsPipeline
	if err := vr.createPipelines(shaders); err != nil {
		return err
	}
	oldGraphics.Destroy(vr.context)

	if vr.snowCompute != nil {
		comp, err := NewShaderModule(vr.context, "snow.comp", shaders.Compute, vk.ShaderStageComputeBit)
		if err != nil {
			return err
		}
		defer comp.Destroy(vr.context)

		oldCompute := vr.snowCompute.Pipeline
		pipeline, err := NewComputePipeline(vr.context, comp, vr.snowCompute.descriptorSetLayout)
		if err != nil {
			return err
		}
		vr.snowCompute.Pipeline = pipeline
		oldCompute.Destroy(vr.context)
	}

	core.LogInfo("pipelines rebuilt from reloaded shaders")
	return nil
}

// Shutdown implements renderer.Backend, releasing everything in reverse
// creation order.
func (vr *VulkanRenderer) Shutdown() {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	for i := range vr.inFlightFences {
		if vr.imageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.imageAvailableSemaphores[i], vr.context.Allocator)
		}
		if vr.renderFinishedSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.renderFinishedSemaphores[i], vr.context.Allocator)
		}
		vr.inFlightFences[i].Destroy()
		if vr.commandBuffers[i] != nil && vr.commandBuffers[i].Handle != nil {
			vr.commandBuffers[i].Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}

	if vr.snowStaging != nil {
		vr.snowStaging.Destroy(vr.context)
	}
	if vr.snowCompute != nil {
		vr.snowCompute.Destroy(vr.context)
	}
	for _, mesh := range vr.meshes {
		mesh.Destroy(vr.context)
	}
	if vr.graphicsPipeline != nil {
		vr.graphicsPipeline.Destroy(vr.context)
	}
	if vr.uniforms != nil {
		vr.uniforms.Destroy(vr.context)
	}

	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	core.LogDebug("destroying vulkan device...")
	DeviceDestroy(vr.context)

	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}
	if vr.debug && vr.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.debugMessenger, vr.context.Allocator)
	}
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)

	core.LogInfo("vulkan renderer shut down")
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] %s", pLayerPrefix, pMessage)
	default:
		core.LogInfo("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}
