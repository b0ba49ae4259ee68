package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	SwapchainSupport VulkanSwapchainSupportInfo

	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	ComputeQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	DepthFormat vk.Format
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// DeviceCreate picks a physical device with graphics, present and
// compute support and builds the logical device, queues and the
// graphics command pool on it.
func DeviceCreate(context *VulkanContext) error {
	if err := selectPhysicalDevice(context); err != nil {
		return err
	}

	device := context.Device
	core.LogInfo("creating logical device...")

	uniqueIndices := []int32{device.GraphicsQueueIndex}
	for _, idx := range []int32{device.PresentQueueIndex, device.ComputeQueueIndex} {
		seen := false
		for _, u := range uniqueIndices {
			if u == idx {
				seen = true
				break
			}
		}
		if !seen {
			uniqueIndices = append(uniqueIndices, idx)
		}
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(uniqueIndices))
	for i, idx := range uniqueIndices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(idx),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	extensions := []string{vk.KhrSwapchainExtensionName}
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	device.LogicalDevice = logicalDevice
	core.LogInfo("logical device created")

	var queue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.GraphicsQueueIndex), 0, &queue)
	device.GraphicsQueue = queue
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.PresentQueueIndex), 0, &queue)
	device.PresentQueue = queue
	vk.GetDeviceQueue(device.LogicalDevice, uint32(device.ComputeQueueIndex), 0, &queue)
	device.ComputeQueue = queue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	device.GraphicsCommandPool = pool

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	device := context.Device
	device.GraphicsQueue = nil
	device.PresentQueue = nil
	device.ComputeQueue = nil

	if device.GraphicsCommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(device.LogicalDevice, device.GraphicsCommandPool, context.Allocator)
		device.GraphicsCommandPool = vk.NullCommandPool
	}
	if device.LogicalDevice != nil {
		vk.DestroyDevice(device.LogicalDevice, context.Allocator)
		device.LogicalDevice = nil
	}
	device.PhysicalDevice = nil
}

func selectPhysicalDevice(context *VulkanContext) error {
	var deviceCount uint32
	vk.EnumeratePhysicalDevices(context.Instance, &deviceCount, nil)
	if deviceCount == 0 {
		err := fmt.Errorf("no devices with Vulkan support found")
		core.LogError(err.Error())
		return err
	}
	physicalDevices := make([]vk.PhysicalDevice, deviceCount)
	vk.EnumeratePhysicalDevices(context.Instance, &deviceCount, physicalDevices)

	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		graphicsIdx, presentIdx, computeIdx := queueFamilyIndices(pd, context.Surface)
		if graphicsIdx < 0 || presentIdx < 0 || computeIdx < 0 {
			continue
		}

		support := querySwapchainSupport(pd, context.Surface)
		if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
			continue
		}

		context.Device = &VulkanDevice{
			PhysicalDevice:     pd,
			SwapchainSupport:   support,
			GraphicsQueueIndex: graphicsIdx,
			PresentQueueIndex:  presentIdx,
			ComputeQueueIndex:  computeIdx,
			Properties:         properties,
		}
		end := FindFirstZeroInByteArray(properties.DeviceName[:])
		core.LogInfo("selected device: %s", string(properties.DeviceName[:end]))
		core.LogInfo("queue families: graphics %d, present %d, compute %d", graphicsIdx, presentIdx, computeIdx)

		if !deviceDetectDepthFormat(context.Device) {
			err := fmt.Errorf("selected device has no supported depth format")
			core.LogError(err.Error())
			return err
		}
		return nil
	}

	err := fmt.Errorf("no physical device meets the requirements")
	core.LogError(err.Error())
	return err
}

// queueFamilyIndices prefers a single family serving all three roles;
// otherwise any family per role will do.
func queueFamilyIndices(pd vk.PhysicalDevice, surface vk.Surface) (graphics, present, compute int32) {
	graphics, present, compute = -1, -1, -1

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)

	for i := uint32(0); i < familyCount; i++ {
		families[i].Deref()
		flags := families[i].QueueFlags

		if graphics == -1 && flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphics = int32(i)
		}
		if flags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			if compute == -1 || int32(i) == graphics {
				compute = int32(i)
			}
		}

		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, i, surface, &supportsPresent)
		if supportsPresent == vk.True {
			if present == -1 || int32(i) == graphics {
				present = int32(i)
			}
		}
	}
	return graphics, present, compute
}

// DeviceQuerySwapchainSupport refreshes the cached surface capabilities,
// needed before every swapchain recreation.
func DeviceQuerySwapchainSupport(context *VulkanContext) {
	context.Device.SwapchainSupport = querySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
}

func querySwapchainSupport(pd vk.PhysicalDevice, surface vk.Surface) VulkanSwapchainSupportInfo {
	var support VulkanSwapchainSupportInfo

	vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &support.Capabilities)
	support.Capabilities.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)
	if formatCount > 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, support.Formats)
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, nil)
	if presentModeCount > 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &presentModeCount, support.PresentModes)
	}

	return support
}

func deviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, format := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, format, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = format
			return true
		}
	}
	return false
}

func FindFirstZeroInByteArray(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return len(arr)
}
