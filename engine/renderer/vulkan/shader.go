package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// VulkanShaderModule wraps one compiled SPIR-V module together with its
// pipeline stage description.
type VulkanShaderModule struct {
	Handle          vk.ShaderModule
	StageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderModule builds a module from raw SPIR-V bytes for the given
// pipeline stage.
func NewShaderModule(context *VulkanContext, name string, code []byte, stage vk.ShaderStageFlagBits) (*VulkanShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("shader %s: SPIR-V size %d is not a multiple of 4", name, len(code))
		core.LogError(err.Error())
		return nil, err
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create shader module %s: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	core.LogDebug("shader module %s created (%d words)", name, len(words))
	return &VulkanShaderModule{
		Handle: handle,
		StageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (vs *VulkanShaderModule) Destroy(context *VulkanContext) {
	if vs.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullShaderModule
	}
}
