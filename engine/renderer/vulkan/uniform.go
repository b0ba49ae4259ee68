package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/scene"
)

// std140 sizes of the two uniform blocks.
const (
	cameraUBOSize = 144 // mat4 view + mat4 proj + vec3 position (padded)
	lightUBOSlot  = 64  // one light: four vec3s, each padded to 16
	lightsUBOSize = scene.MaxLights*lightUBOSlot + 16
)

// GraphicsUniforms bundles the camera and lights uniform buffers with
// the descriptor set both shaders read them through.
type GraphicsUniforms struct {
	Layout vk.DescriptorSetLayout

	CameraBuffer *VulkanBuffer
	LightsBuffer *VulkanBuffer

	descriptorPool vk.DescriptorPool
	descriptorSet  vk.DescriptorSet
}

func NewGraphicsUniforms(context *VulkanContext) (*GraphicsUniforms, error) {
	gu := &GraphicsUniforms{}

	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	usage := vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)

	cameraBuffer, err := NewBuffer(context, cameraUBOSize, usage, hostVisible)
	if err != nil {
		return nil, err
	}
	gu.CameraBuffer = cameraBuffer

	lightsBuffer, err := NewBuffer(context, lightsUBOSize, usage, hostVisible)
	if err != nil {
		return nil, err
	}
	gu.LightsBuffer = lightsBuffer

	layoutBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &gu.Layout); res != vk.Success {
		err := fmt.Errorf("failed to create uniform descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &gu.descriptorPool); res != vk.Success {
		err := fmt.Errorf("failed to create uniform descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     gu.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{gu.Layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate uniform descriptor set: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	gu.descriptorSet = sets[0]

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          gu.descriptorSet,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: gu.CameraBuffer.Handle, Offset: 0, Range: cameraUBOSize},
			},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          gu.descriptorSet,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: gu.LightsBuffer.Handle, Offset: 0, Range: lightsUBOSize},
			},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)

	return gu, nil
}

// RecordBind binds the uniform descriptor set for the graphics pipeline.
func (gu *GraphicsUniforms) RecordBind(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout) {
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, layout,
		0, 1, []vk.DescriptorSet{gu.descriptorSet}, 0, nil)
}

// UpdateCamera rewrites the camera block. Host coherent, so no flush.
func (gu *GraphicsUniforms) UpdateCamera(context *VulkanContext, camera *scene.Camera) error {
	data := make([]byte, cameraUBOSize)
	for i, f := range camera.View {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	for i, f := range camera.Projection {
		binary.LittleEndian.PutUint32(data[64+i*4:], math.Float32bits(f))
	}
	position := camera.Position.Cartesian()
	putVec3(data[128:], position[0], position[1], position[2])
	return gu.CameraBuffer.LoadData(context, 0, data)
}

func (gu *GraphicsUniforms) UpdateLights(context *VulkanContext, lights *scene.Lights) error {
	data := make([]byte, lightsUBOSize)
	for i, light := range lights.Lights {
		base := i * lightUBOSlot
		putVec3(data[base:], light.Position[0], light.Position[1], light.Position[2])
		putVec3(data[base+16:], light.Ambient[0], light.Ambient[1], light.Ambient[2])
		putVec3(data[base+32:], light.Diffuse[0], light.Diffuse[1], light.Diffuse[2])
		putVec3(data[base+48:], light.Specular[0], light.Specular[1], light.Specular[2])
	}
	binary.LittleEndian.PutUint32(data[scene.MaxLights*lightUBOSlot:], uint32(len(lights.Lights)))
	return gu.LightsBuffer.LoadData(context, 0, data)
}

func (gu *GraphicsUniforms) Destroy(context *VulkanContext) {
	if gu.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, gu.descriptorPool, context.Allocator)
		gu.descriptorPool = vk.NullDescriptorPool
	}
	if gu.Layout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, gu.Layout, context.Allocator)
		gu.Layout = vk.NullDescriptorSetLayout
	}
	if gu.LightsBuffer != nil {
		gu.LightsBuffer.Destroy(context)
		gu.LightsBuffer = nil
	}
	if gu.CameraBuffer != nil {
		gu.CameraBuffer.Destroy(context)
		gu.CameraBuffer = nil
	}
}
