package vulkan

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/scene"
)

// gpuFlakeStride is the std430 size of one particle record on the
// device: vec3 position and vec3 rotation, each padded to 16 bytes.
const gpuFlakeStride = 32

// SnowCompute owns the GPU side of the snowfall simulation: the
// persistent particle state buffer, the descriptor plumbing and the
// compute pipeline that advances it every frame.
type SnowCompute struct {
	Pipeline *VulkanPipeline

	FlakeBuffer    *VulkanBuffer
	InstanceBuffer *VulkanBuffer

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSet       vk.DescriptorSet

	count int
}

// NewSnowCompute uploads the seeded particle state and wires both
// storage buffers into one descriptor set. The instance buffer doubles
// as the snow mesh's per-instance vertex buffer, which is what makes
// the dispatch-then-draw chain work without a host round trip.
func NewSnowCompute(context *VulkanContext, comp *VulkanShaderModule, snowfall *scene.Snowfall, instanceBuffer *VulkanBuffer) (*SnowCompute, error) {
	sc := &SnowCompute{
		InstanceBuffer: instanceBuffer,
		count:          snowfall.Count(),
	}

	flakeBuffer, err := NewDeviceLocalBuffer(context, packFlakes(snowfall),
		vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit))
	if err != nil {
		return nil, err
	}
	sc.FlakeBuffer = flakeBuffer

	layoutBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		},
	}
	layoutCreateInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &sc.descriptorSetLayout); res != vk.Success {
		err := fmt.Errorf("failed to create compute descriptor set layout: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 2},
	}
	poolCreateInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &sc.descriptorPool); res != vk.Success {
		err := fmt.Errorf("failed to create compute descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     sc.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{sc.descriptorSetLayout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate compute descriptor set: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	sc.descriptorSet = sets[0]

	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sc.descriptorSet,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: sc.FlakeBuffer.Handle, Offset: 0, Range: sc.FlakeBuffer.Size},
			},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          sc.descriptorSet,
			DstBinding:      1,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{
				{Buffer: sc.InstanceBuffer.Handle, Offset: 0, Range: sc.InstanceBuffer.Size},
			},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)

	pipeline, err := NewComputePipeline(context, comp, sc.descriptorSetLayout)
	if err != nil {
		return nil, err
	}
	sc.Pipeline = pipeline

	core.LogInfo("snow compute ready: %d particles, %d workgroups per step", sc.count, sc.workgroups())
	return sc, nil
}

func (sc *SnowCompute) workgroups() uint32 {
	return uint32((sc.count + scene.SimulationBatch - 1) / scene.SimulationBatch)
}

// RecordDispatch records the simulation step for this frame: one
// invocation per particle, dt passed as a push constant.
func (sc *SnowCompute) RecordDispatch(commandBuffer *VulkanCommandBuffer, dt float32) {
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointCompute, sc.Pipeline.Handle)
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointCompute, sc.Pipeline.Layout,
		0, 1, []vk.DescriptorSet{sc.descriptorSet}, 0, nil)

	dtBits := dt
	vk.CmdPushConstants(commandBuffer.Handle, sc.Pipeline.Layout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, 4, unsafe.Pointer(&dtBits))

	vk.CmdDispatch(commandBuffer.Handle, sc.workgroups(), 1, 1)
}

// RecordBarrier orders the compute writes to the instance buffer before
// the vertex input stage reads it in the same command buffer.
func (sc *SnowCompute) RecordBarrier(commandBuffer *VulkanCommandBuffer) {
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessShaderWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessVertexAttributeReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              sc.InstanceBuffer.Handle,
		Offset:              0,
		Size:                sc.InstanceBuffer.Size,
	}

	vk.CmdPipelineBarrier(commandBuffer.Handle,
		vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		0,
		0, nil,
		1, []vk.BufferMemoryBarrier{barrier},
		0, nil)
}

func (sc *SnowCompute) Destroy(context *VulkanContext) {
	if sc.Pipeline != nil {
		sc.Pipeline.Destroy(context)
	}
	if sc.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, sc.descriptorPool, context.Allocator)
		sc.descriptorPool = vk.NullDescriptorPool
	}
	if sc.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, sc.descriptorSetLayout, context.Allocator)
		sc.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
	if sc.FlakeBuffer != nil {
		sc.FlakeBuffer.Destroy(context)
		sc.FlakeBuffer = nil
	}
	// InstanceBuffer belongs to the snow mesh.
}

// packFlakes serializes particle state into the std430 layout the
// compute shader declares.
func packFlakes(snowfall *scene.Snowfall) []byte {
	data := make([]byte, snowfall.Count()*gpuFlakeStride)
	for i := 0; i < snowfall.Count(); i++ {
		flake := snowfall.Flake(i)
		base := i * gpuFlakeStride
		putVec3(data[base:], flake.Position[0], flake.Position[1], flake.Position[2])
		putVec3(data[base+16:], flake.Rotation[0], flake.Rotation[1], flake.Rotation[2])
	}
	return data
}

func putVec3(dst []byte, x, y, z float32) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(z))
}
