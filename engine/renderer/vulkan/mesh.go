package vulkan

import (
	"encoding/binary"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/scene"
)

// VulkanMesh is the device-resident form of a scene mesh. Static meshes
// get device-local instance buffers; the snow mesh's instance buffer is
// additionally a storage buffer so the simulation can write it.
type VulkanMesh struct {
	ID core.Identifier

	VertexBuffer   *VulkanBuffer
	IndexBuffer    *VulkanBuffer
	InstanceBuffer *VulkanBuffer

	IndexCount    uint32
	InstanceCount uint32
	Dynamic       bool
}

func NewVulkanMesh(context *VulkanContext, mesh *scene.Mesh) (*VulkanMesh, error) {
	vm := &VulkanMesh{
		ID:            mesh.ID,
		IndexCount:    uint32(len(mesh.Indices)),
		InstanceCount: uint32(len(mesh.Instances)),
		Dynamic:       mesh.Dynamic,
	}

	vertexBuffer, err := NewDeviceLocalBuffer(context, packVertices(mesh.Vertices),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	vm.VertexBuffer = vertexBuffer

	indexData := make([]byte, 4*len(mesh.Indices))
	for i, idx := range mesh.Indices {
		binary.LittleEndian.PutUint32(indexData[i*4:], idx)
	}
	indexBuffer, err := NewDeviceLocalBuffer(context, indexData,
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return nil, err
	}
	vm.IndexBuffer = indexBuffer

	instanceUsage := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	if mesh.Dynamic {
		instanceUsage |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	instanceBuffer, err := NewDeviceLocalBuffer(context, PackInstances(mesh.Instances), instanceUsage)
	if err != nil {
		return nil, err
	}
	vm.InstanceBuffer = instanceBuffer

	core.LogDebug("%s: uploaded %d vertices, %d indices, %d instances",
		mesh.ID, len(mesh.Vertices), len(mesh.Indices), len(mesh.Instances))
	return vm, nil
}

// RecordDraw binds the mesh's buffers and issues the instanced draw.
func (vm *VulkanMesh) RecordDraw(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 2,
		[]vk.Buffer{vm.VertexBuffer.Handle, vm.InstanceBuffer.Handle},
		[]vk.DeviceSize{0, 0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, vm.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, vm.IndexCount, vm.InstanceCount, 0, 0, 0)
}

func (vm *VulkanMesh) Destroy(context *VulkanContext) {
	if vm.InstanceBuffer != nil {
		vm.InstanceBuffer.Destroy(context)
	}
	if vm.IndexBuffer != nil {
		vm.IndexBuffer.Destroy(context)
	}
	if vm.VertexBuffer != nil {
		vm.VertexBuffer.Destroy(context)
	}
}

func packVertices(vertices []scene.Vertex) []byte {
	data := make([]byte, vertexStride*len(vertices))
	for i, v := range vertices {
		base := i * vertexStride
		putVec3(data[base:], v.Pos[0], v.Pos[1], v.Pos[2])
		putVec3(data[base+12:], v.Norm[0], v.Norm[1], v.Norm[2])
	}
	return data
}

// PackInstances serializes per-instance records: the model matrix
// column-major, then the material.
func PackInstances(instances []scene.InstanceData) []byte {
	data := make([]byte, instanceStride*len(instances))
	for i, inst := range instances {
		base := i * instanceStride
		for j, f := range inst.Model {
			binary.LittleEndian.PutUint32(data[base+j*4:], math.Float32bits(f))
		}
		putVec3(data[base+64:], inst.Color.Ambient[0], inst.Color.Ambient[1], inst.Color.Ambient[2])
		putVec3(data[base+76:], inst.Color.Diffuse[0], inst.Color.Diffuse[1], inst.Color.Diffuse[2])
		putVec3(data[base+88:], inst.Color.Specular[0], inst.Color.Specular[1], inst.Color.Specular[2])
		binary.LittleEndian.PutUint32(data[base+100:], math.Float32bits(inst.Color.Shininess))
	}
	return data
}
