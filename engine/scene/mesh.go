package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// Vertex is the per-vertex input consumed at binding 0. Field order is
// the wire layout; the device reads this memory directly.
type Vertex struct {
	Pos  mgl32.Vec3
	Norm mgl32.Vec3
}

// Color is the Phong material block carried per instance.
type Color struct {
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32
}

// InstanceData is the per-instance input consumed at binding 1: the
// model matrix occupies four consecutive vec4 attribute slots, followed
// by the material fields. The layout must match the vertex shader and
// the compute shader byte for byte.
type InstanceData struct {
	Model mgl32.Mat4
	Color Color
}

// Mesh bundles geometry with its draw instances. Static meshes upload
// their instances once; the snow mesh marks Dynamic and has its
// instance buffer rewritten by the simulation every frame.
type Mesh struct {
	ID        core.Identifier
	Vertices  []Vertex
	Indices   []uint32
	Instances []InstanceData
	Dynamic   bool
}
