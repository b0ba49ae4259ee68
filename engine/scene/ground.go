package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// GroundMesh is a single white quad in the XZ plane at the bottom of the
// snow volume (Y points down, so the floor sits at y = +5).
func GroundMesh() *Mesh {
	vertices := []Vertex{
		{Pos: mgl32.Vec3{-0.5, 0.0, -0.5}, Norm: mgl32.Vec3{0, -1, 0}},
		{Pos: mgl32.Vec3{0.5, 0.0, -0.5}, Norm: mgl32.Vec3{0, -1, 0}},
		{Pos: mgl32.Vec3{0.5, 0.0, 0.5}, Norm: mgl32.Vec3{0, -1, 0}},
		{Pos: mgl32.Vec3{-0.5, 0.0, 0.5}, Norm: mgl32.Vec3{0, -1, 0}},
	}
	indices := []uint32{0, 2, 1, 3, 2, 0}

	color := Color{
		Ambient:   mgl32.Vec3{1.0, 1.0, 1.0},
		Diffuse:   mgl32.Vec3{0.9, 0.9, 0.95},
		Specular:  mgl32.Vec3{0.1, 0.1, 0.1},
		Shininess: 4.0,
	}
	model := mgl32.Translate3D(0, 5, 0).Mul4(mgl32.Scale3D(25, 1, 25))

	return &Mesh{
		ID:        core.NewIdentifier("mesh.ground"),
		Vertices:  vertices,
		Indices:   indices,
		Instances: []InstanceData{{Model: model, Color: color}},
	}
}
