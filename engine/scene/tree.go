package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

const treeSides = 24

// TreeMesh generates the tree procedurally: a brown trunk cylinder and
// three stacked green cones. Y points down, so the tree grows towards
// negative Y from the ground plane at y = 5.
func TreeMesh() []*Mesh {
	needles := Color{
		Ambient:   mgl32.Vec3{0.02, 0.09, 0.02},
		Diffuse:   mgl32.Vec3{0.076, 0.35, 0.086},
		Specular:  mgl32.Vec3{0.063, 0.16, 0.086},
		Shininess: 12.8,
	}
	bark := Color{
		Ambient:   mgl32.Vec3{0.09, 0.05, 0.02},
		Diffuse:   mgl32.Vec3{0.35, 0.2, 0.08},
		Specular:  mgl32.Vec3{0.05, 0.05, 0.05},
		Shininess: 6.0,
	}

	trunk := cylinderMesh("mesh.tree.trunk", 0.35, 5.0, 3.6, bark)

	// Each cone overlaps the one below it.
	tiers := []*Mesh{
		coneMesh("mesh.tree.tier0", 2.4, 4.0, 0.6, needles),
		coneMesh("mesh.tree.tier1", 1.9, 1.8, -1.4, needles),
		coneMesh("mesh.tree.tier2", 1.3, -0.2, -3.2, needles),
	}

	return append([]*Mesh{trunk}, tiers...)
}

// coneMesh builds a cone with its base circle at yBase and apex at yApex
// (yApex < yBase in this scene).
func coneMesh(owner string, radius, yBase, yApex float32, color Color) *Mesh {
	vertices := make([]Vertex, 0, 2*treeSides+2)
	indices := make([]uint32, 0, 6*treeSides)

	height := yBase - yApex
	// For a cone the side normal tilts by atan(radius/height) from horizontal.
	tilt := float32(math.Atan2(float64(radius), float64(height)))
	st, ct := sincos(tilt)

	for i := 0; i < treeSides; i++ {
		angle := 2 * math.Pi * float32(i) / treeSides
		s, c := sincos(angle)
		normal := mgl32.Vec3{ct * s, -st, ct * c}
		vertices = append(vertices,
			Vertex{Pos: mgl32.Vec3{radius * s, yBase, radius * c}, Norm: normal},
			Vertex{Pos: mgl32.Vec3{0, yApex, 0}, Norm: normal},
		)
	}
	for i := 0; i < treeSides; i++ {
		base := uint32(2 * i)
		next := uint32(2*((i+1)%treeSides))
		indices = append(indices, base, base+1, next)
	}

	return &Mesh{
		ID:        core.NewIdentifier(owner),
		Vertices:  vertices,
		Indices:   indices,
		Instances: []InstanceData{{Model: mgl32.Ident4(), Color: color}},
	}
}

func cylinderMesh(owner string, radius, yBottom, yTop float32, color Color) *Mesh {
	vertices := make([]Vertex, 0, 2*treeSides)
	indices := make([]uint32, 0, 6*treeSides)

	for i := 0; i < treeSides; i++ {
		angle := 2 * math.Pi * float32(i) / treeSides
		s, c := sincos(angle)
		normal := mgl32.Vec3{s, 0, c}
		vertices = append(vertices,
			Vertex{Pos: mgl32.Vec3{radius * s, yBottom, radius * c}, Norm: normal},
			Vertex{Pos: mgl32.Vec3{radius * s, yTop, radius * c}, Norm: normal},
		)
	}
	for i := 0; i < treeSides; i++ {
		b0 := uint32(2 * i)
		t0 := b0 + 1
		b1 := uint32(2 * ((i + 1) % treeSides))
		t1 := b1 + 1
		indices = append(indices, b0, t0, b1, t0, t1, b1)
	}

	return &Mesh{
		ID:        core.NewIdentifier(owner),
		Vertices:  vertices,
		Indices:   indices,
		Instances: []InstanceData{{Model: mgl32.Ident4(), Color: color}},
	}
}
