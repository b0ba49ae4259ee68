package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

const (
	baublePrecision = 8
	baubleRadius    = 0.2
)

// BaublesMesh is one sphere drawn once per decoration, instanced across
// the tree tiers.
func BaublesMesh() *Mesh {
	color := Color{
		Ambient:   mgl32.Vec3{0.1745, 0.01175, 0.01175},
		Diffuse:   mgl32.Vec3{0.61424, 0.04136, 0.04136},
		Specular:  mgl32.Vec3{0.727811, 0.626959, 0.626959},
		Shininess: 76.8,
	}

	positions := []mgl32.Vec3{
		{2.0, 3.6, 0.8}, {-1.6, 3.7, -1.4}, {0.3, 3.5, -2.2},
		{1.5, 1.3, -0.9}, {-1.4, 1.2, 1.0}, {0.1, 1.4, 1.7},
		{0.9, -0.8, 0.6}, {-0.8, -0.9, -0.7}, {0.0, -2.6, 0.8},
	}
	instances := make([]InstanceData, len(positions))
	for i, p := range positions {
		instances[i] = InstanceData{
			Model: mgl32.Translate3D(p[0], p[1], p[2]),
			Color: color,
		}
	}

	vertices, indices := genSphere()
	return &Mesh{
		ID:        core.NewIdentifier("mesh.baubles"),
		Vertices:  vertices,
		Indices:   indices,
		Instances: instances,
	}
}

// genSphere builds a latitude/longitude sphere with single vertices at
// the poles and baublePrecision-1 rings of 2*baublePrecision slices.
func genSphere() ([]Vertex, []uint32) {
	vertices := make([]Vertex, 0, 2*baublePrecision*baublePrecision)
	angleDiff := float32(math.Pi / baublePrecision)

	vertices = append(vertices, Vertex{
		Pos:  mgl32.Vec3{0, baubleRadius, 0},
		Norm: mgl32.Vec3{0, 1, 0},
	})
	for layer := 1; layer < baublePrecision; layer++ {
		sv, cv := sincos(angleDiff * float32(layer))
		layerRadius := baubleRadius * sv
		for slice := 0; slice < 2*baublePrecision; slice++ {
			sh, ch := sincos(angleDiff * float32(slice))
			vertices = append(vertices, Vertex{
				Pos:  mgl32.Vec3{layerRadius * sh, baubleRadius * cv, layerRadius * ch},
				Norm: mgl32.Vec3{sh, cv, ch},
			})
		}
	}
	vertices = append(vertices, Vertex{
		Pos:  mgl32.Vec3{0, -baubleRadius, 0},
		Norm: mgl32.Vec3{0, -1, 0},
	})

	// Pole layers collapse to their single vertex.
	findIndex := func(layer, slice uint32) uint32 {
		switch layer {
		case 0:
			return 0
		case baublePrecision:
			return (layer-1)*2*baublePrecision + 1
		default:
			return (layer-1)*2*baublePrecision + 1 + slice%(2*baublePrecision)
		}
	}

	indices := make([]uint32, 0, 3*4*baublePrecision*baublePrecision)
	for slice := uint32(0); slice < 2*baublePrecision; slice++ {
		indices = append(indices, findIndex(0, slice), findIndex(1, slice), findIndex(1, slice+1))
	}
	for layer := uint32(2); layer < baublePrecision; layer++ {
		for slice := uint32(0); slice < 2*baublePrecision; slice++ {
			indices = append(indices,
				findIndex(layer-1, slice), findIndex(layer, slice), findIndex(layer, slice+1),
				findIndex(layer-1, slice+1), findIndex(layer-1, slice), findIndex(layer, slice+1),
			)
		}
	}
	for slice := uint32(0); slice < 2*baublePrecision; slice++ {
		indices = append(indices,
			findIndex(baublePrecision-1, slice+1), findIndex(baublePrecision-1, slice), findIndex(baublePrecision, slice))
	}

	return vertices, indices
}
