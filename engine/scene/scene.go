package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/config"
	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

// Scene bundles everything the renderer draws each frame: the orbit
// camera, the light rig, the static meshes and the animated snowfall.
type Scene struct {
	Camera   *Camera
	Lights   *Lights
	Meshes   []*Mesh
	Snowfall *Snowfall

	ClearColor [4]float32
}

// Setup assembles the whole scene from the configuration. The snow mesh
// is appended last so its dynamic instance buffer is the final binding
// the renderer touches per frame.
func Setup(cfg *config.Config, width, height uint32) *Scene {
	camera := NewCamera(SphericalPoint3{R: 18.0, Theta: 1.7, Phi: 0.9}, mgl32.Vec3{0, 1, 0}, width, height)

	lights := SetupLights()
	lights.Add(
		mgl32.Vec3{10, -10, 10},
		mgl32.Vec3{0.2, 0.2, 0.2},
		mgl32.Vec3{0.7, 0.7, 0.65},
		mgl32.Vec3{0.8, 0.8, 0.8},
	)
	lights.Add(
		mgl32.Vec3{-8, -6, -8},
		mgl32.Vec3{0.05, 0.05, 0.08},
		mgl32.Vec3{0.25, 0.25, 0.35},
		mgl32.Vec3{0.3, 0.3, 0.3},
	)

	snowfall := NewSnowfall(cfg.Simulation.Snowflakes, cfg.Simulation.Seed, DefaultSnowBounds())

	meshes := []*Mesh{GroundMesh()}
	meshes = append(meshes, TreeMesh()...)
	meshes = append(meshes, BaublesMesh(), snowfall.SnowMesh())

	core.LogInfo("scene ready: %d meshes, %d lights, %d snowflakes",
		len(meshes), len(lights.Lights), snowfall.Count())

	return &Scene{
		Camera:     camera,
		Lights:     lights,
		Meshes:     meshes,
		Snowfall:   snowfall,
		ClearColor: cfg.Renderer.ClearColor,
	}
}
