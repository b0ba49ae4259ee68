package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SphericalPoint3 locates the camera in spherical coordinates around the
// scene origin. The coordinate system is the Vulkan one: X right, Y down,
// Z towards the viewer. R is the radial distance, Theta the polar angle
// from +Y, Phi the azimuth from +Z in the XZ plane. Angles in radians.
type SphericalPoint3 struct {
	R, Theta, Phi float32
}

func (p SphericalPoint3) Cartesian() mgl32.Vec3 {
	st, ct := sincos(p.Theta)
	sp, cp := sincos(p.Phi)
	return mgl32.Vec3{p.R * st * sp, p.R * ct, p.R * st * cp}
}

// Camera produces the view/projection uniform consumed by the shaders.
type Camera struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Position   SphericalPoint3

	lookAt mgl32.Vec3
}

func NewCamera(position SphericalPoint3, lookAt mgl32.Vec3, width, height uint32) *Camera {
	c := &Camera{
		Position: position,
		lookAt:   lookAt,
	}
	c.updateView()
	c.Resize(width, height)
	return c
}

func (c *Camera) updateView() {
	// Y points down, hence the flipped up vector.
	c.View = mgl32.LookAtV(c.Position.Cartesian(), c.lookAt, mgl32.Vec3{0, -1, 0})
}

// Resize recomputes the projection for a new surface aspect ratio.
func (c *Camera) Resize(width, height uint32) {
	if height == 0 {
		height = 1
	}
	c.Projection = mgl32.Perspective(mgl32.DegToRad(45.0), float32(width)/float32(height), 0.1, 100.0)
}

// RotateHorizontally orbits the camera around the vertical axis.
func (c *Camera) RotateHorizontally(angle float32) {
	c.Position.Phi += angle
	c.updateView()
}

// RotateVertically tilts the camera, stopping short of the poles where
// the view basis would degenerate.
func (c *Camera) RotateVertically(angle float32) {
	const margin = 0.01
	c.Position.Theta = clamp(c.Position.Theta+angle, margin, math.Pi-margin)
	c.updateView()
}
