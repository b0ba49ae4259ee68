package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestSphericalCartesian(t *testing.T) {
	// Theta 0 sits on the +Y axis regardless of Phi.
	p := SphericalPoint3{R: 5, Theta: 0, Phi: 1.3}
	got := p.Cartesian()
	assert.InDelta(t, 0, got.X(), 1e-5)
	assert.InDelta(t, 5, got.Y(), 1e-5)
	assert.InDelta(t, 0, got.Z(), 1e-5)

	// Theta pi/2, Phi 0 points along +Z.
	p = SphericalPoint3{R: 2, Theta: math.Pi / 2, Phi: 0}
	got = p.Cartesian()
	assert.InDelta(t, 0, got.X(), 1e-5)
	assert.InDelta(t, 0, got.Y(), 1e-5)
	assert.InDelta(t, 2, got.Z(), 1e-5)

	// Theta pi/2, Phi pi/2 points along +X.
	p = SphericalPoint3{R: 2, Theta: math.Pi / 2, Phi: math.Pi / 2}
	got = p.Cartesian()
	assert.InDelta(t, 2, got.X(), 1e-5)
	assert.InDelta(t, 0, got.Y(), 1e-5)
	assert.InDelta(t, 0, got.Z(), 1e-5)
}

func TestCartesianRadius(t *testing.T) {
	p := SphericalPoint3{R: 18, Theta: 1.7, Phi: 0.9}
	assert.InDelta(t, 18, float64(p.Cartesian().Len()), 1e-4)
}

func TestRotateHorizontallyKeepsRadius(t *testing.T) {
	c := NewCamera(SphericalPoint3{R: 18, Theta: 1.7, Phi: 0.9}, mgl32.Vec3{0, 1, 0}, 800, 600)
	before := c.Position.Cartesian().Len()
	c.RotateHorizontally(0.5)
	assert.InDelta(t, float64(before), float64(c.Position.Cartesian().Len()), 1e-4)
	assert.InDelta(t, 1.4, float64(c.Position.Phi), 1e-5)
}

func TestRotateVerticallyClampsAtPoles(t *testing.T) {
	c := NewCamera(SphericalPoint3{R: 10, Theta: 1.0, Phi: 0}, mgl32.Vec3{}, 800, 600)

	c.RotateVertically(100)
	assert.Less(t, float64(c.Position.Theta), math.Pi)

	c.RotateVertically(-100)
	assert.Greater(t, float64(c.Position.Theta), 0.0)
}

func TestResizeChangesProjection(t *testing.T) {
	c := NewCamera(SphericalPoint3{R: 10, Theta: 1.0, Phi: 0}, mgl32.Vec3{}, 800, 600)
	wide := c.Projection
	c.Resize(1600, 600)
	assert.NotEqual(t, wide, c.Projection)

	// Zero height must not divide by zero.
	c.Resize(800, 0)
	assert.False(t, math.IsNaN(float64(c.Projection.At(0, 0))))
}
