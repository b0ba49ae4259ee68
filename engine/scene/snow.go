package scene

import (
	"math"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/exp/constraints"

	"github.com/jacekbilski/vulkan-christmas-tree/engine/core"
)

const (
	// MaxSnowflakes is the simulated particle count, fixed for the run.
	MaxSnowflakes = 10_000
	// SimulationBatch is the parallel-execution granularity. It matches
	// the compute shader's local workgroup size and must never change
	// the result of an update.
	SimulationBatch = 64
)

// SnowBounds is the simulation volume and motion configuration.
// Immutable for the process lifetime.
type SnowBounds struct {
	XMin, XMax float32
	YMin, YMax float32
	ZMin, ZMax float32
	// FallVelocity is added to Y every second. Y points down, so snow falls.
	FallVelocity float32
	// PositionJitter is the half-amplitude of the per-axis position noise.
	PositionJitter float32
	// RotationJitterRate is the half-amplitude of the per-axis angular
	// velocity noise, in radians per second.
	RotationJitterRate float32
}

func DefaultSnowBounds() SnowBounds {
	return SnowBounds{
		XMin: -10.0, XMax: 10.0,
		YMin: -10.0, YMax: 5.0,
		ZMin: -10.0, ZMax: 10.0,
		FallVelocity:       0.15,
		PositionJitter:     0.002,
		RotationJitterRate: 2.0,
	}
}

// Snowflake is the simulation state of one particle. Rotation holds
// Euler angles that accumulate without bound.
type Snowflake struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
}

// jitterSource is the per-invocation pseudo-random generator. It is a
// plain value threaded through one particle's update, never shared.
// Same LCG as the compute shader.
type jitterSource struct {
	state uint32
}

// newJitterSource seeds the generator from the particle index combined
// with the bit pattern of the frame's time delta, so every (index, dt)
// pair replays an identical jitter sequence.
func newJitterSource(index uint32, dt float32) jitterSource {
	return jitterSource{state: index ^ math.Float32bits(dt)}
}

func (j *jitterSource) next() uint32 {
	j.state = 1664525*j.state + 1013904223
	return j.state
}

// draw returns a value in [min, max).
func (j *jitterSource) draw(min, max float32) float32 {
	u := float32(float64(j.next()) / (1 << 32))
	return min + u*(max-min)
}

// UpdateSnowflake advances one particle by dt seconds. It is a pure
// function of (index, dt, previous state, bounds): no cross-particle
// reads, no shared state, so any parallelization over indices is valid.
//
// Boundary policy: X and Z clamp hard to the bounds, Y wraps by the
// volume height once it passes YMax, preserving the overshoot. The
// asymmetry is intentional - flakes that reach the ground re-enter at
// the top of the volume with their sub-step progress intact.
func UpdateSnowflake(index uint32, dt float32, flake Snowflake, b SnowBounds) Snowflake {
	j := newJitterSource(index, dt)

	p := flake.Position
	p[0] += j.draw(-b.PositionJitter, b.PositionJitter)
	p[0] = clamp(p[0], b.XMin, b.XMax)

	p[1] += dt*b.FallVelocity + j.draw(-b.PositionJitter, b.PositionJitter)
	if p[1] > b.YMax {
		p[1] -= b.YMax - b.YMin
	}

	p[2] += j.draw(-b.PositionJitter, b.PositionJitter)
	p[2] = clamp(p[2], b.ZMin, b.ZMax)

	r := flake.Rotation
	r[0] += dt * j.draw(-b.RotationJitterRate, b.RotationJitterRate)
	r[1] += dt * j.draw(-b.RotationJitterRate, b.RotationJitterRate)
	r[2] += dt * j.draw(-b.RotationJitterRate, b.RotationJitterRate)

	return Snowflake{Position: p, Rotation: r}
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Instance derives the per-draw record for one particle: a model matrix
// built from the accumulated Euler angles and the position, plus the
// static snow material.
func (s Snowflake) Instance(color Color) InstanceData {
	return InstanceData{
		Model: eulerModelMatrix(s.Rotation, s.Position),
		Color: color,
	}
}

// eulerModelMatrix composes rotations about X, then Y, then Z into a
// single matrix with the position in the translation column. The column
// construction matches the compute shader's, so host- and device-derived
// instances are interchangeable.
func eulerModelMatrix(rot, pos mgl32.Vec3) mgl32.Mat4 {
	sx, cx := sincos(rot[0])
	sy, cy := sincos(rot[1])
	sz, cz := sincos(rot[2])

	// Column-major; each line below is one column.
	return mgl32.Mat4{
		cy * cz, cx*sz + sx*sy*cz, sx*sz - cx*sy*cz, 0,
		-cy * sz, cx*cz - sx*sy*sz, sx*cz + cx*sy*sz, 0,
		sy, -sx * cy, cx * cy, 0,
		pos[0], pos[1], pos[2], 1,
	}
}

func sincos(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(s), float32(c)
}

// Snowfall owns the particle state and republishes per-instance render
// data after every step. One record per flake, index-aligned: instance i
// is always derived from flake i of the same step.
type Snowfall struct {
	ID     core.Identifier
	bounds SnowBounds
	color  Color

	flakes    []Snowflake
	instances []InstanceData
}

// NewSnowfall seeds count particles uniformly inside the bounds using
// the given seed, so runs are reproducible.
func NewSnowfall(count int, seed int64, bounds SnowBounds) *Snowfall {
	rng := rand.New(rand.NewSource(seed))

	color := Color{
		Ambient:   mgl32.Vec3{1.0, 1.0, 1.0},
		Diffuse:   mgl32.Vec3{0.623960, 0.686685, 0.693872},
		Specular:  mgl32.Vec3{0.5, 0.5, 0.5},
		Shininess: 225.0,
	}

	s := &Snowfall{
		ID:        core.NewIdentifier("snowfall"),
		bounds:    bounds,
		color:     color,
		flakes:    make([]Snowflake, count),
		instances: make([]InstanceData, count),
	}

	uniform := func(lo, hi float32) float32 {
		return lo + rng.Float32()*(hi-lo)
	}
	for i := range s.flakes {
		s.flakes[i] = Snowflake{
			Position: mgl32.Vec3{
				uniform(bounds.XMin, bounds.XMax),
				uniform(bounds.YMin, bounds.YMax),
				uniform(bounds.ZMin, bounds.ZMax),
			},
			Rotation: mgl32.Vec3{
				uniform(0, 2*math.Pi),
				uniform(0, 2*math.Pi),
				uniform(0, 2*math.Pi),
			},
		}
		s.instances[i] = s.flakes[i].Instance(color)
	}

	core.LogDebug("%s: seeded %d flakes", s.ID, count)
	return s
}

func (s *Snowfall) Count() int         { return len(s.flakes) }
func (s *Snowfall) Bounds() SnowBounds { return s.bounds }
func (s *Snowfall) Color() Color       { return s.color }

// Flake returns a copy of particle i's state.
func (s *Snowfall) Flake(i int) Snowflake { return s.flakes[i] }

// Instances exposes the records derived by the most recent step. The
// slice is reused across steps; callers must not retain it across a
// Step call.
func (s *Snowfall) Instances() []InstanceData { return s.instances }

// Step advances every particle by dt seconds and rederives its instance
// record, fanning the work out in SimulationBatch-sized ranges. The
// batching is purely an execution granularity; results are identical
// for any batch size.
func (s *Snowfall) Step(dt float32) {
	var wg sync.WaitGroup
	for start := 0; start < len(s.flakes); start += SimulationBatch {
		end := start + SimulationBatch
		if end > len(s.flakes) {
			end = len(s.flakes)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				flake := UpdateSnowflake(uint32(i), dt, s.flakes[i], s.bounds)
				s.flakes[i] = flake
				s.instances[i] = flake.Instance(s.color)
			}
		}(start, end)
	}
	wg.Wait()
}

// SnowMesh builds the hexagonal double-sided flake disc and attaches the
// snowfall's initial instances.
func (s *Snowfall) SnowMesh() *Mesh {
	const radius float32 = 0.05
	normal := mgl32.Vec3{1, 0, 0}

	vertices := make([]Vertex, 0, 12)
	angleDiff := float32(math.Pi / 3)
	for i := 0; i < 6; i++ {
		sin, cos := sincos(float32(i) * angleDiff)
		// upper side
		vertices = append(vertices, Vertex{
			Pos:  mgl32.Vec3{0, radius * cos, radius * sin},
			Norm: normal,
		})
		// bottom side
		vertices = append(vertices, Vertex{
			Pos:  mgl32.Vec3{0, -radius * cos, -radius * sin},
			Norm: normal.Mul(-1),
		})
	}
	indices := []uint32{
		8, 4, 0, 10, 6, 2, // upper side
		1, 5, 9, 3, 7, 11, // bottom side
	}

	return &Mesh{
		ID:        core.NewIdentifier("mesh.snow"),
		Vertices:  vertices,
		Indices:   indices,
		Instances: s.instances,
		Dynamic:   true,
	}
}
