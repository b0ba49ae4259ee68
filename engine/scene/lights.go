package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the fixed size of the lights uniform array. The shader
// declares the same bound.
const MaxLights = 2

type Light struct {
	Position mgl32.Vec3
	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3
}

type Lights struct {
	Lights []Light
}

func SetupLights() *Lights {
	return &Lights{Lights: []Light{}}
}

func (l *Lights) Add(position, ambient, diffuse, specular mgl32.Vec3) {
	if len(l.Lights) == MaxLights {
		return
	}
	l.Lights = append(l.Lights, Light{
		Position: position,
		Ambient:  ambient,
		Diffuse:  diffuse,
		Specular: specular,
	})
}
