package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/toxichemicals/GO/holy-textures/internal/shape"
)

// TextureMode selects what the fragment stage samples.
type TextureMode int

const (
	SourceA TextureMode = iota + 1
	SourceB
	Procedural
)

// Code is the value sent to the mode uniform.
func (m TextureMode) Code() int32 { return int32(m) }

func (m TextureMode) String() string {
	switch m {
	case SourceA:
		return "source-a"
	case SourceB:
		return "source-b"
	case Procedural:
		return "procedural"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	// ResetAngles are the angles the reset key restores.
	ResetAngles = mgl32.Vec3{30, 30, 0}

	initialAngles = map[shape.Kind]mgl32.Vec3{
		shape.Sphere: {180, 180, 0},
		shape.Cube:   {30, 30, 0},
		shape.Model:  {30, 30, 0},
	}
)

// State is what the next frame shows. Each shape keeps its own rotation,
// so switching shapes returns to where that shape was left.
type State struct {
	Shape shape.Kind
	Mode  TextureMode

	angles map[shape.Kind]mgl32.Vec3
}

// NewState returns the startup selection: the sphere with source A.
func NewState() *State {
	s := &State{Shape: shape.Sphere, Mode: SourceA, angles: map[shape.Kind]mgl32.Vec3{}}
	for k, v := range initialAngles {
		s.angles[k] = v
	}
	return s
}

// Angles returns the current shape's rotation in degrees.
func (s *State) Angles() mgl32.Vec3 {
	return s.angles[s.Shape]
}

// Rotate adds delta degrees about axis (0, 1 or 2) of the current shape.
func (s *State) Rotate(axis int, delta float32) {
	a := s.angles[s.Shape]
	a[axis] += delta
	s.angles[s.Shape] = a
}

// ResetAngles restores the current shape's rotation to ResetAngles.
func (s *State) ResetAngles() {
	s.angles[s.Shape] = ResetAngles
}
