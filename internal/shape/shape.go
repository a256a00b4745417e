// Package shape generates the vertex, texture-coordinate and index arrays
// for the meshes the demo can display.
package shape

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies one of the known meshes.
type Kind int

const (
	Sphere Kind = iota
	Cube
	Model
)

func (k Kind) String() string {
	switch k {
	case Sphere:
		return "sphere"
	case Cube:
		return "cube"
	case Model:
		return "model"
	default:
		return fmt.Sprintf("shape(%d)", int(k))
	}
}

// MaxVertices is the largest vertex count addressable by 16-bit indices.
const MaxVertices = math.MaxUint16 + 1

var (
	ErrIndexOverflow = errors.New("shape: too many vertices for 16-bit indices")
	ErrMalformed     = errors.New("shape: malformed vertex data")
)

// Data holds flat arrays ready for upload: three position floats and two
// texture-coordinate floats per vertex, three indices per triangle.
type Data struct {
	Positions []float32
	UVs       []float32
	Indices   []uint16
}

// VertexCount returns the number of vertices described by Positions.
func (d Data) VertexCount() int {
	return len(d.Positions) / 3
}

// Validate checks that the arrays agree with each other.
func (d Data) Validate() error {
	n := d.VertexCount()
	switch {
	case len(d.Positions)%3 != 0:
		return fmt.Errorf("%w: %d position floats is not a multiple of 3", ErrMalformed, len(d.Positions))
	case len(d.UVs) != 2*n:
		return fmt.Errorf("%w: %d uv floats for %d vertices", ErrMalformed, len(d.UVs), n)
	case len(d.Indices)%3 != 0:
		return fmt.Errorf("%w: %d indices is not a whole number of triangles", ErrMalformed, len(d.Indices))
	case n > MaxVertices:
		return fmt.Errorf("%w: %d vertices", ErrIndexOverflow, n)
	}
	for _, i := range d.Indices {
		if int(i) >= n {
			return fmt.Errorf("%w: index %d out of range for %d vertices", ErrMalformed, i, n)
		}
	}
	return nil
}

// Tessellation carries the generator parameters for every procedural kind.
type Tessellation struct {
	SphereSlices int
	SphereStacks int
	CubeDivs     int
}

// DefaultTessellation matches the demo's sphere(20, 20) and cube(20).
var DefaultTessellation = Tessellation{SphereSlices: 20, SphereStacks: 20, CubeDivs: 20}

// Generate builds the procedural mesh for kind.
func Generate(kind Kind, t Tessellation) (Data, error) {
	switch kind {
	case Sphere:
		return NewSphere(t.SphereSlices, t.SphereStacks)
	case Cube:
		return NewCube(t.CubeDivs)
	default:
		return Data{}, fmt.Errorf("shape: no generator for %v", kind)
	}
}

// NewSphere builds a UV sphere of radius 0.5 centred on the origin. Seam and
// pole vertices are duplicated so every vertex has a unique texture coordinate.
func NewSphere(slices, stacks int) (Data, error) {
	if slices < 3 || stacks < 2 {
		return Data{}, fmt.Errorf("shape: sphere needs at least 3 slices and 2 stacks, got %d and %d", slices, stacks)
	}
	if (slices+1)*(stacks+1) > MaxVertices {
		return Data{}, fmt.Errorf("%w: sphere %dx%d", ErrIndexOverflow, slices, stacks)
	}
	const radius = 0.5

	var d Data
	for stack := 0; stack <= stacks; stack++ {
		theta := float64(stack) * math.Pi / float64(stacks)
		sinTheta, cosTheta := math.Sincos(theta)
		for slice := 0; slice <= slices; slice++ {
			phi := float64(slice) * 2 * math.Pi / float64(slices)
			sinPhi, cosPhi := math.Sincos(phi)
			d.Positions = append(d.Positions,
				float32(radius*cosPhi*sinTheta),
				float32(radius*cosTheta),
				float32(radius*sinPhi*sinTheta))
			d.UVs = append(d.UVs,
				float32(slice)/float32(slices),
				1-float32(stack)/float32(stacks))
		}
	}

	for stack := 0; stack < stacks; stack++ {
		for slice := 0; slice < slices; slice++ {
			current := uint16(stack*(slices+1) + slice)
			below := current + uint16(slices) + 1
			d.Indices = append(d.Indices,
				current, current+1, below,
				current+1, below+1, below)
		}
	}
	return d, nil
}

// cubeFaces lists each face as an origin corner and two edge vectors whose
// cross product is the outward normal, so the grid winds counter-clockwise.
var cubeFaces = [6][3]mgl32.Vec3{
	{{-0.5, -0.5, 0.5}, {1, 0, 0}, {0, 1, 0}},    // +Z
	{{0.5, -0.5, -0.5}, {-1, 0, 0}, {0, 1, 0}},   // -Z
	{{0.5, -0.5, 0.5}, {0, 0, -1}, {0, 1, 0}},    // +X
	{{-0.5, -0.5, -0.5}, {0, 0, 1}, {0, 1, 0}},   // -X
	{{-0.5, 0.5, 0.5}, {1, 0, 0}, {0, 0, -1}},    // +Y
	{{-0.5, -0.5, -0.5}, {1, 0, 0}, {0, 0, 1}},   // -Y
}

// NewCube builds a unit cube centred on the origin with every face split
// into divs x divs quads. Each face maps the full texture.
func NewCube(divs int) (Data, error) {
	if divs < 1 {
		return Data{}, fmt.Errorf("shape: cube needs at least 1 subdivision, got %d", divs)
	}
	perFace := (divs + 1) * (divs + 1)
	if 6*perFace > MaxVertices {
		return Data{}, fmt.Errorf("%w: cube with %d subdivisions", ErrIndexOverflow, divs)
	}

	var d Data
	for f, face := range cubeFaces {
		origin, u, v := face[0], face[1], face[2]
		for j := 0; j <= divs; j++ {
			for i := 0; i <= divs; i++ {
				s := float32(i) / float32(divs)
				t := float32(j) / float32(divs)
				p := origin.Add(u.Mul(s)).Add(v.Mul(t))
				d.Positions = append(d.Positions, p[0], p[1], p[2])
				d.UVs = append(d.UVs, s, t)
			}
		}
		base := f * perFace
		for j := 0; j < divs; j++ {
			for i := 0; i < divs; i++ {
				a := uint16(base + j*(divs+1) + i)
				b := a + 1
				c := b + uint16(divs) + 1
				e := a + uint16(divs) + 1
				d.Indices = append(d.Indices, a, b, c, a, c, e)
			}
		}
	}
	return d, nil
}
