package render

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
	"github.com/toxichemicals/GO/holy-textures/internal/gpu/gputest"
	"github.com/toxichemicals/GO/holy-textures/internal/mesh"
	"github.com/toxichemicals/GO/holy-textures/internal/program"
	"github.com/toxichemicals/GO/holy-textures/internal/shader"
	"github.com/toxichemicals/GO/holy-textures/internal/shape"
	"github.com/toxichemicals/GO/holy-textures/internal/texture"
)

type size struct{ w, h int }

func (s size) DrawableSize() (int, int) { return s.w, s.h }

type fixture struct {
	dev    *gputest.Device
	prog   *program.Program
	meshes mesh.Set
	loader *texture.Loader
	r      *Renderer
}

func newFixture(t *testing.T, kinds ...shape.Kind) *fixture {
	t.Helper()
	dev := gputest.New()
	prog, err := program.FromDocument(dev, shader.Default(), "sphereMap-V", "sphereMap-F")
	require.NoError(t, err)

	meshes := mesh.Set{}
	for _, k := range kinds {
		data, err := shape.Generate(k, shape.Tessellation{SphereSlices: 4, SphereStacks: 4, CubeDivs: 1})
		require.NoError(t, err)
		meshes[k], err = mesh.Bind(dev, data, prog.Attribs)
		require.NoError(t, err)
	}

	loader := texture.NewLoader(dev, []texture.Source{
		{Name: "a", Placeholder: color.RGBA{255, 0, 0, 255}},
		{Name: "b", Placeholder: color.RGBA{0, 255, 0, 255}},
	}, texture.Options{})

	r := NewRenderer(dev, size{640, 480}, prog, meshes, loader.Slot(0), loader.Slot(1), nil)
	return &fixture{dev: dev, prog: prog, meshes: meshes, loader: loader, r: r}
}

func TestDraw(t *testing.T) {
	f := newFixture(t, shape.Sphere, shape.Cube)
	st := NewState()
	st.Shape = shape.Cube
	st.Mode = Procedural

	f.r.Draw(st)
	require.Len(t, f.dev.Draws, 1)
	d := f.dev.Draws[0]

	assert.Equal(t, f.prog.Handle, d.Program)
	assert.Equal(t, f.meshes[shape.Cube].VAO(), d.VertexArray)
	assert.Equal(t, f.meshes[shape.Cube].IndexCount(), d.Count)
	assert.Equal(t, gpu.UnsignedShort, d.Type)
	assert.Equal(t, [4]int{0, 0, 640, 480}, d.Viewport)
	assert.Equal(t, f.loader.Slot(0).Handle(), d.Units[program.UnitA])
	assert.Equal(t, f.loader.Slot(1).Handle(), d.Units[program.UnitB])
	assert.Equal(t, int32(3), d.Uniforms[f.prog.Uniforms.Mode])
	assert.Equal(t, [3]float32{30, 30, 0}, d.Uniforms[f.prog.Uniforms.Theta])

	assert.Equal(t, []gpu.ClearMask{gpu.ColorBufferBit | gpu.DepthBufferBit}, f.dev.Clears)
	assert.True(t, f.dev.NothingBound())
	assert.Empty(t, f.dev.Units[program.UnitB], "unit 1 is unbound again")
	assert.Equal(t, program.UnitA, f.dev.ActiveUnit)
	assert.Equal(t, 1, f.r.Frames())
}

func TestDrawBindsSlotsToProgramUnits(t *testing.T) {
	f := newFixture(t, shape.Sphere)
	first, second := f.loader.Slot(0), f.loader.Slot(1)

	// swapped: the second loaded slot is sampled as A
	r := NewRenderer(f.dev, size{1, 1}, f.prog, f.meshes, second, first, nil)
	assert.Equal(t, program.UnitA, second.Unit)
	assert.Equal(t, program.UnitB, first.Unit)

	r.Draw(NewState())
	require.Len(t, f.dev.Draws, 1)
	d := f.dev.Draws[0]
	assert.Equal(t, second.Handle(), d.Units[program.UnitA])
	assert.Equal(t, first.Handle(), d.Units[program.UnitB])
	assert.True(t, f.dev.NothingBound())
	assert.Empty(t, f.dev.Units[program.UnitB])
}

func TestModeChangesOnlyTheModeUniform(t *testing.T) {
	f := newFixture(t, shape.Sphere)
	st := NewState()

	for _, m := range []TextureMode{SourceA, SourceB, Procedural} {
		st.Mode = m
		f.r.Draw(st)
	}
	require.Len(t, f.dev.Draws, 3)
	for i, d := range f.dev.Draws {
		assert.Equal(t, f.dev.Draws[0].Units, d.Units)
		assert.Equal(t, int32(i+1), d.Uniforms[f.prog.Uniforms.Mode])
		assert.Equal(t, f.dev.Draws[0].Uniforms[f.prog.Uniforms.Theta], d.Uniforms[f.prog.Uniforms.Theta])
	}
}

func TestDrawFallsBackToSphere(t *testing.T) {
	f := newFixture(t, shape.Sphere, shape.Cube)
	st := NewState()
	st.Shape = shape.Model

	f.r.Draw(st)
	require.Len(t, f.dev.Draws, 1)
	assert.Equal(t, f.meshes[shape.Sphere].VAO(), f.dev.Draws[0].VertexArray)
}

func TestDrawWithoutMeshes(t *testing.T) {
	f := newFixture(t)
	f.r.Draw(NewState())
	assert.Empty(t, f.dev.Draws)
	assert.Equal(t, 0, f.r.Frames())
}

func TestSetup(t *testing.T) {
	dev := gputest.New()
	Setup(dev, mgl32.Vec4{0, 0, 0, 1})
	assert.Equal(t, [4]float32{0, 0, 0, 1}, dev.ClearRGBA)
	assert.True(t, dev.Enabled[gpu.DepthTest])
	assert.True(t, dev.Enabled[gpu.CullFace])
	assert.Equal(t, 1.0, dev.DepthClear)
	assert.Equal(t, 1, dev.CallCount("CullBackFaces"))
	assert.Equal(t, 1, dev.CallCount("FrontFaceCCW"))
	assert.Equal(t, 1, dev.CallCount("DepthFuncLessEqual"))
}

func TestState(t *testing.T) {
	st := NewState()
	assert.Equal(t, shape.Sphere, st.Shape)
	assert.Equal(t, SourceA, st.Mode)
	assert.Equal(t, mgl32.Vec3{180, 180, 0}, st.Angles())

	st.Rotate(0, 5)
	st.Rotate(2, -5)
	assert.Equal(t, mgl32.Vec3{185, 180, -5}, st.Angles())

	st.Shape = shape.Cube
	assert.Equal(t, mgl32.Vec3{30, 30, 0}, st.Angles())
	st.Rotate(1, 5)
	st.ResetAngles()
	assert.Equal(t, ResetAngles, st.Angles())

	st.Shape = shape.Sphere
	assert.Equal(t, mgl32.Vec3{185, 180, -5}, st.Angles(), "angles are kept per shape")

	assert.Equal(t, int32(2), SourceB.Code())
	assert.Equal(t, "procedural", Procedural.String())
}
