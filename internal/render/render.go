// Package render draws one frame of the selected shape with the shared
// program and both texture slots.
package render

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
	"github.com/toxichemicals/GO/holy-textures/internal/mesh"
	"github.com/toxichemicals/GO/holy-textures/internal/program"
	"github.com/toxichemicals/GO/holy-textures/internal/shape"
	"github.com/toxichemicals/GO/holy-textures/internal/texture"
)

// Surface is whatever is being drawn into.
type Surface interface {
	// DrawableSize returns the framebuffer size in pixels.
	DrawableSize() (width, height int)
}

// Setup applies the state every frame relies on.
func Setup(dev gpu.Device, clear mgl32.Vec4) {
	dev.ClearColor(clear[0], clear[1], clear[2], clear[3])
	dev.Enable(gpu.DepthTest)
	dev.Enable(gpu.CullFace)
	dev.CullBackFaces()
	dev.FrontFaceCCW()
	dev.DepthFuncLessEqual()
	dev.ClearDepth(1)
}

// Renderer draws frames. It holds no selection state of its own.
type Renderer struct {
	dev     gpu.Device
	surface Surface
	prog    *program.Program
	meshes  mesh.Set
	slotA   *texture.Slot
	slotB   *texture.Slot
	log     *slog.Logger

	frames int
}

// NewRenderer puts slotA on the program's unit A and slotB on unit B, and
// returns a renderer that binds both on every draw.
func NewRenderer(dev gpu.Device, surface Surface, prog *program.Program, meshes mesh.Set, slotA, slotB *texture.Slot, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	slotA.Unit = program.UnitA
	slotB.Unit = program.UnitB
	return &Renderer{
		dev:     dev,
		surface: surface,
		prog:    prog,
		meshes:  meshes,
		slotA:   slotA,
		slotB:   slotB,
		log:     logger,
	}
}

// Draw renders st into the surface and restores the nothing-bound
// baseline.
func (r *Renderer) Draw(st *State) {
	r.dev.Clear(gpu.ColorBufferBit | gpu.DepthBufferBit)
	w, h := r.surface.DrawableSize()
	r.dev.Viewport(0, 0, w, h)

	m, ok := r.meshes[st.Shape]
	if !ok {
		m, ok = r.meshes[shape.Sphere]
	}
	if !ok {
		r.log.Warn("nothing to draw", "shape", st.Shape)
		return
	}

	r.prog.Use(r.dev)

	r.slotA.Bind(r.dev)
	r.slotB.Bind(r.dev)

	r.dev.Uniform1i(r.prog.Uniforms.Mode, st.Mode.Code())
	r.dev.Uniform3f(r.prog.Uniforms.Theta, st.Angles())

	m.Draw(r.dev)

	// B first so A's unit is the active one afterwards
	r.slotB.Unbind(r.dev)
	r.slotA.Unbind(r.dev)
	r.frames++
}

// Frames returns the number of frames drawn.
func (r *Renderer) Frames() int { return r.frames }
