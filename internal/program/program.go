// Package program compiles and links the demo's shader program and caches
// the locations of its inputs.
package program

import (
	"fmt"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
	"github.com/toxichemicals/GO/holy-textures/internal/shader"
)

// Names of the shader inputs the program looks up.
const (
	PositionAttrib  = "aVertexPosition"
	UVAttrib        = "aUV"
	SamplerAUniform = "theTexture"
	SamplerBUniform = "myImageTexture"
	ThetaUniform    = "theta"
	ModeUniform     = "textureMode"
)

// Texture units the two samplers are permanently bound to.
const (
	UnitA = 0
	UnitB = 1
)

// BuildError reports a compile or link failure together with the driver log.
type BuildError struct {
	Stage string // "vertex", "fragment" or "link"
	ID    string // script id, empty for link errors
	Log   string
}

func (e *BuildError) Error() string {
	if e.Stage == "link" {
		return fmt.Sprintf("failed to link program:\n%v", e.Log)
	}
	return fmt.Sprintf("failed to compile %s shader %s:\n%v", e.Stage, e.ID, e.Log)
}

// Attributes holds the resolved vertex attribute locations.
type Attributes struct {
	Position gpu.AttribLocation
	UV       gpu.AttribLocation
}

// Uniforms holds the resolved uniform locations.
type Uniforms struct {
	SamplerA gpu.UniformLocation
	SamplerB gpu.UniformLocation
	Theta    gpu.UniformLocation
	Mode     gpu.UniformLocation
}

// Program is a linked shader program with its cached locations.
type Program struct {
	Handle   gpu.Program
	Attribs  Attributes
	Uniforms Uniforms
	linked   bool
}

// Linked reports whether the program linked successfully.
func (p *Program) Linked() bool {
	return p.linked
}

// Use makes p the current program.
func (p *Program) Use(dev gpu.Device) {
	dev.UseProgram(p.Handle)
}

// Release deletes the program object.
func (p *Program) Release(dev gpu.Device) {
	dev.DeleteProgram(p.Handle)
}

// Build compiles vertex and fragment, links them and resolves the input
// locations. On failure the returned error is a *BuildError and the
// returned Program, although non-nil, may not render anything; its
// locations are then all -1.
//
// After a successful link the program is left current and its samplers are
// bound to UnitA and UnitB. That binding is part of the program object's
// state and never needs repeating.
func Build(dev gpu.Device, vertex, fragment shader.Source) (*Program, error) {
	p := &Program{
		Handle:   dev.CreateProgram(),
		Attribs:  Attributes{Position: -1, UV: -1},
		Uniforms: Uniforms{SamplerA: -1, SamplerB: -1, Theta: -1, Mode: -1},
	}

	var shaders []gpu.Shader
	defer func() {
		// No longer need shader objects once the program is linked (or dead).
		for _, s := range shaders {
			dev.DeleteShader(s)
		}
	}()

	for _, src := range []shader.Source{vertex, fragment} {
		s, err := compile(dev, src)
		shaders = append(shaders, s)
		if err != nil {
			return p, err
		}
		dev.AttachShader(p.Handle, s)
	}

	dev.LinkProgram(p.Handle)
	if ok, log := dev.ProgramStatus(p.Handle); !ok {
		return p, &BuildError{Stage: "link", Log: log}
	}
	p.linked = true

	dev.UseProgram(p.Handle)
	p.Attribs = Attributes{
		Position: dev.AttribLocation(p.Handle, PositionAttrib),
		UV:       dev.AttribLocation(p.Handle, UVAttrib),
	}
	p.Uniforms = Uniforms{
		SamplerA: dev.UniformLocation(p.Handle, SamplerAUniform),
		SamplerB: dev.UniformLocation(p.Handle, SamplerBUniform),
		Theta:    dev.UniformLocation(p.Handle, ThetaUniform),
		Mode:     dev.UniformLocation(p.Handle, ModeUniform),
	}

	if p.Uniforms.SamplerA >= 0 {
		dev.Uniform1i(p.Uniforms.SamplerA, UnitA)
	}
	if p.Uniforms.SamplerB >= 0 {
		dev.Uniform1i(p.Uniforms.SamplerB, UnitB)
	}
	return p, nil
}

func compile(dev gpu.Device, src shader.Source) (gpu.Shader, error) {
	s := dev.CreateShader(src.Stage)
	dev.ShaderSource(s, src.Text)
	dev.CompileShader(s)
	if ok, log := dev.ShaderStatus(s); !ok {
		return s, &BuildError{Stage: src.Stage.String(), ID: src.ID, Log: log}
	}
	return s, nil
}

// FromDocument looks up the two script ids in doc and builds the program.
func FromDocument(dev gpu.Device, doc *shader.Document, vertexID, fragmentID string) (*Program, error) {
	vs, err := doc.Lookup(vertexID)
	if err != nil {
		return nil, err
	}
	fs, err := doc.Lookup(fragmentID)
	if err != nil {
		return nil, err
	}
	return Build(dev, vs, fs)
}
