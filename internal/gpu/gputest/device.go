// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"fmt"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
)

// TextureState is everything the fake knows about one texture object.
type TextureState struct {
	Width, Height int
	Internal      gpu.PixelFormat
	Format        gpu.PixelFormat
	Pixels        []byte
	FlipY         bool // unpack-flip flag in effect at the last upload
	Uploads       int
	Mipmapped     bool
	Params        map[gpu.TexParam]gpu.TexValue
	Deleted       bool
}

// BufferState records the last upload into a buffer object.
type BufferState struct {
	Target  gpu.BufferTarget
	Data    []byte
	Usage   gpu.Usage
	Deleted bool
}

// AttribPointer is a recorded VertexAttribPointer call.
type AttribPointer struct {
	Buffer     gpu.Buffer
	Size       int
	Type       gpu.DataType
	Normalized bool
	Stride     int
	Offset     int
}

// VertexArrayState is the state a vertex array object captured.
type VertexArrayState struct {
	Enabled       map[gpu.AttribLocation]bool
	Pointers      map[gpu.AttribLocation]AttribPointer
	ElementBuffer gpu.Buffer
	Deleted       bool
}

// ShaderState records one shader object.
type ShaderState struct {
	Stage    gpu.ShaderStage
	Source   string
	Compiled bool
	Deleted  bool
}

// ProgramState records one program object and its uniform values.
type ProgramState struct {
	Shaders  []gpu.Shader
	Linked   bool
	Uniforms map[gpu.UniformLocation]any
	Deleted  bool
}

// DrawCall is a snapshot of the state a draw was issued with.
type DrawCall struct {
	Program     gpu.Program
	VertexArray gpu.VertexArray
	Count       int
	Type        gpu.DataType
	Offset      int
	Units       map[int]gpu.Texture
	Uniforms    map[gpu.UniformLocation]any
	Viewport    [4]int
}

// Device is a fake graphics context that records state instead of drawing.
// Handles are allocated from a single counter so they are unique across
// object kinds.
type Device struct {
	// Attribs and Uniforms resolve names at lookup time. Names that are
	// missing resolve to -1, as an optimised-out variable would.
	Attribs  map[string]gpu.AttribLocation
	Uniforms map[string]gpu.UniformLocation

	// FailCompile injects a compile failure with the given log per stage.
	FailCompile map[gpu.ShaderStage]string
	// FailLink injects a link failure with this log when non-empty.
	FailLink string
	// PendingError is returned (once) by the next Error call.
	PendingError gpu.ErrorCode

	Textures     map[gpu.Texture]*TextureState
	Buffers      map[gpu.Buffer]*BufferState
	VertexArrays map[gpu.VertexArray]*VertexArrayState
	Shaders      map[gpu.Shader]*ShaderState
	Programs     map[gpu.Program]*ProgramState

	ActiveUnit   int
	Units        map[int]gpu.Texture
	BoundBuffers map[gpu.BufferTarget]gpu.Buffer
	BoundVAO     gpu.VertexArray
	Current      gpu.Program
	FlipY        bool

	Enabled    map[gpu.Capability]bool
	ClearRGBA  [4]float32
	DepthClear float64
	Clears     []gpu.ClearMask
	Viewports  [][4]int
	Draws      []DrawCall
	// Calls lists method names in call order.
	Calls []string

	next uint32
}

var _ gpu.Device = (*Device)(nil)

// DefaultAttribs and DefaultUniforms match the demo shader.
var (
	DefaultAttribs = map[string]gpu.AttribLocation{
		"aVertexPosition": 0,
		"aUV":             1,
	}
	DefaultUniforms = map[string]gpu.UniformLocation{
		"theTexture":     0,
		"myImageTexture": 1,
		"theta":          2,
		"textureMode":    3,
	}
)

// New returns a Device that resolves the demo shader's variables.
func New() *Device {
	d := &Device{
		Attribs:      map[string]gpu.AttribLocation{},
		Uniforms:     map[string]gpu.UniformLocation{},
		FailCompile:  map[gpu.ShaderStage]string{},
		Textures:     map[gpu.Texture]*TextureState{},
		Buffers:      map[gpu.Buffer]*BufferState{},
		VertexArrays: map[gpu.VertexArray]*VertexArrayState{},
		Shaders:      map[gpu.Shader]*ShaderState{},
		Programs:     map[gpu.Program]*ProgramState{},
		Units:        map[int]gpu.Texture{},
		BoundBuffers: map[gpu.BufferTarget]gpu.Buffer{},
		Enabled:      map[gpu.Capability]bool{},
	}
	for k, v := range DefaultAttribs {
		d.Attribs[k] = v
	}
	for k, v := range DefaultUniforms {
		d.Uniforms[k] = v
	}
	return d
}

func (d *Device) handle() uint32 {
	d.next++
	return d.next
}

func (d *Device) record(name string) {
	d.Calls = append(d.Calls, name)
}

// CallCount returns how many times the named method was called.
func (d *Device) CallCount(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// ResetCalls forgets the recorded call sequence and draws.
func (d *Device) ResetCalls() {
	d.Calls = nil
	d.Draws = nil
}

// NothingBound reports whether the vertex array, both buffer targets and
// the 2D texture of the active unit are all unbound.
func (d *Device) NothingBound() bool {
	return d.BoundVAO == 0 &&
		d.BoundBuffers[gpu.ArrayBuffer] == 0 &&
		d.BoundBuffers[gpu.ElementArrayBuffer] == 0 &&
		d.Units[d.ActiveUnit] == 0
}

func (d *Device) boundTexture() *TextureState {
	t, ok := d.Textures[d.Units[d.ActiveUnit]]
	if !ok {
		panic(fmt.Sprintf("gputest: no texture bound on unit %d", d.ActiveUnit))
	}
	return t
}

func (d *Device) CreateTexture() gpu.Texture {
	d.record("CreateTexture")
	t := gpu.Texture(d.handle())
	d.Textures[t] = &TextureState{Params: map[gpu.TexParam]gpu.TexValue{}}
	return t
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	d.record("DeleteTexture")
	if s, ok := d.Textures[t]; ok {
		s.Deleted = true
	}
}

func (d *Device) ActiveTexture(unit int) {
	d.record("ActiveTexture")
	d.ActiveUnit = unit
}

func (d *Device) BindTexture(t gpu.Texture) {
	d.record("BindTexture")
	d.Units[d.ActiveUnit] = t
}

func (d *Device) SetUnpackFlipY(flip bool) {
	d.record("SetUnpackFlipY")
	d.FlipY = flip
}

func (d *Device) TexImage2D(level int, internal gpu.PixelFormat, width, height int, format gpu.PixelFormat, pixels []byte) {
	d.record("TexImage2D")
	t := d.boundTexture()
	t.Width, t.Height = width, height
	t.Internal, t.Format = internal, format
	t.Pixels = append([]byte(nil), pixels...)
	t.FlipY = d.FlipY
	t.Mipmapped = false
	t.Uploads++
}

func (d *Device) TexParameter(p gpu.TexParam, v gpu.TexValue) {
	d.record("TexParameter")
	d.boundTexture().Params[p] = v
}

func (d *Device) GenerateMipmap() {
	d.record("GenerateMipmap")
	d.boundTexture().Mipmapped = true
}

func (d *Device) CreateBuffer() gpu.Buffer {
	d.record("CreateBuffer")
	b := gpu.Buffer(d.handle())
	d.Buffers[b] = &BufferState{}
	return b
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	d.record("DeleteBuffer")
	if s, ok := d.Buffers[b]; ok {
		s.Deleted = true
	}
}

func (d *Device) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	d.record("BindBuffer")
	d.BoundBuffers[target] = b
	if target == gpu.ElementArrayBuffer && d.BoundVAO != 0 {
		d.VertexArrays[d.BoundVAO].ElementBuffer = b
	}
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	d.record("BufferData")
	b, ok := d.Buffers[d.BoundBuffers[target]]
	if !ok {
		panic("gputest: BufferData with no buffer bound")
	}
	b.Target = target
	b.Data = append([]byte(nil), data...)
	b.Usage = usage
}

func (d *Device) CreateVertexArray() gpu.VertexArray {
	d.record("CreateVertexArray")
	vao := gpu.VertexArray(d.handle())
	d.VertexArrays[vao] = &VertexArrayState{
		Enabled:  map[gpu.AttribLocation]bool{},
		Pointers: map[gpu.AttribLocation]AttribPointer{},
	}
	return vao
}

func (d *Device) DeleteVertexArray(vao gpu.VertexArray) {
	d.record("DeleteVertexArray")
	if s, ok := d.VertexArrays[vao]; ok {
		s.Deleted = true
	}
}

func (d *Device) BindVertexArray(vao gpu.VertexArray) {
	d.record("BindVertexArray")
	d.BoundVAO = vao
}

func (d *Device) vao() *VertexArrayState {
	s, ok := d.VertexArrays[d.BoundVAO]
	if !ok {
		panic("gputest: no vertex array bound")
	}
	return s
}

func (d *Device) EnableVertexAttribArray(loc gpu.AttribLocation) {
	d.record("EnableVertexAttribArray")
	d.vao().Enabled[loc] = true
}

func (d *Device) VertexAttribPointer(loc gpu.AttribLocation, size int, typ gpu.DataType, normalized bool, stride, offset int) {
	d.record("VertexAttribPointer")
	d.vao().Pointers[loc] = AttribPointer{
		Buffer:     d.BoundBuffers[gpu.ArrayBuffer],
		Size:       size,
		Type:       typ,
		Normalized: normalized,
		Stride:     stride,
		Offset:     offset,
	}
}

func (d *Device) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	d.record("CreateShader")
	s := gpu.Shader(d.handle())
	d.Shaders[s] = &ShaderState{Stage: stage}
	return s
}

func (d *Device) ShaderSource(s gpu.Shader, source string) {
	d.record("ShaderSource")
	d.Shaders[s].Source = source
}

func (d *Device) CompileShader(s gpu.Shader) {
	d.record("CompileShader")
	st := d.Shaders[s]
	_, fail := d.FailCompile[st.Stage]
	st.Compiled = !fail
}

func (d *Device) ShaderStatus(s gpu.Shader) (bool, string) {
	st := d.Shaders[s]
	if st.Compiled {
		return true, ""
	}
	return false, d.FailCompile[st.Stage]
}

func (d *Device) DeleteShader(s gpu.Shader) {
	d.record("DeleteShader")
	if st, ok := d.Shaders[s]; ok {
		st.Deleted = true
	}
}

func (d *Device) CreateProgram() gpu.Program {
	d.record("CreateProgram")
	p := gpu.Program(d.handle())
	d.Programs[p] = &ProgramState{Uniforms: map[gpu.UniformLocation]any{}}
	return p
}

func (d *Device) AttachShader(p gpu.Program, s gpu.Shader) {
	d.record("AttachShader")
	d.Programs[p].Shaders = append(d.Programs[p].Shaders, s)
}

func (d *Device) LinkProgram(p gpu.Program) {
	d.record("LinkProgram")
	ps := d.Programs[p]
	ps.Linked = d.FailLink == ""
	for _, s := range ps.Shaders {
		if !d.Shaders[s].Compiled {
			ps.Linked = false
		}
	}
}

func (d *Device) ProgramStatus(p gpu.Program) (bool, string) {
	if d.Programs[p].Linked {
		return true, ""
	}
	if d.FailLink != "" {
		return false, d.FailLink
	}
	return false, "attached shader not compiled"
}

func (d *Device) DeleteProgram(p gpu.Program) {
	d.record("DeleteProgram")
	if ps, ok := d.Programs[p]; ok {
		ps.Deleted = true
	}
}

func (d *Device) UseProgram(p gpu.Program) {
	d.record("UseProgram")
	d.Current = p
}

func (d *Device) AttribLocation(p gpu.Program, name string) gpu.AttribLocation {
	if !d.Programs[p].Linked {
		return -1
	}
	if loc, ok := d.Attribs[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) UniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	if !d.Programs[p].Linked {
		return -1
	}
	if loc, ok := d.Uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) setUniform(loc gpu.UniformLocation, v any) {
	if loc < 0 {
		return
	}
	ps, ok := d.Programs[d.Current]
	if !ok {
		panic("gputest: uniform set with no program in use")
	}
	ps.Uniforms[loc] = v
}

func (d *Device) Uniform1i(loc gpu.UniformLocation, v int32) {
	d.record("Uniform1i")
	d.setUniform(loc, v)
}

func (d *Device) Uniform3f(loc gpu.UniformLocation, v [3]float32) {
	d.record("Uniform3f")
	d.setUniform(loc, v)
}

func (d *Device) Enable(c gpu.Capability) {
	d.record("Enable")
	d.Enabled[c] = true
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.record("ClearColor")
	d.ClearRGBA = [4]float32{r, g, b, a}
}

func (d *Device) ClearDepth(depth float64) {
	d.record("ClearDepth")
	d.DepthClear = depth
}

func (d *Device) Clear(mask gpu.ClearMask) {
	d.record("Clear")
	d.Clears = append(d.Clears, mask)
}

func (d *Device) Viewport(x, y, width, height int) {
	d.record("Viewport")
	d.Viewports = append(d.Viewports, [4]int{x, y, width, height})
}

func (d *Device) DepthFuncLessEqual() { d.record("DepthFuncLessEqual") }
func (d *Device) CullBackFaces()      { d.record("CullBackFaces") }
func (d *Device) FrontFaceCCW()       { d.record("FrontFaceCCW") }

func (d *Device) DrawTriangles(count int, typ gpu.DataType, offset int) {
	d.record("DrawTriangles")
	call := DrawCall{
		Program:     d.Current,
		VertexArray: d.BoundVAO,
		Count:       count,
		Type:        typ,
		Offset:      offset,
		Units:       map[int]gpu.Texture{},
		Uniforms:    map[gpu.UniformLocation]any{},
	}
	for u, t := range d.Units {
		call.Units[u] = t
	}
	if ps, ok := d.Programs[d.Current]; ok {
		for k, v := range ps.Uniforms {
			call.Uniforms[k] = v
		}
	}
	if n := len(d.Viewports); n > 0 {
		call.Viewport = d.Viewports[n-1]
	}
	d.Draws = append(d.Draws, call)
}

func (d *Device) Error() gpu.ErrorCode {
	code := d.PendingError
	d.PendingError = gpu.NoError
	return code
}
