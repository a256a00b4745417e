// Package gldevice implements gpu.Device on top of desktop OpenGL 4.1 core.
package gldevice

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
)

// Device issues OpenGL calls on the current context. It must be created and
// used on the thread the context was made current on.
type Device struct {
	flipY bool
}

var _ gpu.Device = (*Device)(nil)

// New loads the OpenGL function pointers for the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	// Texel rows are tightly packed RGB, which is rarely 4-byte aligned.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	return &Device{}, nil
}

// Version returns the driver's version string.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (d *Device) CreateTexture() gpu.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return gpu.Texture(t)
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	h := uint32(t)
	gl.DeleteTextures(1, &h)
}

func (d *Device) ActiveTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *Device) BindTexture(t gpu.Texture) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

// SetUnpackFlipY emulates WebGL's UNPACK_FLIP_Y_WEBGL, which desktop GL
// lacks: rows are reversed on the CPU before upload.
func (d *Device) SetUnpackFlipY(flip bool) {
	d.flipY = flip
}

func (d *Device) TexImage2D(level int, internal gpu.PixelFormat, width, height int, format gpu.PixelFormat, pixels []byte) {
	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		if d.flipY {
			pixels = gpu.FlipRows(pixels, width*format.BytesPerPixel(), height)
		}
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, int32(level), int32(pixelFormat(internal)), int32(width), int32(height), 0,
		pixelFormat(format), gl.UNSIGNED_BYTE, ptr)
}

func (d *Device) TexParameter(p gpu.TexParam, v gpu.TexValue) {
	gl.TexParameteri(gl.TEXTURE_2D, texParam(p), texValue(v))
}

func (d *Device) GenerateMipmap() {
	gl.GenerateMipmap(gl.TEXTURE_2D)
}

func (d *Device) CreateBuffer() gpu.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return gpu.Buffer(b)
}

func (d *Device) DeleteBuffer(b gpu.Buffer) {
	h := uint32(b)
	gl.DeleteBuffers(1, &h)
}

func (d *Device) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	gl.BindBuffer(bufferTarget(target), uint32(b))
}

func (d *Device) BufferData(target gpu.BufferTarget, data []byte, usage gpu.Usage) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	u := uint32(gl.STATIC_DRAW)
	if usage == gpu.DynamicDraw {
		u = gl.DYNAMIC_DRAW
	}
	gl.BufferData(bufferTarget(target), len(data), ptr, u)
}

func (d *Device) CreateVertexArray() gpu.VertexArray {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return gpu.VertexArray(vao)
}

func (d *Device) DeleteVertexArray(vao gpu.VertexArray) {
	h := uint32(vao)
	gl.DeleteVertexArrays(1, &h)
}

func (d *Device) BindVertexArray(vao gpu.VertexArray) {
	gl.BindVertexArray(uint32(vao))
}

func (d *Device) EnableVertexAttribArray(loc gpu.AttribLocation) {
	gl.EnableVertexAttribArray(uint32(loc))
}

func (d *Device) VertexAttribPointer(loc gpu.AttribLocation, size int, typ gpu.DataType, normalized bool, stride, offset int) {
	gl.VertexAttribPointerWithOffset(uint32(loc), int32(size), dataType(typ), normalized, int32(stride), uintptr(offset))
}

func (d *Device) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	if stage == gpu.FragmentStage {
		return gpu.Shader(gl.CreateShader(gl.FRAGMENT_SHADER))
	}
	return gpu.Shader(gl.CreateShader(gl.VERTEX_SHADER))
}

// ShaderSource passes source to the driver as a NUL-terminated C string.
func (d *Device) ShaderSource(s gpu.Shader, source string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(uint32(s), 1, csources, nil)
	free()
}

func (d *Device) CompileShader(s gpu.Shader) {
	gl.CompileShader(uint32(s))
}

func (d *Device) ShaderStatus(s gpu.Shader) (bool, string) {
	var status int32
	gl.GetShaderiv(uint32(s), gl.COMPILE_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetShaderiv(uint32(s), gl.INFO_LOG_LENGTH, &logLength)
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(uint32(s), logLength, nil, gl.Str(log))
	return false, strings.TrimRight(log, "\x00")
}

func (d *Device) DeleteShader(s gpu.Shader) {
	gl.DeleteShader(uint32(s))
}

func (d *Device) CreateProgram() gpu.Program {
	return gpu.Program(gl.CreateProgram())
}

func (d *Device) AttachShader(p gpu.Program, s gpu.Shader) {
	gl.AttachShader(uint32(p), uint32(s))
}

func (d *Device) LinkProgram(p gpu.Program) {
	gl.LinkProgram(uint32(p))
}

func (d *Device) ProgramStatus(p gpu.Program) (bool, string) {
	var status int32
	gl.GetProgramiv(uint32(p), gl.LINK_STATUS, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetProgramiv(uint32(p), gl.INFO_LOG_LENGTH, &logLength)
	log := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(uint32(p), logLength, nil, gl.Str(log))
	return false, strings.TrimRight(log, "\x00")
}

func (d *Device) DeleteProgram(p gpu.Program) {
	gl.DeleteProgram(uint32(p))
}

func (d *Device) UseProgram(p gpu.Program) {
	gl.UseProgram(uint32(p))
}

func (d *Device) AttribLocation(p gpu.Program, name string) gpu.AttribLocation {
	return gpu.AttribLocation(gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) UniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	return gpu.UniformLocation(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) Uniform1i(loc gpu.UniformLocation, v int32) {
	gl.Uniform1i(int32(loc), v)
}

func (d *Device) Uniform3f(loc gpu.UniformLocation, v [3]float32) {
	gl.Uniform3f(int32(loc), v[0], v[1], v[2])
}

func (d *Device) Enable(c gpu.Capability) {
	switch c {
	case gpu.DepthTest:
		gl.Enable(gl.DEPTH_TEST)
	case gpu.CullFace:
		gl.Enable(gl.CULL_FACE)
	}
}

func (d *Device) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (d *Device) ClearDepth(depth float64) {
	gl.ClearDepth(depth)
}

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ColorBufferBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.DepthBufferBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) DepthFuncLessEqual() {
	gl.DepthFunc(gl.LEQUAL)
}

func (d *Device) CullBackFaces() {
	gl.CullFace(gl.BACK)
}

func (d *Device) FrontFaceCCW() {
	gl.FrontFace(gl.CCW)
}

func (d *Device) DrawTriangles(count int, typ gpu.DataType, offset int) {
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), dataType(typ), uintptr(offset))
}

func (d *Device) Error() gpu.ErrorCode {
	return gpu.ErrorCode(gl.GetError())
}

func pixelFormat(f gpu.PixelFormat) uint32 {
	if f == gpu.RGBA {
		return gl.RGBA
	}
	return gl.RGB
}

func texParam(p gpu.TexParam) uint32 {
	switch p {
	case gpu.TexWrapS:
		return gl.TEXTURE_WRAP_S
	case gpu.TexWrapT:
		return gl.TEXTURE_WRAP_T
	case gpu.TexMinFilter:
		return gl.TEXTURE_MIN_FILTER
	default:
		return gl.TEXTURE_MAG_FILTER
	}
}

func texValue(v gpu.TexValue) int32 {
	switch v {
	case gpu.ClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gpu.Repeat:
		return gl.REPEAT
	case gpu.Nearest:
		return gl.NEAREST
	case gpu.LinearMipmapLinear:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

func bufferTarget(t gpu.BufferTarget) uint32 {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func dataType(t gpu.DataType) uint32 {
	if t == gpu.UnsignedShort {
		return gl.UNSIGNED_SHORT
	}
	return gl.FLOAT
}
