// Package gpu defines the small slice of the graphics API the demo uses.
//
// Everything above this package talks to a Device instead of calling OpenGL
// directly, so the binder, loader and renderer can run against the recording
// fake in gputest as well as the real driver in gldevice.
package gpu

import "unsafe"

// Opaque object handles. The zero value of each is "no object" and binding it
// clears the corresponding binding point.
type (
	Texture     uint32
	Buffer      uint32
	VertexArray uint32
	Program     uint32
	Shader      uint32
)

// AttribLocation and UniformLocation are -1 when the linked program has no
// active variable of that name.
type (
	AttribLocation  int32
	UniformLocation int32
)

// BufferTarget selects a buffer binding point.
type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// ShaderStage is the pipeline stage a shader object compiles for.
type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

// PixelFormat is used both as internal format and as client pixel format.
type PixelFormat int

const (
	RGB PixelFormat = iota
	RGBA
)

// BytesPerPixel returns the size of one texel of f in client memory.
func (f PixelFormat) BytesPerPixel() int {
	if f == RGBA {
		return 4
	}
	return 3
}

// TexParam names a 2D texture parameter.
type TexParam int

const (
	TexWrapS TexParam = iota
	TexWrapT
	TexMinFilter
	TexMagFilter
)

// TexValue is a texture parameter value.
type TexValue int

const (
	ClampToEdge TexValue = iota
	Repeat
	Nearest
	Linear
	LinearMipmapLinear
)

// DataType is the component type of vertex or index data.
type DataType int

const (
	Float DataType = iota
	UnsignedShort
)

// Size returns the byte size of one component.
func (t DataType) Size() int {
	if t == UnsignedShort {
		return 2
	}
	return 4
}

// Usage hints how buffer contents will be used.
type Usage int

const (
	StaticDraw Usage = iota
	DynamicDraw
)

// ClearMask selects the buffers Clear resets.
type ClearMask int

const (
	ColorBufferBit ClearMask = 1 << iota
	DepthBufferBit
)

// Capability is a server-side capability toggled with Enable.
type Capability int

const (
	DepthTest Capability = iota
	CullFace
)

// ErrorCode is the value returned by the driver's error query.
type ErrorCode uint32

// NoError means the error queue is empty.
const NoError ErrorCode = 0

// Device is the graphics context. All methods must be called from the
// goroutine that owns the context.
type Device interface {
	CreateTexture() Texture
	DeleteTexture(Texture)
	ActiveTexture(unit int)
	BindTexture(Texture)
	// SetUnpackFlipY makes subsequent uploads store the first row of pixels
	// at the bottom of the texture.
	SetUnpackFlipY(bool)
	TexImage2D(level int, internal PixelFormat, width, height int, format PixelFormat, pixels []byte)
	TexParameter(TexParam, TexValue)
	GenerateMipmap()

	CreateBuffer() Buffer
	DeleteBuffer(Buffer)
	BindBuffer(BufferTarget, Buffer)
	BufferData(target BufferTarget, data []byte, usage Usage)

	CreateVertexArray() VertexArray
	DeleteVertexArray(VertexArray)
	BindVertexArray(VertexArray)
	EnableVertexAttribArray(AttribLocation)
	VertexAttribPointer(loc AttribLocation, size int, typ DataType, normalized bool, stride, offset int)

	CreateShader(ShaderStage) Shader
	ShaderSource(Shader, string)
	CompileShader(Shader)
	// ShaderStatus reports whether the last compile succeeded and the info log.
	ShaderStatus(Shader) (ok bool, log string)
	DeleteShader(Shader)
	CreateProgram() Program
	AttachShader(Program, Shader)
	LinkProgram(Program)
	// ProgramStatus reports whether the last link succeeded and the info log.
	ProgramStatus(Program) (ok bool, log string)
	DeleteProgram(Program)
	UseProgram(Program)
	AttribLocation(Program, string) AttribLocation
	UniformLocation(Program, string) UniformLocation
	Uniform1i(UniformLocation, int32)
	Uniform3f(UniformLocation, [3]float32)

	Enable(Capability)
	ClearColor(r, g, b, a float32)
	ClearDepth(float64)
	Clear(ClearMask)
	Viewport(x, y, width, height int)
	DepthFuncLessEqual()
	CullBackFaces()
	FrontFaceCCW()

	DrawTriangles(count int, typ DataType, offset int)
	Error() ErrorCode
}

// Float32Bytes views p as raw bytes without copying.
func Float32Bytes(p []float32) []byte {
	if len(p) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&p[0])), len(p)*4)
}

// Uint16Bytes views p as raw bytes without copying.
func Uint16Bytes(p []uint16) []byte {
	if len(p) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&p[0])), len(p)*2)
}

// FlipRows returns a copy of pix with its rows in reverse order. pix is
// returned unchanged when it is shorter than rowLen*rows.
func FlipRows(pix []byte, rowLen, rows int) []byte {
	if rowLen*rows > len(pix) {
		return pix
	}
	out := make([]byte, rowLen*rows)
	for y := 0; y < rows; y++ {
		copy(out[(rows-1-y)*rowLen:], pix[y*rowLen:(y+1)*rowLen])
	}
	return out
}
