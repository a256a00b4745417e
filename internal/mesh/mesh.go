// Package mesh uploads shape data into GPU buffers and records the vertex
// layout in a vertex array object.
package mesh

import (
	"fmt"

	"github.com/toxichemicals/GO/holy-textures/internal/gpu"
	"github.com/toxichemicals/GO/holy-textures/internal/program"
	"github.com/toxichemicals/GO/holy-textures/internal/shape"
)

// Mesh owns the buffers and vertex array for one drawable shape. It is
// immutable once bound.
type Mesh struct {
	vao       gpu.VertexArray
	positions gpu.Buffer
	uvs       gpu.Buffer
	indices   gpu.Buffer

	indexCount int
	sizes      Sizes
}

// Sizes are the uploaded byte lengths of each buffer.
type Sizes struct {
	Positions int
	UVs       int
	Indices   int
}

// Bind validates data, uploads it and configures the attribute pointers
// for attribs. It leaves no vertex array or buffer bound.
func Bind(dev gpu.Device, data shape.Data, attribs program.Attributes) (*Mesh, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("failed to bind mesh: %w", err)
	}

	m := &Mesh{
		vao:        dev.CreateVertexArray(),
		indexCount: len(data.Indices),
	}
	gpu.WithVertexArray(dev, m.vao, func() {
		m.positions = upload(dev, gpu.ArrayBuffer, gpu.Float32Bytes(data.Positions))
		pointer(dev, attribs.Position, 3)

		m.uvs = upload(dev, gpu.ArrayBuffer, gpu.Float32Bytes(data.UVs))
		pointer(dev, attribs.UV, 2)

		m.indices = upload(dev, gpu.ElementArrayBuffer, gpu.Uint16Bytes(data.Indices))
	})

	m.sizes = Sizes{
		Positions: 4 * len(data.Positions),
		UVs:       4 * len(data.UVs),
		Indices:   2 * len(data.Indices),
	}
	return m, nil
}

func upload(dev gpu.Device, target gpu.BufferTarget, data []byte) gpu.Buffer {
	b := dev.CreateBuffer()
	dev.BindBuffer(target, b)
	dev.BufferData(target, data, gpu.StaticDraw)
	return b
}

// pointer points loc at the currently bound array buffer. Locations the
// linker dropped are skipped.
func pointer(dev gpu.Device, loc gpu.AttribLocation, size int) {
	if loc < 0 {
		return
	}
	dev.EnableVertexAttribArray(loc)
	dev.VertexAttribPointer(loc, size, gpu.Float, false, 0, 0)
}

// VAO returns the vertex array that records the mesh's layout.
func (m *Mesh) VAO() gpu.VertexArray { return m.vao }

// IndexCount returns the number of indices to draw.
func (m *Mesh) IndexCount() int { return m.indexCount }

// ByteSizes returns the uploaded byte length of each buffer.
func (m *Mesh) ByteSizes() Sizes { return m.sizes }

// Draw issues one indexed triangle draw over the whole mesh.
func (m *Mesh) Draw(dev gpu.Device) {
	gpu.WithVertexArray(dev, m.vao, func() {
		dev.DrawTriangles(m.indexCount, gpu.UnsignedShort, 0)
	})
}

// Release deletes the mesh's GPU objects.
func (m *Mesh) Release(dev gpu.Device) {
	dev.DeleteVertexArray(m.vao)
	dev.DeleteBuffer(m.positions)
	dev.DeleteBuffer(m.uvs)
	dev.DeleteBuffer(m.indices)
}

// Set maps each shape kind to its bound mesh.
type Set map[shape.Kind]*Mesh

// Release deletes every mesh in the set.
func (s Set) Release(dev gpu.Device) {
	for k, m := range s {
		m.Release(dev)
		delete(s, k)
	}
}
