package shape

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF reads the first primitive of the first mesh in a .gltf or .glb
// file. Primitives without texture coordinates get all-zero UVs.
func LoadGLTF(path string) (Data, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return Data{}, fmt.Errorf("failed to open glTF model %s: %w", path, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc *gltf.Document) (Data, error) {
	if len(doc.Meshes) == 0 || len(doc.Meshes[0].Primitives) == 0 {
		return Data{}, fmt.Errorf("%w: glTF document has no mesh primitives", ErrMalformed)
	}
	prim := doc.Meshes[0].Primitives[0]
	if prim.Mode != gltf.PrimitiveTriangles {
		return Data{}, fmt.Errorf("%w: primitive mode %v is not triangles", ErrMalformed, prim.Mode)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return Data{}, fmt.Errorf("%w: primitive has no POSITION attribute", ErrMalformed)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return Data{}, fmt.Errorf("failed to read positions: %w", err)
	}
	if len(positions) > MaxVertices {
		return Data{}, fmt.Errorf("%w: model has %d vertices", ErrIndexOverflow, len(positions))
	}

	var d Data
	d.Positions = make([]float32, 0, 3*len(positions))
	for _, p := range positions {
		d.Positions = append(d.Positions, p[0], p[1], p[2])
	}

	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[uvIdx], nil)
		if err != nil {
			return Data{}, fmt.Errorf("failed to read texture coordinates: %w", err)
		}
		d.UVs = make([]float32, 0, 2*len(uvs))
		for _, uv := range uvs {
			// glTF puts the texture origin at the top left
			d.UVs = append(d.UVs, uv[0], 1-uv[1])
		}
	} else {
		d.UVs = make([]float32, 2*len(positions))
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return Data{}, fmt.Errorf("failed to read indices: %w", err)
		}
		d.Indices = make([]uint16, len(indices))
		for i, idx := range indices {
			d.Indices[i] = uint16(idx)
		}
	} else {
		d.Indices = make([]uint16, len(positions))
		for i := range d.Indices {
			d.Indices[i] = uint16(i)
		}
	}

	if err := d.Validate(); err != nil {
		return Data{}, err
	}
	return d, nil
}
