package scene

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexSize is the byte size of one marshaled Vertex.
const VertexSize = 44

// Vertex is the mesh vertex layout shared with the closest hit shader:
// position at byte 0, UV at 12, normal at 20, tangent at 32.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Normal   mgl32.Vec3
	Tangent  mgl32.Vec3
}

// MarshalVertices returns the GPU layout of vertices.
func MarshalVertices(vertices []Vertex) []byte {
	b := make([]byte, len(vertices)*VertexSize)
	for i, v := range vertices {
		off := i * VertexSize
		put := func(f float32) {
			binary.LittleEndian.PutUint32(b[off:], math.Float32bits(f))
			off += 4
		}
		put(v.Position[0])
		put(v.Position[1])
		put(v.Position[2])
		put(v.UV[0])
		put(v.UV[1])
		put(v.Normal[0])
		put(v.Normal[1])
		put(v.Normal[2])
		put(v.Tangent[0])
		put(v.Tangent[1])
		put(v.Tangent[2])
	}
	return b
}

// MarshalIndices returns 32-bit little-endian indices.
func MarshalIndices(indices []uint32) []byte {
	b := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(b[i*4:], idx)
	}
	return b
}

// CalculateTangents fills the tangent of every indexed vertex from the
// triangle UVs, then orthonormalizes it against the vertex normal.
func CalculateTangents(vertices []Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Tangent = mgl32.Vec3{}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		v0, v1, v2 := &vertices[i0], &vertices[i1], &vertices[i2]

		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		du1, dv1 := v1.UV[0]-v0.UV[0], v1.UV[1]-v0.UV[1]
		du2, dv2 := v2.UV[0]-v0.UV[0], v2.UV[1]-v0.UV[1]

		det := du1*dv2 - du2*dv1
		if det == 0 {
			continue
		}
		r := 1 / det
		tangent := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))

		v0.Tangent = v0.Tangent.Add(tangent)
		v1.Tangent = v1.Tangent.Add(tangent)
		v2.Tangent = v2.Tangent.Add(tangent)
	}
	for i := range vertices {
		v := &vertices[i]
		// Gram-Schmidt
		t := v.Tangent.Sub(v.Normal.Mul(v.Normal.Dot(v.Tangent)))
		if t.Len() > 0 {
			t = t.Normalize()
		}
		v.Tangent = t
	}
}
