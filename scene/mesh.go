package scene

import (
	"fmt"

	"github.com/gogpu/raytrace/accel"
	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
)

// Mesh is an indexed triangle mesh resident in default-heap buffers.
type Mesh struct {
	ctx *graphics.Context

	vb, ib   gpucore.ResourceID
	vertices uint32
	indices  uint32
}

var _ accel.Geometry = (*Mesh)(nil)

// NewMesh uploads vertices and indices into static buffers.
func NewMesh(ctx *graphics.Context, label string, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) < 3 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMesh, label)
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("scene: %s index %d is %d, only %d vertices", label, i, idx, len(vertices))
		}
	}
	vb, err := ctx.CreateStaticBuffer(label+"/vertices", MarshalVertices(vertices))
	if err != nil {
		return nil, err
	}
	ib, err := ctx.CreateStaticBuffer(label+"/indices", MarshalIndices(indices))
	if err != nil {
		ctx.Device().DestroyResource(vb)
		return nil, err
	}
	return &Mesh{
		ctx:      ctx,
		vb:       vb,
		ib:       ib,
		vertices: uint32(len(vertices)),
		indices:  uint32(len(indices)),
	}, nil
}

// VertexBuffer implements accel.Geometry.
func (m *Mesh) VertexBuffer() gpucore.ResourceID { return m.vb }

// VertexCount implements accel.Geometry.
func (m *Mesh) VertexCount() uint32 { return m.vertices }

// VertexStride implements accel.Geometry.
func (m *Mesh) VertexStride() uint32 { return VertexSize }

// IndexBuffer implements accel.Geometry.
func (m *Mesh) IndexBuffer() gpucore.ResourceID { return m.ib }

// IndexCount implements accel.Geometry.
func (m *Mesh) IndexCount() uint32 { return m.indices }

// IndexFormat implements accel.Geometry.
func (m *Mesh) IndexFormat() gpucore.Format { return gpucore.FormatR32Uint }

// Release destroys the buffers. The GPU must be done with them.
func (m *Mesh) Release() {
	if m.vb == gpucore.InvalidID {
		return
	}
	d := m.ctx.Device()
	d.DestroyResource(m.vb)
	d.DestroyResource(m.ib)
	m.vb, m.ib = gpucore.InvalidID, gpucore.InvalidID
}
