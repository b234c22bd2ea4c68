package accel

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// BottomLevel is a built bottom-level acceleration structure.
//
// The scratch buffer is kept until Release: it must outlive the build
// command, and the build is only known to have retired after the next GPU
// wait.
type BottomLevel struct {
	device gpucore.Device

	// Result holds the structure; Address is its GPU address.
	Result  gpucore.ResourceID
	Address gpucore.GPUAddress

	// Scratch is the build scratch buffer.
	Scratch gpucore.ResourceID

	// ResultSize and ScratchSize are the allocated, aligned sizes.
	ResultSize  uint64
	ScratchSize uint64
}

// BuildBottomLevel records the build of a single opaque triangle geometry
// from g's buffers.
func (b *Builder) BuildBottomLevel(g Geometry) (*BottomLevel, error) {
	if g.VertexCount() == 0 {
		return nil, ErrNoGeometry
	}
	tri := gpucore.TrianglesDesc{
		VertexFormat: gpucore.FormatR32G32B32Float,
		VertexCount:  g.VertexCount(),
		VertexBuffer: gpucore.AddressRangeAndStride{
			StartAddress:  b.device.ResourceAddress(g.VertexBuffer()),
			SizeInBytes:   uint64(g.VertexCount()) * uint64(g.VertexStride()),
			StrideInBytes: uint64(g.VertexStride()),
		},
	}
	if g.IndexCount() > 0 {
		tri.IndexFormat = g.IndexFormat()
		tri.IndexCount = g.IndexCount()
		tri.IndexBuffer = b.device.ResourceAddress(g.IndexBuffer())
	}
	inputs := gpucore.AccelerationStructureInputs{
		Type:     gpucore.AccelerationStructureBottomLevel,
		Flags:    b.opts.flags,
		Geometry: []gpucore.GeometryDesc{{Flags: gpucore.GeometryFlagOpaque, Triangles: tri}},
	}

	info := b.device.AccelerationStructurePrebuildInfo(&inputs)
	bufs, err := b.allocate("blas", info)
	if err != nil {
		return nil, err
	}
	addr := b.record(&inputs, bufs)

	slogger().Debug("accel: bottom level recorded",
		"vertices", g.VertexCount(), "indices", g.IndexCount(),
		"result", bufs.resultSize, "scratch", bufs.scratchSize)

	return &BottomLevel{
		device:      b.device,
		Result:      bufs.result,
		Address:     addr,
		Scratch:     bufs.scratch,
		ResultSize:  bufs.resultSize,
		ScratchSize: bufs.scratchSize,
	}, nil
}

// Release destroys the result and scratch buffers. The GPU must be done
// with the structure.
func (s *BottomLevel) Release() {
	if s == nil || s.Result == gpucore.InvalidID {
		return
	}
	s.device.DestroyResource(s.Scratch)
	s.device.DestroyResource(s.Result)
	s.Result, s.Scratch, s.Address = gpucore.InvalidID, gpucore.InvalidID, 0
}

func (s *BottomLevel) String() string {
	return fmt.Sprintf("BLAS(%d bytes @ %#x)", s.ResultSize, uint64(s.Address))
}
