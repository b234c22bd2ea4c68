package gpucore

import (
	"encoding/binary"
	"math"
)

// AccelerationStructureType selects bottom- or top-level.
type AccelerationStructureType uint32

// Acceleration structure types.
const (
	AccelerationStructureTopLevel AccelerationStructureType = iota
	AccelerationStructureBottomLevel
)

// String returns the structure level name.
func (t AccelerationStructureType) String() string {
	if t == AccelerationStructureTopLevel {
		return "TopLevel"
	}
	return "BottomLevel"
}

// BuildFlags hint how an acceleration structure will be used.
type BuildFlags uint32

// Build flags.
const (
	BuildFlagNone            BuildFlags = 0
	BuildFlagAllowUpdate     BuildFlags = 1 << 0
	BuildFlagAllowCompaction BuildFlags = 1 << 1
	BuildFlagPreferFastTrace BuildFlags = 1 << 2
	BuildFlagPreferFastBuild BuildFlags = 1 << 3
	BuildFlagMinimizeMemory  BuildFlags = 1 << 4
)

// GeometryFlags modify per-geometry traversal behavior.
type GeometryFlags uint32

// Geometry flags.
const (
	GeometryFlagNone   GeometryFlags = 0
	GeometryFlagOpaque GeometryFlags = 1 << 0
)

// TrianglesDesc describes indexed triangle geometry by GPU address.
type TrianglesDesc struct {
	// Transform3x4 optionally points at a 3x4 row-major float transform.
	Transform3x4 GPUAddress

	IndexFormat Format
	IndexCount  uint32
	IndexBuffer GPUAddress

	VertexFormat Format
	VertexCount  uint32
	VertexBuffer AddressRangeAndStride
}

// GeometryDesc is one geometry of a bottom-level structure.
type GeometryDesc struct {
	Flags     GeometryFlags
	Triangles TrianglesDesc
}

// AccelerationStructureInputs describes what a build consumes.
type AccelerationStructureInputs struct {
	Type  AccelerationStructureType
	Flags BuildFlags

	// Geometry is used by bottom-level builds.
	Geometry []GeometryDesc

	// NumInstances and InstanceDescs are used by top-level builds.
	// InstanceDescs points at NumInstances marshaled InstanceDesc records.
	NumInstances  uint32
	InstanceDescs GPUAddress
}

// PrebuildInfo reports the buffer sizes a build requires.
type PrebuildInfo struct {
	ResultDataMaxSize     uint64
	ScratchDataSize       uint64
	UpdateScratchDataSize uint64
}

// BuildAccelerationStructureDesc is a build command.
type BuildAccelerationStructureDesc struct {
	Inputs      AccelerationStructureInputs
	DestAddress GPUAddress
	Scratch     GPUAddress
}

// InstanceFlags modify per-instance traversal behavior.
type InstanceFlags uint8

// Instance flags.
const (
	InstanceFlagNone                InstanceFlags = 0
	InstanceFlagTriangleCullDisable InstanceFlags = 1 << 0
	InstanceFlagTriangleFrontCCW    InstanceFlags = 1 << 1
	InstanceFlagForceOpaque         InstanceFlags = 1 << 2
	InstanceFlagForceNonOpaque      InstanceFlags = 1 << 3
)

// InstanceDesc is one top-level instance of a bottom-level structure.
type InstanceDesc struct {
	// Transform is a 3x4 row-major affine transform.
	Transform [3][4]float32

	// InstanceID is visible to shaders (24 bits).
	InstanceID uint32

	// InstanceMask is ANDed with the trace mask (8 bits).
	InstanceMask uint8

	// HitGroupIndex is the instance's contribution to the hit group index (24 bits).
	HitGroupIndex uint32

	Flags InstanceFlags

	// AccelerationStructure is the address of the built bottom-level structure.
	AccelerationStructure GPUAddress
}

// IdentityTransform3x4 is the identity 3x4 affine transform.
var IdentityTransform3x4 = [3][4]float32{
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
}

// Marshal writes the GPU layout of d into dst, which must hold
// InstanceDescSize bytes.
func (d *InstanceDesc) Marshal(dst []byte) {
	_ = dst[InstanceDescSize-1]
	off := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(d.Transform[r][c]))
			off += 4
		}
	}
	binary.LittleEndian.PutUint32(dst[48:], d.InstanceID&0xFFFFFF|uint32(d.InstanceMask)<<24)
	binary.LittleEndian.PutUint32(dst[52:], d.HitGroupIndex&0xFFFFFF|uint32(d.Flags)<<24)
	binary.LittleEndian.PutUint64(dst[56:], uint64(d.AccelerationStructure))
}

// Bytes returns the GPU layout of d.
func (d *InstanceDesc) Bytes() []byte {
	b := make([]byte, InstanceDescSize)
	d.Marshal(b)
	return b
}

// UnmarshalInstanceDesc decodes an instance record written by Marshal.
func UnmarshalInstanceDesc(src []byte) InstanceDesc {
	_ = src[InstanceDescSize-1]
	var d InstanceDesc
	off := 0
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			d.Transform[r][c] = math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
			off += 4
		}
	}
	w := binary.LittleEndian.Uint32(src[48:])
	d.InstanceID = w & 0xFFFFFF
	d.InstanceMask = uint8(w >> 24)
	w = binary.LittleEndian.Uint32(src[52:])
	d.HitGroupIndex = w & 0xFFFFFF
	d.Flags = InstanceFlags(w >> 24)
	d.AccelerationStructure = GPUAddress(binary.LittleEndian.Uint64(src[56:]))
	return d
}
