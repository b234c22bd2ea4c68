package gpucore

// Resource IDs
//
// These opaque IDs represent GPU objects. Each Device implementation
// maintains a mapping between IDs and actual backend objects.
// IDs are uint64 to accommodate various backend handle sizes.

// ResourceID is an opaque handle to a GPU resource (buffer or texture).
// Buffers and textures share one ID space so that barriers and copies can
// address either kind.
type ResourceID uint64

// DescriptorHeapID is an opaque handle to a descriptor heap.
type DescriptorHeapID uint64

// RootSignatureID is an opaque handle to a root signature.
type RootSignatureID uint64

// StateObjectID is an opaque handle to a ray tracing pipeline state object.
type StateObjectID uint64

// FenceID is an opaque handle to a GPU fence.
type FenceID uint64

// InvalidID is the zero value, representing an invalid/null object.
const InvalidID = 0

// GPUAddress is a GPU virtual address. Buffer sub-ranges are addressed as
// the buffer's base address plus a byte offset.
type GPUAddress uint64

// CPUDescriptorHandle addresses a descriptor slot for view creation and copies.
type CPUDescriptorHandle uint64

// GPUDescriptorHandle addresses a descriptor slot from shader-visible bindings
// (root descriptor tables and shader table records).
type GPUDescriptorHandle uint64

// Offset returns the handle advanced by n descriptors of the given increment.
func (h CPUDescriptorHandle) Offset(n, increment uint32) CPUDescriptorHandle {
	return h + CPUDescriptorHandle(uint64(n)*uint64(increment))
}

// Offset returns the handle advanced by n descriptors of the given increment.
func (h GPUDescriptorHandle) Offset(n, increment uint32) GPUDescriptorHandle {
	return h + GPUDescriptorHandle(uint64(n)*uint64(increment))
}

// Fixed sizes and alignments of the ray tracing binding model.
const (
	// ShaderIdentifierSize is the byte size of a shader identifier.
	ShaderIdentifierSize = 32

	// ShaderRecordAlignment is the required alignment of each shader record.
	ShaderRecordAlignment = 32

	// ShaderTableAlignment is the required alignment of a shader table start.
	ShaderTableAlignment = 64

	// AccelerationStructureAlignment is the required alignment of acceleration
	// structure result and scratch buffers.
	AccelerationStructureAlignment = 256

	// ConstantBufferAlignment is the required size granularity of a constant
	// buffer view.
	ConstantBufferAlignment = 256

	// TexturePitchAlignment is the required row pitch granularity of
	// texture/buffer copies.
	TexturePitchAlignment = 256

	// DescriptorHandleSize is the byte size of a GPU descriptor handle as
	// written into shader records.
	DescriptorHandleSize = 8

	// InstanceDescSize is the byte size of one marshaled InstanceDesc.
	InstanceDescSize = 64

	// MaxTraceRecursionDepth is the highest declarable trace recursion depth.
	MaxTraceRecursionDepth = 31
)

// Align rounds size up to the next multiple of alignment.
// Alignment must be a power of two.
func Align(size, alignment uint64) uint64 {
	return (size + alignment - 1) &^ (alignment - 1)
}

// HeapType selects the memory pool for a buffer.
type HeapType uint32

// Heap types.
const (
	// HeapTypeDefault is GPU-local memory, not CPU visible.
	HeapTypeDefault HeapType = iota

	// HeapTypeUpload is CPU-writable, GPU-readable memory. Upload buffers are
	// persistently mapped and written with Device.WriteBuffer.
	HeapTypeUpload

	// HeapTypeReadback is GPU-writable, CPU-readable memory.
	HeapTypeReadback
)

// String returns the heap type name.
func (t HeapType) String() string {
	switch t {
	case HeapTypeDefault:
		return "Default"
	case HeapTypeUpload:
		return "Upload"
	case HeapTypeReadback:
		return "Readback"
	default:
		return "Unknown"
	}
}

// ResourceState is a bitmask describing how a resource is being used.
type ResourceState uint32

// Resource states.
const (
	// ResourceStateCommon is the default state. Presentable back buffers are
	// in this state (ResourceStatePresent).
	ResourceStateCommon ResourceState = 0

	// ResourceStateVertexAndConstantBuffer is read as vertex or constant data.
	ResourceStateVertexAndConstantBuffer ResourceState = 1 << 0

	// ResourceStateIndexBuffer is read as index data.
	ResourceStateIndexBuffer ResourceState = 1 << 1

	// ResourceStateUnorderedAccess is read/write from shaders.
	ResourceStateUnorderedAccess ResourceState = 1 << 3

	// ResourceStateNonPixelShaderResource is read by non-pixel shaders.
	ResourceStateNonPixelShaderResource ResourceState = 1 << 6

	// ResourceStateCopyDest is the destination of a copy.
	ResourceStateCopyDest ResourceState = 1 << 10

	// ResourceStateCopySource is the source of a copy.
	ResourceStateCopySource ResourceState = 1 << 11

	// ResourceStateRaytracingAccelerationStructure holds a built
	// acceleration structure.
	ResourceStateRaytracingAccelerationStructure ResourceState = 1 << 22

	// ResourceStatePresent is the state a back buffer must be in for present.
	ResourceStatePresent = ResourceStateCommon

	// ResourceStateGenericRead is the required state of upload heap buffers.
	ResourceStateGenericRead = ResourceStateVertexAndConstantBuffer |
		ResourceStateIndexBuffer | ResourceStateNonPixelShaderResource |
		ResourceStateCopySource | 1<<5 | 1<<7 | 1<<9
)

// Format specifies the element format of a texture or a typed view.
type Format uint32

// Formats.
const (
	// FormatUnknown is used for structured buffers and untyped resources.
	FormatUnknown Format = iota

	// FormatR8G8B8A8Unorm is 8-bit RGBA, normalized unsigned integer.
	FormatR8G8B8A8Unorm

	// FormatB8G8R8A8Unorm is 8-bit BGRA, normalized unsigned integer.
	FormatB8G8R8A8Unorm

	// FormatR32G32B32Float is three 32-bit floats (vertex positions).
	FormatR32G32B32Float

	// FormatR32Uint is a 32-bit unsigned index.
	FormatR32Uint

	// FormatR16Uint is a 16-bit unsigned index.
	FormatR16Uint

	// FormatR32Typeless is the format of raw (byte address) buffer views.
	FormatR32Typeless
)

// BytesPerElement returns the size of one element of the format, or 0 for
// FormatUnknown.
func (f Format) BytesPerElement() uint32 {
	switch f {
	case FormatR8G8B8A8Unorm, FormatB8G8R8A8Unorm, FormatR32Uint, FormatR32Typeless:
		return 4
	case FormatR32G32B32Float:
		return 12
	case FormatR16Uint:
		return 2
	default:
		return 0
	}
}

// RaytracingTier is the ray tracing capability level reported by a device.
type RaytracingTier uint32

// Ray tracing tiers.
const (
	// RaytracingTierNotSupported means the device cannot trace rays.
	RaytracingTierNotSupported RaytracingTier = 0

	// RaytracingTier1_0 is the base ray tracing tier.
	RaytracingTier1_0 RaytracingTier = 10

	// RaytracingTier1_1 adds inline ray queries and indirect dispatch.
	RaytracingTier1_1 RaytracingTier = 11
)

// Supported reports whether the tier allows ray tracing at all.
func (t RaytracingTier) Supported() bool {
	return t >= RaytracingTier1_0
}

// String returns a human-readable tier name.
func (t RaytracingTier) String() string {
	switch t {
	case RaytracingTierNotSupported:
		return "NotSupported"
	case RaytracingTier1_0:
		return "1.0"
	case RaytracingTier1_1:
		return "1.1"
	default:
		return "Unknown"
	}
}
