package gpucore

// BufferDesc describes a committed buffer resource.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Heap selects the memory pool.
	Heap HeapType

	// InitialState is the state the buffer is created in.
	InitialState ResourceState

	// AllowUnorderedAccess permits unordered-access views and acceleration
	// structure writes.
	AllowUnorderedAccess bool
}

// TextureDesc describes a committed 2D texture resource.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture dimensions in pixels.
	Width  uint32
	Height uint32

	// Format is the texel format.
	Format Format

	// InitialState is the state the texture is created in.
	InitialState ResourceState

	// AllowUnorderedAccess permits unordered-access views.
	AllowUnorderedAccess bool
}

// DescriptorHeapDesc describes a shader-visible CBV/SRV/UAV descriptor heap.
type DescriptorHeapDesc struct {
	// Label is an optional debug label.
	Label string

	// NumDescriptors is the heap capacity.
	NumDescriptors uint32

	// ShaderVisible makes the heap bindable with SetDescriptorHeaps.
	ShaderVisible bool
}

// ConstantBufferViewDesc describes a constant buffer view.
type ConstantBufferViewDesc struct {
	// Address is the start of the viewed range.
	Address GPUAddress

	// Size is the viewed size in bytes, a multiple of ConstantBufferAlignment.
	Size uint32
}

// SRVDimension selects the kind of shader resource view.
type SRVDimension uint32

// Shader resource view dimensions.
const (
	// SRVDimensionBuffer is a buffer view.
	SRVDimensionBuffer SRVDimension = iota + 1

	// SRVDimensionTexture2D is a 2D texture view.
	SRVDimensionTexture2D
)

// ShaderResourceViewDesc describes a shader resource view.
type ShaderResourceViewDesc struct {
	// Dimension is the view kind.
	Dimension SRVDimension

	// Format is FormatR32Typeless for raw buffer views.
	Format Format

	// FirstElement and NumElements select the buffer range in elements.
	// For raw views an element is 4 bytes.
	FirstElement uint64
	NumElements  uint32

	// Raw makes the buffer view byte addressable.
	Raw bool
}

// UnorderedAccessViewDesc describes a 2D texture unordered-access view.
type UnorderedAccessViewDesc struct {
	// Format is the view format.
	Format Format
}

// RootParameterType selects the kind of a root parameter.
type RootParameterType uint32

// Root parameter types.
const (
	// RootParameterDescriptorTable binds a range of heap descriptors.
	RootParameterDescriptorTable RootParameterType = iota

	// RootParameterSRV binds a raw GPU address as a shader resource.
	RootParameterSRV

	// RootParameterCBV binds a raw GPU address as a constant buffer.
	RootParameterCBV
)

// DescriptorRangeType selects the kind of descriptors in a table range.
type DescriptorRangeType uint32

// Descriptor range types.
const (
	// DescriptorRangeSRV is a range of shader resource views (t registers).
	DescriptorRangeSRV DescriptorRangeType = iota

	// DescriptorRangeUAV is a range of unordered-access views (u registers).
	DescriptorRangeUAV

	// DescriptorRangeCBV is a range of constant buffer views (b registers).
	DescriptorRangeCBV
)

// DescriptorRangeOffsetAppend places a range directly after the previous
// range of the same table.
const DescriptorRangeOffsetAppend = ^uint32(0)

// DescriptorRange is one contiguous register range inside a descriptor table.
type DescriptorRange struct {
	Type           DescriptorRangeType
	NumDescriptors uint32
	BaseRegister   uint32
	RegisterSpace  uint32

	// OffsetFromTableStart is the descriptor offset of the range in the
	// table, or DescriptorRangeOffsetAppend.
	OffsetFromTableStart uint32
}

// RootParameter is one entry of a root signature.
type RootParameter struct {
	Type RootParameterType

	// Ranges are used by descriptor tables.
	Ranges []DescriptorRange

	// ShaderRegister and RegisterSpace are used by root descriptors.
	ShaderRegister uint32
	RegisterSpace  uint32
}

// RootSignatureFlags modify root signature behavior.
type RootSignatureFlags uint32

// Root signature flags.
const (
	// RootSignatureFlagNone is a global root signature.
	RootSignatureFlagNone RootSignatureFlags = 0

	// RootSignatureFlagLocal marks a local root signature whose arguments
	// come from shader records.
	RootSignatureFlagLocal RootSignatureFlags = 1 << 7
)

// RootSignatureDesc describes a root signature.
type RootSignatureDesc struct {
	Label      string
	Parameters []RootParameter
	Flags      RootSignatureFlags
}

// SubobjectType identifies a state object subobject.
type SubobjectType uint32

// Subobject types.
const (
	SubobjectGlobalRootSignature SubobjectType = iota + 1
	SubobjectLocalRootSignature
	SubobjectDXILLibrary
	SubobjectHitGroup
	SubobjectShaderConfig
	SubobjectExportsAssociation
	SubobjectPipelineConfig
)

// String returns the subobject type name.
func (t SubobjectType) String() string {
	switch t {
	case SubobjectGlobalRootSignature:
		return "GlobalRootSignature"
	case SubobjectLocalRootSignature:
		return "LocalRootSignature"
	case SubobjectDXILLibrary:
		return "DXILLibrary"
	case SubobjectHitGroup:
		return "HitGroup"
	case SubobjectShaderConfig:
		return "ShaderConfig"
	case SubobjectExportsAssociation:
		return "ExportsAssociation"
	case SubobjectPipelineConfig:
		return "PipelineConfig"
	default:
		return "Unknown"
	}
}

// LibraryDesc is a compiled shader library and the exports taken from it.
type LibraryDesc struct {
	Bytecode []byte
	Exports  []string
}

// HitGroupType selects the geometry type a hit group handles.
type HitGroupType uint32

// Hit group types.
const (
	HitGroupTriangles HitGroupType = iota
	HitGroupProceduralPrimitive
)

// HitGroupDesc groups intersection, any-hit and closest-hit shaders.
type HitGroupDesc struct {
	Name         string
	Type         HitGroupType
	ClosestHit   string
	AnyHit       string
	Intersection string
}

// ShaderConfig declares the maximum payload and attribute sizes in bytes.
type ShaderConfig struct {
	MaxPayloadSize   uint32
	MaxAttributeSize uint32
}

// ExportsAssociation binds the subobject at index Subobject (in the state
// object's subobject list) to the named exports.
type ExportsAssociation struct {
	Subobject int
	Exports   []string
}

// PipelineConfig declares the maximum trace recursion depth.
type PipelineConfig struct {
	MaxTraceRecursionDepth uint32
}

// Subobject is one element of a state object description. Exactly one of
// the payload fields matching Type is set.
type Subobject struct {
	Type SubobjectType

	RootSignature  RootSignatureID
	Library        *LibraryDesc
	HitGroup       *HitGroupDesc
	ShaderConfig   *ShaderConfig
	Association    *ExportsAssociation
	PipelineConfig *PipelineConfig
}

// StateObjectDesc describes a ray tracing pipeline state object.
type StateObjectDesc struct {
	Label      string
	Subobjects []Subobject
}

// BarrierType selects the kind of resource barrier.
type BarrierType uint32

// Barrier types.
const (
	// BarrierTransition changes a resource's state.
	BarrierTransition BarrierType = iota

	// BarrierUAV orders read/write accesses to one resource.
	BarrierUAV
)

// Barrier is a resource barrier recorded into a command list.
type Barrier struct {
	Type     BarrierType
	Resource ResourceID
	Before   ResourceState
	After    ResourceState
}

// Transition returns a transition barrier.
func Transition(res ResourceID, before, after ResourceState) Barrier {
	return Barrier{Type: BarrierTransition, Resource: res, Before: before, After: after}
}

// UAVBarrier returns an unordered-access barrier.
func UAVBarrier(res ResourceID) Barrier {
	return Barrier{Type: BarrierUAV, Resource: res}
}

// AddressRange is a GPU address range.
type AddressRange struct {
	StartAddress GPUAddress
	SizeInBytes  uint64
}

// AddressRangeAndStride is a GPU address range of fixed-stride records.
type AddressRangeAndStride struct {
	StartAddress  GPUAddress
	SizeInBytes   uint64
	StrideInBytes uint64
}

// DispatchRaysDesc describes a ray dispatch.
type DispatchRaysDesc struct {
	RayGenerationShaderRecord AddressRange
	MissShaderTable           AddressRangeAndStride
	HitGroupTable             AddressRangeAndStride
	CallableShaderTable       AddressRangeAndStride

	Width  uint32
	Height uint32
	Depth  uint32
}
