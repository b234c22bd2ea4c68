package gpucore

// Device abstracts the GPU device, its direct command queue and the fences
// used to synchronize with it.
//
// The ray tracing core is written against this interface. Implementations
// translate IDs and descriptors to a concrete API. Implementations are not
// required to be safe for concurrent use: all calls are issued from the
// single submitting goroutine.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via DestroyResource
//   - Destroying a resource while the GPU still reads it is undefined behavior
//   - IDs become invalid after destruction and must not be reused
type Device interface {
	// === Capabilities ===

	// RaytracingTier queries ray tracing support. An error means the query
	// itself failed and is treated like an unsupported tier.
	RaytracingTier() (RaytracingTier, error)

	// === Resources ===

	// CreateBuffer creates a committed buffer.
	CreateBuffer(desc *BufferDesc) (ResourceID, error)

	// CreateTexture creates a committed 2D texture.
	CreateTexture(desc *TextureDesc) (ResourceID, error)

	// DestroyResource releases a buffer or texture.
	DestroyResource(id ResourceID)

	// ResourceAddress returns the GPU virtual address of a buffer.
	ResourceAddress(id ResourceID) GPUAddress

	// WriteBuffer copies data into a mapped upload-heap buffer at offset.
	WriteBuffer(id ResourceID, offset uint64, data []byte) error

	// ReadBuffer copies size bytes from a readback-heap buffer at offset.
	ReadBuffer(id ResourceID, offset, size uint64) ([]byte, error)

	// === Descriptors ===

	// CreateDescriptorHeap creates a CBV/SRV/UAV descriptor heap.
	CreateDescriptorHeap(desc *DescriptorHeapDesc) (DescriptorHeapID, error)

	// DescriptorHeapStart returns the handles of slot 0 of a heap.
	DescriptorHeapStart(heap DescriptorHeapID) (CPUDescriptorHandle, GPUDescriptorHandle)

	// DescriptorIncrementSize returns the byte stride between heap slots.
	DescriptorIncrementSize() uint32

	// CreateConstantBufferView writes a CBV into the slot at dst.
	CreateConstantBufferView(desc *ConstantBufferViewDesc, dst CPUDescriptorHandle)

	// CreateShaderResourceView writes an SRV of res into the slot at dst.
	CreateShaderResourceView(res ResourceID, desc *ShaderResourceViewDesc, dst CPUDescriptorHandle)

	// CreateUnorderedAccessView writes a UAV of res into the slot at dst.
	CreateUnorderedAccessView(res ResourceID, desc *UnorderedAccessViewDesc, dst CPUDescriptorHandle)

	// CopyDescriptors copies n consecutive descriptors from src to dst.
	CopyDescriptors(dst, src CPUDescriptorHandle, n uint32)

	// === Ray tracing pipeline ===

	// CreateRootSignature serializes and creates a root signature.
	CreateRootSignature(desc *RootSignatureDesc) (RootSignatureID, error)

	// CreateStateObject creates a ray tracing pipeline state object.
	CreateStateObject(desc *StateObjectDesc) (StateObjectID, error)

	// ShaderIdentifier returns the ShaderIdentifierSize-byte identifier of
	// an export or hit group. Names match by exact string equality.
	ShaderIdentifier(so StateObjectID, export string) ([]byte, error)

	// AccelerationStructurePrebuildInfo reports the sizes a build needs.
	AccelerationStructurePrebuildInfo(inputs *AccelerationStructureInputs) PrebuildInfo

	// === Commands and queue ===

	// CreateCommandList creates a command list with one allocator per
	// frame slot. The list is returned open, recording into allocator 0.
	CreateCommandList(allocators int) (CommandList, error)

	// ExecuteCommandLists submits closed command lists to the queue.
	ExecuteCommandLists(lists ...CommandList) error

	// === Fences ===

	// CreateFence creates a fence with the given initial value.
	CreateFence(initial uint64) (FenceID, error)

	// Signal enqueues a queue-side signal of fence to value.
	Signal(fence FenceID, value uint64) error

	// CompletedValue returns the last value the GPU signaled on fence.
	CompletedValue(fence FenceID) uint64

	// WaitForFence blocks until fence reaches value. Waits are unbounded.
	WaitForFence(fence FenceID, value uint64) error

	// DestroyFence releases a fence.
	DestroyFence(fence FenceID)

	// DestroyRootSignature releases a root signature.
	DestroyRootSignature(id RootSignatureID)

	// DestroyStateObject releases a state object.
	DestroyStateObject(id StateObjectID)

	// DestroyDescriptorHeap releases a descriptor heap.
	DestroyDescriptorHeap(id DescriptorHeapID)
}

// CommandList records GPU commands for later submission.
type CommandList interface {
	// Reset resets the allocator for frame slot i and reopens the list on
	// it. The allocator's previous commands must have retired.
	Reset(allocator int) error

	// Close ends recording.
	Close() error

	// ResourceBarrier records one batch of barriers.
	ResourceBarrier(barriers ...Barrier)

	// CopyResource copies the whole of src into dst.
	CopyResource(dst, src ResourceID)

	// CopyBufferRegion copies size bytes between buffers.
	CopyBufferRegion(dst ResourceID, dstOffset uint64, src ResourceID, srcOffset, size uint64)

	// CopyBufferToTexture copies tightly packed rows (rowPitch bytes each)
	// from a buffer into a whole texture.
	CopyBufferToTexture(dst ResourceID, src ResourceID, srcOffset uint64, rowPitch uint32)

	// CopyTextureToBuffer copies a whole texture into a buffer with the given
	// row pitch.
	CopyTextureToBuffer(dst ResourceID, dstOffset uint64, rowPitch uint32, src ResourceID)

	// SetDescriptorHeaps binds shader-visible descriptor heaps.
	SetDescriptorHeaps(heaps ...DescriptorHeapID)

	// SetPipelineState1 binds a ray tracing state object.
	SetPipelineState1(so StateObjectID)

	// SetComputeRootSignature binds the global root signature.
	SetComputeRootSignature(rs RootSignatureID)

	// SetComputeRootDescriptorTable binds a descriptor table parameter.
	SetComputeRootDescriptorTable(param uint32, base GPUDescriptorHandle)

	// SetComputeRootShaderResourceView binds a root SRV parameter.
	SetComputeRootShaderResourceView(param uint32, address GPUAddress)

	// BuildRaytracingAccelerationStructure records an acceleration
	// structure build.
	BuildRaytracingAccelerationStructure(desc *BuildAccelerationStructureDesc)

	// DispatchRays records a ray dispatch.
	DispatchRays(desc *DispatchRaysDesc)
}

// SwapChain is the presentation surface with NumBuffers back buffers.
type SwapChain interface {
	// BufferCount returns the number of back buffers.
	BufferCount() int

	// BackBuffer returns the texture of back buffer i.
	BackBuffer(i int) ResourceID

	// CurrentBackBufferIndex returns the index of the buffer to render to.
	CurrentBackBufferIndex() int

	// Present queues the current back buffer for display.
	Present(vsync bool) error

	// ResizeBuffers recreates the back buffers. All references to previous
	// back buffers must be released and the GPU must be idle.
	ResizeBuffers(width, height uint32) error
}
