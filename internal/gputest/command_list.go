package gputest

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// CommandList is a fake gpucore.CommandList. Every call is recorded in the
// owning Device's call log.
type CommandList struct {
	device *Device

	// Index is the creation order of the list on its device.
	Index int

	// Allocators is the number of allocators the list was created with.
	Allocators int

	// Allocator is the allocator the list currently records into.
	Allocator int

	// Open reports whether the list is recording.
	Open bool

	// Resets counts Reset calls.
	Resets int
}

var _ gpucore.CommandList = (*CommandList)(nil)

func (l *CommandList) record(name string, args ...any) {
	l.device.mu.Lock()
	defer l.device.mu.Unlock()
	l.device.record(name, args...)
}

// Reset implements gpucore.CommandList.
func (l *CommandList) Reset(allocator int) error {
	l.record("Reset", allocator)
	if allocator < 0 || allocator >= l.Allocators {
		return fmt.Errorf("gputest: allocator %d out of range [0, %d)", allocator, l.Allocators)
	}
	l.Allocator = allocator
	l.Open = true
	l.Resets++
	return nil
}

// Close implements gpucore.CommandList.
func (l *CommandList) Close() error {
	l.record("Close")
	if !l.Open {
		return fmt.Errorf("gputest: command list %d already closed", l.Index)
	}
	l.Open = false
	return nil
}

// ResourceBarrier implements gpucore.CommandList.
func (l *CommandList) ResourceBarrier(barriers ...gpucore.Barrier) {
	l.record("ResourceBarrier", append([]gpucore.Barrier(nil), barriers...))
}

// CopyResource implements gpucore.CommandList. Buffer contents are copied
// immediately.
func (l *CommandList) CopyResource(dst, src gpucore.ResourceID) {
	l.record("CopyResource", dst, src)
	l.device.mu.Lock()
	defer l.device.mu.Unlock()
	d, dok := l.device.Buffers[dst]
	s, sok := l.device.Buffers[src]
	if dok && sok {
		copy(d.Data, s.Data)
	}
}

// CopyBufferRegion implements gpucore.CommandList.
func (l *CommandList) CopyBufferRegion(dst gpucore.ResourceID, dstOffset uint64, src gpucore.ResourceID, srcOffset, size uint64) {
	l.record("CopyBufferRegion", dst, dstOffset, src, srcOffset, size)
	l.device.mu.Lock()
	defer l.device.mu.Unlock()
	d, dok := l.device.Buffers[dst]
	s, sok := l.device.Buffers[src]
	if dok && sok && dstOffset+size <= uint64(len(d.Data)) && srcOffset+size <= uint64(len(s.Data)) {
		copy(d.Data[dstOffset:dstOffset+size], s.Data[srcOffset:])
	}
}

// CopyBufferToTexture implements gpucore.CommandList.
func (l *CommandList) CopyBufferToTexture(dst, src gpucore.ResourceID, srcOffset uint64, rowPitch uint32) {
	l.record("CopyBufferToTexture", dst, src, srcOffset, rowPitch)
}

// CopyTextureToBuffer implements gpucore.CommandList.
func (l *CommandList) CopyTextureToBuffer(dst gpucore.ResourceID, dstOffset uint64, rowPitch uint32, src gpucore.ResourceID) {
	l.record("CopyTextureToBuffer", dst, dstOffset, rowPitch, src)
}

// SetDescriptorHeaps implements gpucore.CommandList.
func (l *CommandList) SetDescriptorHeaps(heaps ...gpucore.DescriptorHeapID) {
	l.record("SetDescriptorHeaps", append([]gpucore.DescriptorHeapID(nil), heaps...))
}

// SetPipelineState1 implements gpucore.CommandList.
func (l *CommandList) SetPipelineState1(so gpucore.StateObjectID) {
	l.record("SetPipelineState1", so)
}

// SetComputeRootSignature implements gpucore.CommandList.
func (l *CommandList) SetComputeRootSignature(rs gpucore.RootSignatureID) {
	l.record("SetComputeRootSignature", rs)
}

// SetComputeRootDescriptorTable implements gpucore.CommandList.
func (l *CommandList) SetComputeRootDescriptorTable(param uint32, base gpucore.GPUDescriptorHandle) {
	l.record("SetComputeRootDescriptorTable", param, base)
}

// SetComputeRootShaderResourceView implements gpucore.CommandList.
func (l *CommandList) SetComputeRootShaderResourceView(param uint32, address gpucore.GPUAddress) {
	l.record("SetComputeRootShaderResourceView", param, address)
}

// BuildRaytracingAccelerationStructure implements gpucore.CommandList.
func (l *CommandList) BuildRaytracingAccelerationStructure(desc *gpucore.BuildAccelerationStructureDesc) {
	l.record("BuildRaytracingAccelerationStructure", *desc)
}

// DispatchRays implements gpucore.CommandList.
func (l *CommandList) DispatchRays(desc *gpucore.DispatchRaysDesc) {
	l.record("DispatchRays", *desc)
}
