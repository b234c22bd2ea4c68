// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphics

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// DescriptorHeap is the single shader-visible CBV/SRV/UAV heap.
//
// The heap is split in two regions with independent cursors:
//
//	[0, cbvCount)                   constant buffer views, wrapping every frame
//	[cbvCount, cbvCount+srvCount)   shader resource / unordered access views
//
// The CBV cursor wraps to zero after its last slot. Views written by frames
// still in flight may be overwritten if more than cbvCount constant buffers
// are created within that window.
//
// The SRV cursor only moves forward. Requests that do not fit return
// ErrDescriptorHeapExhausted instead of wrapping, so persistent views such as
// geometry SRVs and the ray tracing output UAV are never aliased.
type DescriptorHeap struct {
	device    gpucore.Device
	id        gpucore.DescriptorHeapID
	cpuStart  gpucore.CPUDescriptorHandle
	gpuStart  gpucore.GPUDescriptorHandle
	increment uint32

	cbvCount uint32
	srvCount uint32

	cbvCursor uint32 // next CBV slot, in [0, cbvCount)
	srvCursor uint32 // next SRV slot, in [cbvCount, cbvCount+srvCount]
}

// NewDescriptorHeap creates a shader-visible heap with cbvCount constant
// buffer slots followed by srvCount shader resource slots.
func NewDescriptorHeap(device gpucore.Device, cbvCount, srvCount uint32, label string) (*DescriptorHeap, error) {
	id, err := device.CreateDescriptorHeap(&gpucore.DescriptorHeapDesc{
		Label:          label,
		NumDescriptors: cbvCount + srvCount,
		ShaderVisible:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("graphics: create descriptor heap: %w", err)
	}
	cpu, gpu := device.DescriptorHeapStart(id)
	return &DescriptorHeap{
		device:    device,
		id:        id,
		cpuStart:  cpu,
		gpuStart:  gpu,
		increment: device.DescriptorIncrementSize(),
		cbvCount:  cbvCount,
		srvCount:  srvCount,
		srvCursor: cbvCount,
	}, nil
}

// ID returns the heap for SetDescriptorHeaps.
func (h *DescriptorHeap) ID() gpucore.DescriptorHeapID { return h.id }

// Increment returns the byte stride between slots.
func (h *DescriptorHeap) Increment() uint32 { return h.increment }

// CPUHandle returns the CPU handle of slot.
func (h *DescriptorHeap) CPUHandle(slot uint32) gpucore.CPUDescriptorHandle {
	return h.cpuStart.Offset(slot, h.increment)
}

// GPUHandle returns the GPU handle of slot.
func (h *DescriptorHeap) GPUHandle(slot uint32) gpucore.GPUDescriptorHandle {
	return h.gpuStart.Offset(slot, h.increment)
}

// CBVCursor returns the slot the next constant buffer view will use.
func (h *DescriptorHeap) CBVCursor() uint32 { return h.cbvCursor }

// SRVCursor returns the slot the next shader resource view will use.
func (h *DescriptorHeap) SRVCursor() uint32 { return h.srvCursor }

// NextCBVSlot returns the current CBV slot and advances the cursor,
// wrapping to zero at the end of the CBV region.
func (h *DescriptorHeap) NextCBVSlot() uint32 {
	slot := h.cbvCursor
	h.cbvCursor++
	if h.cbvCursor >= h.cbvCount {
		h.cbvCursor = 0
	}
	return slot
}

// ReserveSRVSlots reserves n adjacent SRV/UAV slots and returns the first.
func (h *DescriptorHeap) ReserveSRVSlots(n uint32) (uint32, error) {
	if n == 0 || h.srvCursor+n > h.cbvCount+h.srvCount {
		return 0, fmt.Errorf("%w: %d requested, %d free", ErrDescriptorHeapExhausted,
			n, h.cbvCount+h.srvCount-h.srvCursor)
	}
	first := h.srvCursor
	h.srvCursor += n
	return first, nil
}

// Destroy releases the heap.
func (h *DescriptorHeap) Destroy() {
	if h.id != gpucore.InvalidID {
		h.device.DestroyDescriptorHeap(h.id)
		h.id = gpucore.InvalidID
	}
}
