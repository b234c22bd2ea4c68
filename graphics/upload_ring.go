package graphics

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// UploadRing is a persistently mapped upload-heap buffer that hands out
// 256-byte aligned regions for transient per-frame constants.
//
// Reserve wraps to offset zero whenever the reservation would reach the end
// of the buffer. It does not check that the wrapped region has been consumed
// by the GPU. With the guard enabled the ring tracks the bytes reserved by
// each frame in flight and logs a warning once per frame when their sum
// exceeds the capacity, which means a wrap may overwrite live constants.
type UploadRing struct {
	device   gpucore.Device
	buffer   gpucore.ResourceID
	base     gpucore.GPUAddress
	capacity uint64
	offset   uint64

	guard  bool
	usage  []uint64 // bytes reserved per frame slot
	frame  int
	warned bool
}

// NewUploadRing creates a ring of capacity bytes shared by frames frames.
func NewUploadRing(device gpucore.Device, capacity uint64, frames int, guard bool, label string) (*UploadRing, error) {
	if frames < 1 {
		frames = 1
	}
	buf, err := device.CreateBuffer(&gpucore.BufferDesc{
		Label:        label,
		Size:         capacity,
		Heap:         gpucore.HeapTypeUpload,
		InitialState: gpucore.ResourceStateGenericRead,
	})
	if err != nil {
		return nil, fmt.Errorf("graphics: create upload ring: %w", err)
	}
	return &UploadRing{
		device:   device,
		buffer:   buf,
		base:     device.ResourceAddress(buf),
		capacity: capacity,
		guard:    guard,
		usage:    make([]uint64, frames),
	}, nil
}

// Buffer returns the backing upload buffer.
func (r *UploadRing) Buffer() gpucore.ResourceID { return r.buffer }

// Capacity returns the ring size in bytes.
func (r *UploadRing) Capacity() uint64 { return r.capacity }

// Offset returns the byte offset of the next reservation before wrapping.
func (r *UploadRing) Offset() uint64 { return r.offset }

// Reserve copies data into the next free region and returns its GPU address
// and aligned size.
func (r *UploadRing) Reserve(data []byte) (gpucore.GPUAddress, uint64, error) {
	size := gpucore.Align(uint64(len(data)), gpucore.ConstantBufferAlignment)
	if size == 0 {
		size = gpucore.ConstantBufferAlignment
	}
	if size > r.capacity {
		return 0, 0, fmt.Errorf("%w: %d > %d", ErrReservationTooLarge, size, r.capacity)
	}

	if r.offset+size >= r.capacity {
		r.offset = 0
	}
	if err := r.device.WriteBuffer(r.buffer, r.offset, data); err != nil {
		return 0, 0, fmt.Errorf("graphics: write upload ring: %w", err)
	}
	addr := r.base + gpucore.GPUAddress(r.offset)

	r.offset += size
	if r.offset >= r.capacity {
		r.offset = 0
	}

	if r.guard {
		r.usage[r.frame] += size
		r.checkOverrun()
	}
	return addr, size, nil
}

func (r *UploadRing) checkOverrun() {
	if r.warned {
		return
	}
	var inFlight uint64
	for _, u := range r.usage {
		inFlight += u
	}
	if inFlight > r.capacity {
		r.warned = true
		slogger().Warn("graphics: upload ring overrun, in-flight constants may be overwritten",
			"inFlight", inFlight, "capacity", r.capacity, "frames", len(r.usage))
	}
}

// EndFrame moves usage tracking to the next frame slot. The slot being
// reused belongs to a frame whose work has retired.
func (r *UploadRing) EndFrame() {
	r.frame = (r.frame + 1) % len(r.usage)
	r.usage[r.frame] = 0
	r.warned = false
}

// Destroy releases the backing buffer.
func (r *UploadRing) Destroy() {
	if r.buffer != gpucore.InvalidID {
		r.device.DestroyResource(r.buffer)
		r.buffer = gpucore.InvalidID
	}
}
