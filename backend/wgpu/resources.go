//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace/gpucore"
)

// copyAlignment is the row pitch granularity of buffer/texture copies.
const copyAlignment = gpucore.TexturePitchAlignment

type resourceKind uint8

const (
	kindBuffer resourceKind = iota
	kindTexture
)

// resource is a buffer or a buffer-backed texture.
type resource struct {
	label  string
	kind   resourceKind
	buffer hal.Buffer
	size   uint64
	heap   gpucore.HeapType
	state  gpucore.ResourceState

	// shadow mirrors upload heap contents for CPU-side inspection of
	// instance descriptions and shader records.
	shadow []byte

	width, height uint32
	format        gpucore.Format
	pitch         uint32

	// blas and tlas are set when the resource is the destination of an
	// acceleration structure build.
	blas *blasGeometry
	tlas *tlasInstances
}

func bufferUsage(heap gpucore.HeapType) gputypes.BufferUsage {
	switch heap {
	case gpucore.HeapTypeUpload:
		return gputypes.BufferUsageUniform | gputypes.BufferUsageStorage |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	case gpucore.HeapTypeReadback:
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	}
}

func (d *Device) createHALBuffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minBufSize = 4
	size = gpucore.Align(size, 4)
	if size < minBufSize {
		size = minBufSize
	}
	return d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: d.label(label),
		Size:  size,
		Usage: usage,
	})
}

// CreateBuffer creates a buffer in the requested heap.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.ResourceID, error) {
	buf, err := d.createHALBuffer(desc.Label, desc.Size, bufferUsage(desc.Heap))
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q (%d bytes): %w", desc.Label, desc.Size, err)
	}
	r := &resource{
		label:  desc.Label,
		kind:   kindBuffer,
		buffer: buf,
		size:   desc.Size,
		heap:   desc.Heap,
		state:  desc.InitialState,
	}
	if desc.Heap == gpucore.HeapTypeUpload {
		r.shadow = make([]byte, desc.Size)
	}
	id := gpucore.ResourceID(d.newID())
	d.resources[id] = r
	slogger().Debug("wgpu: buffer created", "id", id, "label", desc.Label, "size", desc.Size, "heap", desc.Heap)
	return id, nil
}

// CreateTexture creates a buffer-backed texture with rows padded to
// copyAlignment bytes.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.ResourceID, error) {
	bpp := desc.Format.BytesPerElement()
	if bpp == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q format %d", ErrUnsupportedFormat, desc.Label, desc.Format)
	}
	pitch := uint32(gpucore.Align(uint64(desc.Width)*uint64(bpp), copyAlignment))
	size := uint64(pitch) * uint64(desc.Height)
	buf, err := d.createHALBuffer(desc.Label, size, bufferUsage(gpucore.HeapTypeDefault))
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create texture %q %dx%d: %w", desc.Label, desc.Width, desc.Height, err)
	}
	id := gpucore.ResourceID(d.newID())
	d.resources[id] = &resource{
		label:  desc.Label,
		kind:   kindTexture,
		buffer: buf,
		size:   size,
		heap:   gpucore.HeapTypeDefault,
		state:  desc.InitialState,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		pitch:  pitch,
	}
	slogger().Debug("wgpu: texture created", "id", id, "label", desc.Label,
		"width", desc.Width, "height", desc.Height, "pitch", pitch)
	return id, nil
}

// DestroyResource releases a buffer or texture. Unknown IDs are ignored.
func (d *Device) DestroyResource(id gpucore.ResourceID) {
	r, ok := d.resources[id]
	if !ok {
		return
	}
	d.device.DestroyBuffer(r.buffer)
	delete(d.resources, id)
}

// ResourceAddress returns id<<32. The low 32 bits of an address are the
// byte offset into the resource.
func (d *Device) ResourceAddress(id gpucore.ResourceID) gpucore.GPUAddress {
	if _, ok := d.resources[id]; !ok {
		return 0
	}
	return gpucore.GPUAddress(uint64(id) << 32)
}

// resolve maps a GPU address back to its resource and offset.
func (d *Device) resolve(addr gpucore.GPUAddress) (gpucore.ResourceID, *resource, uint64, error) {
	id := gpucore.ResourceID(uint64(addr) >> 32)
	off := uint64(addr) & 0xFFFFFFFF
	r, ok := d.resources[id]
	if !ok {
		return 0, nil, 0, fmt.Errorf("%w: address %#x", ErrUnknownObject, uint64(addr))
	}
	if off > r.size {
		return 0, nil, 0, fmt.Errorf("%w: address %#x past %q", ErrOutOfRange, uint64(addr), r.label)
	}
	return id, r, off, nil
}

func (d *Device) lookup(id gpucore.ResourceID) (*resource, error) {
	r, ok := d.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: resource %d", ErrUnknownObject, id)
	}
	return r, nil
}

// WriteBuffer writes into an upload heap buffer. The write reaches the GPU
// before the next submission.
func (d *Device) WriteBuffer(id gpucore.ResourceID, offset uint64, data []byte) error {
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if r.heap != gpucore.HeapTypeUpload {
		return fmt.Errorf("%w: write to %q in %v heap", ErrNotMappable, r.label, r.heap)
	}
	if offset+uint64(len(data)) > r.size {
		return fmt.Errorf("%w: write of %d bytes at %d into %q (%d bytes)",
			ErrOutOfRange, len(data), offset, r.label, r.size)
	}
	copy(r.shadow[offset:], data)

	// Queue writes need 4-byte aligned offsets and sizes.
	start := offset &^ 3
	end := gpucore.Align(offset+uint64(len(data)), 4)
	if end > uint64(len(r.shadow)) {
		padded := make([]byte, end-start)
		copy(padded, r.shadow[start:])
		d.queue.WriteBuffer(r.buffer, start, padded)
		return nil
	}
	d.queue.WriteBuffer(r.buffer, start, r.shadow[start:end])
	return nil
}

// ReadBuffer reads from a readback heap buffer. The caller must have waited
// for the work that wrote it.
func (d *Device) ReadBuffer(id gpucore.ResourceID, offset, size uint64) ([]byte, error) {
	r, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if r.heap != gpucore.HeapTypeReadback {
		return nil, fmt.Errorf("%w: read from %q in %v heap", ErrNotMappable, r.label, r.heap)
	}
	if offset+size > r.size {
		return nil, fmt.Errorf("%w: read of %d bytes at %d from %q (%d bytes)",
			ErrOutOfRange, size, offset, r.label, r.size)
	}
	out := make([]byte, size)
	if err := d.queue.ReadBuffer(r.buffer, offset, out); err != nil {
		return nil, fmt.Errorf("wgpu: read %q: %w", r.label, err)
	}
	return out, nil
}
