//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// descriptorIncrement is the byte stride between heap slots.
const descriptorIncrement = 32

// gpuHandleBit distinguishes GPU handles from CPU handles of the same slot.
const gpuHandleBit = 1 << 62

type viewKind uint8

const (
	viewNone viewKind = iota
	viewCBV
	viewSRV
	viewUAV
)

type view struct {
	kind     viewKind
	resource gpucore.ResourceID
	cbv      gpucore.ConstantBufferViewDesc
	srv      gpucore.ShaderResourceViewDesc
	uav      gpucore.UnorderedAccessViewDesc
}

type descriptorHeap struct {
	label         string
	views         []view
	shaderVisible bool
}

// CreateDescriptorHeap creates a heap of desc.NumDescriptors empty slots.
func (d *Device) CreateDescriptorHeap(desc *gpucore.DescriptorHeapDesc) (gpucore.DescriptorHeapID, error) {
	if desc.NumDescriptors == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: descriptor heap %q has no slots", desc.Label)
	}
	id := gpucore.DescriptorHeapID(d.newID())
	d.heaps[id] = &descriptorHeap{
		label:         desc.Label,
		views:         make([]view, desc.NumDescriptors),
		shaderVisible: desc.ShaderVisible,
	}
	return id, nil
}

// DescriptorHeapStart returns the handles of slot 0. Handles carry the heap
// ID in their upper bits.
func (d *Device) DescriptorHeapStart(heap gpucore.DescriptorHeapID) (gpucore.CPUDescriptorHandle, gpucore.GPUDescriptorHandle) {
	base := uint64(heap) << 32
	return gpucore.CPUDescriptorHandle(base), gpucore.GPUDescriptorHandle(gpuHandleBit | base)
}

// DescriptorIncrementSize returns the slot stride.
func (d *Device) DescriptorIncrementSize() uint32 { return descriptorIncrement }

// DestroyDescriptorHeap releases a heap.
func (d *Device) DestroyDescriptorHeap(id gpucore.DescriptorHeapID) {
	delete(d.heaps, id)
}

func (d *Device) slot(h uint64) (*descriptorHeap, int, error) {
	heap, ok := d.heaps[gpucore.DescriptorHeapID(h>>32)]
	if !ok {
		return nil, 0, fmt.Errorf("%w: descriptor handle %#x", ErrUnknownObject, h)
	}
	i := int((h & 0xFFFFFFFF) / descriptorIncrement)
	if i >= len(heap.views) {
		return nil, 0, fmt.Errorf("%w: descriptor slot %d of %q", ErrOutOfRange, i, heap.label)
	}
	return heap, i, nil
}

// cpuView returns the view written at a CPU handle.
func (d *Device) cpuView(h gpucore.CPUDescriptorHandle) (*view, error) {
	heap, i, err := d.slot(uint64(h))
	if err != nil {
		return nil, err
	}
	return &heap.views[i], nil
}

// gpuView returns the view at a GPU handle of a shader-visible heap.
func (d *Device) gpuView(h gpucore.GPUDescriptorHandle) (*view, error) {
	if uint64(h)&gpuHandleBit == 0 {
		return nil, fmt.Errorf("%w: %#x is not a GPU descriptor handle", ErrUnknownObject, uint64(h))
	}
	heap, i, err := d.slot(uint64(h) &^ gpuHandleBit)
	if err != nil {
		return nil, err
	}
	if !heap.shaderVisible {
		return nil, fmt.Errorf("%w: heap %q is not shader visible", ErrUnknownObject, heap.label)
	}
	return &heap.views[i], nil
}

func (d *Device) writeView(dst gpucore.CPUDescriptorHandle, v view) {
	slot, err := d.cpuView(dst)
	if err != nil {
		slogger().Warn("wgpu: descriptor write dropped", "err", err)
		return
	}
	*slot = v
}

// CreateConstantBufferView writes a CBV into the slot at dst.
func (d *Device) CreateConstantBufferView(desc *gpucore.ConstantBufferViewDesc, dst gpucore.CPUDescriptorHandle) {
	d.writeView(dst, view{kind: viewCBV, cbv: *desc})
}

// CreateShaderResourceView writes an SRV of res into the slot at dst.
func (d *Device) CreateShaderResourceView(res gpucore.ResourceID, desc *gpucore.ShaderResourceViewDesc, dst gpucore.CPUDescriptorHandle) {
	d.writeView(dst, view{kind: viewSRV, resource: res, srv: *desc})
}

// CreateUnorderedAccessView writes a UAV of res into the slot at dst.
func (d *Device) CreateUnorderedAccessView(res gpucore.ResourceID, desc *gpucore.UnorderedAccessViewDesc, dst gpucore.CPUDescriptorHandle) {
	d.writeView(dst, view{kind: viewUAV, resource: res, uav: *desc})
}

// CopyDescriptors copies n consecutive views from src to dst.
func (d *Device) CopyDescriptors(dst, src gpucore.CPUDescriptorHandle, n uint32) {
	for i := uint32(0); i < n; i++ {
		from, err := d.cpuView(src.Offset(i, descriptorIncrement))
		if err != nil {
			slogger().Warn("wgpu: descriptor copy dropped", "err", err)
			return
		}
		d.writeView(dst.Offset(i, descriptorIncrement), *from)
	}
}
