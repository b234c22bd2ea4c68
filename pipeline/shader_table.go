package pipeline

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// Record indices in the shader table.
const (
	RecordRayGen = iota
	RecordMiss
	RecordHitGroup

	recordCount
)

// TableLayout is the byte layout of a three-record shader table.
type TableLayout struct {
	IdentifierSize uint64
	RecordStride   uint64
	Size           uint64
}

// ComputeTableLayout returns the layout for identifiers of idSize bytes and
// hitGroupLocal bytes of local arguments in the hit group record. Every
// record size is aligned to recordAlign, the stride is the largest of them
// and the table length is aligned to tableAlign.
func ComputeTableLayout(idSize, hitGroupLocal, recordAlign, tableAlign uint64) TableLayout {
	rayGen := gpucore.Align(idSize, recordAlign)
	miss := gpucore.Align(idSize, recordAlign)
	hitGroup := gpucore.Align(idSize+hitGroupLocal, recordAlign)
	stride := max(rayGen, miss, hitGroup)
	return TableLayout{
		IdentifierSize: idSize,
		RecordStride:   stride,
		Size:           gpucore.Align(recordCount*stride, tableAlign),
	}
}

// RecordOffset returns the byte offset of record i.
func (l TableLayout) RecordOffset(i int) uint64 {
	return uint64(i) * l.RecordStride
}

// HitGroupConstantsOffset is where the hit group's constant buffer table
// handle is stored.
func (l TableLayout) HitGroupConstantsOffset() uint64 {
	return l.RecordOffset(RecordHitGroup) + l.IdentifierSize
}

// HitGroupGeometryOffset is where the hit group's geometry SRV table handle
// is stored.
func (l TableLayout) HitGroupGeometryOffset() uint64 {
	return l.HitGroupConstantsOffset() + gpucore.DescriptorHandleSize
}

// ShaderTable is an upload-heap buffer of shader records. A CPU copy of the
// contents is kept in step with every write.
type ShaderTable struct {
	device  gpucore.Device
	buffer  gpucore.ResourceID
	address gpucore.GPUAddress
	layout  TableLayout
	data    []byte
}

// NewShaderTable creates the table and writes the ray generation, miss and
// hit group identifiers of so into records 0, 1 and 2.
func NewShaderTable(device gpucore.Device, so gpucore.StateObjectID, layout TableLayout) (*ShaderTable, error) {
	names := [recordCount]string{ExportRayGen, ExportMiss, HitGroupName}
	data := make([]byte, layout.Size)
	for i, name := range names {
		id, err := device.ShaderIdentifier(so, name)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrUnknownExport, name, err)
		}
		if uint64(len(id)) != layout.IdentifierSize {
			return nil, fmt.Errorf("%w %q: identifier is %d bytes, want %d",
				ErrUnknownExport, name, len(id), layout.IdentifierSize)
		}
		copy(data[layout.RecordOffset(i):], id)
	}

	buf, err := device.CreateBuffer(&gpucore.BufferDesc{
		Label:        "raytracing/shader-table",
		Size:         layout.Size,
		Heap:         gpucore.HeapTypeUpload,
		InitialState: gpucore.ResourceStateGenericRead,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: create shader table: %w", err)
	}
	if err := device.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyResource(buf)
		return nil, fmt.Errorf("pipeline: write shader table: %w", err)
	}

	slogger().Debug("pipeline: shader table created",
		"stride", layout.RecordStride, "size", layout.Size)
	return &ShaderTable{
		device:  device,
		buffer:  buf,
		address: device.ResourceAddress(buf),
		layout:  layout,
		data:    data,
	}, nil
}

// Layout returns the table layout.
func (t *ShaderTable) Layout() TableLayout { return t.layout }

// Buffer returns the backing buffer.
func (t *ShaderTable) Buffer() gpucore.ResourceID { return t.buffer }

// Address returns the GPU address of record 0.
func (t *ShaderTable) Address() gpucore.GPUAddress { return t.address }

// Bytes returns the CPU copy of the table contents.
func (t *ShaderTable) Bytes() []byte { return t.data }

func (t *ShaderTable) writeHandle(offset uint64, h gpucore.GPUDescriptorHandle) error {
	var b [gpucore.DescriptorHandleSize]byte
	binary.LittleEndian.PutUint64(b[:], uint64(h))
	if err := t.device.WriteBuffer(t.buffer, offset, b[:]); err != nil {
		return fmt.Errorf("pipeline: patch shader table at %d: %w", offset, err)
	}
	copy(t.data[offset:], b[:])
	return nil
}

// PatchGeometry stores the base of a mesh's geometry SRV table (index SRV
// followed by vertex SRV) in the hit group record.
func (t *ShaderTable) PatchGeometry(indexSRV gpucore.GPUDescriptorHandle) error {
	return t.writeHandle(t.layout.HitGroupGeometryOffset(), indexSRV)
}

// PatchHitGroupConstants stores the hit group's constant buffer table handle.
func (t *ShaderTable) PatchHitGroupConstants(cbv gpucore.GPUDescriptorHandle) error {
	return t.writeHandle(t.layout.HitGroupConstantsOffset(), cbv)
}

// Handle reads back the descriptor handle stored at offset.
func (t *ShaderTable) Handle(offset uint64) gpucore.GPUDescriptorHandle {
	return gpucore.GPUDescriptorHandle(binary.LittleEndian.Uint64(t.data[offset:]))
}

// DispatchDesc returns a dispatch of width x height x 1 rays addressing the
// three records by base + index*stride.
func (t *ShaderTable) DispatchDesc(width, height uint32) gpucore.DispatchRaysDesc {
	stride := t.layout.RecordStride
	return gpucore.DispatchRaysDesc{
		RayGenerationShaderRecord: gpucore.AddressRange{
			StartAddress: t.address,
			SizeInBytes:  stride,
		},
		MissShaderTable: gpucore.AddressRangeAndStride{
			StartAddress:  t.address + gpucore.GPUAddress(t.layout.RecordOffset(RecordMiss)),
			SizeInBytes:   stride,
			StrideInBytes: stride,
		},
		HitGroupTable: gpucore.AddressRangeAndStride{
			StartAddress:  t.address + gpucore.GPUAddress(t.layout.RecordOffset(RecordHitGroup)),
			SizeInBytes:   stride,
			StrideInBytes: stride,
		},
		Width:  width,
		Height: height,
		Depth:  1,
	}
}

// Release destroys the table buffer.
func (t *ShaderTable) Release() {
	if t.buffer != gpucore.InvalidID {
		t.device.DestroyResource(t.buffer)
		t.buffer = gpucore.InvalidID
	}
}
