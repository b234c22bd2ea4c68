//go:build !nogpu

package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/pipeline"
)

func TestResolveRangeOffsets(t *testing.T) {
	got := resolveRangeOffsets([]gpucore.DescriptorRange{
		{NumDescriptors: 2, OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend},
		{NumDescriptors: 1, OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend},
		{NumDescriptors: 1, OffsetFromTableStart: 5},
		{NumDescriptors: 1, OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend},
	})
	want := []uint32{0, 2, 5, 6}
	for i, rg := range got {
		if rg.OffsetFromTableStart != want[i] {
			t.Errorf("range %d offset = %d, want %d", i, rg.OffsetFromTableStart, want[i])
		}
	}
}

func TestTargetsResolveGlobalRootSignature(t *testing.T) {
	d := newTestDevice(t)

	heap, err := d.CreateDescriptorHeap(&gpucore.DescriptorHeapDesc{NumDescriptors: 8, ShaderVisible: true})
	if err != nil {
		t.Fatal(err)
	}
	cpu, gpu := d.DescriptorHeapStart(heap)

	output, err := d.CreateTexture(&gpucore.TextureDesc{Width: 4, Height: 4, Format: gpucore.FormatR8G8B8A8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	d.CreateUnorderedAccessView(output, &gpucore.UnorderedAccessViewDesc{}, cpu.Offset(5, descriptorIncrement))

	constants, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 512, Heap: gpucore.HeapTypeUpload})
	if err != nil {
		t.Fatal(err)
	}
	d.CreateConstantBufferView(&gpucore.ConstantBufferViewDesc{
		Address: d.ResourceAddress(constants) + 256,
		Size:    256,
	}, cpu.Offset(2, descriptorIncrement))

	blasBuf, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 256})
	if err != nil {
		t.Fatal(err)
	}
	tlasBuf, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 256})
	if err != nil {
		t.Fatal(err)
	}
	d.resources[blasBuf].blas = &blasGeometry{indexCount: 3, vertexCount: 3}
	d.resources[tlasBuf].tlas = &tlasInstances{count: 1, blas: blasBuf}

	rs, err := d.CreateRootSignature(pipeline.GlobalRootSignatureDesc())
	if err != nil {
		t.Fatal(err)
	}
	b := bindings{
		rootSig: rs,
		tables: map[uint32]gpucore.GPUDescriptorHandle{
			pipeline.ParamOutput:         gpu.Offset(5, descriptorIncrement),
			pipeline.ParamSceneConstants: gpu.Offset(2, descriptorIncrement),
		},
		srvs: map[uint32]gpucore.GPUAddress{
			pipeline.ParamAccelerationStructure: d.ResourceAddress(tlasBuf),
		},
	}

	tg, err := d.targets(b)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	if tg.output != d.resources[output] {
		t.Error("output UAV not resolved to the output texture")
	}
	if tg.scene != d.resources[constants] || tg.sceneOff != 256 {
		t.Errorf("scene constants resolved to offset %d, want 256 of the constants buffer", tg.sceneOff)
	}
	if tg.tlas != d.resources[tlasBuf] || tg.blas != d.resources[blasBuf].blas {
		t.Error("acceleration structures not resolved")
	}

	b.tables[pipeline.ParamOutput] = gpu.Offset(7, descriptorIncrement)
	if _, err := d.targets(b); !errors.Is(err, ErrUnknownObject) && !errors.Is(err, ErrEmulation) {
		t.Errorf("empty output slot err = %v", err)
	}
}
