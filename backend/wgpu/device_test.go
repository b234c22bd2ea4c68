//go:build !nogpu

package wgpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/raytrace/gpucore"
)

// createNoopDevice creates a noop HAL device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	d, err := NewFromHAL(device, queue, opts...)
	if err != nil {
		cleanup()
		t.Fatalf("NewFromHAL: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		cleanup()
	})
	return d
}

func TestNewFromHALRequiresDeviceAndQueue(t *testing.T) {
	if _, err := NewFromHAL(nil, nil); !errors.Is(err, ErrNoHAL) {
		t.Errorf("err = %v, want ErrNoHAL", err)
	}
}

func TestRaytracingDisabled(t *testing.T) {
	d := newTestDevice(t, WithRaytracing(false))
	tier, err := d.RaytracingTier()
	if err != nil || tier != gpucore.RaytracingTierNotSupported {
		t.Errorf("RaytracingTier = %v, %v; want NotSupported, nil", tier, err)
	}
	if d.traversal != nil {
		t.Error("traversal kernel built while disabled")
	}
}

func TestBufferHeaps(t *testing.T) {
	d := newTestDevice(t)

	upload, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "upload", Size: 10, Heap: gpucore.HeapTypeUpload})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteBuffer(upload, 3, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if got := d.resources[upload].shadow; !bytes.Equal(got, []byte{0, 0, 0, 1, 2, 3, 0, 0, 0, 0}) {
		t.Errorf("shadow = %v", got)
	}
	if err := d.WriteBuffer(upload, 8, []byte{1, 2, 3}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("write past end err = %v, want ErrOutOfRange", err)
	}
	if _, err := d.ReadBuffer(upload, 0, 4); !errors.Is(err, ErrNotMappable) {
		t.Errorf("read of upload buffer err = %v, want ErrNotMappable", err)
	}

	def, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "default", Size: 64})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.WriteBuffer(def, 0, []byte{1}); !errors.Is(err, ErrNotMappable) {
		t.Errorf("write of default buffer err = %v, want ErrNotMappable", err)
	}

	rb, err := d.CreateBuffer(&gpucore.BufferDesc{Label: "readback", Size: 16, Heap: gpucore.HeapTypeReadback})
	if err != nil {
		t.Fatal(err)
	}
	data, err := d.ReadBuffer(rb, 4, 8)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if len(data) != 8 {
		t.Errorf("len(data) = %d, want 8", len(data))
	}
	if _, err := d.ReadBuffer(rb, 12, 8); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read past end err = %v, want ErrOutOfRange", err)
	}
}

func TestTexturePitch(t *testing.T) {
	d := newTestDevice(t)
	id, err := d.CreateTexture(&gpucore.TextureDesc{Label: "tex", Width: 10, Height: 3, Format: gpucore.FormatR8G8B8A8Unorm})
	if err != nil {
		t.Fatal(err)
	}
	r := d.resources[id]
	if r.pitch != 256 || r.size != 768 {
		t.Errorf("pitch, size = %d, %d; want 256, 768", r.pitch, r.size)
	}
	if _, err := d.CreateTexture(&gpucore.TextureDesc{Width: 1, Height: 1}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown format err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestResourceAddressResolves(t *testing.T) {
	d := newTestDevice(t)
	id, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 512})
	if err != nil {
		t.Fatal(err)
	}
	addr := d.ResourceAddress(id)
	if addr == 0 {
		t.Fatal("null address for live buffer")
	}
	got, _, off, err := d.resolve(addr + 256)
	if err != nil || got != id || off != 256 {
		t.Errorf("resolve = %d, %d, %v; want %d, 256, nil", got, off, err, id)
	}
	if _, _, _, err := d.resolve(addr + 1024); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("resolve past end err = %v, want ErrOutOfRange", err)
	}

	d.DestroyResource(id)
	if d.ResourceAddress(id) != 0 {
		t.Error("destroyed buffer still has an address")
	}
	if _, _, _, err := d.resolve(addr); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("resolve of destroyed buffer err = %v, want ErrUnknownObject", err)
	}
}

func TestDescriptorHeaps(t *testing.T) {
	d := newTestDevice(t)
	visible, err := d.CreateDescriptorHeap(&gpucore.DescriptorHeapDesc{NumDescriptors: 4, ShaderVisible: true})
	if err != nil {
		t.Fatal(err)
	}
	staging, err := d.CreateDescriptorHeap(&gpucore.DescriptorHeapDesc{NumDescriptors: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateDescriptorHeap(&gpucore.DescriptorHeapDesc{}); err == nil {
		t.Error("empty heap created")
	}

	cpu, gpu := d.DescriptorHeapStart(visible)
	if uint64(gpu)&^gpuHandleBit != uint64(cpu) {
		t.Errorf("GPU handle %#x does not match CPU handle %#x", uint64(gpu), uint64(cpu))
	}

	tex := gpucore.ResourceID(42)
	sCPU, sGPU := d.DescriptorHeapStart(staging)
	d.CreateUnorderedAccessView(tex, &gpucore.UnorderedAccessViewDesc{}, sCPU.Offset(1, d.DescriptorIncrementSize()))
	d.CopyDescriptors(cpu.Offset(2, descriptorIncrement), sCPU, 2)

	v, err := d.gpuView(gpu.Offset(3, descriptorIncrement))
	if err != nil {
		t.Fatalf("gpuView: %v", err)
	}
	if v.kind != viewUAV || v.resource != tex {
		t.Errorf("copied view = %+v, want UAV of %d", *v, tex)
	}
	if _, err := d.gpuView(sGPU); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("GPU view of non-visible heap err = %v, want ErrUnknownObject", err)
	}
	if _, err := d.cpuView(cpu.Offset(4, descriptorIncrement)); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("view past end err = %v, want ErrOutOfRange", err)
	}
}

func testStateObjectDesc(global gpucore.RootSignatureID) *gpucore.StateObjectDesc {
	return &gpucore.StateObjectDesc{
		Label: "test",
		Subobjects: []gpucore.Subobject{
			{Type: gpucore.SubobjectDXILLibrary, Library: &gpucore.LibraryDesc{
				Bytecode: []byte{1, 2, 3},
				Exports:  []string{"RayGen", "Miss", "ClosestHit"},
			}},
			{Type: gpucore.SubobjectHitGroup, HitGroup: &gpucore.HitGroupDesc{
				Name: "HitGroup", ClosestHit: "ClosestHit",
			}},
			{Type: gpucore.SubobjectShaderConfig, ShaderConfig: &gpucore.ShaderConfig{
				MaxPayloadSize: 16, MaxAttributeSize: 8,
			}},
			{Type: gpucore.SubobjectExportsAssociation, Association: &gpucore.ExportsAssociation{
				Subobject: 2, Exports: []string{"RayGen", "Miss", "HitGroup"},
			}},
			{Type: gpucore.SubobjectGlobalRootSignature, RootSignature: global},
			{Type: gpucore.SubobjectPipelineConfig, PipelineConfig: &gpucore.PipelineConfig{
				MaxTraceRecursionDepth: 1,
			}},
		},
	}
}

func TestCreateStateObjectValidation(t *testing.T) {
	d := newTestDevice(t)
	global, err := d.CreateRootSignature(&gpucore.RootSignatureDesc{Label: "global"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(desc *gpucore.StateObjectDesc)
	}{
		{"unknown root signature", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[4].RootSignature = 999
		}},
		{"empty library", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[0].Library = &gpucore.LibraryDesc{Exports: []string{"RayGen"}}
		}},
		{"procedural hit group", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[1].HitGroup.Type = gpucore.HitGroupProceduralPrimitive
		}},
		{"unknown closest hit", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[1].HitGroup.ClosestHit = "Nope"
		}},
		{"recursion too deep", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[5].PipelineConfig.MaxTraceRecursionDepth = gpucore.MaxTraceRecursionDepth + 1
		}},
		{"missing pipeline config", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects = desc.Subobjects[:5]
		}},
		{"association out of range", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[3].Association.Subobject = 17
		}},
		{"association of unknown export", func(desc *gpucore.StateObjectDesc) {
			desc.Subobjects[3].Association.Exports = []string{"Shadow"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := testStateObjectDesc(global)
			tt.mutate(desc)
			if _, err := d.CreateStateObject(desc); !errors.Is(err, ErrInvalidStateObject) {
				t.Errorf("err = %v, want ErrInvalidStateObject", err)
			}
		})
	}

	if _, err := d.CreateStateObject(testStateObjectDesc(global)); err != nil {
		t.Errorf("valid state object: %v", err)
	}
}

func TestShaderIdentifiers(t *testing.T) {
	d := newTestDevice(t)
	global, err := d.CreateRootSignature(&gpucore.RootSignatureDesc{})
	if err != nil {
		t.Fatal(err)
	}
	a, err := d.CreateStateObject(testStateObjectDesc(global))
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.CreateStateObject(testStateObjectDesc(global))
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]string)
	for _, name := range []string{"RayGen", "Miss", "ClosestHit", "HitGroup"} {
		id, err := d.ShaderIdentifier(a, name)
		if err != nil {
			t.Fatalf("ShaderIdentifier(%q): %v", name, err)
		}
		if len(id) != gpucore.ShaderIdentifierSize {
			t.Errorf("len(%q) = %d, want %d", name, len(id), gpucore.ShaderIdentifierSize)
		}
		if other, dup := seen[string(id)]; dup {
			t.Errorf("%q and %q share an identifier", name, other)
		}
		seen[string(id)] = name

		again, _ := d.ShaderIdentifier(a, name)
		if !bytes.Equal(id, again) {
			t.Errorf("%q identifier is not stable", name)
		}
		fromB, _ := d.ShaderIdentifier(b, name)
		if bytes.Equal(id, fromB) {
			t.Errorf("%q identifier is shared between state objects", name)
		}
	}

	so := d.stateObjects[a]
	hg, _ := d.ShaderIdentifier(a, "HitGroup")
	rg, _ := d.ShaderIdentifier(a, "RayGen")
	if so.kind(hg) != "hitgroup" || so.kind(rg) != "export" || so.kind(make([]byte, 32)) != "" {
		t.Error("identifier kinds are wrong")
	}

	if _, err := d.ShaderIdentifier(a, "Shadow"); !errors.Is(err, ErrUnknownExport) {
		t.Errorf("unknown export err = %v, want ErrUnknownExport", err)
	}
	if _, err := d.ShaderIdentifier(999, "RayGen"); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("unknown state object err = %v, want ErrUnknownObject", err)
	}
}

func TestPrebuildInfo(t *testing.T) {
	d := newTestDevice(t)

	blas := d.AccelerationStructurePrebuildInfo(&gpucore.AccelerationStructureInputs{
		Type: gpucore.AccelerationStructureBottomLevel,
		Geometry: []gpucore.GeometryDesc{
			{Triangles: gpucore.TrianglesDesc{IndexCount: 300, VertexCount: 100}},
		},
	})
	if blas.ResultDataMaxSize != gpucore.Align(100*triangleSize, 256) {
		t.Errorf("BLAS result = %d", blas.ResultDataMaxSize)
	}
	if blas.ScratchDataSize%256 != 0 || blas.UpdateScratchDataSize != 0 {
		t.Errorf("BLAS scratch = %d, update = %d", blas.ScratchDataSize, blas.UpdateScratchDataSize)
	}

	tlas := d.AccelerationStructurePrebuildInfo(&gpucore.AccelerationStructureInputs{
		Type:         gpucore.AccelerationStructureTopLevel,
		Flags:        gpucore.BuildFlagAllowUpdate,
		NumInstances: 5,
	})
	if tlas.ResultDataMaxSize != 512 {
		t.Errorf("TLAS result = %d, want 512", tlas.ResultDataMaxSize)
	}
	if tlas.UpdateScratchDataSize != tlas.ScratchDataSize {
		t.Errorf("TLAS update scratch = %d, want %d", tlas.UpdateScratchDataSize, tlas.ScratchDataSize)
	}
}

func TestFences(t *testing.T) {
	d := newTestDevice(t)
	f, err := d.CreateFence(3)
	if err != nil {
		t.Fatal(err)
	}
	if got := d.CompletedValue(f); got != 3 {
		t.Errorf("initial CompletedValue = %d, want 3", got)
	}
	if err := d.WaitForFence(f, 2); err != nil {
		t.Errorf("wait for completed value: %v", err)
	}
	if err := d.Signal(f, 4); err != nil {
		t.Fatal(err)
	}
	if err := d.WaitForFence(f, 4); err != nil {
		t.Fatal(err)
	}
	if got := d.CompletedValue(f); got != 4 {
		t.Errorf("CompletedValue = %d, want 4", got)
	}

	d.DestroyFence(f)
	if err := d.Signal(f, 5); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("signal of destroyed fence err = %v, want ErrUnknownObject", err)
	}
}

func TestCommandListStates(t *testing.T) {
	d := newTestDevice(t)
	list, err := d.CreateCommandList(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ExecuteCommandLists(list); !errors.Is(err, ErrListState) {
		t.Errorf("execute of open list err = %v, want ErrListState", err)
	}
	if err := list.Close(); err != nil {
		t.Fatal(err)
	}
	if err := list.Close(); !errors.Is(err, ErrListState) {
		t.Errorf("second Close err = %v, want ErrListState", err)
	}
	if err := list.Reset(2); !errors.Is(err, ErrListState) {
		t.Errorf("Reset(2) err = %v, want ErrListState", err)
	}
	if err := list.Reset(1); err != nil {
		t.Errorf("Reset(1): %v", err)
	}
	if _, err := d.CreateCommandList(0); err == nil {
		t.Error("list with no allocators created")
	}

	other := newTestDevice(t)
	foreign, err := other.CreateCommandList(1)
	if err != nil {
		t.Fatal(err)
	}
	_ = foreign.Close()
	if err := d.ExecuteCommandLists(foreign); !errors.Is(err, ErrListState) {
		t.Errorf("execute of foreign list err = %v, want ErrListState", err)
	}
}

func TestExecuteCopies(t *testing.T) {
	d := newTestDevice(t)
	src, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 64, Heap: gpucore.HeapTypeUpload})
	if err != nil {
		t.Fatal(err)
	}
	dst, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 64, InitialState: gpucore.ResourceStateCopyDest})
	if err != nil {
		t.Fatal(err)
	}
	small, err := d.CreateBuffer(&gpucore.BufferDesc{Size: 16})
	if err != nil {
		t.Fatal(err)
	}

	list, err := d.CreateCommandList(1)
	if err != nil {
		t.Fatal(err)
	}
	list.CopyResource(dst, src)
	list.ResourceBarrier(gpucore.Transition(dst, gpucore.ResourceStateCopyDest, gpucore.ResourceStateGenericRead))
	if err := list.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.ExecuteCommandLists(list); err != nil {
		t.Fatalf("ExecuteCommandLists: %v", err)
	}
	if d.submitted != 1 {
		t.Errorf("submitted = %d, want 1", d.submitted)
	}
	if got := d.resources[dst].state; got != gpucore.ResourceStateGenericRead {
		t.Errorf("tracked state = %v, want GenericRead", got)
	}
	if n := len(d.lists[0].allocators[0].retired); n != 1 {
		t.Errorf("retired objects = %d, want 1", n)
	}

	if err := list.Reset(0); err != nil {
		t.Fatal(err)
	}
	if n := len(d.lists[0].allocators[0].retired); n != 0 {
		t.Errorf("retired objects after Reset = %d, want 0", n)
	}
	list.CopyResource(small, src)
	list.CopyBufferRegion(small, 8, src, 0, 16)
	_ = list.Close()
	if err := d.ExecuteCommandLists(list); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("mismatched copy err = %v, want ErrOutOfRange", err)
	}
}

func TestRowCopies(t *testing.T) {
	tex := &resource{width: 10, height: 3, format: gpucore.FormatR8G8B8A8Unorm, pitch: 256}

	same := rowCopies(tex, 512, 256, true)
	if len(same) != 1 || same[0].SrcOffset != 512 || same[0].Size != 768 {
		t.Errorf("matching pitch copies = %+v", same)
	}

	rows := rowCopies(tex, 0, 40, false)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	for y, r := range rows {
		if r.SrcOffset != uint64(y)*256 || r.DstOffset != uint64(y)*40 || r.Size != 40 {
			t.Errorf("row %d = %+v", y, r)
		}
	}
	if got := copyExtent(tex, 40); got != 120 {
		t.Errorf("copyExtent = %d, want 120", got)
	}
}

func TestSwapChain(t *testing.T) {
	d := newTestDevice(t)
	sc, err := NewSwapChain(d, 2, 32, 16)
	if err != nil {
		t.Fatal(err)
	}
	var presented []gpucore.ResourceID
	sc.OnPresent = func(buf gpucore.ResourceID, _ int) error {
		presented = append(presented, buf)
		return nil
	}

	first, second := sc.BackBuffer(0), sc.BackBuffer(1)
	for i := 0; i < 3; i++ {
		if err := sc.Present(false); err != nil {
			t.Fatal(err)
		}
	}
	want := []gpucore.ResourceID{first, second, first}
	for i := range want {
		if presented[i] != want[i] {
			t.Errorf("presented[%d] = %d, want %d", i, presented[i], want[i])
		}
	}
	if sc.CurrentBackBufferIndex() != 1 {
		t.Errorf("index = %d, want 1", sc.CurrentBackBufferIndex())
	}

	if err := sc.ResizeBuffers(64, 8); err != nil {
		t.Fatal(err)
	}
	if sc.CurrentBackBufferIndex() != 0 {
		t.Errorf("index after resize = %d, want 0", sc.CurrentBackBufferIndex())
	}
	if w, h := sc.Size(); w != 64 || h != 8 {
		t.Errorf("Size = %dx%d, want 64x8", w, h)
	}
	if _, ok := d.resources[first]; ok {
		t.Error("old back buffer survived resize")
	}
	if r := d.resources[sc.BackBuffer(0)]; r == nil || r.width != 64 || r.format != BackBufferFormat {
		t.Errorf("new back buffer = %+v", r)
	}

	sc.OnPresent = func(gpucore.ResourceID, int) error { return errors.New("window gone") }
	if err := sc.Present(false); err == nil {
		t.Error("present hook error was dropped")
	}

	kept := sc.BackBuffer(1)
	sc.Release()
	if _, ok := d.resources[kept]; ok {
		t.Error("Release left a back buffer alive")
	}
}
