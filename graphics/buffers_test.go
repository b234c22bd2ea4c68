package graphics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/raytrace/gpucore"
)

func TestCreateStaticBuffer(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	dev.ResetCalls()

	data := []byte("vertex data that must reach the GPU")
	buf, err := ctx.CreateStaticBuffer("vb", data)
	if err != nil {
		t.Fatalf("CreateStaticBuffer: %v", err)
	}

	desc := dev.Buffers[buf].Desc
	if desc.Heap != gpucore.HeapTypeDefault || desc.InitialState != gpucore.ResourceStateCopyDest {
		t.Errorf("buffer desc = %+v, want default heap in copy-dest", desc)
	}
	if !bytes.Equal(dev.BufferData(buf), data) {
		t.Errorf("buffer contents = %q, want %q", dev.BufferData(buf), data)
	}

	barrier, ok := dev.Last("ResourceBarrier")
	if !ok {
		t.Fatal("no barrier recorded")
	}
	b := barrier.Args[0].([]gpucore.Barrier)
	want := gpucore.Transition(buf, gpucore.ResourceStateCopyDest, gpucore.ResourceStateGenericRead)
	if len(b) != 1 || b[0] != want {
		t.Errorf("barrier = %+v, want %+v", b, want)
	}

	// The copy runs on a temporary list that is submitted and waited for.
	if len(dev.Lists) != 2 || dev.Lists[1].Open {
		t.Error("temporary command list not created and closed")
	}
	if dev.Count("ExecuteCommandLists") != 1 || dev.Count("Signal") != 1 {
		t.Errorf("execute = %d, signal = %d, want 1 each", dev.Count("ExecuteCommandLists"), dev.Count("Signal"))
	}
	if dev.Count("DestroyResource") != 1 {
		t.Error("staging buffer not released")
	}

	if _, err := ctx.CreateStaticBuffer("empty", nil); !errors.Is(err, ErrEmptyBuffer) {
		t.Errorf("empty buffer err = %v, want ErrEmptyBuffer", err)
	}
}

func TestCreateStaticBufferCreateFails(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	boom := errors.New("out of memory")
	dev.FailCreateBuffer = boom
	if _, err := ctx.CreateStaticBuffer("vb", []byte{1}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestCreateGeometrySRVs(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	ib, _ := ctx.CreateStaticBuffer("ib", make([]byte, 12))
	vb, _ := ctx.CreateStaticBuffer("vb", make([]byte, 3*44))

	srvs, err := ctx.CreateGeometrySRVs(ib, 12, vb, 3*44)
	if err != nil {
		t.Fatalf("CreateGeometrySRVs: %v", err)
	}
	heap := ctx.Heap()
	if srvs.Slot != MaxConstantBuffers {
		t.Errorf("slot = %d, want first SRV slot %d", srvs.Slot, MaxConstantBuffers)
	}
	if srvs.Index != heap.GPUHandle(srvs.Slot) || srvs.Vertex != heap.GPUHandle(srvs.Slot+1) {
		t.Error("index and vertex views are not in adjacent slots, index first")
	}

	tests := []struct {
		slot  uint32
		res   gpucore.ResourceID
		elems uint32
	}{
		{srvs.Slot, ib, 3},
		{srvs.Slot + 1, vb, 33},
	}
	for _, tt := range tests {
		v := dev.Views[heap.CPUHandle(tt.slot)]
		if v.Kind != "SRV" || v.Resource != tt.res {
			t.Errorf("slot %d view = %+v, want SRV of %d", tt.slot, v, tt.res)
			continue
		}
		if !v.SRV.Raw || v.SRV.Format != gpucore.FormatR32Typeless || v.SRV.NumElements != tt.elems {
			t.Errorf("slot %d SRV = %+v, want raw R32_TYPELESS with %d elements", tt.slot, *v.SRV, tt.elems)
		}
	}
}

func TestLoadTexture(t *testing.T) {
	ctx, dev, _ := newTestContext(t)

	if _, err := ctx.LoadTexture("bad", 2, 2, make([]byte, 15)); err == nil {
		t.Error("LoadTexture accepted short pixel data")
	}
	if _, err := ctx.LoadTexture("zero", 0, 2, nil); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero width err = %v, want ErrInvalidSize", err)
	}

	tex, err := ctx.LoadTexture("albedo", 2, 2, make([]byte, 16))
	if err != nil {
		t.Fatalf("LoadTexture: %v", err)
	}
	if td := dev.Textures[tex.Resource]; td == nil || td.Width != 2 || td.Format != gpucore.FormatR8G8B8A8Unorm {
		t.Errorf("texture desc = %+v", td)
	}
	copyCall, ok := dev.Last("CopyBufferToTexture")
	if !ok || copyCall.Args[3].(uint32) != 8 {
		t.Errorf("CopyBufferToTexture = %+v, want row pitch 8", copyCall)
	}
	v := dev.Views[tex.SRV]
	if v.Kind != "SRV" || v.Resource != tex.Resource || v.SRV.Dimension != gpucore.SRVDimensionTexture2D {
		t.Errorf("texture SRV = %+v", v)
	}
	// The SRV lives in its own heap, not the shader-visible one.
	if tex.SRV == ctx.Heap().CPUHandle(ctx.Heap().SRVCursor()) {
		t.Error("texture SRV written into the shader-visible heap")
	}
}

func TestReleaseTexture(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	tex, err := ctx.LoadTexture("t", 1, 1, make([]byte, 4))
	if err != nil {
		t.Fatal(err)
	}
	id := tex.Resource
	dev.ResetCalls()

	ctx.ReleaseTexture(tex)
	ctx.ReleaseTexture(tex)
	if !dev.Destroyed(uint64(id)) {
		t.Error("texture resource not destroyed")
	}
	if n := dev.Count("DestroyDescriptorHeap"); n != 1 {
		t.Errorf("DestroyDescriptorHeap calls = %d, want 1", n)
	}
	if tex.Resource != gpucore.InvalidID {
		t.Errorf("released texture still holds %v", tex.Resource)
	}
}

func TestCopySRVsToDescriptorHeap(t *testing.T) {
	ctx, dev, _ := newTestContext(t)
	tex, err := ctx.LoadTexture("t", 1, 1, make([]byte, 4))
	if err != nil {
		t.Fatal(err)
	}
	before := ctx.Heap().SRVCursor()
	h, err := ctx.CopySRVsToDescriptorHeap(tex.SRV, 1)
	if err != nil {
		t.Fatal(err)
	}
	if h != ctx.Heap().GPUHandle(before) {
		t.Errorf("handle = %#x, want slot %d", h, before)
	}
	if ctx.Heap().SRVCursor() != before+1 {
		t.Errorf("SRV cursor = %d, want %d", ctx.Heap().SRVCursor(), before+1)
	}
	if v := dev.Views[ctx.Heap().CPUHandle(before)]; v.Source != tex.SRV || v.Resource != tex.Resource {
		t.Errorf("copied view = %+v", v)
	}
}
