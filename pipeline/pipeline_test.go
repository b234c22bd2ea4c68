package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
	"github.com/gogpu/raytrace/internal/gputest"
)

func TestRootSignatureDescs(t *testing.T) {
	type tableCheck struct {
		name      string
		param     gpucore.RootParameter
		rangeType gpucore.DescriptorRangeType
		reg, n    uint32
	}

	g := GlobalRootSignatureDesc()
	if g.Flags != gpucore.RootSignatureFlagNone || len(g.Parameters) != 3 {
		t.Fatalf("global = %+v", g)
	}
	l := LocalRootSignatureDesc()
	if l.Flags != gpucore.RootSignatureFlagLocal || len(l.Parameters) != 2 {
		t.Fatalf("local = %+v", l)
	}

	checks := []tableCheck{
		{"global output", g.Parameters[ParamOutput], gpucore.DescriptorRangeUAV, 0, 1},
		{"global constants", g.Parameters[ParamSceneConstants], gpucore.DescriptorRangeCBV, 0, 1},
		{"local constants", l.Parameters[LocalParamConstants], gpucore.DescriptorRangeCBV, 1, 1},
		{"local geometry", l.Parameters[LocalParamGeometry], gpucore.DescriptorRangeSRV, 1, 2},
	}
	for _, c := range checks {
		if c.param.Type != gpucore.RootParameterDescriptorTable || len(c.param.Ranges) != 1 {
			t.Errorf("%s: param = %+v, want one-range table", c.name, c.param)
			continue
		}
		r := c.param.Ranges[0]
		if r.Type != c.rangeType || r.BaseRegister != c.reg || r.NumDescriptors != c.n {
			t.Errorf("%s: range = %+v", c.name, r)
		}
	}

	as := g.Parameters[ParamAccelerationStructure]
	if as.Type != gpucore.RootParameterSRV || as.ShaderRegister != 0 {
		t.Errorf("acceleration structure param = %+v, want root SRV t0", as)
	}
}

func TestStateObjectDesc(t *testing.T) {
	lib := &Library{Name: "lib", Bytecode: []byte{1, 2, 3}}
	desc := StateObjectDesc(lib, 7, 8, DefaultConfig())

	wantTypes := []gpucore.SubobjectType{
		gpucore.SubobjectDXILLibrary,
		gpucore.SubobjectDXILLibrary,
		gpucore.SubobjectDXILLibrary,
		gpucore.SubobjectHitGroup,
		gpucore.SubobjectShaderConfig,
		gpucore.SubobjectExportsAssociation,
		gpucore.SubobjectLocalRootSignature,
		gpucore.SubobjectExportsAssociation,
		gpucore.SubobjectGlobalRootSignature,
		gpucore.SubobjectPipelineConfig,
	}
	if len(desc.Subobjects) != len(wantTypes) {
		t.Fatalf("subobjects = %d, want %d", len(desc.Subobjects), len(wantTypes))
	}
	for i, want := range wantTypes {
		if got := desc.Subobjects[i].Type; got != want {
			t.Errorf("subobject %d = %v, want %v", i, got, want)
		}
	}

	subs := desc.Subobjects
	for i, export := range []string{ExportRayGen, ExportMiss, ExportClosestHit} {
		l := subs[i].Library
		if len(l.Exports) != 1 || l.Exports[0] != export || &l.Bytecode[0] != &lib.Bytecode[0] {
			t.Errorf("library %d = %+v, want export %s", i, l, export)
		}
	}
	if hg := subs[3].HitGroup; hg.Name != "HitGroup" || hg.ClosestHit != "ClosestHit" || hg.Type != gpucore.HitGroupTriangles {
		t.Errorf("hit group = %+v", hg)
	}
	if sc := subs[4].ShaderConfig; sc.MaxPayloadSize != 12 || sc.MaxAttributeSize != 8 {
		t.Errorf("shader config = %+v", sc)
	}
	for _, c := range []struct{ assoc, target int }{{5, 4}, {7, 6}} {
		a := subs[c.assoc].Association
		if a.Subobject != c.target {
			t.Errorf("association %d targets %d, want %d", c.assoc, a.Subobject, c.target)
		}
		want := []string{"RayGen", "Miss", "HitGroup"}
		if len(a.Exports) != 3 || a.Exports[0] != want[0] || a.Exports[1] != want[1] || a.Exports[2] != want[2] {
			t.Errorf("association %d exports = %v, want %v", c.assoc, a.Exports, want)
		}
	}
	if subs[6].RootSignature != 8 || subs[8].RootSignature != 7 {
		t.Errorf("root signatures = local %d, global %d", subs[6].RootSignature, subs[8].RootSignature)
	}
	if pc := subs[9].PipelineConfig; pc.MaxTraceRecursionDepth != 31 {
		t.Errorf("recursion depth = %d, want 31", pc.MaxTraceRecursionDepth)
	}
}

func TestNewPipeline(t *testing.T) {
	dev := gputest.NewDevice()
	lib, _ := NewLibrary("lib", []byte{1})

	p, err := New(dev, lib)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(dev.RootSigs) != 2 || len(dev.StateObjects) != 1 {
		t.Errorf("created %d root signatures and %d state objects", len(dev.RootSigs), len(dev.StateObjects))
	}
	if dev.RootSigs[p.Local].Flags != gpucore.RootSignatureFlagLocal {
		t.Error("Local is not the local root signature")
	}
	if p.Table.Layout().RecordStride != 64 {
		t.Errorf("stride = %d, want 64", p.Table.Layout().RecordStride)
	}

	ids := []uint64{uint64(p.Global), uint64(p.Local), uint64(p.StateObject), uint64(p.Table.Buffer())}
	p.Release()
	p.Release()
	for _, id := range ids {
		if !dev.Destroyed(id) {
			t.Errorf("object %d not released", id)
		}
	}
}

func TestNewPipelineConfigErrors(t *testing.T) {
	lib, _ := NewLibrary("lib", []byte{1})
	tests := []struct {
		name string
		lib  *Library
		opt  Option
		want error
	}{
		{"zero depth", lib, WithRecursionDepth(0), ErrRecursionDepth},
		{"depth above max", lib, WithRecursionDepth(32), ErrRecursionDepth},
		{"record alignment", lib, WithTableAlignment(48, 64), ErrBadAlignment},
		{"table alignment", lib, WithTableAlignment(32, 0), ErrBadAlignment},
		{"no library", nil, WithShaderConfig(16, 8), ErrEmptyLibrary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.NewDevice()
			if _, err := New(dev, tt.lib, tt.opt); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(dev.Calls) != 0 {
				t.Errorf("device called on invalid config: %v", dev.Names())
			}
		})
	}
}

func TestNewPipelineOptions(t *testing.T) {
	dev := gputest.NewDevice()
	lib, _ := NewLibrary("lib", []byte{1})
	p, err := New(dev, lib, WithShaderConfig(16, 8), WithRecursionDepth(2), WithTableAlignment(16, 16))
	if err != nil {
		t.Fatal(err)
	}
	if p.Table.Layout().RecordStride != 48 || p.Table.Layout().Size != 144 {
		t.Errorf("layout = %+v, want stride 48 size 144", p.Table.Layout())
	}
	so := dev.StateObjects[p.StateObject]
	if so.Subobjects[4].ShaderConfig.MaxPayloadSize != 16 || so.Subobjects[9].PipelineConfig.MaxTraceRecursionDepth != 2 {
		t.Error("options not applied to the state object")
	}
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raytracing.cso")
	if err := os.WriteFile(path, []byte("DXBC"), 0o600); err != nil {
		t.Fatal(err)
	}
	lib, err := LoadLibrary(path)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	if string(lib.Bytecode) != "DXBC" || lib.Name != path {
		t.Errorf("lib = %+v", lib)
	}

	empty := filepath.Join(dir, "empty.cso")
	_ = os.WriteFile(empty, nil, 0o600)
	if _, err := LoadLibrary(empty); !errors.Is(err, ErrEmptyLibrary) {
		t.Errorf("empty library err = %v, want ErrEmptyLibrary", err)
	}
	if _, err := LoadLibrary(filepath.Join(dir, "missing.cso")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing library err = %v, want os.ErrNotExist", err)
	}
}

func TestOutputSlotStableAcrossResizes(t *testing.T) {
	dev := gputest.NewDevice()
	ctx, err := graphics.New(dev, gputest.NewSwapChain(dev, 2, 64, 64))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()

	out, err := NewOutput(ctx, 64, 64)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	slot, handle := out.Slot(), out.GPUHandle()
	cpu := ctx.Heap().CPUHandle(slot)

	td := dev.Textures[out.Texture()]
	if td.Format != OutputFormat || !td.AllowUnorderedAccess || td.InitialState != gpucore.ResourceStateCopySource {
		t.Errorf("output desc = %+v", td)
	}

	sizes := [][2]uint32{{128, 96}, {32, 32}, {1920, 1080}}
	for _, sz := range sizes {
		old := out.Texture()
		waits := dev.Count("Signal")
		if err := out.Resize(sz[0], sz[1]); err != nil {
			t.Fatalf("Resize(%v): %v", sz, err)
		}
		if out.Slot() != slot || out.GPUHandle() != handle {
			t.Fatalf("slot moved from %d to %d after resize to %v", slot, out.Slot(), sz)
		}
		if !dev.Destroyed(uint64(old)) {
			t.Error("old output not destroyed")
		}
		if dev.Count("Signal") != waits+1 {
			t.Error("Resize did not wait for the GPU")
		}
		v := dev.Views[cpu]
		if v.Kind != "UAV" || v.Resource != out.Texture() {
			t.Errorf("slot view = %+v, want UAV of %d", v, out.Texture())
		}
		if w, h := out.Size(); w != sz[0] || h != sz[1] {
			t.Errorf("size = %dx%d, want %v", w, h, sz)
		}
	}
	if ctx.Heap().SRVCursor() != slot+1 {
		t.Errorf("resizes reserved extra slots: cursor %d", ctx.Heap().SRVCursor())
	}
}
