package raytrace

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
	"github.com/gogpu/raytrace/internal/gputest"
	"github.com/gogpu/raytrace/pipeline"
)

type triangle struct {
	vb, ib gpucore.ResourceID
}

func (g triangle) VertexBuffer() gpucore.ResourceID { return g.vb }
func (g triangle) VertexCount() uint32              { return 3 }
func (g triangle) VertexStride() uint32             { return 44 }
func (g triangle) IndexBuffer() gpucore.ResourceID  { return g.ib }
func (g triangle) IndexCount() uint32               { return 3 }
func (g triangle) IndexFormat() gpucore.Format      { return gpucore.FormatR32Uint }

type fixedCamera struct {
	pos        mgl32.Vec3
	view, proj mgl32.Mat4
}

func (c fixedCamera) Position() mgl32.Vec3   { return c.pos }
func (c fixedCamera) View() mgl32.Mat4       { return c.view }
func (c fixedCamera) Projection() mgl32.Mat4 { return c.proj }

func testCamera() fixedCamera {
	pos := mgl32.Vec3{0, 0, -5}
	return fixedCamera{
		pos:  pos,
		view: mgl32.LookAtV(pos, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
		proj: mgl32.Perspective(mgl32.DegToRad(45), 16.0/9.0, 0.1, 100),
	}
}

type fixture struct {
	ctx  *graphics.Context
	dev  *gputest.Device
	sc   *gputest.SwapChain
	mesh triangle
	lib  *pipeline.Library
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dev := gputest.NewDevice()
	sc := gputest.NewSwapChain(dev, graphics.NumBackBuffers, 64, 32)
	ctx, err := graphics.New(dev, sc)
	if err != nil {
		t.Fatalf("graphics.New: %v", err)
	}
	t.Cleanup(ctx.Close)

	vb, err := ctx.CreateStaticBuffer("vb", make([]byte, 3*44))
	if err != nil {
		t.Fatal(err)
	}
	ib := make([]byte, 12)
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint32(ib[i*4:], uint32(i))
	}
	ibID, err := ctx.CreateStaticBuffer("ib", ib)
	if err != nil {
		t.Fatal(err)
	}
	lib, err := pipeline.NewLibrary("test.lib", []byte{0xD, 0x5})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{ctx: ctx, dev: dev, sc: sc, mesh: triangle{vb: vb, ib: ibID}, lib: lib}
}

// ready returns an initialized Raytracer with both structures built.
func (f *fixture) ready(t *testing.T) *Raytracer {
	t.Helper()
	rt := New(f.ctx)
	t.Cleanup(rt.Close)
	if err := rt.Initialize(64, 32, f.lib); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := rt.CreateBLAS(f.mesh); err != nil {
		t.Fatalf("CreateBLAS: %v", err)
	}
	if err := rt.CreateTLAS(); err != nil {
		t.Fatalf("CreateTLAS: %v", err)
	}
	return rt
}

func TestDisabledRaytracerTouchesNothing(t *testing.T) {
	tests := []struct {
		name    string
		tier    gpucore.RaytracingTier
		tierErr error
	}{
		{"not supported", gpucore.RaytracingTierNotSupported, nil},
		{"tier query error", gpucore.RaytracingTier1_1, errors.New("feature query failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.dev.Tier, f.dev.TierErr = tt.tier, tt.tierErr

			rt := New(f.ctx)
			err := rt.Initialize(64, 32, f.lib)
			if !errors.Is(err, ErrRaytracingUnsupported) {
				t.Fatalf("Initialize err = %v, want ErrRaytracingUnsupported", err)
			}
			if tt.tierErr != nil && !errors.Is(err, tt.tierErr) {
				t.Errorf("Initialize err = %v, want it to wrap the tier query error", err)
			}
			if rt.Enabled() {
				t.Fatal("Enabled = true on unsupported device")
			}

			f.dev.ResetCalls()
			if err := rt.Initialize(64, 32, f.lib); !errors.Is(err, ErrRaytracingUnsupported) {
				t.Errorf("second Initialize err = %v", err)
			}
			if err := rt.CreateBLAS(f.mesh); err != nil {
				t.Errorf("CreateBLAS err = %v", err)
			}
			if err := rt.CreateTLAS(); err != nil {
				t.Errorf("CreateTLAS err = %v", err)
			}
			if err := rt.ResizeOutputUAV(128, 128); err != nil {
				t.Errorf("ResizeOutputUAV err = %v", err)
			}
			if err := rt.Raytrace(testCamera(), f.ctx.CurrentBackBuffer()); err != nil {
				t.Errorf("Raytrace err = %v", err)
			}
			rt.Close()
			if names := f.dev.Names(); len(names) != 0 {
				t.Errorf("disabled raytracer issued calls %v", names)
			}
		})
	}
}

func TestInitializeTwice(t *testing.T) {
	f := newFixture(t)
	rt := New(f.ctx)
	t.Cleanup(rt.Close)
	if err := rt.Initialize(64, 32, f.lib); err != nil {
		t.Fatal(err)
	}
	if err := rt.Initialize(64, 32, f.lib); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Initialize err = %v, want ErrAlreadyInitialized", err)
	}
}

func TestInitializeFailureLeavesDisabled(t *testing.T) {
	f := newFixture(t)
	rt := New(f.ctx, WithShaderTableAlignment(48, 64))
	if err := rt.Initialize(64, 32, f.lib); !errors.Is(err, pipeline.ErrBadAlignment) {
		t.Fatalf("Initialize err = %v, want ErrBadAlignment", err)
	}
	if rt.Enabled() || rt.Pipeline() != nil || rt.Output() != nil {
		t.Error("failed Initialize left partial state")
	}

	f.dev.ResetCalls()
	if err := rt.Initialize(64, 32, f.lib); !errors.Is(err, pipeline.ErrBadAlignment) {
		t.Errorf("second Initialize err = %v, want the first failure", err)
	}
	if rt.Enabled() {
		t.Error("second Initialize enabled the raytracer")
	}
	if names := f.dev.Names(); len(names) != 0 {
		t.Errorf("second Initialize issued calls %v", names)
	}
}

func TestInitializeOutputFailureIsPermanent(t *testing.T) {
	f := newFixture(t)
	outOfMemory := errors.New("out of memory")
	f.dev.FailCreateTexture = outOfMemory
	rt := New(f.ctx)
	if err := rt.Initialize(64, 32, f.lib); !errors.Is(err, outOfMemory) {
		t.Fatalf("Initialize err = %v, want %v", err, outOfMemory)
	}
	if rt.Enabled() || rt.Pipeline() != nil || rt.Output() != nil {
		t.Error("failed Initialize left partial state")
	}

	f.dev.FailCreateTexture = nil
	f.dev.ResetCalls()
	if err := rt.Initialize(64, 32, f.lib); !errors.Is(err, outOfMemory) {
		t.Errorf("retry err = %v, want the first failure", err)
	}
	if names := f.dev.Names(); len(names) != 0 {
		t.Errorf("retry issued calls %v", names)
	}
}

func TestSingleTriangleScene(t *testing.T) {
	f := newFixture(t)
	rt := f.ready(t)

	if rt.TLASAddress() == 0 {
		t.Fatal("TLAS address is null")
	}
	tlas := rt.TLAS()
	if tlas.InstanceCount != 1 {
		t.Errorf("InstanceCount = %d, want 1", tlas.InstanceCount)
	}
	inst := gpucore.UnmarshalInstanceDesc(f.dev.BufferData(tlas.Instances))
	if inst.Transform != gpucore.IdentityTransform3x4 || inst.InstanceMask != 0xFF ||
		inst.HitGroupIndex != 0 || inst.AccelerationStructure != rt.BLAS().Address {
		t.Errorf("instance = %+v", inst)
	}

	srvs := rt.GeometrySRVs()
	table := rt.Pipeline().Table
	off := table.Layout().HitGroupGeometryOffset()
	if off != 168 {
		t.Fatalf("geometry handle offset = %d, want 168", off)
	}
	if got := table.Handle(off); got != srvs.Index {
		t.Errorf("hit group geometry handle = %#x, want index SRV %#x", got, srvs.Index)
	}
	stored := binary.LittleEndian.Uint64(f.dev.BufferData(table.Buffer())[off:])
	if gpucore.GPUDescriptorHandle(stored) != srvs.Index {
		t.Errorf("uploaded geometry handle = %#x, want %#x", stored, srvs.Index)
	}
	if srvs.Vertex != srvs.Index+gputest.DescriptorIncrement {
		t.Errorf("vertex SRV %#x not adjacent to index SRV %#x", srvs.Vertex, srvs.Index)
	}

	heap := f.ctx.Heap()
	ibView := f.dev.Views[heap.CPUHandle(srvs.Slot)]
	if ibView.Kind != "SRV" || ibView.Resource != f.mesh.ib || ibView.SRV.NumElements != 3 || !ibView.SRV.Raw {
		t.Errorf("index view = %+v", ibView)
	}
	vbView := f.dev.Views[heap.CPUHandle(srvs.Slot+1)]
	if vbView.Kind != "SRV" || vbView.Resource != f.mesh.vb || vbView.SRV.NumElements != 3*44/4 {
		t.Errorf("vertex view = %+v", vbView)
	}
}

func TestCreateTLASRequiresBLAS(t *testing.T) {
	f := newFixture(t)
	rt := New(f.ctx)
	t.Cleanup(rt.Close)
	if err := rt.Initialize(64, 32, f.lib); err != nil {
		t.Fatal(err)
	}
	if err := rt.CreateTLAS(); !errors.Is(err, ErrNoBLAS) {
		t.Errorf("CreateTLAS err = %v, want ErrNoBLAS", err)
	}
	if err := rt.CreateBLAS(f.mesh); err != nil {
		t.Fatal(err)
	}
	if err := rt.CreateBLAS(f.mesh); !errors.Is(err, ErrBLASExists) {
		t.Errorf("second CreateBLAS err = %v, want ErrBLASExists", err)
	}
}

func TestRaytraceBeforeTLASDoesNothing(t *testing.T) {
	f := newFixture(t)
	rt := New(f.ctx)
	t.Cleanup(rt.Close)
	if err := rt.Initialize(64, 32, f.lib); err != nil {
		t.Fatal(err)
	}
	f.dev.ResetCalls()
	if err := rt.Raytrace(testCamera(), f.ctx.CurrentBackBuffer()); err != nil {
		t.Fatal(err)
	}
	if n := len(f.dev.Names()); n != 0 {
		t.Errorf("Raytrace before CreateTLAS issued %d calls", n)
	}
}

func TestRaytraceRecordsFrame(t *testing.T) {
	f := newFixture(t)
	rt := f.ready(t)
	back := f.ctx.CurrentBackBuffer()
	out := rt.Output().Texture()

	f.dev.ResetCalls()
	if err := rt.Raytrace(testCamera(), back); err != nil {
		t.Fatalf("Raytrace: %v", err)
	}

	listCalls := map[string]bool{
		"ResourceBarrier": true, "SetDescriptorHeaps": true, "SetPipelineState1": true,
		"SetComputeRootSignature": true, "SetComputeRootDescriptorTable": true,
		"SetComputeRootShaderResourceView": true, "DispatchRays": true, "CopyResource": true,
		"Close": true, "ExecuteCommandLists": true, "CreateConstantBufferView": true,
	}
	var got []gputest.Call
	for _, c := range f.dev.Calls {
		if listCalls[c.Name] {
			got = append(got, c)
		}
	}
	want := []string{
		"CreateConstantBufferView", "ResourceBarrier",
		"SetDescriptorHeaps", "SetPipelineState1", "SetComputeRootSignature",
		"SetComputeRootDescriptorTable", "SetComputeRootShaderResourceView", "SetComputeRootDescriptorTable",
		"DispatchRays", "ResourceBarrier", "CopyResource", "ResourceBarrier",
		"Close", "ExecuteCommandLists",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d calls, want %d: %v", len(got), len(want), f.dev.Names())
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("call %d = %s, want %s", i, got[i].Name, name)
		}
	}

	entry := got[1].Args[0].([]gpucore.Barrier)
	wantEntry := []gpucore.Barrier{
		gpucore.Transition(back, gpucore.ResourceStatePresent, gpucore.ResourceStateCopyDest),
		gpucore.Transition(out, gpucore.ResourceStateCopySource, gpucore.ResourceStateUnorderedAccess),
	}
	if len(entry) != 2 || entry[0] != wantEntry[0] || entry[1] != wantEntry[1] {
		t.Errorf("entry barriers = %+v, want one batch %+v", entry, wantEntry)
	}

	p := rt.Pipeline()
	if h := got[2].Args[0].([]gpucore.DescriptorHeapID); len(h) != 1 || h[0] != f.ctx.Heap().ID() {
		t.Errorf("SetDescriptorHeaps = %v", h)
	}
	if got[3].Args[0] != p.StateObject || got[4].Args[0] != p.Global {
		t.Errorf("bound state object/root signature = %v/%v", got[3].Args[0], got[4].Args[0])
	}
	if got[5].Args[0] != uint32(pipeline.ParamOutput) || got[5].Args[1] != rt.Output().GPUHandle() {
		t.Errorf("output table = %v", got[5].Args)
	}
	if got[6].Args[0] != uint32(pipeline.ParamAccelerationStructure) || got[6].Args[1] != rt.TLASAddress() {
		t.Errorf("acceleration structure SRV = %v", got[6].Args)
	}
	cbvSlot := got[0].Args[1].(gpucore.CPUDescriptorHandle)
	wantCBV := f.ctx.Heap().GPUHandle(uint32((uint64(cbvSlot) - uint64(f.ctx.Heap().CPUHandle(0))) / gputest.DescriptorIncrement))
	if got[7].Args[0] != uint32(pipeline.ParamSceneConstants) || got[7].Args[1] != wantCBV {
		t.Errorf("scene constants table = %v, want %#x", got[7].Args, wantCBV)
	}

	dispatch := got[8].Args[0].(gpucore.DispatchRaysDesc)
	if dispatch.Width != 64 || dispatch.Height != 32 || dispatch.Depth != 1 {
		t.Errorf("dispatch = %dx%dx%d", dispatch.Width, dispatch.Height, dispatch.Depth)
	}
	if dispatch != p.Table.DispatchDesc(64, 32) {
		t.Errorf("dispatch desc = %+v", dispatch)
	}

	exit := got[9].Args[0].([]gpucore.Barrier)
	if len(exit) != 1 || exit[0] != gpucore.Transition(out, gpucore.ResourceStateUnorderedAccess, gpucore.ResourceStateCopySource) {
		t.Errorf("output barrier = %+v", exit)
	}
	if got[10].Args[0] != back || got[10].Args[1] != out {
		t.Errorf("CopyResource(%v, %v), want (%v, %v)", got[10].Args[0], got[10].Args[1], back, out)
	}
	present := got[11].Args[0].([]gpucore.Barrier)
	if len(present) != 1 || present[0] != gpucore.Transition(back, gpucore.ResourceStateCopyDest, gpucore.ResourceStatePresent) {
		t.Errorf("present barrier = %+v", present)
	}

	if err := f.ctx.EndFrame(false); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
}

func TestRaytraceConstantFailureRecordsNothing(t *testing.T) {
	f := newFixture(t)
	rt := f.ready(t)

	writeErr := errors.New("device lost")
	f.dev.FailWriteBuffer = writeErr
	f.dev.ResetCalls()
	if err := rt.Raytrace(testCamera(), f.ctx.CurrentBackBuffer()); !errors.Is(err, writeErr) {
		t.Fatalf("Raytrace err = %v, want %v", err, writeErr)
	}
	for _, name := range []string{"ResourceBarrier", "DispatchRays", "CopyResource", "ExecuteCommandLists"} {
		if n := f.dev.Count(name); n != 0 {
			t.Errorf("%s recorded %d times after failed upload", name, n)
		}
	}
	if !f.ctx.CommandList().(*gputest.CommandList).Open {
		t.Error("command list closed after failed upload")
	}

	f.dev.FailWriteBuffer = nil
	if err := rt.Raytrace(testCamera(), f.ctx.CurrentBackBuffer()); err != nil {
		t.Fatalf("Raytrace after recovery: %v", err)
	}
	if n := f.dev.Count("ResourceBarrier"); n != 3 {
		t.Errorf("ResourceBarrier count = %d, want 3", n)
	}
}

func TestRaytraceUploadsSceneConstants(t *testing.T) {
	f := newFixture(t)
	rt := f.ready(t)
	cam := testCamera()

	if err := rt.Raytrace(cam, f.ctx.CurrentBackBuffer()); err != nil {
		t.Fatal(err)
	}
	call, ok := f.dev.Last("CreateConstantBufferView")
	if !ok {
		t.Fatal("no constant buffer view written")
	}
	view := call.Args[0].(gpucore.ConstantBufferViewDesc)
	if view.Size != 256 {
		t.Errorf("CBV size = %d, want 256", view.Size)
	}
	ring := f.ctx.Ring().Buffer()
	off := uint64(view.Address - gputest.BufferAddress(ring))
	got := ParseSceneData(f.dev.BufferData(ring)[off : off+SceneDataSize])

	want := cam.View().Mul4(cam.Projection()).Inv()
	for i := 0; i < 16; i++ {
		if !closeEnough(got.InverseViewProjection[i], want[i]) {
			t.Errorf("inverseViewProjection[%d] = %v, want %v", i, got.InverseViewProjection[i], want[i])
		}
	}
	if got.CameraPosition != cam.pos {
		t.Errorf("camera position = %v, want %v", got.CameraPosition, cam.pos)
	}
}

func TestResizeOutputKeepsSlot(t *testing.T) {
	f := newFixture(t)
	rt := f.ready(t)
	slot := rt.Output().Slot()
	handle := rt.Output().GPUHandle()

	for _, size := range [][2]uint32{{128, 64}, {1, 1}, {640, 480}} {
		old := rt.Output().Texture()
		if err := rt.ResizeOutputUAV(size[0], size[1]); err != nil {
			t.Fatalf("ResizeOutputUAV(%v): %v", size, err)
		}
		if !f.dev.Destroyed(uint64(old)) {
			t.Errorf("old output %d not destroyed", old)
		}
		if rt.Output().Slot() != slot || rt.Output().GPUHandle() != handle {
			t.Errorf("output slot moved to %d", rt.Output().Slot())
		}
		if w, h := rt.Output().Size(); w != size[0] || h != size[1] {
			t.Errorf("output size = %dx%d, want %dx%d", w, h, size[0], size[1])
		}
	}
}

func TestCloseReleasesResources(t *testing.T) {
	f := newFixture(t)
	rt := f.ready(t)
	blas, tlas, out := rt.BLAS().Result, rt.TLAS().Result, rt.Output().Texture()
	so := rt.Pipeline().StateObject

	rt.Close()
	for _, id := range []uint64{uint64(blas), uint64(tlas), uint64(out), uint64(so)} {
		if !f.dev.Destroyed(id) {
			t.Errorf("object %d not destroyed", id)
		}
	}
	if rt.Enabled() {
		t.Error("Enabled after Close")
	}
	rt.Close()
}

func closeEnough(got, want float32) bool {
	tol := float32(1e-4)
	if a := mgl32.Abs(want); a > 1 {
		tol *= a
	}
	return mgl32.Abs(got-want) <= tol
}
