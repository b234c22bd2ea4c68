//go:build !nogpu

package wgpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace/gpucore"
)

//go:embed shaders/traversal.wgsl
var traversalWGSL string

const (
	traversalWorkgroup = 8

	// sceneConstantsSize is the size of the Scene uniform in traversal.wgsl.
	sceneConstantsSize = 80

	// paramsSize is the size of the Params uniform in traversal.wgsl.
	paramsSize = 48
)

// Kernel bindings, matching traversal.wgsl.
const (
	bindingScene = iota
	bindingParams
	bindingInstances
	bindingIndices
	bindingVertices
	bindingPixels
)

// blasGeometry is what a bottom-level build records: the triangle mesh
// the kernel intersects.
type blasGeometry struct {
	index, vertex gpucore.ResourceID

	indexOffset  uint64
	vertexOffset uint64
	stride       uint64
	indexCount   uint32
	vertexCount  uint32
	index16      bool
}

// tlasInstances is what a top-level build records.
type tlasInstances struct {
	count uint32
	blas  gpucore.ResourceID
}

// traversal holds the compute pipeline that stands in for hardware
// traversal and the ray tracing shaders of the emulated tier.
type traversal struct {
	module   hal.ShaderModule
	layout   hal.BindGroupLayout
	pipeline hal.PipelineLayout
	compute  hal.ComputePipeline
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

func newTraversal(d *Device) (*traversal, error) {
	spirv, err := compileWGSL(traversalWGSL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmulation, err)
	}
	t := &traversal{}
	fail := func(what string, err error) (*traversal, error) {
		t.destroy(d.device)
		return nil, fmt.Errorf("%w: %s: %w", ErrEmulation, what, err)
	}

	t.module, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.label("traversal"),
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fail("create shader module", err)
	}

	entry := func(binding uint32, typ gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: typ},
		}
	}
	t.layout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: d.label("traversal/layout"),
		Entries: []gputypes.BindGroupLayoutEntry{
			entry(bindingScene, gputypes.BufferBindingTypeUniform),
			entry(bindingParams, gputypes.BufferBindingTypeUniform),
			entry(bindingInstances, gputypes.BufferBindingTypeReadOnlyStorage),
			entry(bindingIndices, gputypes.BufferBindingTypeReadOnlyStorage),
			entry(bindingVertices, gputypes.BufferBindingTypeReadOnlyStorage),
			entry(bindingPixels, gputypes.BufferBindingTypeStorage),
		},
	})
	if err != nil {
		return fail("create bind group layout", err)
	}

	t.pipeline, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.label("traversal/pipeline_layout"),
		BindGroupLayouts: []hal.BindGroupLayout{t.layout},
	})
	if err != nil {
		return fail("create pipeline layout", err)
	}

	t.compute, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   d.label("traversal/pipeline"),
		Layout:  t.pipeline,
		Compute: hal.ComputeState{Module: t.module, EntryPoint: "main"},
	})
	if err != nil {
		return fail("create compute pipeline", err)
	}
	return t, nil
}

func (t *traversal) destroy(device hal.Device) {
	if t.compute != nil {
		device.DestroyComputePipeline(t.compute)
	}
	if t.pipeline != nil {
		device.DestroyPipelineLayout(t.pipeline)
	}
	if t.layout != nil {
		device.DestroyBindGroupLayout(t.layout)
	}
	if t.module != nil {
		device.DestroyShaderModule(t.module)
	}
	*t = traversal{}
}

// === Builds ===

func (d *Device) build(st *encodeState, desc *gpucore.BuildAccelerationStructureDesc) error {
	_, dst, dstOff, err := d.resolve(desc.DestAddress)
	if err != nil {
		return fmt.Errorf("wgpu: build destination: %w", err)
	}
	if desc.Inputs.Type == gpucore.AccelerationStructureBottomLevel {
		g, err := d.bottomLevel(&desc.Inputs)
		if err != nil {
			return err
		}
		dst.blas, dst.tlas = g, nil
		slogger().Debug("wgpu: bottom-level build", "dest", dst.label, "indices", g.indexCount, "vertices", g.vertexCount)
		return nil
	}

	inst, err := d.topLevel(&desc.Inputs)
	if err != nil {
		return err
	}
	size := uint64(desc.Inputs.NumInstances) * gpucore.InstanceDescSize
	if dstOff%16 != 0 || dstOff+size > dst.size {
		return fmt.Errorf("%w: top-level destination %q+%d cannot hold %d instances",
			ErrOutOfRange, dst.label, dstOff, desc.Inputs.NumInstances)
	}
	if size > 0 {
		_, src, srcOff, _ := d.resolve(desc.Inputs.InstanceDescs)
		st.encoder.CopyBufferToBuffer(src.buffer, dst.buffer, []hal.BufferCopy{
			{SrcOffset: srcOff, DstOffset: dstOff, Size: size},
		})
	}
	dst.tlas, dst.blas = inst, nil
	slogger().Debug("wgpu: top-level build", "dest", dst.label, "instances", inst.count)
	return nil
}

func (d *Device) bottomLevel(in *gpucore.AccelerationStructureInputs) (*blasGeometry, error) {
	if len(in.Geometry) != 1 {
		return nil, fmt.Errorf("%w: bottom-level build of %d geometries, want 1", ErrEmulation, len(in.Geometry))
	}
	tri := in.Geometry[0].Triangles
	if tri.Transform3x4 != 0 {
		return nil, fmt.Errorf("%w: geometry transforms", ErrEmulation)
	}
	if tri.VertexFormat != gpucore.FormatR32G32B32Float {
		return nil, fmt.Errorf("%w: vertex format %d", ErrUnsupportedFormat, tri.VertexFormat)
	}
	if tri.IndexBuffer == 0 || tri.IndexCount == 0 {
		return nil, fmt.Errorf("%w: non-indexed geometry", ErrEmulation)
	}
	if tri.IndexFormat != gpucore.FormatR32Uint && tri.IndexFormat != gpucore.FormatR16Uint {
		return nil, fmt.Errorf("%w: index format %d", ErrUnsupportedFormat, tri.IndexFormat)
	}
	stride := tri.VertexBuffer.StrideInBytes
	if stride < 12 || stride%4 != 0 {
		return nil, fmt.Errorf("%w: vertex stride %d", ErrEmulation, stride)
	}

	indexID, indices, indexOff, err := d.resolve(tri.IndexBuffer)
	if err != nil {
		return nil, fmt.Errorf("wgpu: index buffer: %w", err)
	}
	vertexID, vertices, vertexOff, err := d.resolve(tri.VertexBuffer.StartAddress)
	if err != nil {
		return nil, fmt.Errorf("wgpu: vertex buffer: %w", err)
	}
	if indexOff%4 != 0 || vertexOff%4 != 0 {
		return nil, fmt.Errorf("%w: geometry offsets must be 4-byte aligned", ErrEmulation)
	}
	indexBytes := uint64(tri.IndexCount) * uint64(tri.IndexFormat.BytesPerElement())
	if indexOff+indexBytes > indices.size {
		return nil, fmt.Errorf("%w: %d indices past the end of %q", ErrOutOfRange, tri.IndexCount, indices.label)
	}
	if vertexOff+uint64(tri.VertexCount)*stride > vertices.size+stride-12 {
		return nil, fmt.Errorf("%w: %d vertices past the end of %q", ErrOutOfRange, tri.VertexCount, vertices.label)
	}
	return &blasGeometry{
		index:        indexID,
		vertex:       vertexID,
		indexOffset:  indexOff,
		vertexOffset: vertexOff,
		stride:       stride,
		indexCount:   tri.IndexCount,
		vertexCount:  tri.VertexCount,
		index16:      tri.IndexFormat == gpucore.FormatR16Uint,
	}, nil
}

// topLevel reads the instance records from the upload buffer they were
// written to. Every instance must reference the same bottom-level
// structure.
func (d *Device) topLevel(in *gpucore.AccelerationStructureInputs) (*tlasInstances, error) {
	inst := &tlasInstances{count: in.NumInstances}
	if in.NumInstances == 0 {
		return inst, nil
	}
	_, src, off, err := d.resolve(in.InstanceDescs)
	if err != nil {
		return nil, fmt.Errorf("wgpu: instance descs: %w", err)
	}
	if src.shadow == nil {
		return nil, fmt.Errorf("%w: instance descs must live in an upload buffer", ErrEmulation)
	}
	end := off + uint64(in.NumInstances)*gpucore.InstanceDescSize
	if end > uint64(len(src.shadow)) {
		return nil, fmt.Errorf("%w: %d instances past the end of %q", ErrOutOfRange, in.NumInstances, src.label)
	}
	for i := uint32(0); i < in.NumInstances; i++ {
		at := off + uint64(i)*gpucore.InstanceDescSize
		desc := gpucore.UnmarshalInstanceDesc(src.shadow[at:])
		id, blas, _, err := d.resolve(desc.AccelerationStructure)
		if err != nil {
			return nil, fmt.Errorf("wgpu: instance %d: %w", i, err)
		}
		if blas.blas == nil {
			return nil, fmt.Errorf("%w: instance %d references %q, which holds no bottom-level build",
				ErrEmulation, i, blas.label)
		}
		if i > 0 && id != inst.blas {
			return nil, fmt.Errorf("%w: instances reference more than one bottom-level structure", ErrEmulation)
		}
		inst.blas = id
	}
	return inst, nil
}

// === Dispatch ===

// dispatchTargets are the resources a dispatch reads and writes, resolved
// from the bound global root arguments.
type dispatchTargets struct {
	output *resource

	scene    *resource
	sceneOff uint64

	tlas    *resource
	tlasOff uint64
	blas    *blasGeometry
}

func (d *Device) dispatch(st *encodeState, b bindings, desc *gpucore.DispatchRaysDesc) error {
	if d.traversal == nil {
		return fmt.Errorf("%w: ray tracing is not available on this device", ErrEmulation)
	}
	so, ok := d.stateObjects[b.stateObject]
	if !ok {
		return fmt.Errorf("%w: no state object bound", ErrUnknownObject)
	}
	if err := d.validateShaderTable(so, desc); err != nil {
		return err
	}
	if desc.Depth > 1 {
		return fmt.Errorf("%w: dispatch depth %d", ErrEmulation, desc.Depth)
	}
	tg, err := d.targets(b)
	if err != nil {
		return err
	}
	if desc.Width > tg.output.width || desc.Height > tg.output.height {
		return fmt.Errorf("%w: dispatch %dx%d over %dx%d output %q",
			ErrOutOfRange, desc.Width, desc.Height, tg.output.width, tg.output.height, tg.output.label)
	}
	if tg.output.format.BytesPerElement() != 4 {
		return fmt.Errorf("%w: output format %d", ErrUnsupportedFormat, tg.output.format)
	}
	indices, err := d.lookup(tg.blas.index)
	if err != nil {
		return fmt.Errorf("wgpu: bottom-level indices: %w", err)
	}
	vertices, err := d.lookup(tg.blas.vertex)
	if err != nil {
		return fmt.Errorf("wgpu: bottom-level vertices: %w", err)
	}

	params := make([]byte, paramsSize)
	for i, v := range []uint32{
		desc.Width,
		desc.Height,
		tg.output.pitch / 4,
		tg.tlas.tlas.count,
		tg.blas.indexCount,
		uint32(tg.blas.indexOffset / 4),
		boolWord(tg.blas.index16),
		uint32(tg.blas.stride / 4),
		uint32(tg.blas.vertexOffset / 4),
		uint32(tg.tlasOff / 16),
	} {
		binary.LittleEndian.PutUint32(params[i*4:], v)
	}
	paramsBuf, err := d.createHALBuffer("traversal/params", paramsSize,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("wgpu: create dispatch params: %w", err)
	}
	st.alloc.retire(func() { d.device.DestroyBuffer(paramsBuf) })
	d.queue.WriteBuffer(paramsBuf, 0, params)

	whole := func(binding uint32, r *resource) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{Binding: binding, Resource: gputypes.BufferBinding{
			Buffer: r.buffer.NativeHandle(), Offset: 0, Size: 0,
		}}
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  d.label("traversal/bind"),
		Layout: d.traversal.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: bindingScene, Resource: gputypes.BufferBinding{
				Buffer: tg.scene.buffer.NativeHandle(), Offset: tg.sceneOff, Size: sceneConstantsSize,
			}},
			{Binding: bindingParams, Resource: gputypes.BufferBinding{
				Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: paramsSize,
			}},
			whole(bindingInstances, tg.tlas),
			whole(bindingIndices, indices),
			whole(bindingVertices, vertices),
			whole(bindingPixels, tg.output),
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create dispatch bind group: %w", err)
	}
	st.alloc.retire(func() { d.device.DestroyBindGroup(bg) })

	pass := st.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: d.label("traversal")})
	pass.SetPipeline(d.traversal.compute)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(
		(desc.Width+traversalWorkgroup-1)/traversalWorkgroup,
		(desc.Height+traversalWorkgroup-1)/traversalWorkgroup,
		1)
	pass.End()

	slogger().Debug("wgpu: rays dispatched",
		"width", desc.Width, "height", desc.Height, "instances", tg.tlas.tlas.count, "triangles", tg.blas.indexCount/3)
	return nil
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// targets interprets the global root signature: the first UAV table is
// the output image, the first root SRV the top-level structure and the
// first CBV (table or root descriptor) the scene constants.
func (d *Device) targets(b bindings) (*dispatchTargets, error) {
	rs, ok := d.rootSigs[b.rootSig]
	if !ok {
		return nil, fmt.Errorf("%w: no global root signature bound", ErrUnknownObject)
	}
	tg := &dispatchTargets{}
	for i, p := range rs.Parameters {
		param := uint32(i)
		switch p.Type {
		case gpucore.RootParameterDescriptorTable:
			base, ok := b.tables[param]
			if !ok {
				continue
			}
			for _, rg := range p.Ranges {
				if err := d.bindRange(tg, base, rg); err != nil {
					return nil, fmt.Errorf("root parameter %d: %w", i, err)
				}
			}
		case gpucore.RootParameterSRV:
			addr, ok := b.srvs[param]
			if !ok || tg.tlas != nil {
				continue
			}
			_, r, off, err := d.resolve(addr)
			if err != nil {
				return nil, fmt.Errorf("root parameter %d: %w", i, err)
			}
			if r.tlas == nil {
				return nil, fmt.Errorf("%w: root parameter %d: %q holds no top-level build", ErrEmulation, i, r.label)
			}
			tg.tlas, tg.tlasOff = r, off
		}
	}

	switch {
	case tg.output == nil:
		return nil, fmt.Errorf("%w: no output UAV bound", ErrEmulation)
	case tg.tlas == nil:
		return nil, fmt.Errorf("%w: no top-level structure bound", ErrEmulation)
	case tg.scene == nil:
		return nil, fmt.Errorf("%w: no scene constants bound", ErrEmulation)
	}
	if tg.tlas.tlas.count == 0 {
		return nil, fmt.Errorf("%w: empty top-level structure", ErrEmulation)
	}
	blas, err := d.lookup(tg.tlas.tlas.blas)
	if err != nil {
		return nil, fmt.Errorf("wgpu: top-level structure: %w", err)
	}
	if blas.blas == nil {
		return nil, fmt.Errorf("%w: bottom-level structure %q was overwritten", ErrEmulation, blas.label)
	}
	tg.blas = blas.blas
	return tg, nil
}

func (d *Device) bindRange(tg *dispatchTargets, base gpucore.GPUDescriptorHandle, rg gpucore.DescriptorRange) error {
	h := gpucore.GPUDescriptorHandle(uint64(base) + uint64(rg.OffsetFromTableStart)*descriptorIncrement)
	switch rg.Type {
	case gpucore.DescriptorRangeUAV:
		if tg.output != nil {
			return nil
		}
		v, err := d.gpuView(h)
		if err != nil {
			return err
		}
		if v.kind != viewUAV {
			return fmt.Errorf("%w: UAV range points at a non-UAV descriptor", ErrEmulation)
		}
		r, err := d.lookup(v.resource)
		if err != nil {
			return err
		}
		if r.kind != kindTexture {
			return fmt.Errorf("%w: output %q is not a texture", ErrEmulation, r.label)
		}
		tg.output = r
	case gpucore.DescriptorRangeCBV:
		if tg.scene != nil {
			return nil
		}
		v, err := d.gpuView(h)
		if err != nil {
			return err
		}
		if v.kind != viewCBV {
			return fmt.Errorf("%w: CBV range points at a non-CBV descriptor", ErrEmulation)
		}
		if v.cbv.Size < sceneConstantsSize {
			return fmt.Errorf("%w: scene constants view of %d bytes", ErrOutOfRange, v.cbv.Size)
		}
		_, r, off, err := d.resolve(v.cbv.Address)
		if err != nil {
			return err
		}
		tg.scene, tg.sceneOff = r, off
	}
	return nil
}

// validateShaderTable checks that the records of an upload-heap shader
// table start with identifiers of the bound state object: an export for
// ray generation and miss, a hit group for hits.
func (d *Device) validateShaderTable(so *stateObject, desc *gpucore.DispatchRaysDesc) error {
	check := func(name string, addr gpucore.GPUAddress, want string) error {
		_, r, off, err := d.resolve(addr)
		if err != nil {
			return fmt.Errorf("%w: %s record: %w", ErrInvalidShaderTable, name, err)
		}
		if r.shadow == nil {
			return nil
		}
		if off+gpucore.ShaderIdentifierSize > uint64(len(r.shadow)) {
			return fmt.Errorf("%w: %s record past the end of %q", ErrInvalidShaderTable, name, r.label)
		}
		if got := so.kind(r.shadow[off : off+gpucore.ShaderIdentifierSize]); got != want {
			return fmt.Errorf("%w: %s record does not hold a %s identifier of %q",
				ErrInvalidShaderTable, name, want, so.label)
		}
		return nil
	}
	if err := check("ray generation", desc.RayGenerationShaderRecord.StartAddress, "export"); err != nil {
		return err
	}
	if desc.MissShaderTable.SizeInBytes > 0 {
		if err := check("miss", desc.MissShaderTable.StartAddress, "export"); err != nil {
			return err
		}
	}
	if desc.HitGroupTable.SizeInBytes > 0 {
		if err := check("hit group", desc.HitGroupTable.StartAddress, "hitgroup"); err != nil {
			return err
		}
	}
	return nil
}
