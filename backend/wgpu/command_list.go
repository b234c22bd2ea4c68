//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/raytrace/gpucore"
)

// encodeState is what recorded commands see while the list is encoded
// into a HAL command buffer.
type encodeState struct {
	d       *Device
	encoder hal.CommandEncoder
	alloc   *allocator
}

// command is one recorded command, replayed at submission.
type command func(st *encodeState) error

// allocator owns the HAL objects created while encoding on one frame
// slot. They are released when the slot is reset, by which time the GPU
// has retired them.
type allocator struct {
	retired []func()
}

func (a *allocator) retire(f func()) { a.retired = append(a.retired, f) }

func (a *allocator) release() {
	for _, f := range a.retired {
		f()
	}
	a.retired = a.retired[:0]
}

// bindings is the pipeline state a dispatch reads.
type bindings struct {
	heaps       []gpucore.DescriptorHeapID
	stateObject gpucore.StateObjectID
	rootSig     gpucore.RootSignatureID
	tables      map[uint32]gpucore.GPUDescriptorHandle
	srvs        map[uint32]gpucore.GPUAddress
}

func (b bindings) clone() bindings {
	c := bindings{
		heaps:       append([]gpucore.DescriptorHeapID(nil), b.heaps...),
		stateObject: b.stateObject,
		rootSig:     b.rootSig,
		tables:      make(map[uint32]gpucore.GPUDescriptorHandle, len(b.tables)),
		srvs:        make(map[uint32]gpucore.GPUAddress, len(b.srvs)),
	}
	for k, v := range b.tables {
		c.tables[k] = v
	}
	for k, v := range b.srvs {
		c.srvs[k] = v
	}
	return c
}

// CommandList records commands and replays them into a HAL command
// encoder when executed.
type CommandList struct {
	device     *Device
	label      string
	allocators []allocator
	current    int
	open       bool
	commands   []command
	bound      bindings
}

var _ gpucore.CommandList = (*CommandList)(nil)

// CreateCommandList returns a list open on allocator 0.
func (d *Device) CreateCommandList(allocators int) (gpucore.CommandList, error) {
	if allocators < 1 {
		return nil, fmt.Errorf("wgpu: command list needs at least one allocator, got %d", allocators)
	}
	l := &CommandList{
		device:     d,
		label:      d.label(fmt.Sprintf("commands/%d", d.newID())),
		allocators: make([]allocator, allocators),
		open:       true,
	}
	l.bound = bindings{}.clone()
	d.lists = append(d.lists, l)
	return l, nil
}

// Reset releases allocator i and reopens the list on it, discarding any
// open recording.
func (l *CommandList) Reset(i int) error {
	if i < 0 || i >= len(l.allocators) {
		return fmt.Errorf("%w: allocator %d of %d", ErrListState, i, len(l.allocators))
	}
	l.allocators[i].release()
	l.current = i
	l.commands = l.commands[:0]
	l.bound = bindings{}.clone()
	l.open = true
	return nil
}

// Close ends recording.
func (l *CommandList) Close() error {
	if !l.open {
		return fmt.Errorf("%w: close of closed list", ErrListState)
	}
	l.open = false
	return nil
}

func (l *CommandList) record(c command) {
	l.commands = append(l.commands, c)
}

// release frees every allocator. Called when the device closes.
func (l *CommandList) release() {
	for i := range l.allocators {
		l.allocators[i].release()
	}
}

// ResourceBarrier records state transitions. The emulated resources need
// no HAL barriers; states are tracked to report mismatched transitions.
func (l *CommandList) ResourceBarrier(barriers ...gpucore.Barrier) {
	bs := append([]gpucore.Barrier(nil), barriers...)
	l.record(func(st *encodeState) error {
		for _, b := range bs {
			if b.Type != gpucore.BarrierTransition {
				continue
			}
			r, err := st.d.lookup(b.Resource)
			if err != nil {
				return fmt.Errorf("wgpu: barrier: %w", err)
			}
			if r.state != b.Before {
				slogger().Warn("wgpu: transition from unexpected state",
					"resource", r.label, "tracked", r.state, "before", b.Before, "after", b.After)
			}
			r.state = b.After
		}
		return nil
	})
}

// CopyResource copies the whole of src into dst.
func (l *CommandList) CopyResource(dst, src gpucore.ResourceID) {
	l.record(func(st *encodeState) error {
		to, err := st.d.lookup(dst)
		if err != nil {
			return fmt.Errorf("wgpu: copy resource: %w", err)
		}
		from, err := st.d.lookup(src)
		if err != nil {
			return fmt.Errorf("wgpu: copy resource: %w", err)
		}
		if to.size != from.size {
			return fmt.Errorf("%w: copy %q (%d bytes) into %q (%d bytes)",
				ErrOutOfRange, from.label, from.size, to.label, to.size)
		}
		st.encoder.CopyBufferToBuffer(from.buffer, to.buffer, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: gpucore.Align(from.size, 4)},
		})
		return nil
	})
}

// CopyBufferRegion copies size bytes between buffers.
func (l *CommandList) CopyBufferRegion(dst gpucore.ResourceID, dstOffset uint64, src gpucore.ResourceID, srcOffset, size uint64) {
	l.record(func(st *encodeState) error {
		to, err := st.d.lookup(dst)
		if err != nil {
			return fmt.Errorf("wgpu: copy buffer region: %w", err)
		}
		from, err := st.d.lookup(src)
		if err != nil {
			return fmt.Errorf("wgpu: copy buffer region: %w", err)
		}
		if srcOffset+size > from.size || dstOffset+size > to.size {
			return fmt.Errorf("%w: copy of %d bytes from %q+%d to %q+%d",
				ErrOutOfRange, size, from.label, srcOffset, to.label, dstOffset)
		}
		st.encoder.CopyBufferToBuffer(from.buffer, to.buffer, []hal.BufferCopy{
			{SrcOffset: srcOffset, DstOffset: dstOffset, Size: gpucore.Align(size, 4)},
		})
		return nil
	})
}

// rowCopies returns the per-row regions between a linear buffer with
// bufferPitch bytes per row and a texture. A single region is returned
// when the pitches match.
func rowCopies(tex *resource, bufferOffset uint64, bufferPitch uint32, toTexture bool) []hal.BufferCopy {
	rowBytes := uint64(tex.width) * uint64(tex.format.BytesPerElement())
	if bufferPitch == tex.pitch {
		size := uint64(tex.pitch) * uint64(tex.height)
		if toTexture {
			return []hal.BufferCopy{{SrcOffset: bufferOffset, DstOffset: 0, Size: size}}
		}
		return []hal.BufferCopy{{SrcOffset: 0, DstOffset: bufferOffset, Size: size}}
	}
	regions := make([]hal.BufferCopy, tex.height)
	for y := range regions {
		b := bufferOffset + uint64(y)*uint64(bufferPitch)
		t := uint64(y) * uint64(tex.pitch)
		if toTexture {
			regions[y] = hal.BufferCopy{SrcOffset: b, DstOffset: t, Size: gpucore.Align(rowBytes, 4)}
		} else {
			regions[y] = hal.BufferCopy{SrcOffset: t, DstOffset: b, Size: gpucore.Align(rowBytes, 4)}
		}
	}
	return regions
}

// copyExtent is the number of buffer bytes a copy of tex at rowPitch
// touches.
func copyExtent(tex *resource, rowPitch uint32) uint64 {
	if tex.height == 0 {
		return 0
	}
	last := gpucore.Align(uint64(tex.width)*uint64(tex.format.BytesPerElement()), 4)
	if rowPitch == tex.pitch {
		last = uint64(tex.pitch)
	}
	return uint64(rowPitch)*uint64(tex.height-1) + last
}

func (d *Device) textureAndBuffer(tex, buf gpucore.ResourceID) (*resource, *resource, error) {
	t, err := d.lookup(tex)
	if err != nil {
		return nil, nil, err
	}
	if t.kind != kindTexture {
		return nil, nil, fmt.Errorf("%w: %q is not a texture", ErrUnknownObject, t.label)
	}
	b, err := d.lookup(buf)
	if err != nil {
		return nil, nil, err
	}
	return t, b, nil
}

// CopyBufferToTexture copies rows of rowPitch bytes from src into dst.
func (l *CommandList) CopyBufferToTexture(dst gpucore.ResourceID, src gpucore.ResourceID, srcOffset uint64, rowPitch uint32) {
	l.record(func(st *encodeState) error {
		tex, buf, err := st.d.textureAndBuffer(dst, src)
		if err != nil {
			return fmt.Errorf("wgpu: copy buffer to texture: %w", err)
		}
		if srcOffset+copyExtent(tex, rowPitch) > gpucore.Align(buf.size, 4) {
			return fmt.Errorf("%w: %q too small for %dx%d rows", ErrOutOfRange, buf.label, tex.width, tex.height)
		}
		st.encoder.CopyBufferToBuffer(buf.buffer, tex.buffer, rowCopies(tex, srcOffset, rowPitch, true))
		return nil
	})
}

// CopyTextureToBuffer copies src into dst at rowPitch bytes per row.
func (l *CommandList) CopyTextureToBuffer(dst gpucore.ResourceID, dstOffset uint64, rowPitch uint32, src gpucore.ResourceID) {
	l.record(func(st *encodeState) error {
		tex, buf, err := st.d.textureAndBuffer(src, dst)
		if err != nil {
			return fmt.Errorf("wgpu: copy texture to buffer: %w", err)
		}
		if dstOffset+copyExtent(tex, rowPitch) > gpucore.Align(buf.size, 4) {
			return fmt.Errorf("%w: %q too small for %dx%d rows", ErrOutOfRange, buf.label, tex.width, tex.height)
		}
		st.encoder.CopyBufferToBuffer(tex.buffer, buf.buffer, rowCopies(tex, dstOffset, rowPitch, false))
		return nil
	})
}

// SetDescriptorHeaps binds shader-visible heaps.
func (l *CommandList) SetDescriptorHeaps(heaps ...gpucore.DescriptorHeapID) {
	l.bound.heaps = append(l.bound.heaps[:0], heaps...)
}

// SetPipelineState1 binds a state object.
func (l *CommandList) SetPipelineState1(so gpucore.StateObjectID) {
	l.bound.stateObject = so
}

// SetComputeRootSignature binds the global root signature and clears its
// arguments.
func (l *CommandList) SetComputeRootSignature(rs gpucore.RootSignatureID) {
	l.bound.rootSig = rs
	l.bound.tables = make(map[uint32]gpucore.GPUDescriptorHandle)
	l.bound.srvs = make(map[uint32]gpucore.GPUAddress)
}

// SetComputeRootDescriptorTable binds a descriptor table argument.
func (l *CommandList) SetComputeRootDescriptorTable(param uint32, base gpucore.GPUDescriptorHandle) {
	l.bound.tables[param] = base
}

// SetComputeRootShaderResourceView binds a root SRV argument.
func (l *CommandList) SetComputeRootShaderResourceView(param uint32, address gpucore.GPUAddress) {
	l.bound.srvs[param] = address
}

// BuildRaytracingAccelerationStructure records an emulated build.
func (l *CommandList) BuildRaytracingAccelerationStructure(desc *gpucore.BuildAccelerationStructureDesc) {
	cp := *desc
	cp.Inputs.Geometry = append([]gpucore.GeometryDesc(nil), desc.Inputs.Geometry...)
	l.record(func(st *encodeState) error {
		return st.d.build(st, &cp)
	})
}

// DispatchRays records a traversal dispatch with the current bindings.
func (l *CommandList) DispatchRays(desc *gpucore.DispatchRaysDesc) {
	cp := *desc
	b := l.bound.clone()
	l.record(func(st *encodeState) error {
		return st.d.dispatch(st, b, &cp)
	})
}

// ExecuteCommandLists encodes each closed list into a HAL command buffer
// and submits it.
func (d *Device) ExecuteCommandLists(lists ...gpucore.CommandList) error {
	for _, cl := range lists {
		l, ok := cl.(*CommandList)
		if !ok || l.device != d {
			return fmt.Errorf("%w: list was not created by this device", ErrListState)
		}
		if l.open {
			return fmt.Errorf("%w: execute of open list %q", ErrListState, l.label)
		}
		if err := d.submit(l); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) submit(l *CommandList) error {
	if len(l.commands) == 0 {
		return nil
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: l.label})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(l.label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	st := &encodeState{d: d, encoder: encoder, alloc: &l.allocators[l.current]}
	for _, c := range l.commands {
		if err := c(st); err != nil {
			encoder.DiscardEncoding()
			return err
		}
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	st.alloc.retire(func() { d.device.FreeCommandBuffer(cmdBuf) })

	d.submitted++
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, d.submitFence, d.submitted); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	slogger().Debug("wgpu: submitted", "list", l.label, "commands", len(l.commands), "value", d.submitted)
	return nil
}
