// Package gputest provides a call-recording gpucore.Device for tests.
//
// The fake completes GPU work instantly unless HoldFences is set, returns
// deterministic prebuild sizes, addresses and shader identifiers, and keeps
// buffer contents in memory so that uploaded data can be inspected.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/raytrace/gpucore"
)

// ErrUnknownExport is returned by ShaderIdentifier for names not exported by
// the state object.
var ErrUnknownExport = errors.New("gputest: unknown export")

// DescriptorIncrement is the slot stride reported by the fake.
const DescriptorIncrement = 32

// Call is one recorded device or command list call.
type Call struct {
	Name string
	Args []any
}

// Buffer is the fake's view of a created buffer.
type Buffer struct {
	Desc gpucore.BufferDesc
	Data []byte
}

// View is a descriptor written into a heap slot.
type View struct {
	Kind     string // "CBV", "SRV", "UAV" or "Copy"
	Resource gpucore.ResourceID
	CBV      *gpucore.ConstantBufferViewDesc
	SRV      *gpucore.ShaderResourceViewDesc
	UAV      *gpucore.UnorderedAccessViewDesc
	Source   gpucore.CPUDescriptorHandle
}

type fence struct {
	signaled  uint64
	completed uint64
}

// Device is a fake gpucore.Device.
type Device struct {
	mu sync.Mutex

	// Tier and TierErr are returned by RaytracingTier.
	Tier    gpucore.RaytracingTier
	TierErr error

	// HoldFences keeps signaled values pending until a WaitForFence call.
	HoldFences bool

	// Prebuild overrides the default prebuild sizes.
	Prebuild func(inputs *gpucore.AccelerationStructureInputs) gpucore.PrebuildInfo

	// FailCreateBuffer makes CreateBuffer fail with this error.
	FailCreateBuffer error
	// FailCreateTexture makes CreateTexture fail with this error.
	FailCreateTexture error
	// FailWriteBuffer makes WriteBuffer fail with this error.
	FailWriteBuffer error

	Calls []Call

	nextID       uint64
	Buffers      map[gpucore.ResourceID]*Buffer
	Textures     map[gpucore.ResourceID]*gpucore.TextureDesc
	Heaps        map[gpucore.DescriptorHeapID]*gpucore.DescriptorHeapDesc
	Views        map[gpucore.CPUDescriptorHandle]View
	RootSigs     map[gpucore.RootSignatureID]*gpucore.RootSignatureDesc
	StateObjects map[gpucore.StateObjectID]*gpucore.StateObjectDesc
	Lists        []*CommandList
	fences       map[gpucore.FenceID]*fence
	destroyed    map[uint64]bool
}

// NewDevice returns a fake device reporting ray tracing tier 1.0.
func NewDevice() *Device {
	return &Device{
		Tier:         gpucore.RaytracingTier1_0,
		Buffers:      make(map[gpucore.ResourceID]*Buffer),
		Textures:     make(map[gpucore.ResourceID]*gpucore.TextureDesc),
		Heaps:        make(map[gpucore.DescriptorHeapID]*gpucore.DescriptorHeapDesc),
		Views:        make(map[gpucore.CPUDescriptorHandle]View),
		RootSigs:     make(map[gpucore.RootSignatureID]*gpucore.RootSignatureDesc),
		StateObjects: make(map[gpucore.StateObjectID]*gpucore.StateObjectDesc),
		fences:       make(map[gpucore.FenceID]*fence),
		destroyed:    make(map[uint64]bool),
	}
}

var _ gpucore.Device = (*Device)(nil)

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// Names returns the names of all recorded calls in order.
func (d *Device) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.Calls))
	for i, c := range d.Calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many calls named name were recorded.
func (d *Device) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Find returns all calls named name.
func (d *Device) Find(name string) []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call named name.
func (d *Device) Last(name string) (Call, bool) {
	calls := d.Find(name)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// ResetCalls clears the call log.
func (d *Device) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls = nil
}

// Destroyed reports whether the object with id was destroyed.
func (d *Device) Destroyed(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[id]
}

// BufferData returns the contents of a buffer.
func (d *Device) BufferData(id gpucore.ResourceID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.Buffers[id]; ok {
		return b.Data
	}
	return nil
}

// BufferAddress is the address the fake assigns to buffer id.
func BufferAddress(id gpucore.ResourceID) gpucore.GPUAddress {
	return gpucore.GPUAddress(uint64(id) << 32)
}

// HeapStart is the pair of handles the fake assigns to slot 0 of heap id.
func HeapStart(id gpucore.DescriptorHeapID) (gpucore.CPUDescriptorHandle, gpucore.GPUDescriptorHandle) {
	return gpucore.CPUDescriptorHandle(uint64(id) << 32),
		gpucore.GPUDescriptorHandle(1<<62 | uint64(id)<<32)
}

// DefaultPrebuild returns sizes derived from the triangle or instance count.
// The sizes are deliberately not multiples of the structure alignment.
func DefaultPrebuild(inputs *gpucore.AccelerationStructureInputs) gpucore.PrebuildInfo {
	if inputs.Type == gpucore.AccelerationStructureTopLevel {
		n := uint64(inputs.NumInstances)
		return gpucore.PrebuildInfo{ResultDataMaxSize: 128*n + 5, ScratchDataSize: 64*n + 7}
	}
	var tris uint64
	for _, g := range inputs.Geometry {
		if g.Triangles.IndexCount > 0 {
			tris += uint64(g.Triangles.IndexCount / 3)
		} else {
			tris += uint64(g.Triangles.VertexCount / 3)
		}
	}
	return gpucore.PrebuildInfo{ResultDataMaxSize: 300 + 100*tris, ScratchDataSize: 50*tris + 3}
}

// RaytracingTier implements gpucore.Device.
func (d *Device) RaytracingTier() (gpucore.RaytracingTier, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("RaytracingTier")
	return d.Tier, d.TierErr
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.ResourceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateBuffer", *desc)
	if d.FailCreateBuffer != nil {
		return gpucore.InvalidID, d.FailCreateBuffer
	}
	id := gpucore.ResourceID(d.newID())
	d.Buffers[id] = &Buffer{Desc: *desc, Data: make([]byte, desc.Size)}
	return id, nil
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.ResourceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateTexture", *desc)
	if d.FailCreateTexture != nil {
		return gpucore.InvalidID, d.FailCreateTexture
	}
	id := gpucore.ResourceID(d.newID())
	td := *desc
	d.Textures[id] = &td
	return id, nil
}

// DestroyResource implements gpucore.Device.
func (d *Device) DestroyResource(id gpucore.ResourceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyResource", id)
	d.destroyed[uint64(id)] = true
}

// ResourceAddress implements gpucore.Device.
func (d *Device) ResourceAddress(id gpucore.ResourceID) gpucore.GPUAddress {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ResourceAddress", id)
	return BufferAddress(id)
}

// WriteBuffer implements gpucore.Device.
func (d *Device) WriteBuffer(id gpucore.ResourceID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WriteBuffer", id, offset, len(data))
	if d.FailWriteBuffer != nil {
		return d.FailWriteBuffer
	}
	b, ok := d.Buffers[id]
	if !ok {
		return fmt.Errorf("gputest: write to unknown buffer %d", id)
	}
	if offset+uint64(len(data)) > uint64(len(b.Data)) {
		return fmt.Errorf("gputest: write [%d, %d) past buffer size %d", offset, offset+uint64(len(data)), len(b.Data))
	}
	copy(b.Data[offset:], data)
	return nil
}

// ReadBuffer implements gpucore.Device.
func (d *Device) ReadBuffer(id gpucore.ResourceID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ReadBuffer", id, offset, size)
	b, ok := d.Buffers[id]
	if !ok || offset+size > uint64(len(b.Data)) {
		return nil, fmt.Errorf("gputest: read of buffer %d out of range", id)
	}
	out := make([]byte, size)
	copy(out, b.Data[offset:])
	return out, nil
}

// CreateDescriptorHeap implements gpucore.Device.
func (d *Device) CreateDescriptorHeap(desc *gpucore.DescriptorHeapDesc) (gpucore.DescriptorHeapID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateDescriptorHeap", *desc)
	id := gpucore.DescriptorHeapID(d.newID())
	hd := *desc
	d.Heaps[id] = &hd
	return id, nil
}

// DescriptorHeapStart implements gpucore.Device.
func (d *Device) DescriptorHeapStart(heap gpucore.DescriptorHeapID) (gpucore.CPUDescriptorHandle, gpucore.GPUDescriptorHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DescriptorHeapStart", heap)
	return HeapStart(heap)
}

// DescriptorIncrementSize implements gpucore.Device.
func (d *Device) DescriptorIncrementSize() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DescriptorIncrementSize")
	return DescriptorIncrement
}

// CreateConstantBufferView implements gpucore.Device.
func (d *Device) CreateConstantBufferView(desc *gpucore.ConstantBufferViewDesc, dst gpucore.CPUDescriptorHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := *desc
	d.record("CreateConstantBufferView", v, dst)
	d.Views[dst] = View{Kind: "CBV", CBV: &v}
}

// CreateShaderResourceView implements gpucore.Device.
func (d *Device) CreateShaderResourceView(res gpucore.ResourceID, desc *gpucore.ShaderResourceViewDesc, dst gpucore.CPUDescriptorHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := *desc
	d.record("CreateShaderResourceView", res, v, dst)
	d.Views[dst] = View{Kind: "SRV", Resource: res, SRV: &v}
}

// CreateUnorderedAccessView implements gpucore.Device.
func (d *Device) CreateUnorderedAccessView(res gpucore.ResourceID, desc *gpucore.UnorderedAccessViewDesc, dst gpucore.CPUDescriptorHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := *desc
	d.record("CreateUnorderedAccessView", res, v, dst)
	d.Views[dst] = View{Kind: "UAV", Resource: res, UAV: &v}
}

// CopyDescriptors implements gpucore.Device.
func (d *Device) CopyDescriptors(dst, src gpucore.CPUDescriptorHandle, n uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CopyDescriptors", dst, src, n)
	for i := uint32(0); i < n; i++ {
		s := src.Offset(i, DescriptorIncrement)
		v, ok := d.Views[s]
		if !ok {
			v = View{Kind: "Copy"}
		}
		v.Source = s
		d.Views[dst.Offset(i, DescriptorIncrement)] = v
	}
}

// CreateRootSignature implements gpucore.Device.
func (d *Device) CreateRootSignature(desc *gpucore.RootSignatureDesc) (gpucore.RootSignatureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateRootSignature", desc.Label)
	id := gpucore.RootSignatureID(d.newID())
	rd := *desc
	d.RootSigs[id] = &rd
	return id, nil
}

// CreateStateObject implements gpucore.Device.
func (d *Device) CreateStateObject(desc *gpucore.StateObjectDesc) (gpucore.StateObjectID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateStateObject", len(desc.Subobjects))
	id := gpucore.StateObjectID(d.newID())
	sd := *desc
	d.StateObjects[id] = &sd
	return id, nil
}

// ShaderIdentifier implements gpucore.Device. The identifier of the k-th
// export (library exports first, then hit groups) starts with byte k+1
// followed by the export name.
func (d *Device) ShaderIdentifier(so gpucore.StateObjectID, export string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ShaderIdentifier", so, export)
	desc, ok := d.StateObjects[so]
	if !ok {
		return nil, fmt.Errorf("gputest: unknown state object %d", so)
	}
	k := 0
	for _, sub := range desc.Subobjects {
		var names []string
		switch {
		case sub.Library != nil:
			names = sub.Library.Exports
		case sub.HitGroup != nil:
			names = []string{sub.HitGroup.Name}
		}
		for _, name := range names {
			k++
			if name == export {
				return Identifier(k, export), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExport, export)
}

// Identifier returns the identifier the fake assigns to the k-th export.
func Identifier(k int, export string) []byte {
	id := make([]byte, gpucore.ShaderIdentifierSize)
	id[0] = byte(k)
	copy(id[1:], export)
	return id
}

// AccelerationStructurePrebuildInfo implements gpucore.Device.
func (d *Device) AccelerationStructurePrebuildInfo(inputs *gpucore.AccelerationStructureInputs) gpucore.PrebuildInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("AccelerationStructurePrebuildInfo", inputs.Type)
	if d.Prebuild != nil {
		return d.Prebuild(inputs)
	}
	return DefaultPrebuild(inputs)
}

// CreateCommandList implements gpucore.Device.
func (d *Device) CreateCommandList(allocators int) (gpucore.CommandList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateCommandList", allocators)
	l := &CommandList{device: d, Index: len(d.Lists), Allocators: allocators, Open: true}
	d.Lists = append(d.Lists, l)
	return l, nil
}

// ExecuteCommandLists implements gpucore.Device.
func (d *Device) ExecuteCommandLists(lists ...gpucore.CommandList) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ExecuteCommandLists", len(lists))
	for _, l := range lists {
		if cl, ok := l.(*CommandList); ok && cl.Open {
			return fmt.Errorf("gputest: executing open command list %d", cl.Index)
		}
	}
	return nil
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence(initial uint64) (gpucore.FenceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CreateFence", initial)
	id := gpucore.FenceID(d.newID())
	d.fences[id] = &fence{signaled: initial, completed: initial}
	return id, nil
}

// Signal implements gpucore.Device.
func (d *Device) Signal(id gpucore.FenceID, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Signal", id, value)
	f, ok := d.fences[id]
	if !ok {
		return fmt.Errorf("gputest: unknown fence %d", id)
	}
	f.signaled = value
	if !d.HoldFences {
		f.completed = value
	}
	return nil
}

// CompletedValue implements gpucore.Device.
func (d *Device) CompletedValue(id gpucore.FenceID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CompletedValue", id)
	if f, ok := d.fences[id]; ok {
		return f.completed
	}
	return 0
}

// WaitForFence implements gpucore.Device. A held fence completes up to its
// last signaled value.
func (d *Device) WaitForFence(id gpucore.FenceID, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("WaitForFence", id, value)
	f, ok := d.fences[id]
	if !ok {
		return fmt.Errorf("gputest: unknown fence %d", id)
	}
	if f.signaled < value {
		return fmt.Errorf("gputest: wait for %d on fence %d signaled only to %d", value, id, f.signaled)
	}
	f.completed = f.signaled
	return nil
}

// Complete retires all signaled values of every fence.
func (d *Device) Complete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.fences {
		f.completed = f.signaled
	}
}

// DestroyFence implements gpucore.Device.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyFence", id)
	d.destroyed[uint64(id)] = true
}

// DestroyRootSignature implements gpucore.Device.
func (d *Device) DestroyRootSignature(id gpucore.RootSignatureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyRootSignature", id)
	d.destroyed[uint64(id)] = true
}

// DestroyStateObject implements gpucore.Device.
func (d *Device) DestroyStateObject(id gpucore.StateObjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyStateObject", id)
	d.destroyed[uint64(id)] = true
}

// DestroyDescriptorHeap implements gpucore.Device.
func (d *Device) DestroyDescriptorHeap(id gpucore.DescriptorHeapID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DestroyDescriptorHeap", id)
	d.destroyed[uint64(id)] = true
}
