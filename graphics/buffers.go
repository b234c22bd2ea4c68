package graphics

import (
	"fmt"
	"slices"

	"github.com/gogpu/raytrace/gpucore"
)

// CreateUploadBuffer creates an upload-heap buffer holding data. Upload
// buffers stay in the generic read state and are mapped for their lifetime.
func (c *Context) CreateUploadBuffer(label string, data []byte) (gpucore.ResourceID, error) {
	if len(data) == 0 {
		return gpucore.InvalidID, ErrEmptyBuffer
	}
	buf, err := c.device.CreateBuffer(&gpucore.BufferDesc{
		Label:        label,
		Size:         uint64(len(data)),
		Heap:         gpucore.HeapTypeUpload,
		InitialState: gpucore.ResourceStateGenericRead,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("graphics: create upload buffer %q: %w", label, err)
	}
	if err := c.device.WriteBuffer(buf, 0, data); err != nil {
		c.device.DestroyResource(buf)
		return gpucore.InvalidID, fmt.Errorf("graphics: write upload buffer %q: %w", label, err)
	}
	return buf, nil
}

// CreateStaticBuffer creates a default-heap buffer initialized with data.
//
// The data is staged through a temporary upload buffer and copied on a
// temporary command list, after which the buffer is transitioned to the
// generic read state. CreateStaticBuffer waits for the copy to finish, so
// it is meant for load time only.
func (c *Context) CreateStaticBuffer(label string, data []byte) (gpucore.ResourceID, error) {
	if len(data) == 0 {
		return gpucore.InvalidID, ErrEmptyBuffer
	}
	buf, err := c.device.CreateBuffer(&gpucore.BufferDesc{
		Label:        label,
		Size:         uint64(len(data)),
		Heap:         gpucore.HeapTypeDefault,
		InitialState: gpucore.ResourceStateCopyDest,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("graphics: create static buffer %q: %w", label, err)
	}
	staging, err := c.CreateUploadBuffer(label+"/staging", data)
	if err != nil {
		c.device.DestroyResource(buf)
		return gpucore.InvalidID, err
	}
	defer c.device.DestroyResource(staging)

	err = c.submitTemporary(func(list gpucore.CommandList) {
		list.CopyResource(buf, staging)
		list.ResourceBarrier(gpucore.Transition(buf,
			gpucore.ResourceStateCopyDest, gpucore.ResourceStateGenericRead))
	})
	if err != nil {
		c.device.DestroyResource(buf)
		return gpucore.InvalidID, err
	}
	slogger().Debug("graphics: static buffer", "label", label, "size", len(data))
	return buf, nil
}

// submitTemporary records into the context's one-allocator upload list,
// submits it and waits for the GPU. The list is reused across calls.
func (c *Context) submitTemporary(record func(gpucore.CommandList)) error {
	list := c.upload
	if list == nil {
		l, err := c.device.CreateCommandList(1)
		if err != nil {
			return fmt.Errorf("graphics: create temporary command list: %w", err)
		}
		c.upload, list = l, l
	} else if err := list.Reset(0); err != nil {
		return fmt.Errorf("graphics: reset temporary command list: %w", err)
	}
	record(list)
	if err := list.Close(); err != nil {
		return fmt.Errorf("graphics: close temporary command list: %w", err)
	}
	if err := c.device.ExecuteCommandLists(list); err != nil {
		return fmt.Errorf("graphics: execute temporary command list: %w", err)
	}
	return c.WaitForGPU()
}

// GeometrySRVs are the raw views of a mesh's index and vertex buffers in two
// adjacent shader-visible slots, index first.
type GeometrySRVs struct {
	// Slot is the heap slot of the index buffer view. The vertex buffer view
	// is at Slot+1.
	Slot uint32

	Index  gpucore.GPUDescriptorHandle
	Vertex gpucore.GPUDescriptorHandle
}

// CreateGeometrySRVs reserves two adjacent SRV slots and writes raw
// (byte address) views of indexBuffer and vertexBuffer into them, index
// first. Both sizes are in bytes.
func (c *Context) CreateGeometrySRVs(indexBuffer gpucore.ResourceID, indexBytes uint64,
	vertexBuffer gpucore.ResourceID, vertexBytes uint64) (GeometrySRVs, error) {
	slot, err := c.heap.ReserveSRVSlots(2)
	if err != nil {
		return GeometrySRVs{}, err
	}
	c.device.CreateShaderResourceView(indexBuffer, rawBufferView(indexBytes), c.heap.CPUHandle(slot))
	c.device.CreateShaderResourceView(vertexBuffer, rawBufferView(vertexBytes), c.heap.CPUHandle(slot+1))
	return GeometrySRVs{
		Slot:   slot,
		Index:  c.heap.GPUHandle(slot),
		Vertex: c.heap.GPUHandle(slot + 1),
	}, nil
}

func rawBufferView(size uint64) *gpucore.ShaderResourceViewDesc {
	return &gpucore.ShaderResourceViewDesc{
		Dimension:   gpucore.SRVDimensionBuffer,
		Format:      gpucore.FormatR32Typeless,
		NumElements: uint32(size / 4),
		Raw:         true,
	}
}

// Texture is a sampled 2D texture with its SRV in a dedicated
// non-shader-visible heap, ready to be copied into a material slot table.
type Texture struct {
	Resource gpucore.ResourceID
	Width    uint32
	Height   uint32
	SRV      gpucore.CPUDescriptorHandle

	heap gpucore.DescriptorHeapID
}

// LoadTexture uploads tightly packed RGBA8 pixels into a new texture and
// creates its SRV in a one-descriptor non-shader-visible heap owned by the
// Context.
func (c *Context) LoadTexture(label string, width, height uint32, rgba []byte) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidSize, label, width, height)
	}
	if uint64(len(rgba)) != uint64(width)*uint64(height)*4 {
		return nil, fmt.Errorf("graphics: texture %q: %d bytes for %dx%d RGBA", label, len(rgba), width, height)
	}
	tex, err := c.device.CreateTexture(&gpucore.TextureDesc{
		Label:        label,
		Width:        width,
		Height:       height,
		Format:       gpucore.FormatR8G8B8A8Unorm,
		InitialState: gpucore.ResourceStateCopyDest,
	})
	if err != nil {
		return nil, fmt.Errorf("graphics: create texture %q: %w", label, err)
	}
	staging, err := c.CreateUploadBuffer(label+"/staging", rgba)
	if err != nil {
		c.device.DestroyResource(tex)
		return nil, err
	}
	defer c.device.DestroyResource(staging)

	err = c.submitTemporary(func(list gpucore.CommandList) {
		list.CopyBufferToTexture(tex, staging, 0, width*4)
		list.ResourceBarrier(gpucore.Transition(tex,
			gpucore.ResourceStateCopyDest, gpucore.ResourceStateNonPixelShaderResource))
	})
	if err != nil {
		c.device.DestroyResource(tex)
		return nil, err
	}

	heap, err := c.device.CreateDescriptorHeap(&gpucore.DescriptorHeapDesc{
		Label:          label + "/srv",
		NumDescriptors: 1,
	})
	if err != nil {
		c.device.DestroyResource(tex)
		return nil, fmt.Errorf("graphics: create texture heap %q: %w", label, err)
	}
	c.textureHeaps = append(c.textureHeaps, heap)
	cpu, _ := c.device.DescriptorHeapStart(heap)
	c.device.CreateShaderResourceView(tex, &gpucore.ShaderResourceViewDesc{
		Dimension: gpucore.SRVDimensionTexture2D,
		Format:    gpucore.FormatR8G8B8A8Unorm,
	}, cpu)

	return &Texture{Resource: tex, Width: width, Height: height, SRV: cpu, heap: heap}, nil
}

// ReleaseTexture destroys a texture from LoadTexture and its SRV heap.
// Descriptor tables that copied the SRV must no longer be used.
func (c *Context) ReleaseTexture(t *Texture) {
	if t == nil || t.Resource == gpucore.InvalidID {
		return
	}
	if i := slices.Index(c.textureHeaps, t.heap); i >= 0 {
		c.textureHeaps = slices.Delete(c.textureHeaps, i, i+1)
		c.device.DestroyDescriptorHeap(t.heap)
	}
	c.device.DestroyResource(t.Resource)
	t.Resource = gpucore.InvalidID
}
