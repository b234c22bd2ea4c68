// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package graphics

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gogpu/raytrace/gpucore"
)

// Context owns the device-side state shared by every component: the command
// list and its per-frame allocators, the idle and frame-pacing fences, the
// shader-visible descriptor heap and the constant buffer upload ring.
//
// A Context is constructed once and passed to every component that records
// GPU work. It is not safe for concurrent use; all calls must come from the
// submitting goroutine.
type Context struct {
	id   uuid.UUID
	opts options

	device      gpucore.Device
	swapChain   gpucore.SwapChain
	commandList gpucore.CommandList
	// upload is created on the first temporary submission and reset on
	// each later one.
	upload gpucore.CommandList

	heap *DescriptorHeap
	ring *UploadRing

	idle       *Timeline
	frame      *Timeline
	frameGen   []uint64
	frameIndex int

	textureHeaps []gpucore.DescriptorHeapID
	closed       bool
}

// New creates a Context on device presenting to swapChain. The command list
// is returned open on the allocator of the current back buffer.
func New(device gpucore.Device, swapChain gpucore.SwapChain, opts ...Option) (*Context, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if swapChain == nil {
		return nil, ErrNilSwapChain
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	frames := swapChain.BufferCount()
	if frames < 1 {
		frames = NumBackBuffers
	}

	c := &Context{
		id:         uuid.New(),
		opts:       o,
		device:     device,
		swapChain:  swapChain,
		frameGen:   make([]uint64, frames),
		frameIndex: swapChain.CurrentBackBufferIndex(),
	}

	var err error
	if c.commandList, err = device.CreateCommandList(frames); err != nil {
		return nil, fmt.Errorf("graphics: create command list: %w", err)
	}
	if c.idle, err = NewTimeline(device, 0); err != nil {
		return nil, err
	}
	if c.frame, err = NewTimeline(device, 0); err != nil {
		c.idle.Destroy()
		return nil, err
	}
	if c.heap, err = NewDescriptorHeap(device, o.constantBuffers, o.textureDescriptors, c.label("descriptors")); err != nil {
		c.frame.Destroy()
		c.idle.Destroy()
		return nil, err
	}
	ringSize := uint64(o.constantBuffers) * gpucore.ConstantBufferAlignment
	if c.ring, err = NewUploadRing(device, ringSize, frames, o.ringGuard, c.label("constants")); err != nil {
		c.heap.Destroy()
		c.frame.Destroy()
		c.idle.Destroy()
		return nil, err
	}
	if c.frameIndex != 0 {
		if err = c.commandList.Reset(c.frameIndex); err != nil {
			c.Close()
			return nil, fmt.Errorf("graphics: reset command list: %w", err)
		}
	}

	slogger().Info("graphics: context created",
		"id", c.id, "frames", frames,
		"constantBuffers", o.constantBuffers, "textureDescriptors", o.textureDescriptors)
	return c, nil
}

func (c *Context) label(name string) string {
	return c.opts.label + "/" + name + "/" + c.id.String()[:8]
}

// ID returns the session ID used in resource labels and logs.
func (c *Context) ID() uuid.UUID { return c.id }

// Device returns the underlying device.
func (c *Context) Device() gpucore.Device { return c.device }

// SwapChain returns the presentation surface.
func (c *Context) SwapChain() gpucore.SwapChain { return c.swapChain }

// CommandList returns the shared command list.
func (c *Context) CommandList() gpucore.CommandList { return c.commandList }

// Heap returns the shader-visible descriptor heap.
func (c *Context) Heap() *DescriptorHeap { return c.heap }

// Ring returns the constant buffer upload ring.
func (c *Context) Ring() *UploadRing { return c.ring }

// FrameCount returns the number of frames in flight.
func (c *Context) FrameCount() int { return len(c.frameGen) }

// FrameIndex returns the current back buffer index.
func (c *Context) FrameIndex() int { return c.frameIndex }

// CurrentBackBuffer returns the back buffer to render into this frame.
func (c *Context) CurrentBackBuffer() gpucore.ResourceID {
	return c.swapChain.BackBuffer(c.frameIndex)
}

// WaitForGPU blocks until all submitted work has retired.
func (c *Context) WaitForGPU() error {
	if c.closed {
		return ErrContextClosed
	}
	return c.idle.Flush()
}

// AdvanceSwapChainIndex signals the end of the current frame and moves to
// the next back buffer. It blocks only when the GPU has not yet retired the
// work previously recorded against that buffer's allocator.
func (c *Context) AdvanceSwapChainIndex() error {
	if c.closed {
		return ErrContextClosed
	}
	current := c.frameGen[c.frameIndex]
	if err := c.frame.SignalValue(current); err != nil {
		return err
	}

	c.frameIndex = (c.frameIndex + 1) % len(c.frameGen)
	if err := c.frame.Wait(c.frameGen[c.frameIndex]); err != nil {
		return err
	}
	c.frameGen[c.frameIndex] = current + 1
	c.ring.EndFrame()
	return nil
}

// ResetAllocatorAndCommandList reopens the command list on the allocator of
// frame slot i. The slot's previous work must have retired.
func (c *Context) ResetAllocatorAndCommandList(i int) error {
	if err := c.commandList.Reset(i); err != nil {
		return fmt.Errorf("graphics: reset command list on allocator %d: %w", i, err)
	}
	return nil
}

// CloseAndExecuteCommandList closes the shared command list and submits it.
func (c *Context) CloseAndExecuteCommandList() error {
	if err := c.commandList.Close(); err != nil {
		return fmt.Errorf("graphics: close command list: %w", err)
	}
	if err := c.device.ExecuteCommandLists(c.commandList); err != nil {
		return fmt.Errorf("graphics: execute command list: %w", err)
	}
	return nil
}

// Present presents the current back buffer.
func (c *Context) Present(vsync bool) error {
	if err := c.swapChain.Present(vsync); err != nil {
		return fmt.Errorf("graphics: present: %w", err)
	}
	return nil
}

// EndFrame presents, advances to the next back buffer and reopens the
// command list on that buffer's allocator.
func (c *Context) EndFrame(vsync bool) error {
	if err := c.Present(vsync); err != nil {
		return err
	}
	if err := c.AdvanceSwapChainIndex(); err != nil {
		return err
	}
	return c.ResetAllocatorAndCommandList(c.frameIndex)
}

// Resize waits for the GPU, resizes the swap chain and realigns the frame
// index with the swap chain's current buffer.
func (c *Context) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if err := c.WaitForGPU(); err != nil {
		return err
	}
	if err := c.swapChain.ResizeBuffers(width, height); err != nil {
		return fmt.Errorf("graphics: resize swap chain: %w", err)
	}
	target := c.swapChain.CurrentBackBufferIndex()
	for i := 0; c.frameIndex != target && i < len(c.frameGen); i++ {
		if err := c.AdvanceSwapChainIndex(); err != nil {
			return err
		}
	}
	if err := c.WaitForGPU(); err != nil {
		return err
	}
	slogger().Debug("graphics: resized", "width", width, "height", height, "frameIndex", c.frameIndex)
	return nil
}

// FillNextConstantBuffer copies data into the upload ring, writes a
// constant buffer view of it into the next CBV slot and returns that slot's
// GPU handle.
func (c *Context) FillNextConstantBuffer(data []byte) (gpucore.GPUDescriptorHandle, error) {
	addr, size, err := c.ring.Reserve(data)
	if err != nil {
		return 0, err
	}
	slot := c.heap.NextCBVSlot()
	c.device.CreateConstantBufferView(&gpucore.ConstantBufferViewDesc{
		Address: addr,
		Size:    uint32(size),
	}, c.heap.CPUHandle(slot))
	return c.heap.GPUHandle(slot), nil
}

// ReserveSRVSlots reserves n adjacent slots in the SRV/UAV region and
// returns the first slot index.
func (c *Context) ReserveSRVSlots(n uint32) (uint32, error) {
	return c.heap.ReserveSRVSlots(n)
}

// CopySRVsToDescriptorHeap copies n descriptors starting at src into newly
// reserved adjacent shader-visible slots and returns the GPU handle of the
// first.
func (c *Context) CopySRVsToDescriptorHeap(src gpucore.CPUDescriptorHandle, n uint32) (gpucore.GPUDescriptorHandle, error) {
	first, err := c.heap.ReserveSRVSlots(n)
	if err != nil {
		return 0, err
	}
	c.device.CopyDescriptors(c.heap.CPUHandle(first), src, n)
	return c.heap.GPUHandle(first), nil
}

// Close waits for the GPU and releases everything the Context created.
// Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	if err := c.idle.Flush(); err != nil {
		slogger().Warn("graphics: wait on close", "err", err)
	}
	c.closed = true
	for _, h := range c.textureHeaps {
		c.device.DestroyDescriptorHeap(h)
	}
	c.textureHeaps = nil
	c.upload = nil
	c.ring.Destroy()
	c.heap.Destroy()
	c.frame.Destroy()
	c.idle.Destroy()
	slogger().Debug("graphics: context closed", "id", c.id)
}
