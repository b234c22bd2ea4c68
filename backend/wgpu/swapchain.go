//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// BackBufferFormat is the format of SwapChain back buffers.
const BackBufferFormat = gpucore.FormatR8G8B8A8Unorm

// PresentFunc is called by SwapChain.Present with the back buffer being
// presented.
type PresentFunc func(backBuffer gpucore.ResourceID, index int) error

// SwapChain is an offscreen gpucore.SwapChain whose back buffers are
// device textures. Presenting hands the current buffer to the OnPresent
// hook, if any, and advances the index.
type SwapChain struct {
	device  *Device
	buffers []gpucore.ResourceID
	index   int
	width   uint32
	height  uint32

	// OnPresent receives each presented back buffer.
	OnPresent PresentFunc
}

var _ gpucore.SwapChain = (*SwapChain)(nil)

// NewSwapChain creates n back buffers of width x height.
func NewSwapChain(d *Device, n int, width, height uint32) (*SwapChain, error) {
	if n < 1 {
		return nil, fmt.Errorf("wgpu: swap chain needs at least one buffer, got %d", n)
	}
	s := &SwapChain{device: d, buffers: make([]gpucore.ResourceID, n)}
	if err := s.create(width, height); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SwapChain) create(width, height uint32) error {
	for i := range s.buffers {
		id, err := s.device.CreateTexture(&gpucore.TextureDesc{
			Label:        fmt.Sprintf("backbuffer/%d", i),
			Width:        width,
			Height:       height,
			Format:       BackBufferFormat,
			InitialState: gpucore.ResourceStatePresent,
		})
		if err != nil {
			s.destroy()
			return fmt.Errorf("wgpu: swap chain buffer %d: %w", i, err)
		}
		s.buffers[i] = id
	}
	s.width, s.height = width, height
	return nil
}

func (s *SwapChain) destroy() {
	for i, id := range s.buffers {
		if id != gpucore.InvalidID {
			s.device.DestroyResource(id)
		}
		s.buffers[i] = gpucore.InvalidID
	}
}

// Size returns the back buffer size.
func (s *SwapChain) Size() (width, height uint32) { return s.width, s.height }

// BufferCount implements gpucore.SwapChain.
func (s *SwapChain) BufferCount() int { return len(s.buffers) }

// BackBuffer implements gpucore.SwapChain.
func (s *SwapChain) BackBuffer(i int) gpucore.ResourceID { return s.buffers[i] }

// CurrentBackBufferIndex implements gpucore.SwapChain.
func (s *SwapChain) CurrentBackBufferIndex() int { return s.index }

// Present implements gpucore.SwapChain. vsync has no effect offscreen.
func (s *SwapChain) Present(vsync bool) error {
	if s.OnPresent != nil {
		if err := s.OnPresent(s.buffers[s.index], s.index); err != nil {
			return fmt.Errorf("wgpu: present: %w", err)
		}
	}
	s.index = (s.index + 1) % len(s.buffers)
	return nil
}

// ResizeBuffers implements gpucore.SwapChain. The current index returns
// to 0.
func (s *SwapChain) ResizeBuffers(width, height uint32) error {
	s.destroy()
	s.index = 0
	slogger().Debug("wgpu: swap chain resized", "width", width, "height", height)
	return s.create(width, height)
}

// Release destroys the back buffers. The swap chain must not be used
// afterwards.
func (s *SwapChain) Release() { s.destroy() }
