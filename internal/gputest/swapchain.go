package gputest

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// SwapChain is a fake gpucore.SwapChain whose back buffers are textures on
// the fake device.
type SwapChain struct {
	device  *Device
	buffers []gpucore.ResourceID
	index   int

	Width  uint32
	Height uint32
}

var _ gpucore.SwapChain = (*SwapChain)(nil)

// NewSwapChain creates n back buffers of the given size on device.
func NewSwapChain(device *Device, n int, width, height uint32) *SwapChain {
	s := &SwapChain{device: device, buffers: make([]gpucore.ResourceID, n)}
	s.create(width, height)
	return s
}

func (s *SwapChain) create(width, height uint32) {
	s.Width, s.Height = width, height
	for i := range s.buffers {
		s.device.mu.Lock()
		id := gpucore.ResourceID(s.device.newID())
		s.device.Textures[id] = &gpucore.TextureDesc{
			Label:  fmt.Sprintf("backbuffer%d", i),
			Width:  width,
			Height: height,
			Format: gpucore.FormatR8G8B8A8Unorm,
		}
		s.device.mu.Unlock()
		s.buffers[i] = id
	}
}

// BufferCount implements gpucore.SwapChain.
func (s *SwapChain) BufferCount() int { return len(s.buffers) }

// BackBuffer implements gpucore.SwapChain.
func (s *SwapChain) BackBuffer(i int) gpucore.ResourceID { return s.buffers[i] }

// CurrentBackBufferIndex implements gpucore.SwapChain.
func (s *SwapChain) CurrentBackBufferIndex() int { return s.index }

// Present implements gpucore.SwapChain.
func (s *SwapChain) Present(vsync bool) error {
	s.device.mu.Lock()
	s.device.record("Present", vsync)
	s.device.mu.Unlock()
	s.index = (s.index + 1) % len(s.buffers)
	return nil
}

// ResizeBuffers implements gpucore.SwapChain. New back buffers are created
// and the current index returns to 0.
func (s *SwapChain) ResizeBuffers(width, height uint32) error {
	s.device.mu.Lock()
	s.device.record("ResizeBuffers", width, height)
	s.device.mu.Unlock()
	s.create(width, height)
	s.index = 0
	return nil
}
