package graphics

import (
	"fmt"
	"image"

	"github.com/gogpu/raytrace/gpucore"
)

// ReadTexture copies an 8-bit RGBA or BGRA texture into a readback buffer,
// waits for the GPU and returns the pixels. The texture is transitioned
// from state to COPY_SOURCE for the copy and back afterwards.
//
// ReadTexture stalls the GPU and is meant for screenshots and headless
// rendering.
func (c *Context) ReadTexture(tex gpucore.ResourceID, width, height uint32, format gpucore.Format, state gpucore.ResourceState) (*image.RGBA, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if format != gpucore.FormatR8G8B8A8Unorm && format != gpucore.FormatB8G8R8A8Unorm {
		return nil, fmt.Errorf("graphics: read texture: unsupported format %d", format)
	}

	bytesPerRow := width * 4
	pitch := uint32(gpucore.Align(uint64(bytesPerRow), gpucore.TexturePitchAlignment))
	size := uint64(pitch) * uint64(height)
	staging, err := c.device.CreateBuffer(&gpucore.BufferDesc{
		Label:        c.label("readback"),
		Size:         size,
		Heap:         gpucore.HeapTypeReadback,
		InitialState: gpucore.ResourceStateCopyDest,
	})
	if err != nil {
		return nil, fmt.Errorf("graphics: create readback buffer: %w", err)
	}
	defer c.device.DestroyResource(staging)

	err = c.submitTemporary(func(list gpucore.CommandList) {
		if state != gpucore.ResourceStateCopySource {
			list.ResourceBarrier(gpucore.Transition(tex, state, gpucore.ResourceStateCopySource))
		}
		list.CopyTextureToBuffer(staging, 0, pitch, tex)
		if state != gpucore.ResourceStateCopySource {
			list.ResourceBarrier(gpucore.Transition(tex, gpucore.ResourceStateCopySource, state))
		}
	})
	if err != nil {
		return nil, err
	}

	data, err := c.device.ReadBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("graphics: read back texture: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	unpackRows(img, data, pitch, format == gpucore.FormatB8G8R8A8Unorm)
	slogger().Debug("graphics: texture read back", "width", width, "height", height, "pitch", pitch)
	return img, nil
}

// unpackRows strips row padding from data into img, swapping red and blue
// when bgra is set.
func unpackRows(img *image.RGBA, data []byte, pitch uint32, bgra bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		src := data[y*int(pitch) : y*int(pitch)+w*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		copy(dst, src)
		if bgra {
			for i := 0; i < len(dst); i += 4 {
				dst[i], dst[i+2] = dst[i+2], dst[i]
			}
		}
	}
}
