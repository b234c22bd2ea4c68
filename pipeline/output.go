package pipeline

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
)

// OutputFormat is the texel format of the ray tracing output image.
const OutputFormat = gpucore.FormatR8G8B8A8Unorm

// Output is the image the dispatch writes into. Between frames it rests in
// the copy-source state.
//
// Its UAV occupies one descriptor slot reserved on first creation. Resizing
// recreates the texture and rewrites the view in the same slot, so the
// global root table binding stays valid.
type Output struct {
	ctx     *graphics.Context
	texture gpucore.ResourceID
	slot    uint32
	width   uint32
	height  uint32
}

// NewOutput reserves the UAV slot and creates a width x height output.
func NewOutput(ctx *graphics.Context, width, height uint32) (*Output, error) {
	slot, err := ctx.ReserveSRVSlots(1)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reserve output slot: %w", err)
	}
	o := &Output{ctx: ctx, slot: slot}
	if err := o.create(width, height); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) create(width, height uint32) error {
	device := o.ctx.Device()
	tex, err := device.CreateTexture(&gpucore.TextureDesc{
		Label:                "raytracing/output",
		Width:                width,
		Height:               height,
		Format:               OutputFormat,
		InitialState:         gpucore.ResourceStateCopySource,
		AllowUnorderedAccess: true,
	})
	if err != nil {
		return fmt.Errorf("pipeline: create output %dx%d: %w", width, height, err)
	}
	device.CreateUnorderedAccessView(tex, &gpucore.UnorderedAccessViewDesc{Format: OutputFormat},
		o.ctx.Heap().CPUHandle(o.slot))
	o.texture, o.width, o.height = tex, width, height
	return nil
}

// Resize waits for the GPU and replaces the output with a new image of the
// given size, rewriting the view in the same slot.
func (o *Output) Resize(width, height uint32) error {
	if err := o.ctx.WaitForGPU(); err != nil {
		return err
	}
	o.release()
	return o.create(width, height)
}

func (o *Output) release() {
	if o.texture != gpucore.InvalidID {
		o.ctx.Device().DestroyResource(o.texture)
		o.texture = gpucore.InvalidID
	}
}

// Texture returns the current output image.
func (o *Output) Texture() gpucore.ResourceID { return o.texture }

// Slot returns the heap slot of the output UAV.
func (o *Output) Slot() uint32 { return o.slot }

// GPUHandle returns the shader-visible handle of the output UAV.
func (o *Output) GPUHandle() gpucore.GPUDescriptorHandle {
	return o.ctx.Heap().GPUHandle(o.slot)
}

// Size returns the output dimensions.
func (o *Output) Size() (width, height uint32) { return o.width, o.height }

// Release destroys the output image. The slot stays reserved.
func (o *Output) Release() { o.release() }
