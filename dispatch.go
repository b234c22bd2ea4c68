package raytrace

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/pipeline"
)

// Raytrace records one frame of ray tracing into the Context's command list
// and submits it:
//
//  1. scene constants uploaded into the next CBV slot
//  2. back buffer PRESENT -> COPY_DEST, output COPY_SOURCE -> UNORDERED_ACCESS
//  3. descriptor heap, state object and global root signature bound
//  4. output UAV, top-level structure and scene CBV bound to the root
//  5. rays dispatched over the output image
//  6. output copied into the back buffer, which returns to PRESENT
//
// If the constants cannot be uploaded nothing is recorded. Raytrace does
// nothing while disabled or before CreateTLAS. The caller presents with
// Context.EndFrame.
func (r *Raytracer) Raytrace(camera Camera, backBuffer gpucore.ResourceID) error {
	if !r.enabled || r.tlas == nil {
		return nil
	}
	if camera == nil {
		return ErrNilCamera
	}

	scene := NewSceneData(camera)
	cbv, err := r.ctx.FillNextConstantBuffer(scene.Bytes())
	if err != nil {
		return fmt.Errorf("raytrace: scene constants: %w", err)
	}

	list := r.ctx.CommandList()
	out := r.output.Texture()
	list.ResourceBarrier(
		gpucore.Transition(backBuffer, gpucore.ResourceStatePresent, gpucore.ResourceStateCopyDest),
		gpucore.Transition(out, gpucore.ResourceStateCopySource, gpucore.ResourceStateUnorderedAccess),
	)

	p := r.pipeline
	list.SetDescriptorHeaps(r.ctx.Heap().ID())
	list.SetPipelineState1(p.StateObject)
	list.SetComputeRootSignature(p.Global)
	list.SetComputeRootDescriptorTable(pipeline.ParamOutput, r.output.GPUHandle())
	list.SetComputeRootShaderResourceView(pipeline.ParamAccelerationStructure, r.tlas.Address)
	list.SetComputeRootDescriptorTable(pipeline.ParamSceneConstants, cbv)

	width, height := r.output.Size()
	desc := p.Table.DispatchDesc(width, height)
	list.DispatchRays(&desc)

	list.ResourceBarrier(gpucore.Transition(out, gpucore.ResourceStateUnorderedAccess, gpucore.ResourceStateCopySource))
	list.CopyResource(backBuffer, out)
	list.ResourceBarrier(gpucore.Transition(backBuffer, gpucore.ResourceStateCopyDest, gpucore.ResourceStatePresent))

	return r.ctx.CloseAndExecuteCommandList()
}
