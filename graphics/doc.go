// Package graphics holds the device-side state shared by the ray tracing
// components: command submission, fences, the shader-visible descriptor
// heap and the constant buffer upload ring.
//
// # Frames in flight
//
// The Context keeps one command allocator per back buffer. Each frame's work
// is tagged with a generation on the frame Timeline. Before an allocator is
// reset for reuse, AdvanceSwapChainIndex waits until the generation last
// recorded against it has retired:
//
//	ctx.ResetAllocatorAndCommandList(ctx.FrameIndex())
//	... record ...
//	ctx.CloseAndExecuteCommandList()
//	ctx.EndFrame(vsync) // Present + AdvanceSwapChainIndex + Reset
//
// WaitForGPU is used at setup, resize and shutdown only.
//
// # Descriptors and constants
//
// FillNextConstantBuffer reserves a region of the upload ring and a CBV slot,
// both wrapping. Persistent views (geometry SRVs, output UAV, material
// textures) come from the SRV region, which never wraps.
package graphics
