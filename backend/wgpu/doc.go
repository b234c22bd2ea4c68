// Package wgpu implements [gpucore.Device] on top of the gogpu/wgpu HAL.
//
// Buffers, fences, copies and submission map directly onto hal.Device and
// hal.Queue. Ray tracing is provided by an emulated tier: acceleration
// structure builds are recorded as bookkeeping plus buffer copies, and
// DispatchRays runs a brute-force traversal kernel written in WGSL and
// compiled to SPIR-V with naga.
//
// # Emulated tier
//
// The traversal kernel reconstructs one primary ray per pixel from the
// scene constants (inverse view-projection and camera position), walks
// every instance of the bound top-level structure and every triangle of
// its bottom-level structure, and writes the barycentric coordinates of
// the closest hit, or a sky gradient on a miss, into the output image.
// Shader library bytecode is accepted but not executed; shader records are
// validated against the identifiers of the bound state object.
//
// Limits of the emulation:
//   - one triangle geometry per bottom-level structure
//   - all instances of a top-level structure reference the same
//     bottom-level structure
//   - vertex positions are R32G32B32_FLOAT at a 4-byte aligned stride
//
// # Textures
//
// Textures are backed by linear storage buffers whose rows are padded to
// 256 bytes, the copy alignment of the HAL. Copies between textures and
// buffers therefore become buffer copies, and the kernel writes the output
// image with plain storage stores.
//
// # Device creation
//
//	dev, err := wgpu.Open()                       // own Vulkan instance
//	dev, err := wgpu.NewFromProvider(provider)    // shared gpucontext device
//	dev, err := wgpu.NewFromHAL(device, queue)    // existing HAL objects
//
// All files except this one and logger.go carry the !nogpu build tag.
package wgpu
