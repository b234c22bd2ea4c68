// Package gpucore provides the GPU abstractions the ray tracing core is
// written against.
//
// This package defines the [Device], [CommandList] and [SwapChain]
// interfaces, which abstract over concrete GPU backends, allowing the same
// acceleration structure, pipeline and dispatch code to work with:
//   - gogpu/wgpu HAL (backend/wgpu, compute-emulated ray tracing tier)
//   - test doubles that record every call (internal/gputest)
//
// # Architecture
//
//	               +-----------------+
//	               |     raytrace    |
//	               | accel, pipeline |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               |     graphics    |
//	               | (fences, heaps, |
//	               |  upload ring)   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|   wgpu backend  |          |  gputest fake   |
//	|  (hal.Device)   |          | (call recorder) |
//	+-----------------+          +-----------------+
//
// # Binding model
//
// The model follows explicit ray tracing APIs: resources are addressed by
// [GPUAddress], views live in a shader-visible descriptor heap and are
// addressed by [CPUDescriptorHandle] / [GPUDescriptorHandle], a global root
// signature binds per-dispatch resources and a local root signature binds
// per-record resources read from the shader table.
//
// # Resource Management
//
// GPU objects are managed via opaque IDs ([ResourceID], [StateObjectID],
// etc.). The [Device] interface provides creation and destruction methods
// for each object type. Devices are responsible for tracking the mapping
// between IDs and actual GPU objects.
package gpucore
