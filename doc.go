// Package raytrace renders a mesh with hardware ray tracing.
//
// # Overview
//
// raytrace builds the bottom- and top-level acceleration structures for one
// mesh, assembles the ray tracing pipeline and its shader table, and issues
// one ray dispatch per frame whose output image is copied into the back
// buffer before present.
//
// # Quick Start
//
//	ctx, _ := graphics.New(device, swapChain)
//	rt := raytrace.New(ctx)
//	if err := rt.Initialize(width, height, lib); err != nil {
//	    // errors.Is(err, raytrace.ErrRaytracingUnsupported): rt stays disabled
//	}
//	rt.CreateBLAS(mesh)
//	rt.CreateTLAS()
//
//	for each frame {
//	    rt.Raytrace(camera, ctx.CurrentBackBuffer())
//	    ctx.EndFrame(vsync)
//	}
//
// # Architecture
//
// The package is organized into:
//   - gpucore: device, command list and swap chain interfaces
//   - graphics: shared context (fences, descriptor heap, upload ring)
//   - accel: acceleration structure builds
//   - pipeline: root signatures, state object, shader table, output image
//   - scene: camera, transform graph, meshes and materials
//   - backend/wgpu: gogpu/wgpu HAL device with a compute ray tracing tier
//
// # Disabled state
//
// When the device reports no ray tracing support, Initialize returns
// ErrRaytracingUnsupported once and the Raytracer stays disabled for its
// lifetime. Every other method then returns nil without touching the device.
//
// # Coordinate System
//
// Matrices follow the left-handed row-vector convention: a point p is
// transformed as p*M, and the view-projection product is View*Projection.
package raytrace

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
