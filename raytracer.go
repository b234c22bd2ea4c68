// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raytrace

import (
	"fmt"

	"github.com/gogpu/raytrace/accel"
	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
	"github.com/gogpu/raytrace/pipeline"
)

// Raytracer owns the ray tracing pipeline, the output image and the
// acceleration structures of one mesh.
//
// A Raytracer starts disabled. Initialize enables it when the
// device supports ray tracing; otherwise it stays disabled and every
// method is a no-op that returns nil.
//
// Raytracer is not safe for concurrent use. All methods must be called from
// the goroutine that records into the Context's command list.
type Raytracer struct {
	ctx  *graphics.Context
	opts options

	// initErr is the failure of the one Initialize attempt, kept so later
	// calls fail the same way.
	initErr   error
	attempted bool
	enabled   bool

	pipeline *pipeline.Pipeline
	output   *pipeline.Output
	builder  *accel.Builder

	blas     *accel.BottomLevel
	geometry graphics.GeometrySRVs
	tlas     *accel.TopLevel
}

// New returns a disabled Raytracer recording on ctx.
func New(ctx *graphics.Context, opts ...Option) *Raytracer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Raytracer{ctx: ctx, opts: o}
}

// Initialize queries ray tracing support, creates the pipeline from lib and
// a width x height output image.
//
// Initialize runs once. If the device reports no ray tracing tier or the
// query fails, it returns an error wrapping ErrRaytracingUnsupported. If the
// pipeline or the output image cannot be created, everything Initialize
// created is released and that error is returned. Either way the Raytracer
// stays disabled for its lifetime and later calls return the same error
// without touching the device.
func (r *Raytracer) Initialize(width, height uint32, lib *pipeline.Library) error {
	if r.enabled {
		return ErrAlreadyInitialized
	}
	if r.attempted {
		return r.initErr
	}
	r.attempted = true
	r.initErr = r.initialize(width, height, lib)
	return r.initErr
}

func (r *Raytracer) initialize(width, height uint32, lib *pipeline.Library) error {
	device := r.ctx.Device()
	tier, err := device.RaytracingTier()
	if err != nil {
		slogger().Warn("raytrace: tier query failed", "err", err)
		return fmt.Errorf("%w: %w", ErrRaytracingUnsupported, err)
	}
	if !tier.Supported() {
		slogger().Warn("raytrace: ray tracing not supported", "tier", tier)
		return fmt.Errorf("%w (tier %s)", ErrRaytracingUnsupported, tier)
	}

	p, err := pipeline.New(device, lib, r.opts.pipeline...)
	if err != nil {
		slogger().Warn("raytrace: pipeline creation failed", "err", err)
		return err
	}
	out, err := pipeline.NewOutput(r.ctx, width, height)
	if err != nil {
		p.Release()
		slogger().Warn("raytrace: output creation failed", "err", err)
		return err
	}

	r.pipeline = p
	r.output = out
	r.builder = accel.NewBuilder(r.ctx, r.opts.accel...)
	r.enabled = true
	slogger().Info("raytrace: initialized", "tier", tier, "width", width, "height", height)
	return nil
}

// Enabled reports whether Initialize succeeded.
func (r *Raytracer) Enabled() bool { return r.enabled }

// CreateBLAS records the bottom-level build for mesh, creates the index and
// vertex SRVs in two adjacent slots and patches the index SRV handle into
// the hit group record. The build is submitted by CreateTLAS.
func (r *Raytracer) CreateBLAS(mesh accel.Geometry) error {
	if !r.enabled {
		return nil
	}
	if r.blas != nil {
		return ErrBLASExists
	}
	blas, err := r.builder.BuildBottomLevel(mesh)
	if err != nil {
		return err
	}

	indexBytes := uint64(mesh.IndexCount()) * uint64(mesh.IndexFormat().BytesPerElement())
	vertexBytes := uint64(mesh.VertexCount()) * uint64(mesh.VertexStride())
	srvs, err := r.ctx.CreateGeometrySRVs(mesh.IndexBuffer(), indexBytes, mesh.VertexBuffer(), vertexBytes)
	if err != nil {
		blas.Release()
		return fmt.Errorf("raytrace: geometry views: %w", err)
	}
	if err := r.pipeline.Table.PatchGeometry(srvs.Index); err != nil {
		blas.Release()
		return err
	}

	r.blas = blas
	r.geometry = srvs
	slogger().Debug("raytrace: geometry bound", "slot", srvs.Slot, "index", srvs.Index, "vertex", srvs.Vertex)
	return nil
}

// CreateTLAS builds the top-level structure over one identity instance of
// the bottom-level structure and waits for both builds to complete.
// Calling it again rebuilds the top level and releases the previous one.
func (r *Raytracer) CreateTLAS() error {
	if !r.enabled {
		return nil
	}
	if r.blas == nil {
		return ErrNoBLAS
	}
	tlas, err := r.builder.BuildTopLevel([]accel.Instance{accel.IdentityInstance(r.blas)})
	if err != nil {
		return err
	}
	if r.tlas != nil {
		r.tlas.Release()
	}
	r.tlas = tlas
	return nil
}

// ResizeOutputUAV waits for the GPU and recreates the output image at the
// new size. The UAV keeps its descriptor slot.
func (r *Raytracer) ResizeOutputUAV(width, height uint32) error {
	if !r.enabled {
		return nil
	}
	return r.output.Resize(width, height)
}

// Pipeline returns the ray tracing pipeline, or nil while disabled.
func (r *Raytracer) Pipeline() *pipeline.Pipeline { return r.pipeline }

// Output returns the output image, or nil while disabled.
func (r *Raytracer) Output() *pipeline.Output { return r.output }

// BLAS returns the bottom-level structure, or nil before CreateBLAS.
func (r *Raytracer) BLAS() *accel.BottomLevel { return r.blas }

// TLAS returns the top-level structure, or nil before CreateTLAS.
func (r *Raytracer) TLAS() *accel.TopLevel { return r.tlas }

// GeometrySRVs returns the index and vertex views written by CreateBLAS.
func (r *Raytracer) GeometrySRVs() graphics.GeometrySRVs { return r.geometry }

// TLASAddress returns the address bound as the acceleration structure root
// SRV, or zero before CreateTLAS.
func (r *Raytracer) TLASAddress() gpucore.GPUAddress {
	if r.tlas == nil {
		return 0
	}
	return r.tlas.Address
}

// Close waits for the GPU and releases the structures, the output image and
// the pipeline. The Raytracer is disabled afterwards.
func (r *Raytracer) Close() {
	if !r.enabled {
		return
	}
	if err := r.ctx.WaitForGPU(); err != nil {
		slogger().Warn("raytrace: wait on close", "err", err)
	}
	if r.tlas != nil {
		r.tlas.Release()
		r.tlas = nil
	}
	if r.blas != nil {
		r.blas.Release()
		r.blas = nil
	}
	r.output.Release()
	r.pipeline.Release()
	r.output, r.pipeline, r.builder = nil, nil, nil
	r.enabled = false
}
