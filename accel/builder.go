// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package accel

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/graphics"
)

// Geometry is the mesh contract the builder consumes. Buffers must be
// resident and immutable before a build is recorded.
type Geometry interface {
	VertexBuffer() gpucore.ResourceID
	VertexCount() uint32
	VertexStride() uint32
	IndexBuffer() gpucore.ResourceID
	IndexCount() uint32
	IndexFormat() gpucore.Format
}

// Option configures a Builder.
type Option func(*options)

type options struct {
	flags gpucore.BuildFlags
}

func defaultOptions() options {
	return options{flags: gpucore.BuildFlagPreferFastTrace}
}

// WithBuildFlags replaces the build flags used for both levels.
// The default is BuildFlagPreferFastTrace.
func WithBuildFlags(flags gpucore.BuildFlags) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// Builder records acceleration structure builds on a Context's command list.
type Builder struct {
	ctx    *graphics.Context
	device gpucore.Device
	opts   options
}

// NewBuilder returns a Builder recording on ctx.
func NewBuilder(ctx *graphics.Context, opts ...Option) *Builder {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Builder{ctx: ctx, device: ctx.Device(), opts: o}
}

// buffers holds the scratch and result buffers of one build.
type buffers struct {
	scratch     gpucore.ResourceID
	result      gpucore.ResourceID
	scratchSize uint64
	resultSize  uint64
}

// allocate creates scratch and result buffers sized from prebuild info,
// each rounded up to the structure alignment.
func (b *Builder) allocate(label string, info gpucore.PrebuildInfo) (buffers, error) {
	bufs := buffers{
		scratchSize: gpucore.Align(info.ScratchDataSize, gpucore.AccelerationStructureAlignment),
		resultSize:  gpucore.Align(info.ResultDataMaxSize, gpucore.AccelerationStructureAlignment),
	}
	var err error
	bufs.scratch, err = b.device.CreateBuffer(&gpucore.BufferDesc{
		Label:                label + "/scratch",
		Size:                 bufs.scratchSize,
		Heap:                 gpucore.HeapTypeDefault,
		InitialState:         gpucore.ResourceStateUnorderedAccess,
		AllowUnorderedAccess: true,
	})
	if err != nil {
		return buffers{}, fmt.Errorf("accel: create %s scratch (%d bytes): %w", label, bufs.scratchSize, err)
	}
	bufs.result, err = b.device.CreateBuffer(&gpucore.BufferDesc{
		Label:                label,
		Size:                 bufs.resultSize,
		Heap:                 gpucore.HeapTypeDefault,
		InitialState:         gpucore.ResourceStateRaytracingAccelerationStructure,
		AllowUnorderedAccess: true,
	})
	if err != nil {
		b.device.DestroyResource(bufs.scratch)
		return buffers{}, fmt.Errorf("accel: create %s result (%d bytes): %w", label, bufs.resultSize, err)
	}
	return bufs, nil
}

// record records the build and the barrier that orders later reads of the
// result after it.
func (b *Builder) record(inputs *gpucore.AccelerationStructureInputs, bufs buffers) gpucore.GPUAddress {
	dest := b.device.ResourceAddress(bufs.result)
	list := b.ctx.CommandList()
	list.BuildRaytracingAccelerationStructure(&gpucore.BuildAccelerationStructureDesc{
		Inputs:      *inputs,
		DestAddress: dest,
		Scratch:     b.device.ResourceAddress(bufs.scratch),
	})
	list.ResourceBarrier(gpucore.UAVBarrier(bufs.result))
	return dest
}
