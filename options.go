package raytrace

import (
	"github.com/gogpu/raytrace/accel"
	"github.com/gogpu/raytrace/gpucore"
	"github.com/gogpu/raytrace/pipeline"
)

// Option configures a Raytracer during creation.
//
// Example:
//
//	rt := raytrace.New(ctx,
//	    raytrace.WithRecursionDepth(1),
//	    raytrace.WithBuildFlags(gpucore.BuildFlagPreferFastBuild))
type Option func(*options)

// options holds optional configuration for Raytracer creation.
type options struct {
	pipeline []pipeline.Option
	accel    []accel.Option
}

// defaultOptions returns the default options: pipeline.DefaultConfig and
// fast-trace builds.
func defaultOptions() options {
	return options{}
}

// WithShaderTableAlignment sets the shader record and shader table
// alignments. Both must be powers of two.
func WithShaderTableAlignment(record, table uint64) Option {
	return func(o *options) {
		o.pipeline = append(o.pipeline, pipeline.WithTableAlignment(record, table))
	}
}

// WithShaderConfig sets the maximum payload and attribute sizes in bytes.
func WithShaderConfig(payload, attributes uint32) Option {
	return func(o *options) {
		o.pipeline = append(o.pipeline, pipeline.WithShaderConfig(payload, attributes))
	}
}

// WithRecursionDepth sets the maximum trace recursion depth.
func WithRecursionDepth(depth uint32) Option {
	return func(o *options) {
		o.pipeline = append(o.pipeline, pipeline.WithRecursionDepth(depth))
	}
}

// WithBuildFlags sets the acceleration structure build flags.
func WithBuildFlags(flags gpucore.BuildFlags) Option {
	return func(o *options) {
		o.accel = append(o.accel, accel.WithBuildFlags(flags))
	}
}
