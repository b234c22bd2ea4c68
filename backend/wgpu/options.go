//go:build !nogpu

package wgpu

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Option configures a Device.
type Option func(*options)

type options struct {
	label      string
	backend    gputypes.Backend
	waitSlice  time.Duration
	raytracing bool
}

func defaultOptions() options {
	return options{
		label:      "raytrace",
		backend:    gputypes.BackendVulkan,
		waitSlice:  5 * time.Second,
		raytracing: true,
	}
}

// WithLabel sets the prefix of HAL debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithBackend selects the HAL backend Open creates an instance on.
// The default is Vulkan.
func WithBackend(b gputypes.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithWaitSlice sets how long a fence wait blocks before logging a warning
// and waiting again. Fence waits never give up.
func WithWaitSlice(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitSlice = d
		}
	}
}

// WithRaytracing enables or disables the emulated ray tracing tier. A
// disabled device reports RaytracingTierNotSupported.
func WithRaytracing(enabled bool) Option {
	return func(o *options) {
		o.raytracing = enabled
	}
}
