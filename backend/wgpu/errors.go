//go:build !nogpu

package wgpu

import "errors"

var (
	// ErrNoAdapter is returned by Open when the HAL reports no adapters.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrBackendUnavailable is returned by Open when the requested HAL
	// backend is not compiled in.
	ErrBackendUnavailable = errors.New("wgpu: HAL backend not available")

	// ErrNoHAL is returned by NewFromProvider when the provider does not
	// expose hal.Device and hal.Queue.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL types")

	// ErrUnknownObject is returned for IDs, addresses and handles the
	// device did not create.
	ErrUnknownObject = errors.New("wgpu: unknown object")

	// ErrOutOfRange is returned for accesses past the end of a resource.
	ErrOutOfRange = errors.New("wgpu: access out of range")

	// ErrNotMappable is returned by WriteBuffer and ReadBuffer for buffers
	// outside the upload and readback heaps respectively.
	ErrNotMappable = errors.New("wgpu: buffer is not CPU accessible")

	// ErrUnsupportedFormat is returned for texture formats without a size.
	ErrUnsupportedFormat = errors.New("wgpu: unsupported format")

	// ErrInvalidStateObject is returned by CreateStateObject for
	// descriptions that do not form a complete pipeline.
	ErrInvalidStateObject = errors.New("wgpu: invalid state object")

	// ErrUnknownExport is returned by ShaderIdentifier for names the state
	// object does not export.
	ErrUnknownExport = errors.New("wgpu: unknown export")

	// ErrEmulation is returned when recorded work exceeds the emulated ray
	// tracing tier.
	ErrEmulation = errors.New("wgpu: unsupported by emulated ray tracing")

	// ErrInvalidShaderTable is returned when a dispatch's shader records do
	// not name the bound state object's shaders.
	ErrInvalidShaderTable = errors.New("wgpu: invalid shader table")

	// ErrListState is returned when a command list is used in the wrong
	// recording state or by a different device.
	ErrListState = errors.New("wgpu: command list in wrong state")
)
