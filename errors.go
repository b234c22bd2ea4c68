package raytrace

import "errors"

var (
	// ErrRaytracingUnsupported is returned by Initialize when the device
	// has no usable ray tracing tier. The Raytracer stays disabled.
	ErrRaytracingUnsupported = errors.New("raytrace: ray tracing not supported by device")

	// ErrAlreadyInitialized is returned by a second successful Initialize.
	ErrAlreadyInitialized = errors.New("raytrace: already initialized")

	// ErrNotInitialized is returned when building structures before
	// Initialize.
	ErrNotInitialized = errors.New("raytrace: not initialized")

	// ErrBLASExists is returned when CreateBLAS is called a second time.
	// Only one bottom-level structure is supported.
	ErrBLASExists = errors.New("raytrace: bottom-level structure already built")

	// ErrNoBLAS is returned by CreateTLAS before CreateBLAS.
	ErrNoBLAS = errors.New("raytrace: no bottom-level structure")

	// ErrNilCamera is returned by Raytrace without a camera.
	ErrNilCamera = errors.New("raytrace: camera is nil")
)
