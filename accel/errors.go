package accel

import "errors"

var (
	// ErrNoGeometry is returned when a mesh has no vertices.
	ErrNoGeometry = errors.New("accel: geometry has no vertices")

	// ErrNoInstances is returned when building a top-level structure
	// without instances.
	ErrNoInstances = errors.New("accel: no instances")

	// ErrNilBottomLevel is returned when an instance references no built
	// bottom-level structure.
	ErrNilBottomLevel = errors.New("accel: instance has no bottom-level structure")

	// ErrReleased is returned when using a released structure.
	ErrReleased = errors.New("accel: structure released")
)
