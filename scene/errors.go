package scene

import "errors"

var (
	// ErrInvalidNode is returned for node IDs that were never created or
	// have been removed.
	ErrInvalidNode = errors.New("scene: invalid node")

	// ErrCycle is returned when parenting would make a node its own ancestor.
	ErrCycle = errors.New("scene: parenting would create a cycle")

	// ErrNotChild is returned by RemoveChild for a node with another parent.
	ErrNotChild = errors.New("scene: node is not a child of parent")

	// ErrMalformedOBJ is returned for OBJ data that cannot be parsed.
	ErrMalformedOBJ = errors.New("scene: malformed OBJ")

	// ErrEmptyMesh is returned when creating a mesh without triangles.
	ErrEmptyMesh = errors.New("scene: mesh has no triangles")
)
