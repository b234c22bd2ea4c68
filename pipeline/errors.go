package pipeline

import "errors"

var (
	// ErrUnknownExport is returned when a shader identifier cannot be
	// fetched for a required export or hit group name.
	ErrUnknownExport = errors.New("pipeline: unknown shader export")

	// ErrEmptyLibrary is returned for a shader library without bytecode.
	ErrEmptyLibrary = errors.New("pipeline: empty shader library")

	// ErrRecursionDepth is returned for a recursion depth above the
	// declarable maximum.
	ErrRecursionDepth = errors.New("pipeline: trace recursion depth out of range")

	// ErrBadAlignment is returned when a shader table alignment is not a
	// power of two.
	ErrBadAlignment = errors.New("pipeline: alignment must be a power of two")
)
