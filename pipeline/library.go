package pipeline

import (
	"fmt"
	"os"
)

// Names the shader library must export. They are matched by exact string
// equality.
const (
	ExportRayGen     = "RayGen"
	ExportMiss       = "Miss"
	ExportClosestHit = "ClosestHit"

	// HitGroupName is the hit group built around ExportClosestHit.
	HitGroupName = "HitGroup"
)

// Library is a precompiled shader library.
type Library struct {
	// Name identifies the library in logs, usually its file path.
	Name string

	Bytecode []byte
}

// NewLibrary wraps compiled bytecode.
func NewLibrary(name string, bytecode []byte) (*Library, error) {
	if len(bytecode) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyLibrary, name)
	}
	return &Library{Name: name, Bytecode: bytecode}, nil
}

// LoadLibrary reads a compiled shader library from path.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read shader library: %w", err)
	}
	return NewLibrary(path, data)
}
