//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gogpu/raytrace/gpucore"
)

// identifierSpace is the name space shader identifiers are derived in.
var identifierSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("gogpu/raytrace/shader-identifier"))

type stateObject struct {
	label     string
	global    gpucore.RootSignatureID
	recursion uint32
	config    gpucore.ShaderConfig

	// identifiers holds every library export and hit group.
	identifiers map[string][]byte
	hitGroups   map[string]bool
}

// shaderIdentifier derives a stable ShaderIdentifierSize-byte identifier of
// export within state object so.
func shaderIdentifier(so gpucore.StateObjectID, export string) []byte {
	first := uuid.NewSHA1(identifierSpace, []byte(fmt.Sprintf("%d/%s", so, export)))
	second := uuid.NewSHA1(first, []byte(export))
	id := make([]byte, 0, gpucore.ShaderIdentifierSize)
	id = append(id, first[:]...)
	return append(id, second[:]...)
}

// kind returns what the identifier names, or "" when it names nothing in
// the state object.
func (s *stateObject) kind(id []byte) string {
	for name, ident := range s.identifiers {
		if string(ident) == string(id) {
			if s.hitGroups[name] {
				return "hitgroup"
			}
			return "export"
		}
	}
	return ""
}

// CreateRootSignature stores the layout. Dispatches read it to find the
// output, acceleration structure and constant buffer parameters.
func (d *Device) CreateRootSignature(desc *gpucore.RootSignatureDesc) (gpucore.RootSignatureID, error) {
	for i, p := range desc.Parameters {
		if p.Type == gpucore.RootParameterDescriptorTable && len(p.Ranges) == 0 {
			return gpucore.InvalidID, fmt.Errorf("wgpu: root signature %q parameter %d: empty descriptor table", desc.Label, i)
		}
	}
	cp := *desc
	cp.Parameters = append([]gpucore.RootParameter(nil), desc.Parameters...)
	for i := range cp.Parameters {
		cp.Parameters[i].Ranges = resolveRangeOffsets(cp.Parameters[i].Ranges)
	}
	id := gpucore.RootSignatureID(d.newID())
	d.rootSigs[id] = &cp
	return id, nil
}

// resolveRangeOffsets returns a copy of ranges with every append offset
// replaced by the end of the preceding range.
func resolveRangeOffsets(ranges []gpucore.DescriptorRange) []gpucore.DescriptorRange {
	if ranges == nil {
		return nil
	}
	out := make([]gpucore.DescriptorRange, len(ranges))
	next := uint32(0)
	for i, rg := range ranges {
		if rg.OffsetFromTableStart == gpucore.DescriptorRangeOffsetAppend {
			rg.OffsetFromTableStart = next
		}
		next = rg.OffsetFromTableStart + rg.NumDescriptors
		out[i] = rg
	}
	return out
}

// DestroyRootSignature releases a root signature.
func (d *Device) DestroyRootSignature(id gpucore.RootSignatureID) {
	delete(d.rootSigs, id)
}

// CreateStateObject validates the subobjects and assigns identifiers to
// every export and hit group.
func (d *Device) CreateStateObject(desc *gpucore.StateObjectDesc) (gpucore.StateObjectID, error) {
	invalid := func(format string, args ...any) (gpucore.StateObjectID, error) {
		return gpucore.InvalidID, fmt.Errorf("%w: %q: %s", ErrInvalidStateObject, desc.Label, fmt.Sprintf(format, args...))
	}

	so := &stateObject{
		label:       desc.Label,
		identifiers: make(map[string][]byte),
		hitGroups:   make(map[string]bool),
	}
	exports := make(map[string]bool)
	var haveConfig, havePipeline bool

	for i, sub := range desc.Subobjects {
		switch sub.Type {
		case gpucore.SubobjectGlobalRootSignature:
			if _, ok := d.rootSigs[sub.RootSignature]; !ok {
				return invalid("subobject %d: unknown global root signature %d", i, sub.RootSignature)
			}
			so.global = sub.RootSignature
		case gpucore.SubobjectLocalRootSignature:
			if _, ok := d.rootSigs[sub.RootSignature]; !ok {
				return invalid("subobject %d: unknown local root signature %d", i, sub.RootSignature)
			}
		case gpucore.SubobjectDXILLibrary:
			if sub.Library == nil || len(sub.Library.Bytecode) == 0 {
				return invalid("subobject %d: empty library", i)
			}
			for _, e := range sub.Library.Exports {
				exports[e] = true
			}
		case gpucore.SubobjectHitGroup:
			if sub.HitGroup == nil || sub.HitGroup.Name == "" {
				return invalid("subobject %d: unnamed hit group", i)
			}
			if sub.HitGroup.Type != gpucore.HitGroupTriangles {
				return invalid("hit group %q: only triangle hit groups are emulated", sub.HitGroup.Name)
			}
			so.hitGroups[sub.HitGroup.Name] = true
		case gpucore.SubobjectShaderConfig:
			if sub.ShaderConfig == nil {
				return invalid("subobject %d: missing shader config", i)
			}
			so.config, haveConfig = *sub.ShaderConfig, true
		case gpucore.SubobjectPipelineConfig:
			if sub.PipelineConfig == nil {
				return invalid("subobject %d: missing pipeline config", i)
			}
			if sub.PipelineConfig.MaxTraceRecursionDepth > gpucore.MaxTraceRecursionDepth {
				return invalid("recursion depth %d exceeds %d",
					sub.PipelineConfig.MaxTraceRecursionDepth, gpucore.MaxTraceRecursionDepth)
			}
			so.recursion, havePipeline = sub.PipelineConfig.MaxTraceRecursionDepth, true
		case gpucore.SubobjectExportsAssociation:
			// Resolved below, once every export is known.
		default:
			return invalid("subobject %d: unknown type %v", i, sub.Type)
		}
	}
	if !haveConfig || !havePipeline {
		return invalid("shader config and pipeline config are required")
	}

	for _, sub := range desc.Subobjects {
		if sub.Type != gpucore.SubobjectHitGroup {
			continue
		}
		for _, s := range []string{sub.HitGroup.ClosestHit, sub.HitGroup.AnyHit, sub.HitGroup.Intersection} {
			if s != "" && !exports[s] {
				return invalid("hit group %q references unknown export %q", sub.HitGroup.Name, s)
			}
		}
	}
	for i, sub := range desc.Subobjects {
		if sub.Type != gpucore.SubobjectExportsAssociation {
			continue
		}
		a := sub.Association
		if a == nil || a.Subobject < 0 || a.Subobject >= len(desc.Subobjects) {
			return invalid("association %d: subobject index out of range", i)
		}
		for _, e := range a.Exports {
			if !exports[e] && !so.hitGroups[e] {
				return invalid("association %d: unknown export %q", i, e)
			}
		}
	}

	id := gpucore.StateObjectID(d.newID())
	for e := range exports {
		so.identifiers[e] = shaderIdentifier(id, e)
	}
	for g := range so.hitGroups {
		so.identifiers[g] = shaderIdentifier(id, g)
	}
	d.stateObjects[id] = so
	slogger().Debug("wgpu: state object created", "id", id, "label", desc.Label,
		"exports", len(exports), "hitGroups", len(so.hitGroups), "recursion", so.recursion)
	return id, nil
}

// ShaderIdentifier returns the identifier of an export or hit group.
func (d *Device) ShaderIdentifier(so gpucore.StateObjectID, export string) ([]byte, error) {
	s, ok := d.stateObjects[so]
	if !ok {
		return nil, fmt.Errorf("%w: state object %d", ErrUnknownObject, so)
	}
	id, ok := s.identifiers[export]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %q", ErrUnknownExport, export, s.label)
	}
	return append([]byte(nil), id...), nil
}

// DestroyStateObject releases a state object.
func (d *Device) DestroyStateObject(id gpucore.StateObjectID) {
	delete(d.stateObjects, id)
}

// Emulated structure sizes. A bottom-level structure stores three
// float3 positions per triangle; a top-level structure stores the
// instance records verbatim.
const (
	triangleSize = 3 * 12
	scratchBase  = 256
)

// AccelerationStructurePrebuildInfo reports the sizes of the emulated
// structures.
func (d *Device) AccelerationStructurePrebuildInfo(inputs *gpucore.AccelerationStructureInputs) gpucore.PrebuildInfo {
	var result, scratch uint64
	if inputs.Type == gpucore.AccelerationStructureBottomLevel {
		var tris uint64
		for _, g := range inputs.Geometry {
			n := g.Triangles.IndexCount
			if n == 0 {
				n = g.Triangles.VertexCount
			}
			tris += uint64(n / 3)
		}
		result = tris * triangleSize
		scratch = scratchBase + tris*8
	} else {
		n := uint64(inputs.NumInstances)
		if n == 0 {
			n = 1
		}
		result = n * gpucore.InstanceDescSize
		scratch = scratchBase
	}
	info := gpucore.PrebuildInfo{
		ResultDataMaxSize: gpucore.Align(result, gpucore.AccelerationStructureAlignment),
		ScratchDataSize:   gpucore.Align(scratch, gpucore.AccelerationStructureAlignment),
	}
	if inputs.Flags&gpucore.BuildFlagAllowUpdate != 0 {
		info.UpdateScratchDataSize = info.ScratchDataSize
	}
	return info
}
