package pipeline

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// Default shader configuration: a float3 color payload and float2
// barycentric attributes.
const (
	DefaultPayloadSize   = 12
	DefaultAttributeSize = 8
)

// Subobject positions in the state object description.
const (
	subobjectRayGen = iota
	subobjectMiss
	subobjectClosestHit
	subobjectHitGroup
	subobjectShaderConfig
	subobjectShaderConfigAssociation
	subobjectLocalRootSignature
	subobjectLocalRootSignatureAssociation
	subobjectGlobalRootSignature
	subobjectPipelineConfig

	subobjectCount
)

// associatedExports are the exports bound to the shader config and the
// local root signature.
func associatedExports() []string {
	return []string{ExportRayGen, ExportMiss, HitGroupName}
}

// StateObjectDesc describes the ray tracing pipeline: one library subobject
// per exported stage, the hit group, the shader config and its
// association, the local root signature and its association, the global
// root signature and the pipeline config.
func StateObjectDesc(lib *Library, global, local gpucore.RootSignatureID, cfg Config) *gpucore.StateObjectDesc {
	library := func(export string) gpucore.Subobject {
		return gpucore.Subobject{
			Type:    gpucore.SubobjectDXILLibrary,
			Library: &gpucore.LibraryDesc{Bytecode: lib.Bytecode, Exports: []string{export}},
		}
	}

	subs := make([]gpucore.Subobject, subobjectCount)
	subs[subobjectRayGen] = library(ExportRayGen)
	subs[subobjectMiss] = library(ExportMiss)
	subs[subobjectClosestHit] = library(ExportClosestHit)
	subs[subobjectHitGroup] = gpucore.Subobject{
		Type: gpucore.SubobjectHitGroup,
		HitGroup: &gpucore.HitGroupDesc{
			Name:       HitGroupName,
			Type:       gpucore.HitGroupTriangles,
			ClosestHit: ExportClosestHit,
		},
	}
	subs[subobjectShaderConfig] = gpucore.Subobject{
		Type: gpucore.SubobjectShaderConfig,
		ShaderConfig: &gpucore.ShaderConfig{
			MaxPayloadSize:   cfg.PayloadSize,
			MaxAttributeSize: cfg.AttributeSize,
		},
	}
	subs[subobjectShaderConfigAssociation] = gpucore.Subobject{
		Type: gpucore.SubobjectExportsAssociation,
		Association: &gpucore.ExportsAssociation{
			Subobject: subobjectShaderConfig,
			Exports:   associatedExports(),
		},
	}
	subs[subobjectLocalRootSignature] = gpucore.Subobject{
		Type:          gpucore.SubobjectLocalRootSignature,
		RootSignature: local,
	}
	subs[subobjectLocalRootSignatureAssociation] = gpucore.Subobject{
		Type: gpucore.SubobjectExportsAssociation,
		Association: &gpucore.ExportsAssociation{
			Subobject: subobjectLocalRootSignature,
			Exports:   associatedExports(),
		},
	}
	subs[subobjectGlobalRootSignature] = gpucore.Subobject{
		Type:          gpucore.SubobjectGlobalRootSignature,
		RootSignature: global,
	}
	subs[subobjectPipelineConfig] = gpucore.Subobject{
		Type:           gpucore.SubobjectPipelineConfig,
		PipelineConfig: &gpucore.PipelineConfig{MaxTraceRecursionDepth: cfg.RecursionDepth},
	}

	return &gpucore.StateObjectDesc{Label: "raytracing/pipeline", Subobjects: subs}
}

func createStateObject(device gpucore.Device, lib *Library, global, local gpucore.RootSignatureID, cfg Config) (gpucore.StateObjectID, error) {
	so, err := device.CreateStateObject(StateObjectDesc(lib, global, local, cfg))
	if err != nil {
		return 0, fmt.Errorf("pipeline: create state object from %s: %w", lib.Name, err)
	}
	return so, nil
}
