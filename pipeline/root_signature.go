package pipeline

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// Global root parameter indices.
const (
	ParamOutput                = 0
	ParamAccelerationStructure = 1
	ParamSceneConstants        = 2
)

// Local root parameter indices.
const (
	LocalParamConstants = 0
	LocalParamGeometry  = 1
)

// HitGroupLocalBytes is the size of the local root arguments in the hit
// group record: one descriptor handle per local root parameter.
const HitGroupLocalBytes = 2 * gpucore.DescriptorHandleSize

// GlobalRootSignatureDesc describes the root signature shared by every
// shader of a dispatch.
func GlobalRootSignatureDesc() *gpucore.RootSignatureDesc {
	return &gpucore.RootSignatureDesc{
		Label: "raytracing/global",
		Parameters: []gpucore.RootParameter{
			ParamOutput: {
				Type: gpucore.RootParameterDescriptorTable,
				Ranges: []gpucore.DescriptorRange{{
					Type:                 gpucore.DescriptorRangeUAV,
					NumDescriptors:       1,
					BaseRegister:         0,
					OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend,
				}},
			},
			ParamAccelerationStructure: {
				Type:           gpucore.RootParameterSRV,
				ShaderRegister: 0,
			},
			ParamSceneConstants: {
				Type: gpucore.RootParameterDescriptorTable,
				Ranges: []gpucore.DescriptorRange{{
					Type:                 gpucore.DescriptorRangeCBV,
					NumDescriptors:       1,
					BaseRegister:         0,
					OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend,
				}},
			},
		},
		Flags: gpucore.RootSignatureFlagNone,
	}
}

// LocalRootSignatureDesc describes the per-record root signature whose
// arguments live in the shader table.
func LocalRootSignatureDesc() *gpucore.RootSignatureDesc {
	return &gpucore.RootSignatureDesc{
		Label: "raytracing/local",
		Parameters: []gpucore.RootParameter{
			LocalParamConstants: {
				Type: gpucore.RootParameterDescriptorTable,
				Ranges: []gpucore.DescriptorRange{{
					Type:                 gpucore.DescriptorRangeCBV,
					NumDescriptors:       1,
					BaseRegister:         1,
					OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend,
				}},
			},
			LocalParamGeometry: {
				Type: gpucore.RootParameterDescriptorTable,
				Ranges: []gpucore.DescriptorRange{{
					Type:                 gpucore.DescriptorRangeSRV,
					NumDescriptors:       2,
					BaseRegister:         1,
					OffsetFromTableStart: gpucore.DescriptorRangeOffsetAppend,
				}},
			},
		},
		Flags: gpucore.RootSignatureFlagLocal,
	}
}

// createRootSignatures creates the global and local root signatures.
func createRootSignatures(device gpucore.Device) (global, local gpucore.RootSignatureID, err error) {
	global, err = device.CreateRootSignature(GlobalRootSignatureDesc())
	if err != nil {
		return 0, 0, fmt.Errorf("pipeline: create global root signature: %w", err)
	}
	local, err = device.CreateRootSignature(LocalRootSignatureDesc())
	if err != nil {
		device.DestroyRootSignature(global)
		return 0, 0, fmt.Errorf("pipeline: create local root signature: %w", err)
	}
	return global, local, nil
}
