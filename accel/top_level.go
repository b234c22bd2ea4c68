package accel

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// Instance places a bottom-level structure in the top-level structure.
type Instance struct {
	BLAS *BottomLevel

	// Transform is a 3x4 row-major affine transform.
	Transform [3][4]float32

	// InstanceID is visible to shaders as InstanceID().
	InstanceID uint32

	// Mask is ANDed with the ray's instance mask. Zero hides the instance.
	Mask uint8

	// HitGroupIndex is added to the hit group index of rays hitting it.
	HitGroupIndex uint32

	Flags gpucore.InstanceFlags
}

// IdentityInstance returns a visible instance of blas with the identity
// transform and hit group contribution 0.
func IdentityInstance(blas *BottomLevel) Instance {
	return Instance{
		BLAS:      blas,
		Transform: gpucore.IdentityTransform3x4,
		Mask:      0xFF,
	}
}

// TopLevel is a built top-level acceleration structure.
type TopLevel struct {
	device gpucore.Device

	Result  gpucore.ResourceID
	Address gpucore.GPUAddress
	Scratch gpucore.ResourceID

	// Instances is the upload buffer holding the marshaled instance records.
	Instances gpucore.ResourceID

	ResultSize    uint64
	ScratchSize   uint64
	InstanceCount uint32
}

// BuildTopLevel builds a top-level structure over instances, then submits
// the command list, waits for the GPU and reopens the command list. Every
// referenced bottom-level structure must have been recorded earlier on the
// same command list.
func (b *Builder) BuildTopLevel(instances []Instance) (*TopLevel, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	data := make([]byte, len(instances)*gpucore.InstanceDescSize)
	for i, inst := range instances {
		if inst.BLAS == nil {
			return nil, fmt.Errorf("%w: instance %d", ErrNilBottomLevel, i)
		}
		if inst.BLAS.Result == gpucore.InvalidID {
			return nil, fmt.Errorf("%w: instance %d", ErrReleased, i)
		}
		desc := gpucore.InstanceDesc{
			Transform:             inst.Transform,
			InstanceID:            inst.InstanceID,
			InstanceMask:          inst.Mask,
			HitGroupIndex:         inst.HitGroupIndex,
			Flags:                 inst.Flags,
			AccelerationStructure: inst.BLAS.Address,
		}
		desc.Marshal(data[i*gpucore.InstanceDescSize:])
	}

	instBuf, err := b.ctx.CreateUploadBuffer("tlas/instances", data)
	if err != nil {
		return nil, err
	}
	inputs := gpucore.AccelerationStructureInputs{
		Type:          gpucore.AccelerationStructureTopLevel,
		Flags:         b.opts.flags,
		NumInstances:  uint32(len(instances)),
		InstanceDescs: b.device.ResourceAddress(instBuf),
	}
	info := b.device.AccelerationStructurePrebuildInfo(&inputs)
	bufs, err := b.allocate("tlas", info)
	if err != nil {
		b.device.DestroyResource(instBuf)
		return nil, err
	}
	addr := b.record(&inputs, bufs)

	tlas := &TopLevel{
		device:        b.device,
		Result:        bufs.result,
		Address:       addr,
		Scratch:       bufs.scratch,
		Instances:     instBuf,
		ResultSize:    bufs.resultSize,
		ScratchSize:   bufs.scratchSize,
		InstanceCount: uint32(len(instances)),
	}

	if err := b.ctx.CloseAndExecuteCommandList(); err != nil {
		return nil, err
	}
	if err := b.ctx.WaitForGPU(); err != nil {
		return nil, err
	}
	if err := b.ctx.ResetAllocatorAndCommandList(b.ctx.FrameIndex()); err != nil {
		return nil, err
	}

	slogger().Info("accel: top level built",
		"instances", len(instances), "result", bufs.resultSize, "scratch", bufs.scratchSize)
	return tlas, nil
}

// Release destroys the structure, its scratch and its instance buffer.
func (s *TopLevel) Release() {
	if s == nil || s.Result == gpucore.InvalidID {
		return
	}
	s.device.DestroyResource(s.Instances)
	s.device.DestroyResource(s.Scratch)
	s.device.DestroyResource(s.Result)
	s.Result, s.Scratch, s.Instances, s.Address = gpucore.InvalidID, gpucore.InvalidID, gpucore.InvalidID, 0
}
