// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/raytrace/gpucore"
)

// Device is a gpucore.Device backed by a HAL device and queue.
//
// Like the interface it implements, Device is not safe for concurrent use.
type Device struct {
	opts options

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	owned    bool

	nextID       uint64
	resources    map[gpucore.ResourceID]*resource
	heaps        map[gpucore.DescriptorHeapID]*descriptorHeap
	rootSigs     map[gpucore.RootSignatureID]*gpucore.RootSignatureDesc
	stateObjects map[gpucore.StateObjectID]*stateObject
	fences       map[gpucore.FenceID]*fence
	lists        []*CommandList

	// submitFence retires command buffers; submitted is its last value.
	submitFence hal.Fence
	submitted   uint64

	traversal   *traversal
	tierChecked bool
	tier        gpucore.RaytracingTier
	tierErr     error
}

var _ gpucore.Device = (*Device)(nil)

// Open creates a HAL instance on the configured backend, selects a
// discrete or integrated adapter (falling back to the first one) and opens
// a device on it. The returned Device owns the instance and the device.
func Open(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	backend, ok := hal.GetBackend(o.backend)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, o.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	d, err := newDevice(openDev.Device, openDev.Queue, o)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.owned = true
	slogger().Info("wgpu: device opened",
		"adapter", selected.Info.Name, "type", selected.Info.DeviceType, "backend", o.backend)
	return d, nil
}

// NewFromHAL wraps an existing HAL device and queue. The caller keeps
// ownership of both.
func NewFromHAL(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNoHAL
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newDevice(device, queue, o)
}

// NewFromProvider wraps the HAL device and queue of a shared device
// provider. The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	return NewFromHAL(device, queue, opts...)
}

func newDevice(device hal.Device, queue hal.Queue, o options) (*Device, error) {
	submitFence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create submit fence: %w", err)
	}
	return &Device{
		opts:         o,
		device:       device,
		queue:        queue,
		submitFence:  submitFence,
		resources:    make(map[gpucore.ResourceID]*resource),
		heaps:        make(map[gpucore.DescriptorHeapID]*descriptorHeap),
		rootSigs:     make(map[gpucore.RootSignatureID]*gpucore.RootSignatureDesc),
		stateObjects: make(map[gpucore.StateObjectID]*stateObject),
		fences:       make(map[gpucore.FenceID]*fence),
	}, nil
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) label(name string) string {
	return d.opts.label + "/" + name
}

// HAL returns the underlying HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// RaytracingTier reports RaytracingTier1_0 once the traversal kernel has
// compiled and its pipeline was created. The check runs once; a failure is
// returned as an error together with RaytracingTierNotSupported.
func (d *Device) RaytracingTier() (gpucore.RaytracingTier, error) {
	if !d.opts.raytracing {
		return gpucore.RaytracingTierNotSupported, nil
	}
	if !d.tierChecked {
		d.tierChecked = true
		t, err := newTraversal(d)
		if err != nil {
			d.tier, d.tierErr = gpucore.RaytracingTierNotSupported, err
			slogger().Warn("wgpu: emulated ray tracing unavailable", "err", err)
		} else {
			d.traversal, d.tier = t, gpucore.RaytracingTier1_0
			slogger().Info("wgpu: emulated ray tracing ready", "tier", d.tier)
		}
	}
	return d.tier, d.tierErr
}

// Close waits for submitted work and releases every object the device
// still tracks. HAL objects passed to NewFromHAL are not destroyed.
func (d *Device) Close() {
	if d.device == nil {
		return
	}
	if d.submitted > 0 {
		if err := d.waitHAL(d.submitFence, d.submitted); err != nil {
			slogger().Warn("wgpu: wait on close", "err", err)
		}
	}
	for _, l := range d.lists {
		l.release()
	}
	d.lists = nil
	for id := range d.resources {
		d.DestroyResource(id)
	}
	for id := range d.fences {
		d.DestroyFence(id)
	}
	if d.traversal != nil {
		d.traversal.destroy(d.device)
		d.traversal = nil
	}
	d.device.DestroyFence(d.submitFence)
	if d.owned {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device, d.queue, d.instance = nil, nil, nil
	slogger().Debug("wgpu: device closed")
}

// === Fences ===

type fence struct {
	hal       hal.Fence
	signaled  uint64
	completed uint64
}

// CreateFence creates a fence. Values up to initial count as completed.
func (d *Device) CreateFence(initial uint64) (gpucore.FenceID, error) {
	f, err := d.device.CreateFence()
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create fence: %w", err)
	}
	id := gpucore.FenceID(d.newID())
	d.fences[id] = &fence{hal: f, signaled: initial, completed: initial}
	return id, nil
}

// Signal enqueues a signal of fence to value behind all submitted work.
func (d *Device) Signal(id gpucore.FenceID, value uint64) error {
	f, ok := d.fences[id]
	if !ok {
		return fmt.Errorf("%w: fence %d", ErrUnknownObject, id)
	}
	if err := d.queue.Submit(nil, f.hal, value); err != nil {
		return fmt.Errorf("wgpu: signal fence %d to %d: %w", id, value, err)
	}
	f.signaled = value
	return nil
}

// CompletedValue polls the fence without blocking.
func (d *Device) CompletedValue(id gpucore.FenceID) uint64 {
	f, ok := d.fences[id]
	if !ok {
		return 0
	}
	if f.completed < f.signaled {
		if done, err := d.device.Wait(f.hal, f.signaled, 0); err == nil && done {
			f.completed = f.signaled
		}
	}
	return f.completed
}

// WaitForFence blocks until fence reaches value.
func (d *Device) WaitForFence(id gpucore.FenceID, value uint64) error {
	f, ok := d.fences[id]
	if !ok {
		return fmt.Errorf("%w: fence %d", ErrUnknownObject, id)
	}
	if value <= f.completed {
		return nil
	}
	if err := d.waitHAL(f.hal, value); err != nil {
		return fmt.Errorf("wgpu: wait fence %d for %d: %w", id, value, err)
	}
	f.completed = value
	return nil
}

// waitHAL waits in slices of opts.waitSlice, warning after each one.
func (d *Device) waitHAL(f hal.Fence, value uint64) error {
	start := time.Now()
	for {
		done, err := d.device.Wait(f, value, d.opts.waitSlice)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		slogger().Warn("wgpu: still waiting for GPU", "value", value, "elapsed", time.Since(start))
	}
}

// DestroyFence releases a fence.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	f, ok := d.fences[id]
	if !ok {
		return
	}
	d.device.DestroyFence(f.hal)
	delete(d.fences, id)
}
