package graphics

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// Timeline is a fence paired with the generation values submitted on it.
//
// A generation is a monotonically increasing fence value that identifies a
// batch of GPU work. Signal enqueues a new generation; Wait blocks until a
// generation has retired. Waits are unbounded.
type Timeline struct {
	device gpucore.Device
	fence  gpucore.FenceID
	last   uint64
}

// NewTimeline creates a fence starting at generation initial.
func NewTimeline(device gpucore.Device, initial uint64) (*Timeline, error) {
	f, err := device.CreateFence(initial)
	if err != nil {
		return nil, fmt.Errorf("graphics: create fence: %w", err)
	}
	return &Timeline{device: device, fence: f, last: initial}, nil
}

// Signal enqueues the next generation and returns it.
func (t *Timeline) Signal() (uint64, error) {
	gen := t.last + 1
	return gen, t.SignalValue(gen)
}

// SignalValue enqueues a signal of an explicit generation value.
func (t *Timeline) SignalValue(gen uint64) error {
	if err := t.device.Signal(t.fence, gen); err != nil {
		return fmt.Errorf("graphics: signal fence to %d: %w", gen, err)
	}
	if gen > t.last {
		t.last = gen
	}
	return nil
}

// Last returns the most recently signaled generation.
func (t *Timeline) Last() uint64 {
	return t.last
}

// Reached reports whether the GPU has retired generation gen.
func (t *Timeline) Reached(gen uint64) bool {
	return t.device.CompletedValue(t.fence) >= gen
}

// Wait blocks until generation gen has retired. It returns immediately,
// without a device wait, when gen already completed.
func (t *Timeline) Wait(gen uint64) error {
	if t.Reached(gen) {
		return nil
	}
	if err := t.device.WaitForFence(t.fence, gen); err != nil {
		return fmt.Errorf("graphics: wait for fence value %d: %w", gen, err)
	}
	return nil
}

// Flush signals a new generation and waits for it.
func (t *Timeline) Flush() error {
	gen, err := t.Signal()
	if err != nil {
		return err
	}
	return t.Wait(gen)
}

// Destroy releases the fence.
func (t *Timeline) Destroy() {
	if t.fence != gpucore.InvalidID {
		t.device.DestroyFence(t.fence)
		t.fence = gpucore.InvalidID
	}
}
