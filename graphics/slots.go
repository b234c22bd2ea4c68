package graphics

import (
	"fmt"

	"github.com/gogpu/raytrace/gpucore"
)

// MaxTextureSlots is the default size of a SlotTable.
const MaxTextureSlots = 128

// SlotTable maps texture slot numbers to non-shader-visible SRV handles and
// tracks the highest slot in use. Finalize copies slots 0 through Highest
// into adjacent shader-visible slots so shaders can index them from one
// table base.
type SlotTable struct {
	handles   []gpucore.CPUDescriptorHandle
	used      []bool
	highest   int
	finalized bool
	base      gpucore.GPUDescriptorHandle
}

// NewSlotTable returns a table with size slots.
func NewSlotTable(size int) *SlotTable {
	if size < 1 {
		size = MaxTextureSlots
	}
	return &SlotTable{
		handles: make([]gpucore.CPUDescriptorHandle, size),
		used:    make([]bool, size),
		highest: -1,
	}
}

// Len returns the number of slots.
func (t *SlotTable) Len() int { return len(t.handles) }

// Highest returns the highest slot set, or -1 if the table is empty.
func (t *SlotTable) Highest() int { return t.highest }

// Finalized reports whether Finalize has run.
func (t *SlotTable) Finalized() bool { return t.finalized }

// Base returns the GPU handle of slot 0 after Finalize.
func (t *SlotTable) Base() gpucore.GPUDescriptorHandle { return t.base }

// Set stores handle in slot.
func (t *SlotTable) Set(slot int, handle gpucore.CPUDescriptorHandle) error {
	if t.finalized {
		return ErrSlotTableFinalized
	}
	if slot < 0 || slot >= len(t.handles) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, slot, len(t.handles))
	}
	t.handles[slot] = handle
	t.used[slot] = true
	if slot > t.highest {
		t.highest = slot
	}
	return nil
}

// Get returns the handle in slot and whether the slot is set.
func (t *SlotTable) Get(slot int) (gpucore.CPUDescriptorHandle, bool) {
	if slot < 0 || slot >= len(t.handles) {
		return 0, false
	}
	return t.handles[slot], t.used[slot]
}

// Finalize reserves Highest()+1 adjacent SRV slots in the context heap and
// copies every set slot into its position. Unset slots below Highest keep
// their reserved position and stay empty. Finalizing twice returns the same
// base handle.
func (t *SlotTable) Finalize(ctx *Context) (gpucore.GPUDescriptorHandle, error) {
	if t.finalized {
		return t.base, nil
	}
	if t.highest < 0 {
		t.finalized = true
		return 0, nil
	}
	n := uint32(t.highest + 1)
	first, err := ctx.heap.ReserveSRVSlots(n)
	if err != nil {
		return 0, err
	}
	for i := 0; i <= t.highest; i++ {
		if !t.used[i] {
			continue
		}
		ctx.device.CopyDescriptors(ctx.heap.CPUHandle(first+uint32(i)), t.handles[i], 1)
	}
	t.base = ctx.heap.GPUHandle(first)
	t.finalized = true
	return t.base, nil
}
