package graphics

import "errors"

// Context errors.
var (
	// ErrNilDevice is returned when creating a Context without a device.
	ErrNilDevice = errors.New("graphics: device is nil")

	// ErrNilSwapChain is returned when creating a Context without a swap chain.
	ErrNilSwapChain = errors.New("graphics: swap chain is nil")

	// ErrContextClosed is returned when operating on a closed Context.
	ErrContextClosed = errors.New("graphics: context closed")

	// ErrDescriptorHeapExhausted is returned when the SRV/UAV region of the
	// descriptor heap has no room for a reservation.
	ErrDescriptorHeapExhausted = errors.New("graphics: descriptor heap exhausted")

	// ErrReservationTooLarge is returned when a constant buffer does not fit
	// in the upload ring at all.
	ErrReservationTooLarge = errors.New("graphics: constant buffer larger than upload ring")

	// ErrEmptyBuffer is returned when creating a buffer with no data.
	ErrEmptyBuffer = errors.New("graphics: buffer data is empty")

	// ErrSlotOutOfRange is returned when a texture slot is outside the table.
	ErrSlotOutOfRange = errors.New("graphics: texture slot out of range")

	// ErrSlotTableFinalized is returned when adding to a finalized slot table.
	ErrSlotTableFinalized = errors.New("graphics: slot table already finalized")

	// ErrInvalidSize is returned for zero-area textures or swap chains.
	ErrInvalidSize = errors.New("graphics: invalid size")
)
