package graphics

// Default limits of the shared CBV/SRV/UAV descriptor heap and the constant
// buffer upload ring.
const (
	// NumBackBuffers is the default swap chain length and frame-in-flight count.
	NumBackBuffers = 2

	// MaxConstantBuffers is the number of CBV slots at the start of the heap
	// and the number of 256-byte chunks in the upload ring.
	MaxConstantBuffers = 1000

	// MaxTextureDescriptors is the number of SRV/UAV slots after the CBV slots.
	MaxTextureDescriptors = 1000
)

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := graphics.New(device, swapChain,
//	    graphics.WithConstantBufferCount(2000),
//	    graphics.WithUploadRingGuard(true))
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	constantBuffers    uint32
	textureDescriptors uint32
	ringGuard          bool
	label              string
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		constantBuffers:    MaxConstantBuffers,
		textureDescriptors: MaxTextureDescriptors,
		label:              "raytrace",
	}
}

// WithConstantBufferCount sets the number of CBV slots and 256-byte upload
// ring chunks. Values below 1 are ignored.
func WithConstantBufferCount(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.constantBuffers = n
		}
	}
}

// WithTextureDescriptorCount sets the number of SRV/UAV slots.
// Values below 1 are ignored.
func WithTextureDescriptorCount(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.textureDescriptors = n
		}
	}
}

// WithUploadRingGuard enables overrun detection on the constant buffer
// upload ring. When the bytes written by the frames still in flight exceed
// the ring capacity, a warning is logged. Wrap-around behavior is unchanged.
func WithUploadRingGuard(enabled bool) Option {
	return func(o *options) {
		o.ringGuard = enabled
	}
}

// WithLabel sets the prefix of debug labels given to created resources.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
