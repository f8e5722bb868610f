package tensor

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
//
// Meta is not a physical device: a Meta tensor carries only
// shape/stride/dtype metadata and owns no data buffer. It is the
// currency of fake (shape-only) operator implementations.
const (
	CPU Device = iota
	WebGPU
	Meta
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	case Meta:
		return "meta"
	default:
		return "unknown"
	}
}
