// Package dispatch implements the operator registry and dispatcher.
//
// An Operator holds a parsed schema and one kernel per dispatch key.
// Calls resolve a single key from the input tensors (device, gradient
// tracking, meta-ness) through an explicit priority order and invoke
// that key's kernel.
package dispatch

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// DispatchKey names a category under which a distinct kernel may be
// registered for the same operator.
type DispatchKey int

// Dispatch keys, low to high priority.
const (
	KeyMeta DispatchKey = iota // shape-only execution on meta tensors
	KeyCPU
	KeyWebGPU
	KeyAutograd // gradient computation
)

// String returns the key name.
func (k DispatchKey) String() string {
	switch k {
	case KeyMeta:
		return "Meta"
	case KeyCPU:
		return "CPU"
	case KeyWebGPU:
		return "WebGPU"
	case KeyAutograd:
		return "Autograd"
	default:
		return "Unknown"
	}
}

// deviceKeyOrder is the explicit priority order among device keys when
// an input set spans several device categories: the first key whose
// device is present wins.
var deviceKeyOrder = []DispatchKey{KeyWebGPU, KeyCPU}

// KeyForDevice maps a tensor device to its dispatch key.
func KeyForDevice(d tensor.Device) (DispatchKey, error) {
	switch d {
	case tensor.CPU:
		return KeyCPU, nil
	case tensor.WebGPU:
		return KeyWebGPU, nil
	case tensor.Meta:
		return KeyMeta, nil
	default:
		return 0, fmt.Errorf("no dispatch key for device %s", d)
	}
}
