//go:build !windows

// Package webgpu implements the WebGPU compute backend.
// On platforms without the wgpu native library this stub takes its
// place so the rest of the framework builds unchanged.
package webgpu

import (
	"errors"

	"github.com/ember-ml/ember/internal/tensor"
)

// Backend is the unavailable-platform placeholder for the WebGPU backend.
type Backend struct{}

// New reports that WebGPU is not available on this platform.
func New() (*Backend, error) {
	return nil, errors.New("webgpu: backend not available on this platform")
}

// Release is a no-op on this platform.
func (b *Backend) Release() {}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "webgpu"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// Add is unavailable on this platform.
func (b *Backend) Add(_, _ *tensor.Tensor) *tensor.Tensor {
	panic("webgpu: backend not available on this platform")
}

// Mul is unavailable on this platform.
func (b *Backend) Mul(_, _ *tensor.Tensor) *tensor.Tensor {
	panic("webgpu: backend not available on this platform")
}

// MatMul is unavailable on this platform.
func (b *Backend) MatMul(_, _ *tensor.Tensor) *tensor.Tensor {
	panic("webgpu: backend not available on this platform")
}

// Conv2D is unavailable on this platform.
func (b *Backend) Conv2D(_, _ *tensor.Tensor, _ tensor.ConvParams) *tensor.Tensor {
	panic("webgpu: backend not available on this platform")
}
