// Copyright 2025 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor is the public surface of Ember's tensor core.
//
// It re-exports the internal tensor types so user code and custom
// operator implementations can construct and inspect tensors without
// importing internal packages:
//
//	import (
//	    "github.com/ember-ml/ember/backend/cpu"
//	    "github.com/ember-ml/ember/tensor"
//	)
//
//	x := tensor.Zeros(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	y := cpu.New().Add(x, x)
package tensor

import (
	"math/rand"

	"github.com/ember-ml/ember/internal/tensor"
)

// Tensor is a strided, reference-semantics tensor over a flat byte
// buffer. Views created with AsStrided share the buffer; Clone and
// Contiguous copy it.
type Tensor = tensor.Tensor

// Shape is the list of dimension sizes, outermost first.
type Shape = tensor.Shape

// DataType identifies the element type of a tensor.
type DataType = tensor.DataType

// Supported element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int64   = tensor.Int64
)

// Device identifies where a tensor's data lives.
type Device = tensor.Device

// Supported devices. Meta tensors carry shape and dtype but no data.
const (
	CPU    = tensor.CPU
	WebGPU = tensor.WebGPU
	Meta   = tensor.Meta
)

// Backend is the compute interface implemented by each device backend.
type Backend = tensor.Backend

// ConvParams bundles the per-axis stride, padding, and dilation of a
// 2-D convolution.
type ConvParams = tensor.ConvParams

// New allocates a zeroed contiguous tensor.
func New(shape Shape, dtype DataType, device Device) (*Tensor, error) {
	return tensor.New(shape, dtype, device)
}

// NewMeta creates a contiguous meta tensor: shape and dtype only, no
// backing data.
func NewMeta(shape Shape, dtype DataType) (*Tensor, error) {
	return tensor.NewMeta(shape, dtype)
}

// NewMetaStrided creates a meta tensor with explicit strides.
func NewMetaStrided(shape Shape, strides []int, dtype DataType) (*Tensor, error) {
	return tensor.NewMetaStrided(shape, strides, dtype)
}

// Zeros allocates a zeroed tensor, panicking on an invalid shape.
func Zeros(shape Shape, dtype DataType, device Device) *Tensor {
	return tensor.Zeros(shape, dtype, device)
}

// Rand fills a new tensor with uniform values from rng.
func Rand(rng *rand.Rand, shape Shape, dtype DataType, device Device) *Tensor {
	return tensor.Rand(rng, shape, dtype, device)
}

// FromFloat32 wraps a float32 slice as a tensor of the given shape.
func FromFloat32(data []float32, shape Shape, device Device) (*Tensor, error) {
	return tensor.FromFloat32(data, shape, device)
}

// FromInt64 wraps an int64 slice as a tensor of the given shape.
func FromInt64(data []int64, shape Shape, device Device) (*Tensor, error) {
	return tensor.FromInt64(data, shape, device)
}

// AllClose reports whether a and b have the same shape and all
// elements satisfy |a-b| <= atol + rtol*|b|.
func AllClose(a, b *Tensor, rtol, atol float64) bool {
	return tensor.AllClose(a, b, rtol, atol)
}

// DefaultConvParams returns stride 1, no padding, dilation 1.
func DefaultConvParams() ConvParams {
	return tensor.DefaultConvParams()
}
