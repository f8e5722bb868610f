package tensor

import (
	"fmt"
	"math/rand"
)

// Zeros creates a zero-filled contiguous tensor.
func Zeros(shape Shape, dtype DataType, device Device) *Tensor {
	t, err := New(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return t
}

// Rand creates a tensor with uniform random values in [0, 1).
// Only float dtypes are supported.
// Note: uses math/rand, which is appropriate for benchmark inputs.
func Rand(rng *rand.Rand, shape Shape, dtype DataType, device Device) *Tensor {
	t := Zeros(shape, dtype, device)
	switch dtype {
	case Float32:
		data := t.AsFloat32()
		for i := range data {
			data[i] = rng.Float32()
		}
	case Float64:
		data := t.AsFloat64()
		for i := range data {
			data[i] = rng.Float64()
		}
	default:
		panic("rand: only float dtypes are supported")
	}
	return t
}

// FromFloat32 creates a Float32 tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromFloat32(data []float32, shape Shape, device Device) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := New(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	copy(t.AsFloat32(), data)
	return t, nil
}

// FromInt64 creates an Int64 tensor from a Go slice.
func FromInt64(data []int64, shape Shape, device Device) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := New(shape, Int64, device)
	if err != nil {
		return nil, err
	}
	copy(t.AsInt64(), data)
	return t, nil
}
