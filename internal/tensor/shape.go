package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major (contiguous) strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// StrideOrdered calculates strides realizing a physical memory ordering.
// order[i] gives the rank of dimension i: the dimension with order 0 is
// innermost (stride 1), the dimension with the highest order is outermost.
//
// Example: an NCHW shape with order {3, 0, 2, 1} yields channels-last
// (NHWC) physical layout:
//
//	Shape{N, C, H, W}.StrideOrdered([]int{3, 0, 2, 1})
//	// strides: {H*W*C, 1, W*C, C}
func (s Shape) StrideOrdered(order []int) ([]int, error) {
	if len(order) != len(s) {
		return nil, fmt.Errorf("stride order length %d does not match shape rank %d", len(order), len(s))
	}

	// Invert order: dimOfRank[r] = dimension whose stride rank is r.
	dimOfRank := make([]int, len(s))
	seen := make([]bool, len(s))
	for dim, rank := range order {
		if rank < 0 || rank >= len(s) {
			return nil, fmt.Errorf("stride order entry %d out of range for rank-%d shape", rank, len(s))
		}
		if seen[rank] {
			return nil, fmt.Errorf("stride order %v is not a permutation", order)
		}
		seen[rank] = true
		dimOfRank[rank] = dim
	}

	strides := make([]int, len(s))
	acc := 1
	for r := 0; r < len(s); r++ {
		dim := dimOfRank[r]
		strides[dim] = acc
		acc *= s[dim]
	}
	return strides, nil
}

// offsetOf converts a flat logical index into a physical element offset
// using the given strides. Logical order is row-major over the shape.
func (s Shape) offsetOf(flat int, strides []int) int {
	offset := 0
	for i := len(s) - 1; i >= 0; i-- {
		offset += (flat % s[i]) * strides[i]
		flat /= s[i]
	}
	return offset
}
