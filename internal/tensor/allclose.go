package tensor

import "math"

// AllClose reports whether all elements of a and b are equal within the
// given relative and absolute tolerances:
//
//	|a - b| <= atol + rtol * |b|
//
// Elements are compared in logical order, so tensors in different
// physical layouts compare equal when they hold the same values.
func AllClose(a, b *Tensor, rtol, atol float64) bool {
	if !a.Shape().Equal(b.Shape()) {
		return false
	}
	if a.IsMeta() || b.IsMeta() {
		// Meta tensors carry no data; closeness is shape equality.
		return a.IsMeta() && b.IsMeta()
	}

	n := a.NumElements()
	for i := 0; i < n; i++ {
		va, vb := a.At(i), b.At(i)
		if math.Abs(va-vb) > atol+rtol*math.Abs(vb) {
			return false
		}
	}
	return true
}
