package tensor

// ConvParams carries the hyper-parameters of a 2D convolution.
// Order within each pair is (height, width).
type ConvParams struct {
	Stride   [2]int
	Padding  [2]int
	Dilation [2]int
}

// DefaultConvParams returns unit stride/dilation with no padding.
func DefaultConvParams() ConvParams {
	return ConvParams{
		Stride:   [2]int{1, 1},
		Padding:  [2]int{0, 0},
		Dilation: [2]int{1, 1},
	}
}

// OutSize computes the output spatial extent for one axis.
func (p ConvParams) OutSize(axis, in, kernel int) int {
	effective := p.Dilation[axis]*(kernel-1) + 1
	return (in+2*p.Padding[axis]-effective)/p.Stride[axis] + 1
}

// Backend defines the interface that compute backends implement.
// Backends handle the actual computation for tensor operations.
type Backend interface {
	// Element-wise binary operations
	Add(a, b *Tensor) *Tensor
	Mul(a, b *Tensor) *Tensor

	// Matrix operations
	MatMul(a, b *Tensor) *Tensor

	// Conv2D performs 2D convolution.
	// Input shape: [N, C_in, H, W], weight shape: [C_out, C_in, K_h, K_w].
	Conv2D(input, weight *Tensor, params ConvParams) *Tensor

	// Metadata
	Name() string
	Device() Device
}
