// Package cpu implements the pure-Go CPU compute backend.
package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// Backend implements tensor operations on the CPU.
type Backend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend with default parallelism.
func New() *Backend {
	return &Backend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "cpu"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return b.device
}

// Add performs element-wise addition.
func (b *Backend) Add(x, y *tensor.Tensor) *tensor.Tensor {
	return b.binaryOp("add", x, y, func(a, c float64) float64 { return a + c })
}

// Mul performs element-wise multiplication.
func (b *Backend) Mul(x, y *tensor.Tensor) *tensor.Tensor {
	return b.binaryOp("mul", x, y, func(a, c float64) float64 { return a * c })
}

// binaryOp applies f element-wise. Inputs may be in any physical
// layout; the result is contiguous.
func (b *Backend) binaryOp(name string, x, y *tensor.Tensor, f func(a, c float64) float64) *tensor.Tensor {
	if !x.Shape().Equal(y.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch: %v vs %v", name, x.Shape(), y.Shape()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, x.DType(), y.DType()))
	}

	out, err := tensor.New(x.Shape(), x.DType(), b.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	// Fast path for contiguous float32 inputs.
	if x.DType() == tensor.Float32 && x.IsContiguous() && y.IsContiguous() {
		xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
		for i := range od {
			od[i] = float32(f(float64(xd[i]), float64(yd[i])))
		}
		return out
	}

	n := x.NumElements()
	for i := 0; i < n; i++ {
		setFlat(out, i, f(x.At(i), y.At(i)))
	}
	return out
}

// setFlat writes into a contiguous tensor at flat logical index i.
func setFlat(t *tensor.Tensor, i int, v float64) {
	switch t.DType() {
	case tensor.Float32:
		t.AsFloat32()[i] = float32(v)
	case tensor.Float64:
		t.AsFloat64()[i] = v
	case tensor.Int64:
		t.AsInt64()[i] = int64(v)
	default:
		panic("unknown data type")
	}
}
