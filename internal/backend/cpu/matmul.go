package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
// Inputs must be float32 or float64; non-contiguous inputs are
// compacted first.
func (b *Backend) MatMul(x, y *tensor.Tensor) *tensor.Tensor {
	if x.Dim() != 2 || y.Dim() != 2 {
		panic(fmt.Sprintf("matmul: requires 2D tensors, got %v and %v", x.Shape(), y.Shape()))
	}
	if x.Shape()[1] != y.Shape()[0] {
		panic(fmt.Sprintf("matmul: shape mismatch: %v @ %v", x.Shape(), y.Shape()))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch: %s vs %s", x.DType(), y.DType()))
	}

	x = x.Contiguous()
	y = y.Contiguous()

	M, K, N := x.Shape()[0], x.Shape()[1], y.Shape()[1]
	out, err := tensor.New(tensor.Shape{M, N}, x.DType(), b.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		matmulFloat32(out.AsFloat32(), x.AsFloat32(), y.AsFloat32(), M, K, N, b.parallel)
	case tensor.Float64:
		matmulFloat64(out.AsFloat64(), x.AsFloat64(), y.AsFloat64(), M, K, N, b.parallel)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", x.DType()))
	}
	return out
}

func matmulFloat32(out, a, c []float32, M, K, N int, cfg parallel.Config) {
	parallel.For(M, func(i int) {
		for k := 0; k < K; k++ {
			av := a[i*K+k]
			if av == 0 {
				continue
			}
			row := out[i*N : (i+1)*N]
			col := c[k*N : (k+1)*N]
			for j := range row {
				row[j] += av * col[j]
			}
		}
	}, cfg)
}

func matmulFloat64(out, a, c []float64, M, K, N int, cfg parallel.Config) {
	parallel.For(M, func(i int) {
		for k := 0; k < K; k++ {
			av := a[i*K+k]
			if av == 0 {
				continue
			}
			row := out[i*N : (i+1)*N]
			col := c[k*N : (k+1)*N]
			for j := range row {
				row[j] += av * col[j]
			}
		}
	}, cfg)
}
