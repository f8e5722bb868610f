package cpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/parallel"
	"github.com/ember-ml/ember/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape: [N, C_in, H, W], weight shape: [C_out, C_in, K_h, K_w],
// output shape: [N, C_out, H_out, W_out] (contiguous).
//
// The input may be in any physical layout (e.g. channels-last strides);
// im2col resolves elements through the tensor's strides, so layout only
// affects traversal order, never the result.
//
// Algorithm:
//  1. Transform input patches into columns (im2col)
//  2. Multiply by the weight viewed as [C_out, C_in*K_h*K_w]
//  3. Rearrange to [N, C_out, H_out, W_out]
//
// Reference: "High Performance Convolutional Neural Networks for
// Document Processing" (Chellapilla et al., 2006).
func (b *Backend) Conv2D(input, weight *tensor.Tensor, params tensor.ConvParams) *tensor.Tensor {
	inShape := input.Shape()
	wShape := weight.Shape()

	if len(inShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inShape)))
	}
	if len(wShape) != 4 {
		panic(fmt.Sprintf("conv2d: weight must be 4D [C_out,C_in,K_h,K_w], got %dD", len(wShape)))
	}
	if inShape[1] != wShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != weight channels %d", inShape[1], wShape[1]))
	}
	if input.DType() != weight.DType() {
		panic(fmt.Sprintf("conv2d: dtype mismatch: %s vs %s", input.DType(), weight.DType()))
	}

	N, CIn, H, W := inShape[0], inShape[1], inShape[2], inShape[3]
	COut, KH, KW := wShape[0], wShape[2], wShape[3]

	HOut := params.OutSize(0, H, KH)
	WOut := params.OutSize(1, W, KW)
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", HOut, WOut))
	}

	output, err := tensor.New(tensor.Shape{N, COut, HOut, WOut}, input.DType(), b.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: failed to create output tensor: %v", err))
	}

	// The im2col matmul indexes the weight as a flat
	// [C_out, C_in*K_h*K_w] matrix, which requires contiguous layout.
	weight = weight.Contiguous()

	switch input.DType() {
	case tensor.Float32:
		b.conv2dFloat32(output, input, weight, N, CIn, H, W, COut, KH, KW, HOut, WOut, params)
	case tensor.Float64:
		b.conv2dFloat64(output, input, weight, N, CIn, H, W, COut, KH, KW, HOut, WOut, params)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}
	return output
}

func (b *Backend) conv2dFloat32(output, input, weight *tensor.Tensor, N, CIn, H, W, COut, KH, KW, HOut, WOut int, params tensor.ConvParams) {
	inputData := input.AsFloat32()
	weightData := weight.AsFloat32()
	outputData := output.AsFloat32()

	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float32, colHeight*colWidth)

	im2colFloat32(colBuf, inputData, input.Strides(), N, CIn, H, W, KH, KW, HOut, WOut, params)

	// weight: [C_out, C_in*K_h*K_w] @ colBuf^T: result [C_out, N*H_out*W_out]
	spatial := HOut * WOut
	parallel.For(COut, func(i int) {
		for j := 0; j < colHeight; j++ {
			sum := float32(0.0)
			row := weightData[i*colWidth : (i+1)*colWidth]
			col := colBuf[j*colWidth : (j+1)*colWidth]
			for k := range row {
				sum += row[k] * col[k]
			}
			// Rearrange on the fly: [c, n*spatial + p] -> [n, c, p]
			n := j / spatial
			p := j % spatial
			outputData[n*COut*spatial+i*spatial+p] = sum
		}
	}, b.parallel)
}

func (b *Backend) conv2dFloat64(output, input, weight *tensor.Tensor, N, CIn, H, W, COut, KH, KW, HOut, WOut int, params tensor.ConvParams) {
	inputData := input.AsFloat64()
	weightData := weight.AsFloat64()
	outputData := output.AsFloat64()

	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float64, colHeight*colWidth)

	im2colFloat64(colBuf, inputData, input.Strides(), N, CIn, H, W, KH, KW, HOut, WOut, params)

	spatial := HOut * WOut
	parallel.For(COut, func(i int) {
		for j := 0; j < colHeight; j++ {
			sum := 0.0
			row := weightData[i*colWidth : (i+1)*colWidth]
			col := colBuf[j*colWidth : (j+1)*colWidth]
			for k := range row {
				sum += row[k] * col[k]
			}
			n := j / spatial
			p := j % spatial
			outputData[n*COut*spatial+i*spatial+p] = sum
		}
	}, b.parallel)
}

// im2colFloat32 transforms the input into a column matrix.
//
// Input: [N, C, H, W] in an arbitrary strided layout.
// Output: colBuf [N*H_out*W_out, C*K_h*K_w], row-major.
//
// Each row of colBuf corresponds to one output position, each column
// to one weight element. Out-of-bounds reads are the zero padding.
func im2colFloat32(colBuf, inputData []float32, strides []int, N, C, H, W, KH, KW, HOut, WOut int, params tensor.ConvParams) {
	colWidth := C * KH * KW
	sN, sC, sH, sW := strides[0], strides[1], strides[2], strides[3]
	colIdx := 0

	for n := 0; n < N; n++ {
		for outH := 0; outH < HOut; outH++ {
			for outW := 0; outW < WOut; outW++ {
				hStart := outH*params.Stride[0] - params.Padding[0]
				wStart := outW*params.Stride[1] - params.Padding[1]
				bufIdx := colIdx * colWidth

				for c := 0; c < C; c++ {
					for kh := 0; kh < KH; kh++ {
						for kw := 0; kw < KW; kw++ {
							h := hStart + kh*params.Dilation[0]
							w := wStart + kw*params.Dilation[1]

							if h >= 0 && h < H && w >= 0 && w < W {
								colBuf[bufIdx] = inputData[n*sN+c*sC+h*sH+w*sW]
							} else {
								colBuf[bufIdx] = 0.0
							}
							bufIdx++
						}
					}
				}
				colIdx++
			}
		}
	}
}

func im2colFloat64(colBuf, inputData []float64, strides []int, N, C, H, W, KH, KW, HOut, WOut int, params tensor.ConvParams) {
	colWidth := C * KH * KW
	sN, sC, sH, sW := strides[0], strides[1], strides[2], strides[3]
	colIdx := 0

	for n := 0; n < N; n++ {
		for outH := 0; outH < HOut; outH++ {
			for outW := 0; outW < WOut; outW++ {
				hStart := outH*params.Stride[0] - params.Padding[0]
				wStart := outW*params.Stride[1] - params.Padding[1]
				bufIdx := colIdx * colWidth

				for c := 0; c < C; c++ {
					for kh := 0; kh < KH; kh++ {
						for kw := 0; kw < KW; kw++ {
							h := hStart + kh*params.Dilation[0]
							w := wStart + kw*params.Dilation[1]

							if h >= 0 && h < H && w >= 0 && w < W {
								colBuf[bufIdx] = inputData[n*sN+c*sC+h*sH+w*sW]
							} else {
								colBuf[bufIdx] = 0.0
							}
							bufIdx++
						}
					}
				}
				colIdx++
			}
		}
	}
}
