//go:build windows

package webgpu

import (
	"fmt"

	"github.com/ember-ml/ember/internal/tensor"
)

// Conv2D performs 2D convolution by lowering to a GPU matrix multiply.
// The im2col transform runs on the host; the matmul runs on the GPU.
//
// Input shape: [N, C_in, H, W], weight shape: [C_out, C_in, K_h, K_w],
// output shape: [N, C_out, H_out, W_out].
func (b *Backend) Conv2D(input, weight *tensor.Tensor, params tensor.ConvParams) *tensor.Tensor {
	inShape := input.Shape()
	wShape := weight.Shape()

	if len(inShape) != 4 || len(wShape) != 4 {
		panic(fmt.Sprintf("webgpu: conv2d requires 4D input and weight, got %v and %v", inShape, wShape))
	}
	if input.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: conv2d: only float32 is supported, got %s", input.DType()))
	}
	if inShape[1] != wShape[1] {
		panic(fmt.Sprintf("webgpu: conv2d: input channels %d != weight channels %d", inShape[1], wShape[1]))
	}

	N, CIn, H, W := inShape[0], inShape[1], inShape[2], inShape[3]
	COut, KH, KW := wShape[0], wShape[2], wShape[3]

	HOut := params.OutSize(0, H, KH)
	WOut := params.OutSize(1, W, KW)
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("webgpu: conv2d: invalid output dimensions: out_h=%d, out_w=%d", HOut, WOut))
	}

	// Host im2col, transposed so the GPU matmul sees
	// weight [C_out, K] @ col [K, N*H_out*W_out].
	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colData := make([]float32, colWidth*colHeight)
	inputData := input.AsFloat32()
	strides := input.Strides()
	sN, sC, sH, sW := strides[0], strides[1], strides[2], strides[3]

	col := 0
	for n := 0; n < N; n++ {
		for outH := 0; outH < HOut; outH++ {
			for outW := 0; outW < WOut; outW++ {
				hStart := outH*params.Stride[0] - params.Padding[0]
				wStart := outW*params.Stride[1] - params.Padding[1]
				row := 0
				for c := 0; c < CIn; c++ {
					for kh := 0; kh < KH; kh++ {
						for kw := 0; kw < KW; kw++ {
							h := hStart + kh*params.Dilation[0]
							w := wStart + kw*params.Dilation[1]
							if h >= 0 && h < H && w >= 0 && w < W {
								colData[row*colHeight+col] = inputData[n*sN+c*sC+h*sH+w*sW]
							}
							row++
						}
					}
				}
				col++
			}
		}
	}

	colTensor, err := tensor.FromFloat32(colData, tensor.Shape{colWidth, colHeight}, tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("webgpu: conv2d: %v", err))
	}

	weightMat, err := weight.Contiguous().AsStrided(tensor.Shape{COut, colWidth}, []int{colWidth, 1})
	if err != nil {
		panic(fmt.Sprintf("webgpu: conv2d: %v", err))
	}

	// [C_out, colHeight] = [C_out, K] @ [K, colHeight]
	flat := b.MatMul(weightMat, colTensor)

	// Rearrange [C_out, N*spatial] -> [N, C_out, spatial].
	spatial := HOut * WOut
	output, err := tensor.New(tensor.Shape{N, COut, HOut, WOut}, tensor.Float32, tensor.WebGPU)
	if err != nil {
		panic(fmt.Sprintf("webgpu: conv2d: %v", err))
	}
	flatData := flat.AsFloat32()
	outData := output.AsFloat32()
	for c := 0; c < COut; c++ {
		for n := 0; n < N; n++ {
			copy(
				outData[n*COut*spatial+c*spatial:n*COut*spatial+(c+1)*spatial],
				flatData[c*colHeight+n*spatial:c*colHeight+(n+1)*spatial],
			)
		}
	}
	return output
}
