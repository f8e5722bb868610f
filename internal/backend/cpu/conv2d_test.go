package cpu

import (
	"math/rand"
	"testing"

	"github.com/ember-ml/ember/internal/tensor"
)

func TestConv2D_BasicForward(t *testing.T) {
	backend := New()

	// Input: [1, 1, 3, 3] - single channel 3x3 image
	input, _ := tensor.FromFloat32([]float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, tensor.Shape{1, 1, 3, 3}, tensor.CPU)

	// Kernel: [1, 1, 2, 2] - diagonal kernel
	weight, _ := tensor.FromFloat32([]float32{
		1, 0,
		0, 1,
	}, tensor.Shape{1, 1, 2, 2}, tensor.CPU)

	output := backend.Conv2D(input, weight, tensor.DefaultConvParams())

	expectedShape := tensor.Shape{1, 1, 2, 2}
	if !output.Shape().Equal(expectedShape) {
		t.Fatalf("Expected shape %v, got %v", expectedShape, output.Shape())
	}

	// Diagonal sums of each 2x2 patch.
	expected := []float32{6, 8, 12, 14}
	outputData := output.AsFloat32()
	for i, exp := range expected {
		if outputData[i] != exp {
			t.Errorf("Output[%d]: expected %.1f, got %.1f", i, exp, outputData[i])
		}
	}
}

func TestConv2D_StrideAndPadding(t *testing.T) {
	backend := New()

	input, _ := tensor.FromFloat32([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}, tensor.Shape{1, 1, 4, 4}, tensor.CPU)

	// Sum kernel.
	weight, _ := tensor.FromFloat32([]float32{
		1, 1,
		1, 1,
	}, tensor.Shape{1, 1, 2, 2}, tensor.CPU)

	params := tensor.ConvParams{
		Stride:   [2]int{2, 2},
		Padding:  [2]int{1, 1},
		Dilation: [2]int{1, 1},
	}
	output := backend.Conv2D(input, weight, params)

	// out = (4 + 2*1 - 2)/2 + 1 = 3
	expectedShape := tensor.Shape{1, 1, 3, 3}
	if !output.Shape().Equal(expectedShape) {
		t.Fatalf("Expected shape %v, got %v", expectedShape, output.Shape())
	}

	// Corner patches read zero padding.
	expected := []float32{
		1, 5, 4,
		14, 34, 20,
		13, 29, 16,
	}
	outputData := output.AsFloat32()
	for i, exp := range expected {
		if outputData[i] != exp {
			t.Errorf("Output[%d]: expected %.1f, got %.1f", i, exp, outputData[i])
		}
	}
}

func TestConv2D_Dilation(t *testing.T) {
	backend := New()

	input, _ := tensor.FromFloat32([]float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, tensor.Shape{1, 1, 3, 3}, tensor.CPU)

	weight, _ := tensor.FromFloat32([]float32{
		1, 1,
		1, 1,
	}, tensor.Shape{1, 1, 2, 2}, tensor.CPU)

	params := tensor.ConvParams{
		Stride:   [2]int{1, 1},
		Padding:  [2]int{0, 0},
		Dilation: [2]int{2, 2},
	}
	output := backend.Conv2D(input, weight, params)

	// Effective kernel size 3: single output position reading the
	// four corners of the input.
	expectedShape := tensor.Shape{1, 1, 1, 1}
	if !output.Shape().Equal(expectedShape) {
		t.Fatalf("Expected shape %v, got %v", expectedShape, output.Shape())
	}
	if got := output.AsFloat32()[0]; got != 20 {
		t.Errorf("Output[0]: expected 20, got %.1f", got)
	}
}

func TestConv2D_MultiChannel(t *testing.T) {
	backend := New()

	// Two input channels, two output channels.
	input, _ := tensor.FromFloat32([]float32{
		// channel 0
		1, 2,
		3, 4,
		// channel 1
		5, 6,
		7, 8,
	}, tensor.Shape{1, 2, 2, 2}, tensor.CPU)

	weight, _ := tensor.FromFloat32([]float32{
		// out 0: pick channel 0
		1, 0,
		// out 1: pick channel 1
		0, 1,
	}, tensor.Shape{2, 2, 1, 1}, tensor.CPU)

	output := backend.Conv2D(input, weight, tensor.DefaultConvParams())

	expectedShape := tensor.Shape{1, 2, 2, 2}
	if !output.Shape().Equal(expectedShape) {
		t.Fatalf("Expected shape %v, got %v", expectedShape, output.Shape())
	}
	expected := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	outputData := output.AsFloat32()
	for i, exp := range expected {
		if outputData[i] != exp {
			t.Errorf("Output[%d]: expected %.1f, got %.1f", i, exp, outputData[i])
		}
	}
}

// TestConv2D_ChannelsLastInput verifies the result is independent of
// the input's physical memory layout.
func TestConv2D_ChannelsLastInput(t *testing.T) {
	backend := New()
	rng := rand.New(rand.NewSource(3))

	x := tensor.Rand(rng, tensor.Shape{2, 3, 8, 8}, tensor.Float32, tensor.CPU)
	w := tensor.Rand(rng, tensor.Shape{4, 3, 3, 3}, tensor.Float32, tensor.CPU)

	// Repack x with channel innermost.
	strides, err := x.Shape().StrideOrdered([]int{3, 0, 2, 1})
	if err != nil {
		t.Fatalf("StrideOrdered failed: %v", err)
	}
	buf, _ := tensor.New(x.Shape(), tensor.Float32, tensor.CPU)
	xcl, err := buf.AsStrided(x.Shape(), strides)
	if err != nil {
		t.Fatalf("AsStrided failed: %v", err)
	}
	if err := xcl.CopyFrom(x); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}

	params := tensor.ConvParams{
		Stride:   [2]int{2, 2},
		Padding:  [2]int{1, 1},
		Dilation: [2]int{1, 1},
	}
	ref := backend.Conv2D(x, w, params)
	got := backend.Conv2D(xcl, w, params)

	if !ref.Shape().Equal(got.Shape()) {
		t.Fatalf("shape mismatch: %v vs %v", ref.Shape(), got.Shape())
	}
	if !tensor.AllClose(ref, got, 1e-3, 1e-3) {
		t.Error("channels-last input produced different conv2d results")
	}
}

// TestConv2D_MismatchDetected makes sure the closeness check used by
// the layout benchmark actually discriminates.
func TestConv2D_MismatchDetected(t *testing.T) {
	backend := New()
	rng := rand.New(rand.NewSource(4))

	x := tensor.Rand(rng, tensor.Shape{1, 2, 6, 6}, tensor.Float32, tensor.CPU)
	w := tensor.Rand(rng, tensor.Shape{2, 2, 3, 3}, tensor.Float32, tensor.CPU)

	ref := backend.Conv2D(x, w, tensor.DefaultConvParams())
	other := backend.Conv2D(x, w, tensor.DefaultConvParams())
	other.AsFloat32()[0] += 1.0

	if tensor.AllClose(ref, other, 1e-3, 1e-3) {
		t.Error("AllClose failed to detect a perturbed element")
	}
}

func TestConv2D_Float64(t *testing.T) {
	backend := New()

	input, _ := tensor.New(tensor.Shape{1, 1, 2, 2}, tensor.Float64, tensor.CPU)
	copy(input.AsFloat64(), []float64{1, 2, 3, 4})

	weight, _ := tensor.New(tensor.Shape{1, 1, 2, 2}, tensor.Float64, tensor.CPU)
	copy(weight.AsFloat64(), []float64{1, 1, 1, 1})

	output := backend.Conv2D(input, weight, tensor.DefaultConvParams())
	if got := output.AsFloat64()[0]; got != 10 {
		t.Errorf("Output[0]: expected 10, got %v", got)
	}
}

func TestConv2D_InvalidInputs(t *testing.T) {
	backend := New()

	x3d, _ := tensor.New(tensor.Shape{1, 2, 2}, tensor.Float32, tensor.CPU)
	w, _ := tensor.New(tensor.Shape{1, 1, 2, 2}, tensor.Float32, tensor.CPU)

	assertPanics(t, "3D input", func() {
		backend.Conv2D(x3d, w, tensor.DefaultConvParams())
	})

	x, _ := tensor.New(tensor.Shape{1, 3, 4, 4}, tensor.Float32, tensor.CPU)
	assertPanics(t, "channel mismatch", func() {
		backend.Conv2D(x, w, tensor.DefaultConvParams())
	})
}

func assertPanics(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	f()
}
