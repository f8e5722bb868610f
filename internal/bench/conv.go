package bench

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ember-ml/ember/internal/tensor"
)

// channelsLastOrder places the channel axis innermost for a 4-D NCHW
// tensor: N stays outermost, then H, W, and C with stride 1.
var channelsLastOrder = []int{3, 0, 2, 1}

// ToChannelsLast returns a copy of a 4-D NCHW tensor whose memory is
// laid out channels-last (NHWC strides) while the logical shape stays
// NCHW. The element values are preserved.
func ToChannelsLast(t *tensor.Tensor) (*tensor.Tensor, error) {
	if t.Dim() != 4 {
		return nil, fmt.Errorf("bench: channels-last layout needs a 4-D tensor, got %d dims", t.Dim())
	}
	strides, err := t.Shape().StrideOrdered(channelsLastOrder)
	if err != nil {
		return nil, err
	}

	// Allocate fresh storage, view it with channels-last strides,
	// then copy element-wise in logical order.
	buf, err := tensor.New(t.Shape(), t.DType(), t.Device())
	if err != nil {
		return nil, err
	}
	out, err := buf.AsStrided(t.Shape(), strides)
	if err != nil {
		return nil, err
	}
	if err := out.CopyFrom(t); err != nil {
		return nil, err
	}
	return out, nil
}

// IsChannelsLast reports whether a 4-D tensor's strides follow the
// channels-last ordering.
func IsChannelsLast(t *tensor.Tensor) bool {
	if t.Dim() != 4 {
		return false
	}
	want, err := t.Shape().StrideOrdered(channelsLastOrder)
	if err != nil {
		return false
	}
	got := t.Strides()
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// VariantResult holds the timing for one memory-layout variant.
type VariantResult struct {
	Name   string
	MeanMS float64
	Times  []time.Duration
}

// Result is the outcome of one conv2d layout benchmark.
type Result struct {
	Config     Config
	Contiguous VariantResult
	ChanLast   VariantResult
}

// Speedup returns how many times faster the channels-last variant ran
// relative to the contiguous baseline.
func (r Result) Speedup() float64 {
	if r.ChanLast.MeanMS == 0 {
		return 0
	}
	return r.Contiguous.MeanMS / r.ChanLast.MeanMS
}

// RunConv benchmarks the same convolution on contiguous and
// channels-last inputs and checks the two results agree within the
// configured tolerances before reporting timings.
func RunConv(b tensor.Backend, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	x := tensor.Rand(rng, tensor.Shape(cfg.InputShape), tensor.Float32, b.Device())
	w := tensor.Rand(rng, tensor.Shape(cfg.WeightShape), tensor.Float32, b.Device())

	xcl, err := ToChannelsLast(x)
	if err != nil {
		return nil, err
	}
	if !tensor.AllClose(x, xcl, cfg.Rtol, cfg.Atol) {
		return nil, fmt.Errorf("bench: channels-last conversion changed tensor values")
	}

	params := tensor.ConvParams{Stride: cfg.Stride, Padding: cfg.Padding, Dilation: cfg.Dilation}

	ref := b.Conv2D(x, w, params)
	got := b.Conv2D(xcl, w, params)
	if !tensor.AllClose(ref, got, cfg.Rtol, cfg.Atol) {
		return nil, fmt.Errorf("bench: conv2d results differ between contiguous and channels-last inputs")
	}

	res := &Result{Config: cfg}
	res.Contiguous = timeVariant("contiguous", cfg, func() { b.Conv2D(x, w, params) })
	res.ChanLast = timeVariant("channels_last", cfg, func() { b.Conv2D(xcl, w, params) })
	return res, nil
}

func timeVariant(name string, cfg Config, f func()) VariantResult {
	for i := 0; i < cfg.Warmup; i++ {
		f()
	}

	times := make([]time.Duration, cfg.Reps)
	var total time.Duration
	for i := 0; i < cfg.Reps; i++ {
		start := time.Now()
		f()
		times[i] = time.Since(start)
		total += times[i]
	}

	return VariantResult{
		Name:   name,
		MeanMS: float64(total) / float64(time.Millisecond) / float64(cfg.Reps),
		Times:  times,
	}
}
