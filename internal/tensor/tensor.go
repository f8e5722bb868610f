package tensor

import (
	"fmt"
	"unsafe"
)

// Tensor is the framework's low-level tensor representation: a byte
// buffer plus shape, strides, dtype and device. Views created with
// AsStrided share the buffer of their base tensor.
//
// A Meta tensor (device Meta) has no buffer at all; it exists so fake
// (shape-only) operator implementations can describe outputs without
// allocating data.
type Tensor struct {
	data         []byte // nil for Meta tensors
	shape        Shape
	stride       []int
	dtype        DataType
	device       Device
	requiresGrad bool
}

// New creates a contiguous tensor with the given shape and type.
// Memory is allocated and zero-initialized.
func New(shape Shape, dtype DataType, device Device) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if device == Meta {
		return NewMeta(shape, dtype)
	}

	return &Tensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// NewMeta creates a contiguous metadata-only tensor on the Meta device.
func NewMeta(shape Shape, dtype DataType) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Tensor{
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: Meta,
	}, nil
}

// NewMetaStrided creates a metadata-only tensor with explicit strides.
func NewMetaStrided(shape Shape, strides []int, dtype DataType) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("strides %v do not match shape %v", strides, shape)
	}
	return &Tensor{
		shape:  shape.Clone(),
		stride: append([]int(nil), strides...),
		dtype:  dtype,
		device: Meta,
	}, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's memory strides, in elements.
func (t *Tensor) Strides() []int {
	return t.stride
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// Device returns the tensor's compute device.
func (t *Tensor) Device() Device {
	return t.device
}

// Dim returns the number of dimensions.
func (t *Tensor) Dim() int {
	return len(t.shape)
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (t *Tensor) ByteSize() int {
	return t.NumElements() * t.dtype.Size()
}

// IsMeta reports whether this is a metadata-only tensor.
func (t *Tensor) IsMeta() bool {
	return t.device == Meta
}

// IsContiguous reports whether the tensor's strides describe standard
// row-major contiguous layout.
func (t *Tensor) IsContiguous() bool {
	want := t.shape.ComputeStrides()
	for i := range want {
		if t.stride[i] != want[i] {
			return false
		}
	}
	return true
}

// AsStrided returns a view over the same buffer with explicit strides.
// The caller is responsible for strides that stay within the buffer.
func (t *Tensor) AsStrided(shape Shape, strides []int) (*Tensor, error) {
	if t.IsMeta() {
		return NewMetaStrided(shape, strides, t.dtype)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("strides %v do not match shape %v", strides, shape)
	}
	maxOffset := 0
	for i := range shape {
		maxOffset += (shape[i] - 1) * strides[i]
	}
	if (maxOffset+1)*t.dtype.Size() > len(t.data) {
		return nil, fmt.Errorf("strides %v for shape %v exceed buffer of %d bytes", strides, shape, len(t.data))
	}
	return &Tensor{
		data:   t.data, // shared
		shape:  shape.Clone(),
		stride: append([]int(nil), strides...),
		dtype:  t.dtype,
		device: t.device,
	}, nil
}

// Data returns the raw byte slice.
// Panics for Meta tensors, which carry no data.
func (t *Tensor) Data() []byte {
	if t.IsMeta() {
		panic("meta tensors have no data")
	}
	return t.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (t *Tensor) AsFloat32() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", t.dtype))
	}
	data := t.Data()
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (t *Tensor) AsFloat64() []float64 {
	if t.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", t.dtype))
	}
	data := t.Data()
	return unsafe.Slice((*float64)(unsafe.Pointer(&data[0])), len(data)/8)
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (t *Tensor) AsInt64() []int64 {
	if t.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", t.dtype))
	}
	data := t.Data()
	return unsafe.Slice((*int64)(unsafe.Pointer(&data[0])), len(data)/8)
}

// At returns the element at flat logical index i (row-major over the
// shape), resolved through the tensor's strides. Float32 values are
// widened to float64.
func (t *Tensor) At(i int) float64 {
	offset := t.shape.offsetOf(i, t.stride)
	switch t.dtype {
	case Float32:
		return float64(t.AsFloat32()[offset])
	case Float64:
		return t.AsFloat64()[offset]
	case Int64:
		return float64(t.AsInt64()[offset])
	default:
		panic("unknown data type")
	}
}

// setAt stores v at flat logical index i through the tensor's strides.
func (t *Tensor) setAt(i int, v float64) {
	offset := t.shape.offsetOf(i, t.stride)
	switch t.dtype {
	case Float32:
		t.AsFloat32()[offset] = float32(v)
	case Float64:
		t.AsFloat64()[offset] = v
	case Int64:
		t.AsInt64()[offset] = int64(v)
	default:
		panic("unknown data type")
	}
}

// CopyFrom copies all elements of src into t, translating between the
// two tensors' physical layouts. Shapes and dtypes must match.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("copy shape mismatch: %v vs %v", t.shape, src.shape)
	}
	if t.dtype != src.dtype {
		return fmt.Errorf("copy dtype mismatch: %s vs %s", t.dtype, src.dtype)
	}
	if t.IsMeta() || src.IsMeta() {
		return fmt.Errorf("cannot copy data to or from a meta tensor")
	}

	n := t.NumElements()
	for i := 0; i < n; i++ {
		t.setAt(i, src.At(i))
	}
	return nil
}

// Contiguous returns a tensor with standard row-major layout holding
// the same logical elements. Returns t itself if already contiguous.
func (t *Tensor) Contiguous() *Tensor {
	if t.IsContiguous() {
		return t
	}
	out, err := New(t.shape, t.dtype, t.device)
	if err != nil {
		panic(err) // shape already validated
	}
	if !t.IsMeta() {
		if err := out.CopyFrom(t); err != nil {
			panic(err)
		}
	}
	return out
}

// Clone creates a deep copy of the tensor in its current layout.
func (t *Tensor) Clone() *Tensor {
	clone := &Tensor{
		shape:  t.shape.Clone(),
		stride: append([]int(nil), t.stride...),
		dtype:  t.dtype,
		device: t.device,
	}
	if !t.IsMeta() {
		clone.data = append([]byte(nil), t.data...)
	}
	return clone
}

// RequireGrad marks this tensor as requiring gradient computation.
// Returns the tensor itself for chaining.
func (t *Tensor) RequireGrad() *Tensor {
	t.requiresGrad = true
	return t
}

// RequiresGrad reports whether this tensor requires gradient computation.
func (t *Tensor) RequiresGrad() bool {
	return t.requiresGrad
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", t.dtype, t.shape, t.device)
}
