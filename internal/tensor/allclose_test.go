package tensor

import (
	"testing"
)

func TestAllCloseExact(t *testing.T) {
	a, _ := FromFloat32([]float32{1, 2, 3}, Shape{3}, CPU)
	b, _ := FromFloat32([]float32{1, 2, 3}, Shape{3}, CPU)
	if !AllClose(a, b, 0, 0) {
		t.Error("identical tensors should be close with zero tolerance")
	}
}

func TestAllCloseTolerance(t *testing.T) {
	a, _ := FromFloat32([]float32{1.0005}, Shape{1}, CPU)
	b, _ := FromFloat32([]float32{1.0}, Shape{1}, CPU)

	if !AllClose(a, b, 1e-3, 1e-3) {
		t.Error("difference within tolerance should be close")
	}
	if AllClose(a, b, 0, 1e-4) {
		t.Error("difference above tolerance should not be close")
	}
}

func TestAllCloseShapeMismatch(t *testing.T) {
	a, _ := FromFloat32([]float32{1, 2}, Shape{2}, CPU)
	b, _ := FromFloat32([]float32{1, 2}, Shape{2, 1}, CPU)
	if AllClose(a, b, 1, 1) {
		t.Error("different shapes should never be close")
	}
}

func TestAllCloseAcrossLayouts(t *testing.T) {
	a, _ := FromFloat32([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, CPU)

	buf, _ := New(Shape{2, 3}, Float32, CPU)
	b, _ := buf.AsStrided(Shape{2, 3}, []int{1, 2})
	if err := b.CopyFrom(a); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}

	if !AllClose(a, b, 0, 0) {
		t.Error("same values in different layouts should be close")
	}
}

func TestAllCloseMeta(t *testing.T) {
	a, _ := NewMeta(Shape{2, 3}, Float32)
	b, _ := NewMeta(Shape{2, 3}, Float32)
	c, _ := FromFloat32(make([]float32, 6), Shape{2, 3}, CPU)

	if !AllClose(a, b, 0, 0) {
		t.Error("meta tensors with equal shapes should be close")
	}
	if AllClose(a, c, 0, 0) {
		t.Error("meta and data tensors should not be close")
	}
}
