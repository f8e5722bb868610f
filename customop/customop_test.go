// Copyright 2025 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package customop

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/internal/dispatch"
	"github.com/ember-ml/ember/internal/symbolic"
	"github.com/ember-ml/ember/internal/tensor"
)

func sinPrototype(x *tensor.Tensor) (*tensor.Tensor, error) {
	return nil, errors.New("no implementation")
}

func sinCPU(x *tensor.Tensor) (*tensor.Tensor, error) {
	out := x.Contiguous().Clone()
	data := out.AsFloat32()
	for i := range data {
		data[i] = float32(math.Sin(float64(data[i])))
	}
	return out, nil
}

func sinFake(x *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.NewMetaStrided(x.Shape(), x.Strides(), x.DType())
}

func defineSin(t *testing.T) *CustomOp {
	t.Helper()
	op, err := Define(dispatch.NewRegistry(), "mylib", "numpy_sin(Tensor x) -> Tensor", sinPrototype)
	require.NoError(t, err)
	return op
}

func TestDefine(t *testing.T) {
	op := defineSin(t)
	assert.Equal(t, "mylib::numpy_sin", op.Qualname())
}

func TestDefineRejectsReservedNamespace(t *testing.T) {
	for _, ns := range []string{"aten", "prim", "prims", "ember", "core"} {
		_, err := Define(dispatch.NewRegistry(), ns, "f(Tensor x) -> Tensor", sinPrototype)
		require.Error(t, err, ns)
		assert.Contains(t, err.Error(), "reserved")
	}
}

func TestDefineRejectsBadNamespace(t *testing.T) {
	_, err := Define(dispatch.NewRegistry(), "my::lib", "f(Tensor x) -> Tensor", sinPrototype)
	assert.Error(t, err)

	_, err = Define(dispatch.NewRegistry(), "", "f(Tensor x) -> Tensor", sinPrototype)
	assert.Error(t, err)
}

func TestDefineRejectsNonFunctionalSchema(t *testing.T) {
	cases := []string{
		"sin_(Tensor(a!) x) -> Tensor(a!)",   // mutation
		"narrow(Tensor(a) x) -> Tensor(a)",   // view
		"f(int x) -> Tensor",                 // no tensor input
		"f(Tensor x) -> ()",                  // no outputs
		"f(Tensor self) -> Tensor",           // reserved parameter name
	}
	for _, src := range cases {
		proto := sinPrototype
		if src == "f(int x) -> Tensor" {
			_, err := Define(dispatch.NewRegistry(), "mylib", src, func(x int64) (*tensor.Tensor, error) { return nil, nil })
			assert.Error(t, err, src)
			continue
		}
		_, err := Define(dispatch.NewRegistry(), "mylib", src, proto)
		assert.Error(t, err, src)
	}
}

func TestDefineRejectsMismatchedPrototype(t *testing.T) {
	_, err := Define(dispatch.NewRegistry(), "mylib",
		"f(Tensor x, int k) -> Tensor",
		func(x *tensor.Tensor) (*tensor.Tensor, error) { return x, nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestDefineDuplicate(t *testing.T) {
	reg := dispatch.NewRegistry()
	op, err := Define(reg, "mylib", "f(Tensor x) -> Tensor", sinPrototype)
	require.NoError(t, err)

	_, err = Define(reg, "mylib", "f(Tensor x) -> Tensor", sinPrototype)
	assert.Error(t, err, "redefining a live operator should fail")
	_ = op
}

func TestImplDeviceAndCall(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplDevice(sinCPU, "cpu"))

	x, _ := tensor.FromFloat32([]float32{0, math.Pi / 2}, tensor.Shape{2}, tensor.CPU)
	outs, err := op.Call(x)
	require.NoError(t, err)
	require.Len(t, outs, 1)

	got := outs[0].(*tensor.Tensor).AsFloat32()
	assert.InDelta(t, 0, got[0], 1e-6)
	assert.InDelta(t, 1, got[1], 1e-6)
}

func TestImplDeviceUnsupportedType(t *testing.T) {
	op := defineSin(t)
	err := op.ImplDevice(sinCPU, "cuda")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported device type")

	assert.Error(t, op.ImplDevice(sinCPU), "no device types")
}

func TestImplDeviceDeduplicates(t *testing.T) {
	op := defineSin(t)
	// The same device named twice registers once.
	require.NoError(t, op.ImplDevice(sinCPU, "cpu", "cpu"))
}

func TestAutogradFallbackErrors(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplDevice(sinCPU, "cpu"))

	x, _ := tensor.FromFloat32([]float32{1}, tensor.Shape{1}, tensor.CPU)
	x.RequireGrad()

	_, err := op.Call(x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "autograd has not been implemented for operator mylib::numpy_sin")
}

func TestAutogradFallbackForwards(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplDevice(sinCPU, "cpu"))

	// Without grad-requiring inputs the call redispatches to CPU.
	x, _ := tensor.FromFloat32([]float32{0}, tensor.Shape{1}, tensor.CPU)
	outs, err := op.Call(x)
	require.NoError(t, err)
	assert.Len(t, outs, 1)
}

func TestImplFakeAndCallFake(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplFake(sinFake))

	env := symbolic.NewShapeEnv(false)
	x, _ := tensor.NewMeta(tensor.Shape{2, 3}, tensor.Float32)

	outs, err := op.CallFake(env, x)
	require.NoError(t, err)
	require.Len(t, outs, 1)

	out := outs[0].(*tensor.Tensor)
	assert.True(t, out.IsMeta())
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 3}))
}

func TestImplFakeDuplicate(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplFake(sinFake))

	err := op.ImplFake(sinFake)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has a fake implementation registered at")
	assert.Contains(t, err.Error(), op.FakeImplLocation())
}

func TestImplFakeMismatchedSignature(t *testing.T) {
	op := defineSin(t)
	err := op.ImplFake(func(x *tensor.Tensor, k int64) (*tensor.Tensor, error) { return x, nil })
	assert.Error(t, err)
	assert.Empty(t, op.FakeImplLocation())
}

func TestCallFakeWithoutImpl(t *testing.T) {
	op := defineSin(t)
	x, _ := tensor.NewMeta(tensor.Shape{1}, tensor.Float32)
	_, err := op.CallFake(symbolic.NewShapeEnv(false), x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fake implementation")
}

func TestMetaDispatchUsesFakeImpl(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplFake(sinFake))

	// Plain dispatch on meta tensors reaches the fake implementation
	// through the kernel table.
	x, _ := tensor.NewMeta(tensor.Shape{4}, tensor.Float32)
	outs, err := op.Call(x)
	require.NoError(t, err)
	assert.True(t, outs[0].(*tensor.Tensor).IsMeta())
}

func TestGetCtxOutsideCallFake(t *testing.T) {
	_, err := GetCtx()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only be called inside a fake implementation")
}

func TestGetCtxInsideCallFake(t *testing.T) {
	op := defineSin(t)
	var sawCtx *FakeImplCtx
	require.NoError(t, op.ImplFake(func(x *tensor.Tensor) (*tensor.Tensor, error) {
		ctx, err := GetCtx()
		if err != nil {
			return nil, err
		}
		sawCtx = ctx
		return tensor.NewMeta(x.Shape(), x.DType())
	}))

	env := symbolic.NewShapeEnv(true)
	x, _ := tensor.NewMeta(tensor.Shape{1}, tensor.Float32)
	_, err := op.CallFake(env, x)
	require.NoError(t, err)
	require.NotNil(t, sawCtx)
	assert.Same(t, env, sawCtx.ShapeEnv())

	// The window closes with the call.
	_, err = GetCtx()
	assert.Error(t, err)
}

func TestGetCtxInsideMetaKernel(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplFake(func(x *tensor.Tensor) (*tensor.Tensor, error) {
		if _, err := GetCtx(); err != nil {
			return nil, err
		}
		return tensor.NewMeta(x.Shape(), x.DType())
	}))

	// Reaching the fake implementation via plain meta dispatch leaves
	// no shape environment: GetCtx must fail and point back at the
	// ImplFake registration site.
	x, _ := tensor.NewMeta(tensor.Shape{1}, tensor.Float32)
	_, err := op.Call(x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "during the meta kernel")
	assert.Contains(t, err.Error(), op.FakeImplLocation())
}

func TestNewDataDependentSymInt(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplFake(func(x *tensor.Tensor) (*tensor.Tensor, error) {
		ctx, err := GetCtx()
		if err != nil {
			return nil, err
		}
		u, err := ctx.NewDataDependentSymInt()
		if err != nil {
			return nil, err
		}
		if err := ctx.ConstrainRange(u, 2, 100); err != nil {
			return nil, err
		}
		return tensor.NewMeta(tensor.Shape{u.Hint()}, x.DType())
	}))

	x, _ := tensor.NewMeta(tensor.Shape{8}, tensor.Float32)

	// Allowed: an unbacked size materializes via its hint.
	outs, err := op.CallFake(symbolic.NewShapeEnv(true), x)
	require.NoError(t, err)
	out := outs[0].(*tensor.Tensor)
	assert.Equal(t, symbolic.DefaultMinSize, out.Shape()[0])

	// Disallowed: the typed dynamic-shape error surfaces.
	_, err = op.CallFake(symbolic.NewShapeEnv(false), x)
	require.Error(t, err)
	var dyn *symbolic.DynamicOutputShapeError
	require.ErrorAs(t, err, &dyn)
	assert.Equal(t, "mylib::numpy_sin", dyn.Op)
}

func TestCallFakeRestoresCtxOnPanic(t *testing.T) {
	op := defineSin(t)
	require.NoError(t, op.ImplFake(func(x *tensor.Tensor) (*tensor.Tensor, error) {
		panic("fake impl exploded")
	}))

	x, _ := tensor.NewMeta(tensor.Shape{1}, tensor.Float32)
	env := symbolic.NewShapeEnv(false)
	require.Panics(t, func() { _, _ = op.CallFake(env, x) })

	// The provider must be back to the outside-window default.
	_, err := GetCtx()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only be called inside a fake implementation")
}

func TestMultiOutputOperator(t *testing.T) {
	reg := dispatch.NewRegistry()
	op, err := Define(reg, "mylib", "split2(Tensor x) -> (Tensor, Tensor)",
		func(x *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) { return nil, nil, errors.New("no impl") })
	require.NoError(t, err)

	require.NoError(t, op.ImplDevice(func(x *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
		return x.Clone(), x.Clone(), nil
	}, "cpu"))

	x, _ := tensor.FromFloat32([]float32{1, 2}, tensor.Shape{2}, tensor.CPU)
	outs, err := op.Call(x)
	require.NoError(t, err)
	assert.Len(t, outs, 2)
}

func TestNonTensorArguments(t *testing.T) {
	reg := dispatch.NewRegistry()
	op, err := Define(reg, "mylib", "scale(Tensor x, float alpha, *, int reps=1) -> Tensor",
		func(x *tensor.Tensor, alpha float64, reps int64) (*tensor.Tensor, error) { return nil, errors.New("no impl") })
	require.NoError(t, err)

	require.NoError(t, op.ImplDevice(func(x *tensor.Tensor, alpha float64, reps int64) (*tensor.Tensor, error) {
		out := x.Clone()
		data := out.AsFloat32()
		for r := int64(0); r < reps; r++ {
			for i := range data {
				data[i] *= float32(alpha)
			}
		}
		return out, nil
	}, "cpu"))

	x, _ := tensor.FromFloat32([]float32{1, 2}, tensor.Shape{2}, tensor.CPU)
	outs, err := op.Call(x, 2.0, int64(2))
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 8}, outs[0].(*tensor.Tensor).AsFloat32())
}
