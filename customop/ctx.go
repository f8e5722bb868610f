// Copyright 2025 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package customop

import (
	"fmt"

	"github.com/ember-ml/ember/internal/symbolic"
)

// ctxGetter is the ambient provider for the current fake-inference
// context. CallFake swaps it in for the duration of one invocation;
// outside such a window the default provider below is in effect.
var ctxGetter func() (*FakeImplCtx, error) = defaultCtxGetter

func defaultCtxGetter() (*FakeImplCtx, error) {
	return nil, fmt.Errorf("GetCtx should only be called inside a fake implementation invoked via CallFake")
}

// GetCtx returns the inference context for the currently executing
// fake implementation. It may only be called from inside a fake
// implementation run via CallFake.
func GetCtx() (*FakeImplCtx, error) {
	return ctxGetter()
}

// swapCtxGetter installs getter as the ambient context provider and
// returns a func that restores the previous one. Swaps follow stack
// discipline: the restore closure captures the provider in effect at
// swap time.
func swapCtxGetter(getter func() (*FakeImplCtx, error)) (restore func()) {
	prev := ctxGetter
	ctxGetter = getter
	return func() { ctxGetter = prev }
}

// FakeImplCtx is the context available to a fake implementation while
// it runs under CallFake. It gives the implementation access to the
// shape environment so it can allocate unbacked symbolic sizes for
// data-dependent output shapes.
type FakeImplCtx struct {
	shapeEnv *symbolic.ShapeEnv
	op       string
}

// ShapeEnv returns the shape environment the call runs under. It may
// be nil when the caller did not supply one.
func (c *FakeImplCtx) ShapeEnv() *symbolic.ShapeEnv {
	return c.shapeEnv
}

// NewDataDependentSymInt allocates a fresh unbacked symbolic integer
// for an output size that depends on input data rather than input
// shapes. The returned value carries the default size lower bound and
// no upper bound.
//
// When the shape environment is absent or does not allow operators
// with dynamic output shapes, the call fails with
// symbolic.DynamicOutputShapeError so the caller can fall back to a
// graph break or eager execution.
func (c *FakeImplCtx) NewDataDependentSymInt() (*symbolic.SymInt, error) {
	if c.shapeEnv == nil || !c.shapeEnv.AllowDynamicOutputShapeOps {
		return nil, &symbolic.DynamicOutputShapeError{Op: c.op}
	}
	return c.shapeEnv.CreateUnbackedSymInt(), nil
}

// ConstrainRange narrows the possible range of a symbolic integer
// previously returned by NewDataDependentSymInt. min and max are
// inclusive; a max of -1 leaves the upper bound unbounded.
func (c *FakeImplCtx) ConstrainRange(s *symbolic.SymInt, min, max int) error {
	if c.shapeEnv == nil {
		return fmt.Errorf("%s: no shape environment to constrain against", c.op)
	}
	return c.shapeEnv.ConstrainRange(s, min, max)
}
