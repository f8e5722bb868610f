// Copyright 2025 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package customop provides the user-facing API for defining custom
// operators that behave like built-in operators across the framework's
// subsystems: device dispatch, gradient computation, and fake
// (shape-only) execution.
//
// Defining an operator is a two step process: Define creates the
// operator from a schema, then implementations are attached per
// subsystem:
//
//	reg := dispatch.NewRegistry()
//	op, err := customop.Define(reg, "mylib",
//		"numpy_sin(Tensor x) -> Tensor",
//		func(x *tensor.Tensor) (*tensor.Tensor, error) { ... })
//	err = op.ImplDevice(sinCPU, "cpu")
//	err = op.ImplFake(sinFake)
//	outs, err := op.Call(x)
package customop

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ember-ml/ember/internal/dispatch"
	"github.com/ember-ml/ember/internal/schema"
	"github.com/ember-ml/ember/internal/symbolic"
)

// supportedDeviceTypeToKey lists the device categories a custom
// operator implementation can target. When an input set spans both,
// the category earlier in priority order wins (see dispatch).
var supportedDeviceTypeToKey = map[string]dispatch.DispatchKey{
	"cpu":    dispatch.KeyCPU,
	"webgpu": dispatch.KeyWebGPU,
}

// reservedNamespaces may not be used for custom operators, to avoid
// anything that could look like framework internals.
var reservedNamespaces = map[string]bool{
	"aten":  true,
	"prim":  true,
	"prims": true,
	"ember": true,
	"core":  true,
}

// CustomOp is the handle for one defined custom operator.
//
// A CustomOp keeps the only strong reference the framework holds to
// its dispatcher entry; dropping the handle lets the registry slot be
// collected.
type CustomOp struct {
	lib      *dispatch.Library
	op       *dispatch.Operator
	qualname string
	fakeImpl *funcAndLocation
}

type funcAndLocation struct {
	fn       any
	location string
}

// Define creates a new custom operator in the given registry.
//
// The schema declares the operator's name and signature, e.g.
// "numpy_sin(Tensor x) -> Tensor". Only functional schemas with at
// least one Tensor input and at least one output are accepted.
// prototype is a Go function whose signature must match the schema:
// one parameter per declared argument (Tensor -> *tensor.Tensor,
// int -> int64, float -> float64, bool -> bool) and one result per
// declared return plus a trailing error.
//
// Until a gradient rule is implemented for custom operators, Define
// installs a default gradient-path behavior that fails when any input
// requires gradients, and otherwise forwards the call with gradient
// tracking disabled.
func Define(reg *dispatch.Registry, ns, schemaStr string, prototype any) (*CustomOp, error) {
	if err := validateNamespace(ns); err != nil {
		return nil, err
	}

	s, err := schema.Parse(schemaStr)
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateFunctional(s); err != nil {
		return nil, err
	}
	if err := dispatch.CheckSignature(s, prototype); err != nil {
		return nil, fmt.Errorf("define %s::%s: %w", ns, s.Name, err)
	}

	lib := dispatch.NewLibrary(ns, reg)
	op, err := lib.Define(s)
	if err != nil {
		return nil, err
	}

	c := &CustomOp{
		lib:      lib,
		op:       op,
		qualname: op.Qualname(),
	}

	// Gradient rules are not supported yet: the default Autograd
	// kernel errors when gradients are actually requested and
	// otherwise redispatches below the gradient key.
	qualname := c.qualname
	notImplemented := dispatch.MakeKernel(s, func(args []any) ([]any, error) {
		for _, t := range op.TensorArgs(args) {
			if t.RequiresGrad() {
				return nil, fmt.Errorf("autograd has not been implemented for operator %s", qualname)
			}
		}
		return op.RedispatchBelow(dispatch.KeyAutograd, args)
	})
	if err := op.RegisterKernel(dispatch.KeyAutograd, notImplemented); err != nil {
		return nil, err
	}

	return c, nil
}

// Qualname returns the namespace-qualified operator name.
func (c *CustomOp) Qualname() string {
	return c.qualname
}

// Handle returns the underlying dispatcher operator handle.
func (c *CustomOp) Handle() *dispatch.Operator {
	return c.op
}

// ImplDevice registers fn as the concrete kernel for one or more
// device categories. The supported categories, in order of priority,
// are "webgpu" and "cpu": when the operator is passed tensors from
// both categories, the webgpu implementation is selected.
func (c *CustomOp) ImplDevice(fn any, deviceTypes ...string) error {
	if len(deviceTypes) == 0 {
		return fmt.Errorf("%s: ImplDevice requires at least one device type", c.qualname)
	}

	keys := make(map[dispatch.DispatchKey]bool)
	for _, dt := range deviceTypes {
		key, ok := supportedDeviceTypeToKey[dt]
		if !ok {
			return fmt.Errorf("%s: unsupported device type %q; supported device types are 'cpu' and 'webgpu'", c.qualname, dt)
		}
		keys[key] = true
	}

	for key := range keys {
		if err := c.op.RegisterKernel(key, fn); err != nil {
			return err
		}
	}
	return nil
}

// ImplFake registers the operator's fake implementation: a kernel with
// the operator's signature that computes only output metadata
// (shape/strides/dtype/device), given meta tensors as inputs.
//
// At most one fake implementation may be registered per operator; a
// second registration fails and names the first registration's source
// location. The implementation runs both for explicit CallFake
// invocations (where GetCtx returns a live inference context) and for
// plain dispatch on meta tensors (where there is no shape environment
// and GetCtx fails, pointing back at this registration site).
func (c *CustomOp) ImplFake(fn any) error {
	_, file, line, _ := runtime.Caller(1)
	location := fmt.Sprintf("%s:%d", file, line)

	if c.fakeImpl != nil {
		return fmt.Errorf(
			"attempting to register a fake implementation for operator %s that already has a fake implementation registered at %s; this is not supported",
			c.qualname, c.fakeImpl.location)
	}
	if err := dispatch.CheckSignature(c.op.Schema(), fn); err != nil {
		return fmt.Errorf("%s: ImplFake: %w", c.qualname, err)
	}

	c.fakeImpl = &funcAndLocation{fn: fn, location: location}

	qualname, s := c.qualname, c.op.Schema()
	metaKernel := dispatch.MakeKernel(s, func(args []any) ([]any, error) {
		// A plain meta run has no shape environment; consulting the
		// inference context here means the operator has a
		// data-dependent output shape and no meta kernel can exist.
		restore := swapCtxGetter(func() (*FakeImplCtx, error) {
			return nil, fmt.Errorf(
				"attempted to call GetCtx during the meta kernel for %s. "+
					"You have presumably called GetCtx because the operator has a data-dependent output shape; "+
					"if so, there is no such meta implementation and this error is the correct behavior. "+
					"Otherwise, please remove the call to GetCtx in the implementation registered with ImplFake at %s",
				qualname, location)
		})
		defer restore()
		return dispatch.Invoke(s, qualname, fn, args)
	})
	return c.op.RegisterKernel(dispatch.KeyMeta, metaKernel)
}

// FakeImplLocation returns the source location of the registered fake
// implementation, or "" if none is registered.
func (c *CustomOp) FakeImplLocation() string {
	if c.fakeImpl == nil {
		return ""
	}
	return c.fakeImpl.location
}

// Call dispatches directly through the operator handle with boxed
// positional arguments, bypassing any higher-level call caching. The
// implementation is selected by the input tensors' device categories.
func (c *CustomOp) Call(args ...any) ([]any, error) {
	return c.op.CallBoxed(args...)
}

// CallFake runs the operator's fake implementation under the given
// shape environment. For the duration of the call the ambient
// inference context is a live FakeImplCtx bound to env; it is restored
// on every exit path, including panics.
func (c *CustomOp) CallFake(env *symbolic.ShapeEnv, args ...any) ([]any, error) {
	if c.fakeImpl == nil {
		return nil, fmt.Errorf("operator %s has no fake implementation registered", c.qualname)
	}

	ctx := &FakeImplCtx{shapeEnv: env, op: c.qualname}
	restore := swapCtxGetter(func() (*FakeImplCtx, error) {
		return ctx, nil
	})
	defer restore()

	return dispatch.Invoke(c.op.Schema(), c.qualname, c.fakeImpl.fn, args)
}

func validateNamespace(ns string) error {
	if strings.Contains(ns, "::") {
		return fmt.Errorf("namespace %q must not contain the '::' separator", ns)
	}
	if ns == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if reservedNamespaces[ns] {
		return fmt.Errorf("namespace %q is reserved, please choose something else", ns)
	}
	return nil
}
