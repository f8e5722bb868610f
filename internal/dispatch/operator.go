package dispatch

import (
	"fmt"
	"reflect"

	"github.com/ember-ml/ember/internal/schema"
	"github.com/ember-ml/ember/internal/tensor"
)

// Operator is a registered operator handle: a schema plus one kernel
// per dispatch key.
type Operator struct {
	qualname string // "ns::name" or "ns::name.overload"
	schema   *schema.Schema
	kernels  map[DispatchKey]reflect.Value
}

func newOperator(qualname string, s *schema.Schema) *Operator {
	return &Operator{
		qualname: qualname,
		schema:   s,
		kernels:  make(map[DispatchKey]reflect.Value),
	}
}

// Qualname returns the namespace-qualified operator name.
func (op *Operator) Qualname() string {
	return op.qualname
}

// Schema returns the operator's parsed schema.
func (op *Operator) Schema() *schema.Schema {
	return op.schema
}

// HasKernel reports whether a kernel is installed for the key.
func (op *Operator) HasKernel(key DispatchKey) bool {
	_, ok := op.kernels[key]
	return ok
}

// RegisterKernel installs fn as the kernel for one dispatch key.
// fn must match the schema-derived signature; registering the same key
// twice is an error.
func (op *Operator) RegisterKernel(key DispatchKey, fn any) error {
	v, err := checkKernel(op.schema, fn)
	if err != nil {
		return fmt.Errorf("registering %s kernel for %s: %w", key, op.qualname, err)
	}
	if _, exists := op.kernels[key]; exists {
		return fmt.Errorf("operator %s already has a %s kernel registered", op.qualname, key)
	}
	op.kernels[key] = v
	return nil
}

// ReplaceKernel installs fn for the key, overwriting any existing
// kernel. Used for default behaviors that a later registration refines.
func (op *Operator) ReplaceKernel(key DispatchKey, fn any) error {
	v, err := checkKernel(op.schema, fn)
	if err != nil {
		return fmt.Errorf("registering %s kernel for %s: %w", key, op.qualname, err)
	}
	op.kernels[key] = v
	return nil
}

// TensorArgs extracts the tensor-typed arguments of a boxed call in
// declaration order.
func (op *Operator) TensorArgs(args []any) []*tensor.Tensor {
	var tensors []*tensor.Tensor
	for i, a := range op.schema.Args {
		if a.Type != schema.TypeTensor || i >= len(args) {
			continue
		}
		if t, ok := args[i].(*tensor.Tensor); ok && t != nil {
			tensors = append(tensors, t)
		}
	}
	return tensors
}

// resolveKey selects the dispatch key for a set of boxed arguments.
// Priority: Autograd (any input requires grad and an Autograd kernel
// exists, unless excluded), then Meta if any input is a meta tensor,
// then device keys in deviceKeyOrder.
//
// below excludes every key with priority >= below; pass -1 for a full
// dispatch.
func (op *Operator) resolveKey(args []any, below DispatchKey) (DispatchKey, error) {
	tensors := op.TensorArgs(args)
	if len(tensors) == 0 {
		return 0, fmt.Errorf("%s: no tensor arguments to dispatch on", op.qualname)
	}

	excluded := func(k DispatchKey) bool {
		return below >= 0 && k >= below
	}

	// The Autograd key sits above all device keys: when installed it
	// always intercepts the call and decides itself whether to error
	// or redispatch below.
	if !excluded(KeyAutograd) && op.HasKernel(KeyAutograd) {
		return KeyAutograd, nil
	}

	present := make(map[DispatchKey]bool)
	for _, t := range tensors {
		key, err := KeyForDevice(t.Device())
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op.qualname, err)
		}
		present[key] = true
	}

	if present[KeyMeta] && !excluded(KeyMeta) {
		return KeyMeta, nil
	}
	for _, key := range deviceKeyOrder {
		if present[key] && !excluded(key) {
			return key, nil
		}
	}
	return 0, fmt.Errorf("%s: could not resolve a dispatch key for the given inputs", op.qualname)
}

// CallBoxed dispatches directly through the operator handle with boxed
// positional arguments, bypassing any higher-level call caching.
func (op *Operator) CallBoxed(args ...any) ([]any, error) {
	return op.callBoxed(args, -1)
}

// RedispatchBelow re-enters dispatch excluding every key with priority
// at or above the given key. The autograd fallback uses this to forward
// a call with gradient tracking disabled.
func (op *Operator) RedispatchBelow(key DispatchKey, args []any) ([]any, error) {
	return op.callBoxed(args, key)
}

func (op *Operator) callBoxed(args []any, below DispatchKey) ([]any, error) {
	key, err := op.resolveKey(args, below)
	if err != nil {
		return nil, err
	}
	kernel, ok := op.kernels[key]
	if !ok {
		return nil, fmt.Errorf("operator %s has no kernel for dispatch key %s", op.qualname, key)
	}
	return invoke(kernel, op.schema, op.qualname, args)
}
