package dispatch

import (
	"fmt"
	"weak"

	"github.com/ember-ml/ember/internal/schema"
)

// Registry maps qualified operator names to operator handles. It holds
// weak references: an operator no longer strongly referenced elsewhere
// can be collected, and its registry slot is reclaimed lazily.
//
// A Registry is owned by whoever initializes the framework and is
// passed into registration calls explicitly. Registration and lookup
// are not safe for concurrent use.
type Registry struct {
	ops map[string]weak.Pointer[Operator]
}

// NewRegistry creates an empty operator registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]weak.Pointer[Operator])}
}

// Define parses nothing: the schema is already parsed and validated by
// the caller. It creates and registers an operator handle under
// "ns::name" (plus ".overload" when the schema names one), failing if
// a live handle already occupies the slot.
func (r *Registry) Define(ns string, s *schema.Schema) (*Operator, error) {
	qualname := ns + "::" + s.Name
	if s.Overload != "" {
		qualname += "." + s.Overload
	}

	if existing := r.lookupLive(qualname); existing != nil {
		return nil, fmt.Errorf("operator %s is already defined", qualname)
	}

	op := newOperator(qualname, s)
	r.ops[qualname] = weak.Make(op)
	return op, nil
}

// Lookup resolves a qualified, overload-qualified operator name to its
// handle, failing if the operator is absent (or already collected).
func (r *Registry) Lookup(qualname string) (*Operator, error) {
	if op := r.lookupLive(qualname); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("could not find operator %s", qualname)
}

// lookupLive dereferences the weak entry, pruning dead slots.
func (r *Registry) lookupLive(qualname string) *Operator {
	ref, ok := r.ops[qualname]
	if !ok {
		return nil
	}
	op := ref.Value()
	if op == nil {
		delete(r.ops, qualname)
	}
	return op
}

// Library scopes definitions to one namespace within a registry,
// mirroring a fragment library in the host dispatcher.
type Library struct {
	ns  string
	reg *Registry
}

// NewLibrary creates a library for a namespace.
func NewLibrary(ns string, reg *Registry) *Library {
	return &Library{ns: ns, reg: reg}
}

// Namespace returns the library's namespace.
func (l *Library) Namespace() string {
	return l.ns
}

// Define registers a parsed schema in the library's namespace.
func (l *Library) Define(s *schema.Schema) (*Operator, error) {
	return l.reg.Define(l.ns, s)
}

// Impl installs a kernel for an operator previously defined in this
// library.
func (l *Library) Impl(name string, key DispatchKey, fn any) error {
	op, err := l.reg.Lookup(l.ns + "::" + name)
	if err != nil {
		return err
	}
	return op.RegisterKernel(key, fn)
}
