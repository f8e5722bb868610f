package dispatch

import (
	"fmt"
	"reflect"

	"github.com/ember-ml/ember/internal/schema"
	"github.com/ember-ml/ember/internal/tensor"
)

var (
	tensorType = reflect.TypeOf((*tensor.Tensor)(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
)

// goType maps a schema type to the Go type kernels use for it.
func goType(t schema.Type) reflect.Type {
	switch t {
	case schema.TypeTensor:
		return tensorType
	case schema.TypeInt:
		return reflect.TypeOf(int64(0))
	case schema.TypeFloat:
		return reflect.TypeOf(float64(0))
	case schema.TypeBool:
		return reflect.TypeOf(false)
	default:
		panic(fmt.Sprintf("unknown schema type %v", t))
	}
}

// Signature derives the Go function type every kernel for a schema must
// have: one parameter per declared argument in declaration order, one
// result per declared return, plus a trailing error.
func Signature(s *schema.Schema) reflect.Type {
	in := make([]reflect.Type, len(s.Args))
	for i, a := range s.Args {
		in[i] = goType(a.Type)
	}
	out := make([]reflect.Type, len(s.Returns)+1)
	for i, r := range s.Returns {
		out[i] = goType(r.Type)
	}
	out[len(s.Returns)] = errorType
	return reflect.FuncOf(in, out, false)
}

// checkKernel validates that fn matches the schema-derived signature.
// This is the registration-time counterpart of the schema's declared
// parameter list: a kernel whose parameters diverge from the schema in
// count, order or type is rejected before any dispatcher state changes.
func checkKernel(s *schema.Schema, fn any) (reflect.Value, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return reflect.Value{}, fmt.Errorf("expected a function, got %T", fn)
	}
	want := Signature(s)
	if v.Type() != want {
		return reflect.Value{}, fmt.Errorf(
			"expected the function signature to match the schema. Schema %s requires %s but function has %s",
			s, want, v.Type())
	}
	return v, nil
}

// invoke calls a typed kernel with boxed arguments, returning boxed
// outputs. Integer and float arguments are converted to the schema's
// width when needed.
func invoke(kernel reflect.Value, s *schema.Schema, qualname string, args []any) ([]any, error) {
	kt := kernel.Type()
	if len(args) != kt.NumIn() {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", qualname, kt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		want := kt.In(i)
		v := reflect.ValueOf(arg)
		switch {
		case !v.IsValid():
			return nil, fmt.Errorf("%s: argument %d (%s) is nil", qualname, i, s.Args[i].Name)
		case v.Type() == want:
			// exact
		case v.Type().ConvertibleTo(want) && want.Kind() != reflect.Ptr && v.Kind() != reflect.Ptr:
			v = v.Convert(want)
		default:
			return nil, fmt.Errorf("%s: argument %d (%s) has type %T, want %s",
				qualname, i, s.Args[i].Name, arg, want)
		}
		in[i] = v
	}

	results := kernel.Call(in)
	last := results[len(results)-1]
	if !last.IsNil() {
		return nil, last.Interface().(error)
	}

	outs := make([]any, len(results)-1)
	for i := range outs {
		outs[i] = results[i].Interface()
	}
	return outs, nil
}

// CheckSignature validates that fn matches the schema-derived kernel
// signature without installing it.
func CheckSignature(s *schema.Schema, fn any) error {
	_, err := checkKernel(s, fn)
	return err
}

// Invoke validates fn against the schema and calls it with boxed
// arguments. Used for implementations that are held outside an
// operator's kernel table (e.g. fake implementations run under an
// explicit shape environment).
func Invoke(s *schema.Schema, qualname string, fn any, args []any) ([]any, error) {
	v, err := checkKernel(s, fn)
	if err != nil {
		return nil, err
	}
	return invoke(v, s, qualname, args)
}

// Boxed is an untyped kernel body operating on boxed values.
type Boxed func(args []any) ([]any, error)

// MakeKernel wraps a boxed body into a typed kernel matching the
// schema's signature, so generic fallbacks (e.g. the default Autograd
// behavior) can be installed for any operator.
func MakeKernel(s *schema.Schema, body Boxed) any {
	sig := Signature(s)
	fn := reflect.MakeFunc(sig, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}

		out := make([]reflect.Value, sig.NumOut())
		results, err := body(args)
		if err != nil {
			for i := 0; i < sig.NumOut()-1; i++ {
				out[i] = reflect.Zero(sig.Out(i))
			}
			out[sig.NumOut()-1] = reflect.ValueOf(err)
			return out
		}

		for i := 0; i < sig.NumOut()-1; i++ {
			if i < len(results) && results[i] != nil {
				out[i] = reflect.ValueOf(results[i])
			} else {
				out[i] = reflect.Zero(sig.Out(i))
			}
		}
		out[sig.NumOut()-1] = reflect.Zero(errorType)
		return out
	})
	return fn.Interface()
}
