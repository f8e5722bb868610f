// Package schema parses and validates operator signatures.
//
// A schema is a textual function signature in the form
//
//	name(Tensor x, Tensor(a!) y, *, int k=1) -> (Tensor, Tensor)
//
// Alias annotations mark memory behavior: "(a)" means the value
// aliases set "a" (a view), "(a!)" means set "a" is written (a
// mutation). Arguments after "*" are keyword-only.
package schema

import "fmt"

// Type is the declared type of an argument or return.
type Type int

// Supported schema types.
const (
	TypeTensor Type = iota
	TypeInt
	TypeFloat
	TypeBool
)

// String returns the schema spelling of the type.
func (t Type) String() string {
	switch t {
	case TypeTensor:
		return "Tensor"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Alias is an alias annotation attached to a Tensor type.
type Alias struct {
	Set     string // alias set name, e.g. "a"
	IsWrite bool   // true for "(a!)"
}

// Argument is one declared parameter.
type Argument struct {
	Name      string
	Type      Type
	Alias     *Alias
	KwargOnly bool
	Default   string // textual default value, empty if none
}

// Return is one declared output.
type Return struct {
	Type  Type
	Alias *Alias
}

// Kind classifies a schema by its memory behavior.
type Kind int

// Schema kinds.
const (
	KindFunctional Kind = iota // no aliasing, no mutation
	KindMutable                // writes at least one input in place
	KindView                   // returns an alias of an input
)

// Schema is a parsed operator signature.
type Schema struct {
	Name     string
	Overload string // empty for the default overload
	Args     []Argument
	Returns  []Return
}

// Kind reports the schema's memory-behavior classification.
// A write annotation anywhere makes it mutable; a non-write alias on a
// return makes it a view; otherwise it is functional.
func (s *Schema) Kind() Kind {
	for _, a := range s.Args {
		if a.Alias != nil && a.Alias.IsWrite {
			return KindMutable
		}
	}
	for _, r := range s.Returns {
		if r.Alias != nil && r.Alias.IsWrite {
			return KindMutable
		}
	}
	for _, r := range s.Returns {
		if r.Alias != nil {
			return KindView
		}
	}
	return KindFunctional
}

// HasTensorArg reports whether at least one argument is a Tensor.
func (s *Schema) HasTensorArg() bool {
	for _, a := range s.Args {
		if a.Type == TypeTensor {
			return true
		}
	}
	return false
}

// String reconstructs the textual signature.
func (s *Schema) String() string {
	out := s.Name
	if s.Overload != "" {
		out += "." + s.Overload
	}
	out += "("
	kwarg := false
	for i, a := range s.Args {
		if i > 0 {
			out += ", "
		}
		if a.KwargOnly && !kwarg {
			out += "*, "
			kwarg = true
		}
		out += a.Type.String()
		if a.Alias != nil {
			out += aliasString(a.Alias)
		}
		out += " " + a.Name
		if a.Default != "" {
			out += "=" + a.Default
		}
	}
	out += ") -> "
	if len(s.Returns) == 1 {
		r := s.Returns[0]
		out += r.Type.String()
		if r.Alias != nil {
			out += aliasString(r.Alias)
		}
		return out
	}
	out += "("
	for i, r := range s.Returns {
		if i > 0 {
			out += ", "
		}
		out += r.Type.String()
		if r.Alias != nil {
			out += aliasString(r.Alias)
		}
	}
	return out + ")"
}

func aliasString(a *Alias) string {
	if a.IsWrite {
		return fmt.Sprintf("(%s!)", a.Set)
	}
	return fmt.Sprintf("(%s)", a.Set)
}
