// Package symbolic provides the symbolic shape environment used during
// fake (shape-only) operator execution.
//
// An unbacked SymInt is a placeholder for an output size that depends
// on real data and is therefore unknown during shape inference. It
// carries a permissible range instead of a value; the range is later
// narrowed by ConstrainRange and eventually bound to a concrete value
// when real data is available.
package symbolic

import "fmt"

// DefaultMinSize is the floor applied to every unconstrained unbacked
// size. Sizes 0 and 1 are special-cased by broadcasting and contiguity
// logic, so an unbacked size is assumed to be at least 2; operators
// whose real computation can produce fewer than 2 results must raise
// in their concrete implementation instead.
const DefaultMinSize = 2

// DynamicOutputShapeError reports that an operator needed a
// data-dependent output size but the active environment disallows
// dynamic output shapes.
type DynamicOutputShapeError struct {
	Op string
}

func (e *DynamicOutputShapeError) Error() string {
	return fmt.Sprintf("operator %s has a data-dependent output shape, but dynamic output shape operators are disallowed in the current shape environment", e.Op)
}

// ShapeEnv allocates and tracks unbacked symbolic sizes for one shape
// inference pass. It is not safe for concurrent use.
type ShapeEnv struct {
	// AllowDynamicOutputShapeOps gates allocation of data-dependent
	// output sizes.
	AllowDynamicOutputShapeOps bool

	next    int
	symints []*SymInt
}

// NewShapeEnv creates a shape environment.
func NewShapeEnv(allowDynamic bool) *ShapeEnv {
	return &ShapeEnv{AllowDynamicOutputShapeOps: allowDynamic}
}

// CreateUnbackedSymInt allocates a fresh unbacked symbolic size scoped
// to this environment, with the default range [DefaultMinSize, +inf).
func (env *ShapeEnv) CreateUnbackedSymInt() *SymInt {
	s := &SymInt{
		env: env,
		id:  env.next,
		min: DefaultMinSize,
		max: -1, // unbounded
	}
	env.next++
	env.symints = append(env.symints, s)
	return s
}

// ConstrainRange narrows the permissible range of an unbacked size.
// max < 0 means unbounded above. The new range must intersect the
// current one.
func (env *ShapeEnv) ConstrainRange(s *SymInt, min, max int) error {
	if s.env != env {
		return fmt.Errorf("symint u%d belongs to a different shape environment", s.id)
	}
	if max >= 0 && max < min {
		return fmt.Errorf("invalid range [%d, %d] for symint u%d", min, max, s.id)
	}
	if min > s.min {
		s.min = min
	}
	if max >= 0 && (s.max < 0 || max < s.max) {
		s.max = max
	}
	if s.max >= 0 && s.max < s.min {
		return fmt.Errorf("range [%d, %d] for symint u%d is empty", s.min, s.max, s.id)
	}
	return nil
}

// SymInt is an unbacked symbolic integer size.
type SymInt struct {
	env *ShapeEnv
	id  int
	min int
	max int // -1 = unbounded
}

// Min returns the current lower bound.
func (s *SymInt) Min() int {
	return s.min
}

// Max returns the current upper bound, or -1 if unbounded.
func (s *SymInt) Max() int {
	return s.max
}

// Hint returns a concrete placeholder value inside the permissible
// range, used when materializing meta tensor shapes.
func (s *SymInt) Hint() int {
	return s.min
}

// String returns the symbol's name, e.g. "u0".
func (s *SymInt) String() string {
	return fmt.Sprintf("u%d", s.id)
}
