// Copyright 2025 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package customop

import (
	"github.com/ember-ml/ember/internal/dispatch"
	"github.com/ember-ml/ember/internal/symbolic"
)

// Registry maps qualified operator names to operator handles. The
// registry holds weak references: dropping the last CustomOp handle
// for an operator frees its slot for redefinition.
type Registry = dispatch.Registry

// NewRegistry creates an empty operator registry.
func NewRegistry() *Registry {
	return dispatch.NewRegistry()
}

// ShapeEnv allocates and tracks unbacked symbolic sizes during fake
// execution.
type ShapeEnv = symbolic.ShapeEnv

// NewShapeEnv creates a shape environment. allowDynamic controls
// whether operators may allocate data-dependent output sizes.
func NewShapeEnv(allowDynamic bool) *ShapeEnv {
	return symbolic.NewShapeEnv(allowDynamic)
}

// SymInt is an unbacked symbolic integer size scoped to a ShapeEnv.
type SymInt = symbolic.SymInt

// DynamicOutputShapeError reports that an operator needed a
// data-dependent output size but the active environment disallows
// dynamic output shapes.
type DynamicOutputShapeError = symbolic.DynamicOutputShapeError
