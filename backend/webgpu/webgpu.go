// Copyright 2025 Ember ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated
// tensor operations. It is only functional on platforms with the
// native WebGPU library available; elsewhere New returns an error.
package webgpu

import (
	internalwebgpu "github.com/ember-ml/ember/internal/backend/webgpu"
)

// Backend is the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// New initializes the WebGPU device and returns a backend ready for
// tensor operations. Call Release when done to free GPU resources.
func New() (*Backend, error) {
	return internalwebgpu.New()
}
