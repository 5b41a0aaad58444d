// Copyright 2025 Kino ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend of the Kino ML
// framework: broadcasting elementwise operations, matrix
// multiplication, volumetric convolution and pooling with their
// backward passes, and reductions. Batch and channel loops run on a
// worker pool sized to the machine.
package cpu

import (
	internalcpu "github.com/kino-ml/kino/internal/backend/cpu"
	"github.com/kino-ml/kino/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend with parallel execution.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}

// NewSequential creates a CPU backend that runs single-threaded,
// useful for deterministic debugging and benchmarks.
func NewSequential() *Backend {
	return internalcpu.NewSequential()
}
