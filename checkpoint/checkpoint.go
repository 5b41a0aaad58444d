// Copyright 2025 Kino ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint saves and restores training state in the .kino
// binary format: model state dict, optional optimizer state, and run
// metadata, protected by a SHA-256 checksum.
//
// Example:
//
//	ckpt := checkpoint.New("resnet18", model.StateDict())
//	ckpt.Epoch = epoch
//	ckpt.OptimizerState = optimizer.StateDict()
//	if err := checkpoint.Save("run.kino", ckpt); err != nil {
//	    log.Fatal(err)
//	}
//
//	loaded, err := checkpoint.Load("run.kino", tensor.CPU)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.LoadStateDict(loaded.ModelState)
package checkpoint

import (
	"io"

	"github.com/kino-ml/kino/internal/checkpoint"
	"github.com/kino-ml/kino/internal/tensor"
)

// Checkpoint is a snapshot of a training run.
type Checkpoint = checkpoint.Checkpoint

// Header is the JSON metadata block of a .kino file.
type Header = checkpoint.Header

// TensorMeta describes one tensor in the data section.
type TensorMeta = checkpoint.TensorMeta

// File format errors.
var (
	ErrInvalidMagic       = checkpoint.ErrInvalidMagic
	ErrUnsupportedVersion = checkpoint.ErrUnsupportedVersion
	ErrChecksumMismatch   = checkpoint.ErrChecksumMismatch
)

// New creates a checkpoint for a fresh training run with a generated
// run ID.
func New(model string, modelState map[string]*tensor.RawTensor) *Checkpoint {
	return checkpoint.New(model, modelState)
}

// Save writes the checkpoint to path in .kino format.
func Save(path string, ckpt *Checkpoint) error {
	return checkpoint.Save(path, ckpt)
}

// Load reads a checkpoint from path, materializing tensors on device.
func Load(path string, device tensor.Device) (*Checkpoint, error) {
	return checkpoint.Load(path, device)
}

// Write serializes the checkpoint to w.
func Write(w io.Writer, ckpt *Checkpoint) error {
	return checkpoint.Write(w, ckpt)
}

// Read deserializes a checkpoint from r.
func Read(r io.Reader, device tensor.Device) (*Checkpoint, error) {
	return checkpoint.Read(r, device)
}
