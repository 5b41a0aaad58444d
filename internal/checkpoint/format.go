// Package checkpoint saves and restores training state in the .kino
// binary format.
//
// Layout:
//
//	[64-byte fixed header]
//	  0x00  magic "KINO"
//	  0x04  format version (uint32 LE)
//	  0x08  flags (uint32 LE)
//	  0x10  JSON header size (uint64 LE)
//	  0x18  data section size (uint64 LE)
//	  0x20  SHA-256 checksum of the data section
//	[JSON header: run metadata and tensor directory]
//	[tensor data: raw bytes, 64-byte aligned]
//
// Tensor names are sorted before layout so a given state always
// serializes to the same bytes.
package checkpoint

import (
	"time"

	"github.com/kino-ml/kino/internal/tensor"
)

const (
	// MagicBytes identify a .kino file.
	MagicBytes = "KINO"

	// FormatVersion is the current format revision.
	FormatVersion = 1

	// DataAlignment aligns the tensor data section.
	DataAlignment = 64

	// FixedHeaderSize is the size of the fixed header in bytes.
	FixedHeaderSize = 64

	checksumOffset = 0x20
	checksumSize   = 32

	// maxHeaderSize bounds the JSON header a reader will accept.
	maxHeaderSize = 100 * 1024 * 1024
)

// Flags stored in the fixed header.
const (
	FlagHasOptimizer uint32 = 1 << 0
)

// Header is the JSON metadata block of a .kino file.
type Header struct {
	FormatVersion int          `json:"format_version"`
	KinoVersion   string       `json:"kino_version"`
	Model         string       `json:"model"`
	RunID         string       `json:"run_id"`
	CreatedAt     time.Time    `json:"created_at"`
	Epoch         int          `json:"epoch"`
	Step          int64        `json:"step"`
	Loss          float64      `json:"loss"`
	Tensors       []TensorMeta `json:"tensors"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// TensorMeta describes one tensor in the data section. Offsets are
// relative to the start of the section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return "float32"
	case tensor.Float64:
		return "float64"
	case tensor.Int32:
		return "int32"
	default:
		return "unknown"
	}
}

func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case "float32":
		return tensor.Float32, true
	case "float64":
		return tensor.Float64, true
	case "int32":
		return tensor.Int32, true
	default:
		return 0, false
	}
}
