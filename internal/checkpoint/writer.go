package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/kino-ml/kino/internal/parallel"
)

const kinoVersion = "0.1.0"

// Save writes the checkpoint to path in .kino format.
func Save(path string, ckpt *Checkpoint) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "checkpoint: create file")
	}
	defer file.Close()

	if err := Write(file, ckpt); err != nil {
		return err
	}
	return errors.Wrap(file.Sync(), "checkpoint: sync file")
}

// Write serializes the checkpoint to w.
func Write(w io.Writer, ckpt *Checkpoint) error {
	dict := ckpt.tensorDict()

	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		KinoVersion:   kinoVersion,
		Model:         ckpt.Model,
		RunID:         ckpt.RunID,
		CreatedAt:     time.Now().UTC(),
		Epoch:         ckpt.Epoch,
		Step:          ckpt.Step,
		Loss:          ckpt.Loss,
		Tensors:       make([]TensorMeta, 0, len(names)),
		Metadata:      ckpt.Metadata,
	}

	total := int64(0)
	for _, name := range names {
		raw := dict[name]
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  dtypeToString(raw.DType()),
			Shape:  []int(raw.Shape()),
			Offset: total,
			Size:   int64(raw.ByteSize()),
		})
		total += int64(raw.ByteSize())
	}

	// Offsets are fixed above, so the blobs can be copied concurrently.
	data := make([]byte, total)
	workers := parallel.DefaultConfig().NumWorkers
	err := parallel.ForEach(len(names), workers, func(i int) error {
		meta := header.Tensors[i]
		raw := dict[meta.Name]
		if meta.DType == "unknown" {
			return errors.Errorf("checkpoint: tensor %s has unsupported dtype %s", meta.Name, raw.DType())
		}
		copy(data[meta.Offset:meta.Offset+meta.Size], raw.Data())
		return nil
	})
	if err != nil {
		return err
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "checkpoint: marshal header")
	}

	var flags uint32
	if ckpt.OptimizerState != nil {
		flags |= FlagHasOptimizer
	}

	checksum := sha256.Sum256(data)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[checksumOffset:checksumOffset+checksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "checkpoint: write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "checkpoint: write header")
	}

	pos := int64(FixedHeaderSize) + int64(len(headerJSON))
	if padding := align(pos); padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return errors.Wrap(err, "checkpoint: write padding")
		}
	}

	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "checkpoint: write tensor data")
	}
	return nil
}

// align returns the padding needed to reach the next data boundary.
func align(pos int64) int64 {
	return (DataAlignment - (pos % DataAlignment)) % DataAlignment
}
