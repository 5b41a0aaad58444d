package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/kino-ml/kino/internal/parallel"
	"github.com/kino-ml/kino/internal/tensor"
)

// Sentinel errors surfaced while reading a .kino file.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes, not a .kino file")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch, file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
)

// Load reads a checkpoint from path, materializing tensors on device.
func Load(path string, device tensor.Device) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "checkpoint: open file")
	}
	defer file.Close()

	return Read(file, device)
}

// Read deserializes a checkpoint from r.
func Read(r io.Reader, device tensor.Device) (*Checkpoint, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "checkpoint: read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, want %d", version, FormatVersion)
	}

	flags := binary.LittleEndian.Uint32(fixed[8:12])
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var stored [checksumSize]byte
	copy(stored[:], fixed[checksumOffset:checksumOffset+checksumSize])

	if headerSize > maxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, errors.Wrap(err, "checkpoint: read header")
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, errors.Wrap(err, "checkpoint: parse header")
	}

	pos := int64(FixedHeaderSize) + int64(headerSize)
	if padding := align(pos); padding > 0 {
		if _, err := io.CopyN(io.Discard, r, padding); err != nil {
			return nil, errors.Wrap(err, "checkpoint: skip padding")
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "checkpoint: read tensor data")
	}
	if sha256.Sum256(data) != stored {
		return nil, ErrChecksumMismatch
	}

	// Tensors index disjoint ranges of data, so they materialize concurrently.
	raws := make([]*tensor.RawTensor, len(header.Tensors))
	workers := parallel.DefaultConfig().NumWorkers
	err := parallel.ForEach(len(header.Tensors), workers, func(i int) error {
		raw, err := loadTensor(header.Tensors[i], data, device)
		if err != nil {
			return errors.Wrapf(err, "checkpoint: tensor %s", header.Tensors[i].Name)
		}
		raws[i] = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	dict := make(map[string]*tensor.RawTensor, len(header.Tensors))
	for i, meta := range header.Tensors {
		dict[meta.Name] = raws[i]
	}

	ckpt := &Checkpoint{
		RunID:    header.RunID,
		Model:    header.Model,
		Epoch:    header.Epoch,
		Step:     header.Step,
		Loss:     header.Loss,
		Metadata: header.Metadata,
	}
	ckpt.splitTensorDict(dict, flags&FlagHasOptimizer != 0)
	return ckpt, nil
}

func loadTensor(meta TensorMeta, data []byte, device tensor.Device) (*tensor.RawTensor, error) {
	dtype, ok := stringToDtype(meta.DType)
	if !ok {
		return nil, errors.Errorf("unsupported dtype %q", meta.DType)
	}

	end := meta.Offset + meta.Size
	if meta.Offset < 0 || meta.Size < 0 || end > int64(len(data)) {
		return nil, errors.Errorf("data range [%d, %d) outside section of %d bytes",
			meta.Offset, end, len(data))
	}

	raw, err := tensor.NewRaw(tensor.Shape(meta.Shape), dtype, device)
	if err != nil {
		return nil, errors.Wrap(err, "create tensor")
	}
	if int64(raw.ByteSize()) != meta.Size {
		return nil, errors.Errorf("size %d does not match shape %v", meta.Size, meta.Shape)
	}
	copy(raw.Data(), data[meta.Offset:end])
	return raw, nil
}
