package persistence

import "errors"

const (
	// MagicNumber identifies difacto model snapshots (ASCII: "DFM1").
	MagicNumber = 0x44464D31
	// Version is the current snapshot format version (v1.0.0).
	Version = 0x00010000

	// headerSize is the encoded size of FileHeader in bytes.
	headerSize = 40
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidCodec   = errors.New("unknown compression codec")
	ErrChecksum       = errors.New("payload checksum mismatch")
	ErrDimMismatch    = errors.New("embedding dimension mismatch")
	ErrWriterClosed   = errors.New("writer already closed")
)

// Codec selects the whole-payload compression algorithm.
type Codec uint8

const (
	// CodecNone stores the record payload uncompressed.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 frame compression (fast, moderate ratio).
	CodecLZ4 Codec = 1
	// CodecZSTD uses zstd compression (better ratio, good for cold
	// snapshots shipped to object storage).
	CodecZSTD Codec = 2
)

// Header flag bits.
const (
	// FlagHasAux marks a snapshot that carries FTRL auxiliary state per
	// record. Without it, a load is a warm start from weights only.
	FlagHasAux uint16 = 1 << 0
)

// Record flag bits, one byte per record.
const (
	recHasAux       byte = 1 << 0
	recHasEmbedding byte = 1 << 1
)

// FileHeader is the 40-byte header at the start of every snapshot.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	Flags       uint16
	Codec       Codec
	Padding     [1]byte
	Dim         uint32 // embedding dimension, 0 for pure linear snapshots
	EntryCount  uint64 // number of records in the payload
	PayloadSize uint64 // encoded (possibly compressed) payload bytes
	Reserved    [8]byte
}

// HasAux reports whether the snapshot carries FTRL auxiliary state.
func (h FileHeader) HasAux() bool {
	return h.Flags&FlagHasAux != 0
}

// Record is one persisted feature: the id, the scalar weight, the optional
// FTRL auxiliaries, and the optional embedding coordinates. Embedding
// adagrad accumulators and feature counts are not persisted; they restart
// after a load.
type Record struct {
	ID     uint64
	Weight float32
	HasAux bool
	SqGrad float32
	Z      float32
	V      []float32
}
