package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Writer serializes model records into the snapshot format. Records are
// buffered until Close, which compresses the payload and writes header,
// payload, and checksum trailer in one pass.
type Writer struct {
	w      io.Writer
	codec  Codec
	dim    int
	aux    bool
	buf    bytes.Buffer
	count  uint64
	closed bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCodec selects the payload compression codec. Default: CodecNone.
func WithCodec(c Codec) WriterOption {
	return func(w *Writer) { w.codec = c }
}

// WithDim declares the embedding dimension of the snapshot. Records with an
// embedding must carry exactly dim coordinates. Default: 0.
func WithDim(dim int) WriterOption {
	return func(w *Writer) { w.dim = dim }
}

// WithAux controls whether FTRL auxiliary state is persisted. When false,
// record auxiliaries are dropped and the snapshot loads as a
// weights-only warm start. Default: true.
func WithAux(aux bool) WriterOption {
	return func(w *Writer) { w.aux = aux }
}

// NewWriter creates a snapshot writer on top of w.
func NewWriter(w io.Writer, optFns ...WriterOption) *Writer {
	sw := &Writer{w: w, aux: true}
	for _, fn := range optFns {
		fn(sw)
	}
	return sw
}

// WriteRecord appends one record to the snapshot.
func (sw *Writer) WriteRecord(rec Record) error {
	if sw.closed {
		return ErrWriterClosed
	}
	if rec.V != nil && len(rec.V) != sw.dim {
		return fmt.Errorf("%w: record %#x has %d coordinates, snapshot dim is %d",
			ErrDimMismatch, rec.ID, len(rec.V), sw.dim)
	}

	var flags byte
	if sw.aux && rec.HasAux {
		flags |= recHasAux
	}
	if rec.V != nil {
		flags |= recHasEmbedding
	}

	putUint64(&sw.buf, rec.ID)
	sw.buf.WriteByte(flags)
	putFloat32(&sw.buf, rec.Weight)
	if flags&recHasAux != 0 {
		putFloat32(&sw.buf, rec.SqGrad)
		putFloat32(&sw.buf, rec.Z)
	}
	if flags&recHasEmbedding != 0 {
		for _, v := range rec.V {
			putFloat32(&sw.buf, v)
		}
	}

	sw.count++
	return nil
}

// Close compresses the buffered records and writes the complete snapshot:
// header, payload, CRC32 trailer. The underlying writer is not closed.
func (sw *Writer) Close() error {
	if sw.closed {
		return ErrWriterClosed
	}
	sw.closed = true

	payload, err := compressPayload(sw.buf.Bytes(), sw.codec)
	if err != nil {
		return err
	}

	hdr := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Codec:       sw.codec,
		Dim:         uint32(sw.dim),
		EntryCount:  sw.count,
		PayloadSize: uint64(len(payload)),
	}
	if sw.aux {
		hdr.Flags |= FlagHasAux
	}

	if err := binary.Write(sw.w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cw := NewChecksumWriter(sw.w)
	if _, err := cw.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], cw.Sum())
	if _, err := sw.w.Write(trailer[:]); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func putFloat32(buf *bytes.Buffer, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	buf.Write(b[:])
}
