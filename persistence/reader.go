package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader decodes a snapshot written by Writer. The payload is read and
// checksum-verified eagerly at construction; Next then iterates the
// records without further IO.
type Reader struct {
	hdr     FileHeader
	payload []byte
	pos     int
	read    uint64
}

// NewReader reads and validates the snapshot header, payload, and checksum
// trailer from r.
func NewReader(r io.Reader) (*Reader, error) {
	var hdr FileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, hdr.Magic)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, hdr.Version)
	}

	payload := make([]byte, hdr.PayloadSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var trailer [4]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("read checksum: %w", err)
	}
	if got, want := Checksum(payload), binary.LittleEndian.Uint32(trailer[:]); got != want {
		return nil, fmt.Errorf("%w: computed 0x%08x, stored 0x%08x", ErrChecksum, got, want)
	}

	records, err := decompressPayload(payload, hdr.Codec)
	if err != nil {
		return nil, err
	}

	return &Reader{hdr: hdr, payload: records}, nil
}

// Header returns the snapshot header.
func (sr *Reader) Header() FileHeader {
	return sr.hdr
}

// Next returns the next record, or io.EOF after the last one.
func (sr *Reader) Next() (Record, error) {
	if sr.read >= sr.hdr.EntryCount {
		return Record{}, io.EOF
	}

	var rec Record
	id, err := sr.uint64()
	if err != nil {
		return rec, err
	}
	rec.ID = id
	flags, err := sr.byte()
	if err != nil {
		return rec, err
	}
	if rec.Weight, err = sr.float32(); err != nil {
		return rec, err
	}
	if flags&recHasAux != 0 {
		rec.HasAux = true
		if rec.SqGrad, err = sr.float32(); err != nil {
			return rec, err
		}
		if rec.Z, err = sr.float32(); err != nil {
			return rec, err
		}
	}
	if flags&recHasEmbedding != 0 {
		rec.V = make([]float32, sr.hdr.Dim)
		for i := range rec.V {
			if rec.V[i], err = sr.float32(); err != nil {
				return rec, err
			}
		}
	}

	sr.read++
	return rec, nil
}

func (sr *Reader) byte() (byte, error) {
	if sr.pos+1 > len(sr.payload) {
		return 0, io.ErrUnexpectedEOF
	}
	b := sr.payload[sr.pos]
	sr.pos++
	return b, nil
}

func (sr *Reader) uint64() (uint64, error) {
	if sr.pos+8 > len(sr.payload) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(sr.payload[sr.pos:])
	sr.pos += 8
	return v, nil
}

func (sr *Reader) float32() (float32, error) {
	if sr.pos+4 > len(sr.payload) {
		return 0, io.ErrUnexpectedEOF
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(sr.payload[sr.pos:]))
	sr.pos += 4
	return v, nil
}
