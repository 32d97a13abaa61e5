package persistence

import (
	"hash"
	"hash/crc32"
	"io"
)

// CRC32 (IEEE polynomial) guards snapshots against storage corruption.
// It is not cryptographically secure and is not meant for tamper detection.

// crc32Table is the IEEE polynomial table shared by all checksummers.
var crc32Table = crc32.MakeTable(crc32.IEEE)

// Checksum computes the CRC32 checksum of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, crc32Table)
}

// ChecksumWriter wraps an io.Writer and keeps a running CRC32 of everything
// written through it.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash32
}

// NewChecksumWriter creates a checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: crc32.New(crc32Table),
	}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	if _, err := cw.hash.Write(p); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

// Sum returns the checksum of all bytes written so far.
func (cw *ChecksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}
