package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// BlobStore is the storage abstraction behind checkpointing: model shard
// snapshots, manifests, and the CURRENT pointer are all immutable named
// blobs. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes. The blob becomes visible
	// once Close returns.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a small blob in one atomic operation.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names of all blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored snapshot object.
type Blob interface {
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Reader opens a sequential reader over the whole blob. Snapshot loads
	// consume blobs front to back, so this is the hot path.
	Reader(ctx context.Context) (io.ReadCloser, error)
}

// WritableBlob is a streaming write handle returned by Create.
type WritableBlob interface {
	io.Writer
	io.Closer
	// Sync flushes written data to stable storage where the backend
	// supports it; object stores finalize on Close instead.
	Sync() error
}

// Mappable is an optional interface for blobs that support zero-copy access
// to their bytes (the local mmap-backed store).
type Mappable interface {
	// Bytes returns the underlying byte slice, valid until the blob is
	// closed.
	Bytes() ([]byte, error)
}

// ReadAll opens a blob and reads it fully.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	r, err := b.Reader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
