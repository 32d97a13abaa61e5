// Package blobstore abstracts where checkpoints live.
//
// The trainer persists model shard snapshots and manifests as immutable
// named blobs. BlobStore is the interface between the checkpoint layer and
// the storage backend; implementations must be safe for concurrent use.
//
// # Built-in implementations
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem with mmap-backed reads
//   - s3.Store: Amazon S3 with streaming multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// Custom backends implement the five BlobStore operations; Open returns a
// Blob whose Reader method serves the sequential whole-object reads that
// snapshot loading performs.
package blobstore
