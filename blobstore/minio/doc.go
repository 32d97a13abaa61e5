// Package minio implements blobstore.BlobStore for MinIO and other
// S3-compatible object stores, for deployments that keep checkpoints on
// self-hosted storage instead of AWS.
package minio
