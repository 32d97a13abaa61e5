// Package s3 implements blobstore.BlobStore on Amazon S3.
//
// Checkpoint shards are streamed to S3 through the upload manager, so a
// multi-gigabyte model snapshot never has to be buffered in memory.
// Objects are immutable; commit-pointer semantics that S3 cannot provide
// (conditional CURRENT updates) live in the checkpoint package's DynamoDB
// commit store.
package s3
