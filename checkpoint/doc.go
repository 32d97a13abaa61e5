// Package checkpoint persists epoch-numbered model snapshots to a blob
// store behind a manifest protocol: each checkpoint writes one snapshot
// object per model shard, then a JSON manifest naming them, then advances
// the CURRENT pointer. Readers resolve CURRENT, load the manifest, and
// restore shards from it. The pointer advance goes through a CommitStore,
// so backends with conditional writes (DynamoDB) make concurrent writers
// safe; the plain blob-backed pointer assumes a single writer.
package checkpoint
