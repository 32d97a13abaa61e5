// Package sgd implements the per-feature weight updates for the trainer:
// FTRL-proximal steps for the scalar weights and adagrad steps for the
// latent embedding vectors, over a keyed store of optimizer state.
//
// A Model holds one Entry per feature id inside a fixed half-open id range,
// backed by a contiguous slice for small ranges and a hash map otherwise.
// The Updater orchestrates reads (Get) and writes (Update) against the
// model using a flat value buffer plus offset table, allocates embeddings
// lazily once a feature has been seen often enough, and owns snapshot
// persistence.
//
// Nothing in this package is synchronized: workers must operate on disjoint
// feature-id blocks, which the bcd partitioner guarantees.
package sgd
