// Package core defines the leaf types shared across the trainer: 64-bit
// feature ids with a group-major bit layout, half-open ranges over the id
// or index space, and the compressed-sparse-row batch that carries example
// rows into the statistics and training layers.
package core
