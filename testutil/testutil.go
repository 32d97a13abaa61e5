package testutil

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/llebel/difacto/core"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FeatureID returns a pseudo-random feature id in the given range.
// Panics on an empty range.
func (r *RNG) FeatureID(rng core.Range) core.FeatureID {
	if rng.Empty() {
		panic("testutil: empty id range")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return rng.Begin + core.FeatureID(r.rand.Uint64()%rng.Size())
}

// SortedFeatureIDs returns n distinct feature ids drawn from rng, sorted
// ascending. Panics if the range holds fewer than n ids.
func (r *RNG) SortedFeatureIDs(n int, rng core.Range) []core.FeatureID {
	if uint64(n) > rng.Size() {
		panic("testutil: range too small for requested id count")
	}

	r.mu.Lock()
	seen := make(map[core.FeatureID]struct{}, n)
	ids := make([]core.FeatureID, 0, n)
	for len(ids) < n {
		id := rng.Begin + core.FeatureID(r.rand.Uint64()%rng.Size())
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RowBatch generates rows of sorted distinct feature ids drawn from rng,
// with unit values and random ±1 labels. Each row holds between 1 and
// 2*avgRowLen-1 ids.
func (r *RNG) RowBatch(rows, avgRowLen int, rng core.Range) core.RowBatch {
	batch := core.RowBatch{
		Offsets: make([]int, 1, rows+1),
		Labels:  make([]float32, 0, rows),
	}
	for i := 0; i < rows; i++ {
		n := 1 + r.Intn(2*avgRowLen-1)
		batch.Index = append(batch.Index, r.SortedFeatureIDs(n, rng)...)
		batch.Offsets = append(batch.Offsets, len(batch.Index))

		label := float32(1)
		if r.Float32() < 0.5 {
			label = -1
		}
		batch.Labels = append(batch.Labels, label)
	}
	batch.Values = make([]float32, len(batch.Index))
	for i := range batch.Values {
		batch.Values[i] = 1
	}
	return batch
}
