package sgd

import (
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/llebel/difacto/core"
	"github.com/llebel/difacto/persistence"
)

// DenseRangeLimit is the largest id range stored as a contiguous slice.
// Ranges up to 2^26 entries (a few GiB of zeroed state at most) stay dense;
// anything larger falls back to a hash map. The choice is made once at
// construction and never revisited.
const DenseRangeLimit = 1 << 26

// entryStore is the backing storage behind a Model, chosen at construction.
// Both implementations key entries by the offset id-startID.
type entryStore interface {
	// entry returns the entry at offset, creating it if absent.
	entry(off uint64) *Entry
	// forEachSorted visits every materialized entry in ascending id offset.
	forEachSorted(fn func(off uint64, e *Entry) error) error
}

// denseStore keeps one pre-allocated Entry per id in the range.
type denseStore struct {
	entries []Entry
}

func (s *denseStore) entry(off uint64) *Entry {
	return &s.entries[off]
}

func (s *denseStore) forEachSorted(fn func(off uint64, e *Entry) error) error {
	for i := range s.entries {
		if err := fn(uint64(i), &s.entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// sparseStore lazily materializes entries in a hash map and tracks the
// occupied offsets in a roaring bitmap so saves iterate in id order without
// collecting and sorting a key slice.
type sparseStore struct {
	entries map[uint64]*Entry
	keys    *roaring64.Bitmap
}

func (s *sparseStore) entry(off uint64) *Entry {
	if e, ok := s.entries[off]; ok {
		return e
	}
	e := &Entry{}
	s.entries[off] = e
	s.keys.Add(off)
	return e
}

func (s *sparseStore) forEachSorted(fn func(off uint64, e *Entry) error) error {
	it := s.keys.Iterator()
	for it.HasNext() {
		off := it.Next()
		if err := fn(off, s.entries[off]); err != nil {
			return err
		}
	}
	return nil
}

// Model maps feature ids in [StartID, EndID) to their optimizer state.
// Entries are created lazily on first lookup and mutated in place.
//
// Not safe for concurrent use: callers must confine each model (or each
// disjoint id block of it) to a single worker.
type Model struct {
	dim     int
	startID core.FeatureID
	endID   core.FeatureID
	store   entryStore
}

// NewModel creates a model for ids in [startID, endID) with embedding
// dimension dim. Storage is a contiguous slice when the range holds at most
// DenseRangeLimit ids and a hash map otherwise.
func NewModel(dim int, startID, endID core.FeatureID) *Model {
	m := &Model{dim: dim, startID: startID, endID: endID}
	r := core.Range{Begin: startID, End: endID}
	if r.Size() <= DenseRangeLimit {
		m.store = &denseStore{entries: make([]Entry, r.Size())}
	} else {
		m.store = &sparseStore{
			entries: make(map[uint64]*Entry),
			keys:    roaring64.New(),
		}
	}
	return m
}

// Dim returns the embedding dimension.
func (m *Model) Dim() int {
	return m.dim
}

// Range returns the id range the model is responsible for.
func (m *Model) Range() core.Range {
	return core.Range{Begin: m.startID, End: m.endID}
}

// Dense reports whether the model uses contiguous storage.
func (m *Model) Dense() bool {
	_, ok := m.store.(*denseStore)
	return ok
}

// Lookup returns the entry for id, creating a zeroed one if absent.
// Looking up an id outside [StartID, EndID) is a caller bug and panics.
func (m *Model) Lookup(id core.FeatureID) *Entry {
	if id < m.startID || id >= m.endID {
		panic(fmt.Sprintf("sgd: feature id %#x outside model range [%#x, %#x)",
			uint64(id), uint64(m.startID), uint64(m.endID)))
	}
	return m.store.entry(uint64(id - m.startID))
}

// ForEachSorted visits every materialized entry in ascending feature-id
// order. Dense models visit the entire range including untouched entries.
func (m *Model) ForEachSorted(fn func(id core.FeatureID, e *Entry) error) error {
	return m.store.forEachSorted(func(off uint64, e *Entry) error {
		return fn(m.startID+core.FeatureID(off), e)
	})
}

// Save writes all entries with non-default state to w as a snapshot, in
// ascending feature-id order for both storage modes. With saveAux the FTRL
// auxiliaries ride along, enabling a full optimizer resume; without it the
// snapshot holds weights and embeddings only. Feature counts and embedding
// adagrad accumulators are never persisted and restart after a load.
func (m *Model) Save(saveAux bool, w io.Writer, optFns ...persistence.WriterOption) error {
	opts := append([]persistence.WriterOption{
		persistence.WithDim(m.dim),
		persistence.WithAux(saveAux),
	}, optFns...)
	sw := persistence.NewWriter(w, opts...)

	if err := m.writeRecords(sw); err != nil {
		return err
	}
	return sw.Close()
}

func (m *Model) writeRecords(sw *persistence.Writer) error {
	return m.ForEachSorted(func(id core.FeatureID, e *Entry) error {
		if e.isDefault() {
			return nil
		}
		rec := persistence.Record{
			ID:     uint64(id),
			Weight: e.Weight,
			HasAux: true,
			SqGrad: e.SqGrad,
			Z:      e.Z,
		}
		if e.V != nil {
			rec.V = e.Embedding()
		}
		return sw.WriteRecord(rec)
	})
}

// Load reads a snapshot from r into the model. Records outside the model's
// id range are rejected, as is a snapshot whose embedding dimension differs
// from the model's. hasAux reports whether the stream carried FTRL
// auxiliary state (full resume) or weights only (warm start).
func (m *Model) Load(r io.Reader) (hasAux bool, err error) {
	sr, err := persistence.NewReader(r)
	if err != nil {
		return false, err
	}
	hdr := sr.Header()
	if hdr.EntryCount > 0 && int(hdr.Dim) != m.dim {
		return false, fmt.Errorf("%w: snapshot dim %d, model dim %d",
			persistence.ErrDimMismatch, hdr.Dim, m.dim)
	}

	for {
		rec, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}
		id := core.FeatureID(rec.ID)
		if id < m.startID || id >= m.endID {
			return false, fmt.Errorf("snapshot record %#x outside model range %s",
				rec.ID, m.Range())
		}
		e := m.store.entry(uint64(id - m.startID))
		e.Weight = rec.Weight
		e.SqGrad = rec.SqGrad
		e.Z = rec.Z
		if rec.V != nil {
			e.V = make([]float32, 2*m.dim)
			copy(e.V, rec.V)
		} else {
			e.V = nil
		}
	}
	return hdr.HasAux(), nil
}
