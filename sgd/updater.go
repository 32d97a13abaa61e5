package sgd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/llebel/difacto/core"
	"github.com/llebel/difacto/persistence"
)

// ValueType selects the payload layout of Get and Update. The encoding is
// shared with the updater's caller and must match on both sides.
type ValueType int32

const (
	// ValueFeatureCount exchanges one count per feature id, flat 1:1 with
	// no offset table.
	ValueFeatureCount ValueType = 1
	// ValueWeight exchanges the scalar weight, followed by the embedding
	// coordinates when that feature's embedding has been allocated. Payload
	// length therefore varies across ids within one call; an offset table
	// of len(ids)+1 delimits the per-id payloads.
	ValueWeight ValueType = 2
)

// ErrInvalidValueType is returned for a ValueType outside the enumeration.
var ErrInvalidValueType = errors.New("invalid value type")

// Progress is a snapshot of the updater's diagnostic counters.
type Progress struct {
	// NonzeroWeights is the net number of weights that moved off zero.
	NonzeroWeights int64
	// Embeddings is the number of embedding vectors allocated.
	Embeddings int64
}

// Updater applies FTRL-proximal updates to the scalar weights and adagrad
// updates to the embeddings of one model shard.
//
// Embedding initialization draws from a per-updater generator seeded from
// the config, so runs are reproducible given the same seed and call order.
// Not safe for concurrent use; workers must own disjoint id blocks.
type Updater struct {
	cfg    Config
	model  *Model
	rng    *rand.Rand
	newW   int64
	newV   int64
	hasAux bool
}

// NewUpdater validates cfg and creates an updater owning a fresh model for
// ids in [startID, endID).
func NewUpdater(cfg Config, startID, endID core.FeatureID) (*Updater, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if startID > endID {
		return nil, fmt.Errorf("invalid model range [%#x, %#x)", uint64(startID), uint64(endID))
	}
	return &Updater{
		cfg:    cfg,
		model:  NewModel(cfg.VDim, startID, endID),
		rng:    rand.New(rand.NewSource(int64(cfg.Seed))),
		hasAux: true,
	}, nil
}

// Model exposes the underlying weight store.
func (u *Updater) Model() *Model {
	return u.model
}

// Progress returns the diagnostic counters accumulated so far.
func (u *Updater) Progress() Progress {
	return Progress{NonzeroWeights: u.newW, Embeddings: u.newV}
}

// HasAux reports whether the updater state includes FTRL auxiliaries, which
// is false after warm-starting from a weights-only snapshot.
func (u *Updater) HasAux() bool {
	return u.hasAux
}

// Save persists the model through the updater; see Model.Save.
func (u *Updater) Save(saveAux bool, w io.Writer, optFns ...persistence.WriterOption) error {
	return u.model.Save(saveAux, w, optFns...)
}

// Load restores the model from a snapshot; see Model.Load.
func (u *Updater) Load(r io.Reader) (hasAux bool, err error) {
	hasAux, err = u.model.Load(r)
	if err == nil {
		u.hasAux = hasAux
	}
	return hasAux, err
}

// Get reads the requested payload for each feature id, lazily creating
// zeroed entries for ids never seen before (a side-effecting read).
//
// For ValueFeatureCount the result is one count per id and offsets is nil.
// For ValueWeight, values holds the concatenated per-id payloads and
// offsets has len(ids)+1 entries such that id i's payload is
// values[offsets[i]:offsets[i+1]].
func (u *Updater) Get(featureIDs []core.FeatureID, valueType ValueType) (values []float32, offsets []int32, err error) {
	switch valueType {
	case ValueFeatureCount:
		values = make([]float32, len(featureIDs))
		for i, id := range featureIDs {
			values[i] = u.model.Lookup(id).Count
		}
		return values, nil, nil

	case ValueWeight:
		offsets = make([]int32, len(featureIDs)+1)
		values = make([]float32, 0, len(featureIDs))
		for i, id := range featureIDs {
			e := u.model.Lookup(id)
			values = append(values, e.Weight)
			if e.V != nil {
				values = append(values, e.Embedding()...)
			}
			offsets[i+1] = int32(len(values))
		}
		return values, offsets, nil

	default:
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidValueType, valueType)
	}
}

// Update applies the payload received in Get's layout.
//
// ValueFeatureCount adds the given counts and allocates an embedding once a
// feature's cumulative count exceeds the threshold. ValueWeight treats the
// payload as gradients: the scalar slot drives the FTRL step on w, the
// remaining slots (when present) drive the adagrad step on V. A malformed
// offset table is a caller bug and panics.
func (u *Updater) Update(featureIDs []core.FeatureID, valueType ValueType, values []float32, offsets []int32) error {
	switch valueType {
	case ValueFeatureCount:
		if len(values) != len(featureIDs) {
			panic(fmt.Sprintf("sgd: %d counts for %d ids", len(values), len(featureIDs)))
		}
		for i, id := range featureIDs {
			e := u.model.Lookup(id)
			e.Count += values[i]
			if e.V == nil && u.cfg.VDim > 0 && e.Count > float32(u.cfg.VThreshold) {
				u.initV(e)
			}
		}
		return nil

	case ValueWeight:
		if len(offsets) != len(featureIDs)+1 || offsets[0] != 0 || int(offsets[len(featureIDs)]) != len(values) {
			panic(fmt.Sprintf("sgd: offset table does not delimit %d values for %d ids",
				len(values), len(featureIDs)))
		}
		for i, id := range featureIDs {
			payload := values[offsets[i]:offsets[i+1]]
			if len(payload) == 0 {
				continue
			}
			e := u.model.Lookup(id)
			u.updateW(payload[0], e)
			if len(payload) > 1 {
				if e.V == nil || len(payload) != 1+u.cfg.VDim {
					panic(fmt.Sprintf("sgd: id %#x payload has %d gradients, embedding dim is %d",
						uint64(id), len(payload)-1, u.cfg.VDim))
				}
				u.updateV(payload[1:], e)
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: %d", ErrInvalidValueType, valueType)
	}
}

// updateW applies one FTRL-proximal step. The closed form zeroes w exactly
// whenever |z| stays within the l1 budget, which is what produces true
// sparsity rather than mere shrinkage. A zero gradient leaves the entry
// untouched.
func (u *Updater) updateW(g float32, e *Entry) {
	cfg := &u.cfg

	sqrtG := math.Sqrt(float64(e.SqGrad))
	sqrtGNew := math.Sqrt(float64(e.SqGrad) + float64(g)*float64(g))
	sigma := (sqrtGNew - sqrtG) / float64(cfg.Lr)
	e.SqGrad += g * g
	e.Z += g - float32(sigma*float64(e.Weight))

	old := e.Weight
	z := float64(e.Z)
	l1 := float64(cfg.L1)
	if math.Abs(z) <= l1 {
		e.Weight = 0
	} else {
		sign := 1.0
		if z < 0 {
			sign = -1.0
		}
		denom := (sqrtGNew+float64(cfg.LrBeta))/float64(cfg.Lr) + float64(cfg.L2)
		e.Weight = float32(-(z - sign*l1) / denom)
	}

	if old == 0 && e.Weight != 0 {
		u.newW++
	} else if old != 0 && e.Weight == 0 {
		u.newW--
	}
}

// updateV applies one adagrad step per coordinate, with an l2 penalty
// folded into the gradient.
func (u *Updater) updateV(g []float32, e *Entry) {
	cfg := &u.cfg
	v := e.Embedding()
	acc := e.adagrad()
	for j := range g {
		gj := float64(g[j])
		acc[j] += float32(gj * gj)
		eta := float64(cfg.VLr) / (math.Sqrt(float64(acc[j])) + float64(cfg.VLrBeta))
		v[j] -= float32(eta * (gj + float64(cfg.VL2)*float64(v[j])))
	}
}

// initV allocates the embedding: coordinates drawn uniformly from
// [-VInitScale, +VInitScale], adagrad accumulators zeroed.
func (u *Updater) initV(e *Entry) {
	e.V = make([]float32, 2*u.cfg.VDim)
	for j := 0; j < u.cfg.VDim; j++ {
		e.V[j] = (u.rng.Float32()*2 - 1) * u.cfg.VInitScale
	}
	u.newV++
}
