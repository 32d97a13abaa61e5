package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/llebel/difacto"
	"github.com/llebel/difacto/blobstore"
	"github.com/llebel/difacto/persistence"
	"github.com/llebel/difacto/resource"
	"github.com/llebel/difacto/sgd"
)

// Manager saves and restores model checkpoints on a blob store.
//
// Save writes all shard snapshots, then the manifest, then commits the
// pointer; a crash at any point leaves the previous checkpoint intact and
// at worst some orphaned objects, which the next pruning pass removes.
type Manager struct {
	store  blobstore.BlobStore
	commit CommitStore
	logger *difacto.Logger
	rc     *resource.Controller
	keep   int
	codec  persistence.Codec
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCommitStore replaces the default blob-backed CURRENT pointer.
func WithCommitStore(cs CommitStore) ManagerOption {
	return func(m *Manager) { m.commit = cs }
}

// WithLogger sets the logger. Default: noop.
func WithLogger(l *difacto.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithController throttles snapshot IO through the given controller.
func WithController(rc *resource.Controller) ManagerOption {
	return func(m *Manager) { m.rc = rc }
}

// WithKeep sets how many committed checkpoints survive pruning.
// Default: 3. Zero disables pruning.
func WithKeep(n int) ManagerOption {
	return func(m *Manager) { m.keep = n }
}

// WithCodec selects the snapshot compression codec. Default: CodecNone.
func WithCodec(c persistence.Codec) ManagerOption {
	return func(m *Manager) { m.codec = c }
}

// NewManager creates a checkpoint manager on the given store.
func NewManager(store blobstore.BlobStore, optFns ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		commit: NewBlobCommitStore(store),
		logger: difacto.NoopLogger(),
		keep:   3,
	}
	for _, fn := range optFns {
		fn(m)
	}
	return m
}

// Save writes one snapshot object per shard, all concurrently, then the
// manifest, then commits the pointer. All shards must share one embedding
// dimension. With saveAux the snapshots carry FTRL auxiliary state for a
// full optimizer resume.
func (m *Manager) Save(ctx context.Context, epoch int, saveAux bool, shards []*sgd.Model) (*Manifest, error) {
	if len(shards) == 0 {
		return nil, errors.New("checkpoint: no shards to save")
	}
	dim := shards[0].Dim()
	for i, s := range shards {
		if s.Dim() != dim {
			return nil, fmt.Errorf("checkpoint: shard %d dim %d differs from shard 0 dim %d",
				i, s.Dim(), dim)
		}
	}

	manifest := &Manifest{
		Version:   manifestVersion,
		Epoch:     epoch,
		Dim:       dim,
		HasAux:    saveAux,
		CreatedAt: time.Now().UTC(),
		Shards:    make([]ShardInfo, len(shards)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		obj := shardObjectName(epoch, i)
		r := shard.Range()
		manifest.Shards[i] = ShardInfo{
			Index:   i,
			StartID: uint64(r.Begin),
			EndID:   uint64(r.End),
			Object:  obj,
		}

		g.Go(func() error {
			if err := m.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer m.rc.ReleaseBackground()
			return m.saveShard(gctx, obj, saveAux, shard)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := m.commitManifest(ctx, manifest); err != nil {
		m.logger.LogCheckpointSave(ctx, ManifestName(manifest.ID), len(shards), err)
		return nil, err
	}
	m.logger.LogCheckpointSave(ctx, ManifestName(manifest.ID), len(shards), nil)

	if m.keep > 0 {
		if err := m.prune(ctx, manifest.ID); err != nil {
			m.logger.WarnContext(ctx, "checkpoint pruning failed", "error", err)
		}
	}
	return manifest, nil
}

func (m *Manager) saveShard(ctx context.Context, name string, saveAux bool, shard *sgd.Model) error {
	blob, err := m.store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create shard object %s: %w", name, err)
	}

	w := resource.NewRateLimitedWriter(ctx, blob, m.rc)
	if err := shard.Save(saveAux, w, persistence.WithCodec(m.codec)); err != nil {
		blob.Close()
		return fmt.Errorf("save shard %s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("finalize shard %s: %w", name, err)
	}
	return nil
}

// commitManifest assigns the next manifest id, writes the manifest object,
// and advances the pointer.
func (m *Manager) commitManifest(ctx context.Context, manifest *Manifest) error {
	current, err := m.commit.Current(ctx)
	switch {
	case errors.Is(err, ErrNoCheckpoint):
		manifest.ID = 1
	case err != nil:
		return err
	default:
		id, err := ParseManifestID(current)
		if err != nil {
			return err
		}
		manifest.ID = id + 1
	}

	data, err := encodeManifest(manifest)
	if err != nil {
		return err
	}
	name := ManifestName(manifest.ID)
	if err := m.store.Put(ctx, name, data); err != nil {
		return fmt.Errorf("write manifest %s: %w", name, err)
	}
	return m.commit.Commit(ctx, name)
}

// Latest resolves the committed pointer and loads its manifest.
func (m *Manager) Latest(ctx context.Context) (*Manifest, error) {
	name, err := m.commit.Current(ctx)
	if err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, m.store, name)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}
	return decodeManifest(data)
}

// LoadShard restores one shard snapshot into model, which must cover the
// shard's id range. hasAux reports whether the snapshot carried FTRL
// auxiliary state.
func (m *Manager) LoadShard(ctx context.Context, manifest *Manifest, index int, model *sgd.Model) (hasAux bool, err error) {
	if index < 0 || index >= len(manifest.Shards) {
		return false, fmt.Errorf("checkpoint: shard index %d out of range [0, %d)",
			index, len(manifest.Shards))
	}
	info := manifest.Shards[index]

	blob, err := m.store.Open(ctx, info.Object)
	if err != nil {
		return false, fmt.Errorf("open shard object %s: %w", info.Object, err)
	}
	defer blob.Close()

	r, err := blob.Reader(ctx)
	if err != nil {
		return false, err
	}
	defer r.Close()

	return model.Load(resource.NewRateLimitedReader(ctx, r, m.rc))
}

// Restore loads the latest committed checkpoint, reconstructing one model
// per shard from the manifest's ranges and dimension.
func (m *Manager) Restore(ctx context.Context) (*Manifest, []*sgd.Model, error) {
	manifest, err := m.Latest(ctx)
	if err != nil {
		return nil, nil, err
	}

	models := make([]*sgd.Model, len(manifest.Shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, info := range manifest.Shards {
		r := info.Range()
		model := sgd.NewModel(manifest.Dim, r.Begin, r.End)
		models[i] = model

		g.Go(func() error {
			if err := m.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer m.rc.ReleaseBackground()
			_, err := m.LoadShard(gctx, manifest, i, model)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.LogCheckpointLoad(ctx, ManifestName(manifest.ID), len(models), err)
		return nil, nil, err
	}
	m.logger.LogCheckpointLoad(ctx, ManifestName(manifest.ID), len(models), nil)
	return manifest, models, nil
}

// prune removes manifests older than the keep window, together with the
// shard objects they reference. Objects shared with surviving manifests do
// not exist: every epoch writes its own.
func (m *Manager) prune(ctx context.Context, currentID uint64) error {
	names, err := m.store.List(ctx, manifestPrefix+"-")
	if err != nil {
		return err
	}

	var ids []uint64
	for _, name := range names {
		id, err := ParseManifestID(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	cut := len(ids) - m.keep
	for _, id := range ids[:max(cut, 0)] {
		if id >= currentID {
			break
		}
		if err := m.pruneManifest(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) pruneManifest(ctx context.Context, id uint64) error {
	name := ManifestName(id)
	data, err := blobstore.ReadAll(ctx, m.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil
		}
		return err
	}
	manifest, err := decodeManifest(data)
	if err != nil {
		return err
	}
	for _, info := range manifest.Shards {
		if err := m.store.Delete(ctx, info.Object); err != nil {
			return err
		}
	}
	return m.store.Delete(ctx, name)
}
