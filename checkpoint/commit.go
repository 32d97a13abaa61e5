package checkpoint

import (
	"context"
	"errors"
	"strings"

	"github.com/llebel/difacto/blobstore"
)

// ErrNoCheckpoint is returned when no checkpoint has been committed yet.
var ErrNoCheckpoint = errors.New("no committed checkpoint")

// ErrConcurrentCommit is returned when another writer committed a
// checkpoint between our read of the current pointer and our commit.
var ErrConcurrentCommit = errors.New("concurrent checkpoint commit detected")

// CommitStore advances the CURRENT pointer. Commit must be atomic; whether
// it detects concurrent writers depends on the backend.
type CommitStore interface {
	// Current returns the manifest name the pointer references, or
	// ErrNoCheckpoint if nothing has been committed.
	Current(ctx context.Context) (string, error)
	// Commit points CURRENT at the given manifest.
	Commit(ctx context.Context, manifestName string) error
}

// blobCommitStore keeps the pointer as a CURRENT blob in the same store as
// the snapshots. Put is atomic on all backends, but there is no
// compare-and-swap: concurrent writers can silently overtake each other,
// so this store is for single-writer deployments only.
type blobCommitStore struct {
	store blobstore.BlobStore
}

// NewBlobCommitStore creates a commit store backed by a CURRENT blob.
func NewBlobCommitStore(store blobstore.BlobStore) CommitStore {
	return &blobCommitStore{store: store}
}

func (s *blobCommitStore) Current(ctx context.Context) (string, error) {
	data, err := blobstore.ReadAll(ctx, s.store, CurrentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNoCheckpoint
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *blobCommitStore) Commit(ctx context.Context, manifestName string) error {
	return s.store.Put(ctx, CurrentName, []byte(manifestName))
}
