package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/llebel/difacto/core"
)

const (
	manifestPrefix  = "MANIFEST"
	CurrentName     = "CURRENT"
	manifestVersion = 1
)

// Manifest describes one committed checkpoint: which epoch it belongs to
// and the snapshot object of every model shard.
type Manifest struct {
	Version   int         `json:"version"`
	ID        uint64      `json:"id"`
	Epoch     int         `json:"epoch"`
	Dim       int         `json:"dim"`
	HasAux    bool        `json:"has_aux"`
	CreatedAt time.Time   `json:"created_at"`
	Shards    []ShardInfo `json:"shards"`
}

// ShardInfo describes a single model shard snapshot.
type ShardInfo struct {
	Index   int    `json:"index"`
	StartID uint64 `json:"start_id"`
	EndID   uint64 `json:"end_id"`
	Object  string `json:"object"`
}

// Range returns the feature-id range the shard covers.
func (s ShardInfo) Range() core.Range {
	return core.Range{Begin: core.FeatureID(s.StartID), End: core.FeatureID(s.EndID)}
}

// ManifestName returns the object name of the manifest with the given id.
func ManifestName(id uint64) string {
	return fmt.Sprintf("%s-%06d.json", manifestPrefix, id)
}

// ParseManifestID extracts the id from a manifest object name.
func ParseManifestID(name string) (uint64, error) {
	var id uint64
	if _, err := fmt.Sscanf(name, manifestPrefix+"-%d.json", &id); err != nil {
		return 0, fmt.Errorf("malformed manifest name %q: %w", name, err)
	}
	return id, nil
}

func shardObjectName(epoch, index int) string {
	return fmt.Sprintf("epoch-%06d/shard-%04d.dfm", epoch, index)
}

func encodeManifest(m *Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func decodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version: %d (expected %d)",
			m.Version, manifestVersion)
	}
	return &m, nil
}
