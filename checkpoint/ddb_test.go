package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDDBClient implements DDBClient with an in-memory versioned table.
type mockDDBClient struct {
	mu    sync.Mutex
	items map[string]map[uint64]string // base_uri -> version -> manifest name
}

func newMockDDBClient() *mockDDBClient {
	return &mockDDBClient{items: make(map[string]map[uint64]string)}
}

func (m *mockDDBClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uri := params.Item["base_uri"].(*types.AttributeValueMemberS).Value
	var version uint64
	fmt.Sscanf(params.Item["version"].(*types.AttributeValueMemberN).Value, "%d", &version)
	name := params.Item["manifest_name"].(*types.AttributeValueMemberS).Value

	if m.items[uri] == nil {
		m.items[uri] = make(map[uint64]string)
	}
	if _, exists := m.items[uri][version]; exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.items[uri][version] = name
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDDBClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value
	versions := m.items[uri]
	if len(versions) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}

	var latest uint64
	for v := range versions {
		if v > latest {
			latest = v
		}
	}
	return &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{
			"base_uri":      &types.AttributeValueMemberS{Value: uri},
			"version":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", latest)},
			"manifest_name": &types.AttributeValueMemberS{Value: versions[latest]},
		}},
	}, nil
}

func TestDDBCommitStore(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	cs := NewDDBCommitStore(client, "difacto-commits", "s3://bucket/models")

	_, err := cs.Current(ctx)
	assert.ErrorIs(t, err, ErrNoCheckpoint)

	require.NoError(t, cs.Commit(ctx, ManifestName(1)))
	name, err := cs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, ManifestName(1), name)

	require.NoError(t, cs.Commit(ctx, ManifestName(2)))
	name, err = cs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, ManifestName(2), name)
}

func TestDDBCommitStoreDetectsRace(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	cs := NewDDBCommitStore(client, "difacto-commits", "s3://bucket/models")

	// A competing writer claims version 1 directly.
	_, err := client.PutItem(ctx, &dynamodb.PutItemInput{
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: "s3://bucket/models"},
			"version":       &types.AttributeValueMemberN{Value: "1"},
			"manifest_name": &types.AttributeValueMemberS{Value: ManifestName(9)},
		},
	})
	require.NoError(t, err)

	// Our commit computes version 2 and succeeds; a replay of the same
	// version collides.
	require.NoError(t, cs.Commit(ctx, ManifestName(10)))
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: "s3://bucket/models"},
			"version":       &types.AttributeValueMemberN{Value: "2"},
			"manifest_name": &types.AttributeValueMemberS{Value: ManifestName(11)},
		},
	})
	assert.Error(t, err)

	name, err := cs.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, ManifestName(10), name)
}

// staleQueryClient hides committed versions from Query, forcing the store
// to compute an already-taken version number.
type staleQueryClient struct {
	*mockDDBClient
}

func (c *staleQueryClient) Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{}, nil
}

func TestDDBCommitStoreReturnsErrConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	client := &staleQueryClient{mockDDBClient: newMockDDBClient()}
	cs := NewDDBCommitStore(client, "difacto-commits", "s3://bucket/models")

	require.NoError(t, cs.Commit(ctx, ManifestName(1)))

	// The stale read makes the second commit retry version 1.
	err := cs.Commit(ctx, ManifestName(2))
	assert.ErrorIs(t, err, ErrConcurrentCommit)
}

func TestDDBCommitStoreSeparatesBaseURIs(t *testing.T) {
	ctx := context.Background()
	client := newMockDDBClient()
	a := NewDDBCommitStore(client, "difacto-commits", "s3://bucket/run-a")
	b := NewDDBCommitStore(client, "difacto-commits", "s3://bucket/run-b")

	require.NoError(t, a.Commit(ctx, ManifestName(1)))

	_, err := b.Current(ctx)
	assert.ErrorIs(t, err, ErrNoCheckpoint)
}
