package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragingest/internal/domain"
)

func desc(name string, dim uint64) domain.CollectionDescriptor {
	return domain.CollectionDescriptor{Name: name, Dimension: dim, Distance: domain.Cosine}
}

func TestCreateCollection_Idempotent(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	res, err := s.CreateCollection(ctx, desc("test", 3))
	require.NoError(t, err)
	assert.True(t, res.Created)

	res, err = s.CreateCollection(ctx, desc("test", 8))
	require.NoError(t, err)
	assert.False(t, res.Created)

	d, ok := s.Descriptor("test")
	require.True(t, ok)
	assert.Equal(t, uint64(3), d.Dimension, "existing geometry is not replaced")
	assert.Equal(t, 1, s.Mutations())
}

func TestCreateCollection_ZeroDimension(t *testing.T) {
	_, err := NewStorage().CreateCollection(context.Background(), desc("test", 0))
	assert.Error(t, err)
}

func TestUpsert(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, desc("test", 2))
	require.NoError(t, err)

	payload := map[string]any{"context": "alpha"}
	vec := domain.Embedding{1, 0}
	res, err := s.Upsert(ctx, "test", []domain.Point{{ID: 1, Vector: vec, Payload: payload}}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)

	// stored values are copies
	payload["context"] = "mutated"
	vec[0] = 9

	p, ok := s.Point("test", 1)
	require.True(t, ok)
	assert.Equal(t, "alpha", p.Payload["context"])
	assert.Equal(t, domain.Embedding{1, 0}, p.Vector)

	_, err = s.Upsert(ctx, "test", []domain.Point{{ID: 1, Vector: domain.Embedding{0, 1}, Payload: map[string]any{"context": "beta"}}}, false)
	require.NoError(t, err)
	n, err := s.Count(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n, "same id overwrites")
	p, _ = s.Point("test", 1)
	assert.Equal(t, "beta", p.Payload["context"])
}

func TestUpsert_DimensionMismatchIsAtomic(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, desc("test", 2))
	require.NoError(t, err)

	_, err = s.Upsert(ctx, "test", []domain.Point{
		{ID: 1, Vector: domain.Embedding{1, 0}},
		{ID: 2, Vector: domain.Embedding{1, 0, 0}},
	}, true)
	require.Error(t, err)

	n, err := s.Count(ctx, "test")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsert_MissingCollection(t *testing.T) {
	s := NewStorage()
	_, err := s.Upsert(context.Background(), "nope", nil, true)
	assert.Error(t, err)
	assert.Zero(t, s.Mutations())
}

func TestListCollections_Sorted(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	for _, name := range []string{"c", "a", "b"} {
		_, err := s.CreateCollection(ctx, desc(name, 1))
		require.NoError(t, err)
	}
	res, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.CollectionInfo{{Name: "a"}, {Name: "b"}, {Name: "c"}}, res.Collections)
}

func TestCanceledContext(t *testing.T) {
	s := NewStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CollectionExists(ctx, "test")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.CreateCollection(ctx, desc("test", 1))
	assert.ErrorIs(t, err, context.Canceled)
}
