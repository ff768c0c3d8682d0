package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragingest/internal/domain"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, domain.ErrConnection)
}

func TestCollections(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	ok, err := s.CollectionExists(ctx, "test")
	require.NoError(t, err)
	assert.False(t, ok)

	d := domain.CollectionDescriptor{Name: "test", Dimension: 3, Distance: domain.Cosine}
	res, err := s.CreateCollection(ctx, d)
	require.NoError(t, err)
	assert.True(t, res.Created)

	res, err = s.CreateCollection(ctx, d)
	require.NoError(t, err)
	assert.False(t, res.Created)

	_, err = s.CreateCollection(ctx, domain.CollectionDescriptor{Name: "other", Dimension: 1, Distance: domain.Dot})
	require.NoError(t, err)

	list, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.CollectionInfo{{Name: "other"}, {Name: "test"}}, list.Collections)
}

func TestUpsertRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_, err := s.CreateCollection(ctx, domain.CollectionDescriptor{Name: "test", Dimension: 3, Distance: domain.Euclid})
	require.NoError(t, err)

	points := []domain.Point{
		{ID: 1, Vector: domain.Embedding{0.5, -1.25, 3}, Payload: map[string]any{"context": "alpha"}},
		{ID: 2, Vector: domain.Embedding{0, 0, 0}, Payload: map[string]any{"context": ""}},
	}
	res, err := s.Upsert(ctx, "test", points, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)

	got, err := s.Point(ctx, "test", 1)
	require.NoError(t, err)
	assert.Equal(t, points[0].Vector, got.Vector)
	assert.Equal(t, "alpha", got.Payload["context"])

	// re-upsert keeps the count stable
	_, err = s.Upsert(ctx, "test", points, true)
	require.NoError(t, err)
	n, err := s.Count(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
}

func TestUpsert_Errors(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, "missing", []domain.Point{{ID: 1, Vector: domain.Embedding{1}}}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = s.CreateCollection(ctx, domain.CollectionDescriptor{Name: "test", Dimension: 2, Distance: domain.Cosine})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, "test", []domain.Point{
		{ID: 1, Vector: domain.Embedding{1, 2}, Payload: map[string]any{"context": "ok"}},
		{ID: 2, Vector: domain.Embedding{1}, Payload: map[string]any{"context": "short"}},
	}, true)
	require.Error(t, err)

	n, err := s.Count(ctx, "test")
	require.NoError(t, err)
	assert.Zero(t, n, "failed batch is rolled back")
}

func TestVectorEncoding(t *testing.T) {
	vec := domain.Embedding{1, -2.5, 0.125}
	b := encodeVector(vec)
	assert.Len(t, b, 12)

	got, err := decodeVector(b)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
