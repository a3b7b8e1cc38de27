//go:build integration

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupQdrant skips when no Qdrant is listening on localhost:6334.
func setupQdrant(t *testing.T) *Qdrant {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	idx, err := NewQdrant(ctx, "localhost", 6334, nil)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestQdrant_RoundTrip(t *testing.T) {
	idx := setupQdrant(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	vec := make([]float32, 8)
	vec[0] = 1
	_, err := idx.Upsert(ctx, id, vec, map[string]string{"filename": "a.txt"}, "qdrant body")
	require.NoError(t, err)
	defer idx.Delete(ctx, id)

	matches, err := idx.Search(ctx, vec, 50)
	require.NoError(t, err)

	var found *Match
	for i := range matches {
		if matches[i].FileID == id {
			found = &matches[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "qdrant body", found.Text)
	assert.Equal(t, "a.txt", found.Metadata["filename"])
	assert.InDelta(t, 1.0, found.Score, 1e-5)
}

func TestQdrant_DeleteIsIdempotent(t *testing.T) {
	idx := setupQdrant(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	vec := make([]float32, 8)
	vec[1] = 1
	_, err := idx.Upsert(ctx, id, vec, nil, "gone soon")
	require.NoError(t, err)

	idx.Delete(ctx, id)
	idx.Delete(ctx, id)

	matches, err := idx.Search(ctx, vec, 50)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, id, m.FileID)
	}
}

func TestQdrant_DimensionMismatch(t *testing.T) {
	idx := setupQdrant(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	vec := make([]float32, 8)
	vec[2] = 1
	_, err := idx.Upsert(ctx, id, vec, nil, "eight dims")
	if errors.Is(err, ErrDimensionMismatch) {
		t.Skipf("collection already sized differently: %v", err)
	}
	require.NoError(t, err)
	defer idx.Delete(ctx, id)

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = idx.Upsert(ctx, id+"-short", []float32{1, 0, 0}, nil, "three dims")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestQdrant_PointIDStable(t *testing.T) {
	assert.Equal(t, pointID("doc1"), pointID("doc1"))
	assert.NotEqual(t, pointID("doc1"), pointID("doc2"))
	_, err := uuid.Parse(pointID("doc1"))
	assert.NoError(t, err)
}
