//go:build integration

package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPgvector skips unless TEST_DATABASE_URL points at a Postgres with pgvector.
func setupPgvector(t *testing.T) *Pgvector {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	idx, err := NewPgvector(context.Background(), dsn, nil)
	if err != nil {
		t.Skipf("pgvector not available: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestPgvector_UpsertReplacesAndDeletes(t *testing.T) {
	idx := setupPgvector(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()

	_, err := idx.Upsert(ctx, id, []float32{1, 0, 0, 0}, map[string]string{"v": "1"}, "first")
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, id, []float32{0, 0, 0, 1}, map[string]string{"v": "2"}, "second")
	require.NoError(t, err)

	matches, err := idx.Search(ctx, []float32{0, 0, 0, 1}, 100)
	require.NoError(t, err)

	var hits []Match
	for _, m := range matches {
		if m.FileID == id {
			hits = append(hits, m)
		}
	}
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].Text)
	assert.Equal(t, "2", hits[0].Metadata["v"])
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	idx.Delete(ctx, id)
	idx.Delete(ctx, id)

	matches, err = idx.Search(ctx, []float32{0, 0, 0, 1}, 100)
	require.NoError(t, err)
	for _, m := range matches {
		assert.NotEqual(t, id, m.FileID)
	}
}
