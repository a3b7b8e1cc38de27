package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docintel/internal/config"
)

func TestCosine(t *testing.T) {
	score, ok := cosine([]float32{1, 0}, []float32{1, 0})
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)

	score, ok = cosine([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0.0, score, 1e-9)

	score, ok = cosine([]float32{1, 1}, []float32{-1, -1})
	require.True(t, ok)
	assert.InDelta(t, -1.0, score, 1e-9)

	score, ok = cosine([]float32{0, 0}, []float32{1, 2})
	require.True(t, ok)
	assert.Zero(t, score)

	_, ok = cosine([]float32{1}, []float32{1, 2})
	assert.False(t, ok)
}

func TestSortMatches_TieBreakByFileID(t *testing.T) {
	matches := []Match{
		{FileID: "c", Score: 0.5},
		{FileID: "a", Score: 0.9},
		{FileID: "b", Score: 0.5},
		{FileID: "a2", Score: 0.5},
	}
	sortMatches(matches)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.FileID
	}
	assert.Equal(t, []string{"a", "a2", "b", "c"}, ids)
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0, 1.5, -2.25, float32(math.Pi), math.MaxFloat32}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMetadataCodec(t *testing.T) {
	raw, err := encodeMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	m, err := decodeMetadata("null")
	require.NoError(t, err)
	assert.Empty(t, m)

	raw, err = encodeMetadata(map[string]string{"filename": "a.txt"})
	require.NoError(t, err)
	m, err = decodeMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"filename": "a.txt"}, m)
}

func TestMatchRef(t *testing.T) {
	m := Match{FileID: "f", Score: 0.3, Metadata: map[string]string{"k": "v"}, Text: "body"}
	assert.Equal(t, Reference{FileID: "f", Score: 0.3, Metadata: map[string]string{"k": "v"}}, m.Ref())
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Path = t.TempDir()

	idx, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, idx)
	require.NoError(t, idx.Close())

	cfg.Index.Driver = "faiss"
	_, err = Open(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, config.ErrConfiguration)
}
