// Package storage persists one embedding per file id and answers cosine
// similarity queries over them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
)

// CollectionName is the single collection (or table) holding all entries.
const CollectionName = "files"

var (
	// ErrStorage wraps every failure reported by an index driver.
	ErrStorage = errors.New("vector index failure")
	// ErrUnreachable is returned when a remote index cannot be reached at startup.
	ErrUnreachable = errors.New("vector index unreachable")
	// ErrDimensionMismatch is returned by drivers whose store has a fixed
	// vector size when an embedding of another size is written.
	ErrDimensionMismatch = errors.New("embedding dimension does not match the index")
)

// Match is one search hit. Score is cosine similarity, higher is closer.
type Match struct {
	FileID   string            `json:"file_id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
	Text     string            `json:"document"`
}

// Reference is a Match without its text.
type Reference struct {
	FileID   string            `json:"file_id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Ref drops the text of m.
func (m Match) Ref() Reference {
	return Reference{FileID: m.FileID, Score: m.Score, Metadata: m.Metadata}
}

// Index stores at most one entry per file id.
type Index interface {
	// Upsert writes or replaces the entry for fileID and returns the stored
	// embedding. An empty embedding is a no-op.
	Upsert(ctx context.Context, fileID string, embedding []float32, metadata map[string]string, text string) ([]float32, error)
	// Delete removes the entry for fileID. It never fails: errors are logged.
	Delete(ctx context.Context, fileID string)
	// Search returns at most topK entries by descending similarity to query.
	Search(ctx context.Context, query []float32, topK int) ([]Match, error)
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
	// Health reports whether the backing store answers.
	Health(ctx context.Context) error
	Close() error
}

// Open creates the driver selected by cfg.Index.Driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("driver", cfg.Index.Driver))

	switch cfg.Index.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.Index.Path, logger)
	case "qdrant":
		return NewQdrant(ctx, cfg.Index.QdrantHost, cfg.Index.QdrantPort, logger)
	case "pgvector":
		return NewPgvector(ctx, cfg.Index.DatabaseURL, logger)
	default:
		return nil, fmt.Errorf("%w: unknown index driver %q", config.ErrConfiguration, cfg.Index.Driver)
	}
}

// sortMatches orders by score descending, then file id ascending.
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].FileID < matches[j].FileID
	})
}

// cosine returns the cosine similarity of a and b, or false when the
// vectors differ in length. A zero vector has similarity 0 with anything.
func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, true
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
