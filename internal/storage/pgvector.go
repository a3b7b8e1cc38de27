package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// Pgvector stores entries in a Postgres table with a pgvector column.
type Pgvector struct {
	pool   *pgxpool.Pool
	mu     sync.Mutex
	logger *zap.Logger
}

var _ Index = (*Pgvector)(nil)

// NewPgvector connects to dsn and creates the extension and table if needed.
// The vector column is unsized so any embedding dimension can be stored.
func NewPgvector(ctx context.Context, dsn string, logger *zap.Logger) (*Pgvector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to database: %w", ErrStorage, err)
	}

	s := &Pgvector{pool: pool, logger: logger}
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("pgvector index ready", zap.String("table", CollectionName))
	return s, nil
}

func (s *Pgvector) initialize(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: create vector extension: %w", ErrStorage, err)
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+CollectionName+` (
			file_id    TEXT PRIMARY KEY,
			embedding  vector NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			document   TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("%w: create table: %w", ErrStorage, err)
	}
	return nil
}

// Upsert implements Index.
func (s *Pgvector) Upsert(ctx context.Context, fileID string, embedding []float32, metadata map[string]string, text string) ([]float32, error) {
	if len(embedding) == 0 {
		return []float32{}, nil
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+CollectionName+` (file_id, embedding, metadata, document, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (file_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		fileID, pgvector.NewVector(embedding), metadata, text)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert %s: %w", ErrStorage, fileID, err)
	}
	return cloneVector(embedding), nil
}

// Delete implements Index.
func (s *Pgvector) Delete(ctx context.Context, fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.pool.Exec(ctx, "DELETE FROM "+CollectionName+" WHERE file_id = $1", fileID); err != nil {
		s.logger.Warn("delete failed", zap.String("file_id", fileID), zap.Error(err))
	}
}

// Search implements Index. Rows of another dimension are filtered out
// before the distance operator sees them.
func (s *Pgvector) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if len(query) == 0 || topK <= 0 {
		return []Match{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT file_id, 1 - (embedding <=> $1) AS score, metadata, document
		FROM `+CollectionName+`
		WHERE vector_dims(embedding) = $2
		ORDER BY embedding <=> $1, file_id
		LIMIT $3`,
		pgvector.NewVector(query), len(query), topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrStorage, err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.FileID, &m.Score, &m.Metadata, &m.Text); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStorage, err)
		}
		if m.Metadata == nil {
			m.Metadata = map[string]string{}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search rows: %w", ErrStorage, err)
	}
	sortMatches(matches)
	return matches, nil
}

// Count implements Index.
func (s *Pgvector) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+CollectionName).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	return n, nil
}

// Health implements Index.
func (s *Pgvector) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// Close implements Index.
func (s *Pgvector) Close() error {
	s.pool.Close()
	return nil
}
