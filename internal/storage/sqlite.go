package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/docintel/internal/storage/migrations"
)

// SQLiteFile is the database file created inside the index directory.
const SQLiteFile = "index.db"

// SQLite keeps entries in a single SQLite file and scans them for search.
type SQLite struct {
	db     *sql.DB
	path   string
	mu     sync.RWMutex
	logger *zap.Logger
}

var _ Index = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the index under dir.
func OpenSQLite(dir string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create index directory: %w", ErrStorage, err)
	}

	dbPath := filepath.Join(dir, SQLiteFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStorage, dbPath, err)
	}

	s := &SQLite{db: db, path: dbPath, logger: logger}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate %s: %w", ErrStorage, dbPath, err)
	}

	logger.Info("sqlite index opened", zap.String("path", dbPath))
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Upsert implements Index.
func (s *SQLite) Upsert(ctx context.Context, fileID string, embedding []float32, metadata map[string]string, text string) ([]float32, error) {
	if len(embedding) == 0 {
		return []float32{}, nil
	}

	meta, err := encodeMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin upsert %s: %w", ErrStorage, fileID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (file_id, embedding, dimension, metadata, document, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(file_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			metadata = excluded.metadata,
			document = excluded.document,
			updated_at = excluded.updated_at
	`, fileID, encodeVector(embedding), len(embedding), meta, text)
	if err != nil {
		return nil, fmt.Errorf("%w: upsert %s: %w", ErrStorage, fileID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit upsert %s: %w", ErrStorage, fileID, err)
	}

	return cloneVector(embedding), nil
}

// Delete implements Index.
func (s *SQLite) Delete(ctx context.Context, fileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE file_id = ?", fileID); err != nil {
		s.logger.Warn("delete failed", zap.String("file_id", fileID), zap.Error(err))
	}
}

// Search implements Index. Entries whose dimension differs from the query
// are never candidates.
func (s *SQLite) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if len(query) == 0 || topK <= 0 {
		return []Match{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT file_id, embedding, metadata, document FROM files WHERE dimension = ?", len(query))
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrStorage, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			fileID, meta, doc string
			blob              []byte
		)
		if err := rows.Scan(&fileID, &blob, &meta, &doc); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrStorage, err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStorage, fileID, err)
		}
		score, ok := cosine(query, vec)
		if !ok {
			continue
		}
		metadata, err := decodeMetadata(meta)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStorage, fileID, err)
		}
		matches = append(matches, Match{FileID: fileID, Score: score, Metadata: metadata, Text: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: search rows: %w", ErrStorage, err)
	}

	sortMatches(matches)
	if len(matches) > topK {
		matches = matches[:topK]
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

// Count implements Index.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStorage, err)
	}
	return n, nil
}

// Health implements Index.
func (s *SQLite) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// Close implements Index.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}
