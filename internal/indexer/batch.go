package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SourceDoc is one file produced by a Source.
type SourceDoc struct {
	FileID   string
	Filename string
	Data     []byte
}

// Source enumerates files for bulk ingestion.
type Source interface {
	// Revision identifies the snapshot being ingested, such as a commit SHA.
	Revision(ctx context.Context) (string, error)
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, path string) (*SourceDoc, error)
}

// BatchResult contains statistics about a bulk ingestion.
type BatchResult struct {
	TotalDocs      int
	SuccessfulDocs int
	FailedDocs     []FailedDoc
	Revision       string
	Duration       time.Duration
}

// FailedDoc represents a document that failed to ingest.
type FailedDoc struct {
	Path   string
	Reason string
}

// Progress is called after each document, successful or not.
type Progress func(path string, err error)

// IngestAll ingests every document of src. Individual failures are recorded
// and skipped; only listing errors and cancellation abort the run.
func (s *Service) IngestAll(ctx context.Context, src Source, userID string, progress Progress) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{}

	rev, err := src.Revision(ctx)
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	result.Revision = rev
	s.logger.Info("starting bulk ingestion", zap.String("revision", rev))

	paths, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list docs: %w", err)
	}
	result.TotalDocs = len(paths)
	s.logger.Info("found documents", zap.Int("count", len(paths)))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := s.ingestOne(ctx, src, path, userID)
		if progress != nil {
			progress(path, err)
		}
		if err != nil {
			s.logger.Warn("failed to ingest document", zap.String("path", path), zap.Error(err))
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
	}

	result.Duration = time.Since(start)
	s.logger.Info("bulk ingestion complete",
		zap.Int("successful", result.SuccessfulDocs),
		zap.Int("failed", len(result.FailedDocs)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *Service) ingestOne(ctx context.Context, src Source, path, userID string) error {
	doc, err := src.Fetch(ctx, path)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	_, err = s.Ingest(ctx, IngestRequest{
		FileID:   doc.FileID,
		UserID:   userID,
		Filename: doc.Filename,
		Data:     doc.Data,
	})
	return err
}
