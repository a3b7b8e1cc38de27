// Package indexer implements the document operations exposed to clients:
// ingestion, similarity search, vector deletion and question answering.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bull/docintel/internal/chat"
	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/extract"
	"github.com/bull/docintel/internal/gateway"
	"github.com/bull/docintel/internal/storage"
	"github.com/bull/docintel/internal/summarizer"
	"github.com/bull/docintel/internal/tagger"
	"github.com/bull/docintel/internal/workpool"
)

// ErrInvalidInput is returned for requests that cannot be served as given.
var ErrInvalidInput = errors.New("invalid input")

const (
	// DefaultTopK is used when a caller asks for zero results.
	DefaultTopK = 4

	previewRunes = 500
)

// IngestRequest is one uploaded file.
type IngestRequest struct {
	FileID   string
	UserID   string
	Filename string
	Data     []byte
}

// IngestResult describes what was derived from and stored for a file.
type IngestResult struct {
	FileID      string    `json:"file_id"`
	Summary     string    `json:"summary"`
	Tags        []string  `json:"tags"`
	Embedding   []float32 `json:"embedding"`
	TextPreview string    `json:"text_preview"`
	MimeType    string    `json:"mime_type"`
}

// Status summarizes the index for health endpoints and tooling.
type Status struct {
	Backend    config.Backend `json:"backend"`
	Driver     string         `json:"driver"`
	Files      int            `json:"files"`
	Healthy    bool           `json:"healthy"`
	CheckedAt  time.Time      `json:"checked_at"`
	HealthNote string         `json:"health_note,omitempty"`
}

// Service wires the gateway, index and derived-data components together.
type Service struct {
	gw         gateway.Gateway
	index      storage.Index
	summarizer *summarizer.Summarizer
	tagger     *tagger.Tagger
	answerer   *chat.Answerer
	pool       *workpool.Pool
	tagCount   int
	driver     string
	logger     *zap.Logger
}

// New builds a Service. gw should already be wrapped with gateway.Dispatch
// so inference runs on pool.
func New(cfg *config.Config, gw gateway.Gateway, index storage.Index, pool *workpool.Pool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	sum := summarizer.New(gw, cfg.ChunkSize, cfg.ChunkOverlap, logger.Named("summarizer"))
	return &Service{
		gw:         gw,
		index:      index,
		summarizer: sum,
		tagger:     tagger.New(cfg, logger.Named("tagger")),
		answerer:   chat.New(gw, index, sum, logger.Named("chat")),
		pool:       pool,
		tagCount:   cfg.DefaultTagCount,
		driver:     cfg.Index.Driver,
		logger:     logger,
	}
}

// Bootstrap constructs every dependency of a Service from cfg. The
// returned closer releases the index.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	gw, err := gateway.New(cfg, logger.Named("gateway"))
	if err != nil {
		return nil, nil, err
	}
	index, err := storage.Open(ctx, cfg, logger.Named("index"))
	if err != nil {
		return nil, nil, err
	}
	pool := workpool.New(cfg.WorkerPoolSize, logger.Named("workpool"))
	svc := New(cfg, gateway.Dispatch(gw, pool), index, pool, logger)
	return svc, index.Close, nil
}

// Ingest extracts the text of a file, derives its summary, tags and
// embedding concurrently and stores the embedding under FileID.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.FileID) == "" {
		return nil, fmt.Errorf("%w: file_id is required", ErrInvalidInput)
	}

	doc, err := extract.Extract(req.Data, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", req.FileID, err)
	}
	text := doc.Text

	var (
		summary   string
		tags      []string
		embedding []float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.summarizer.Summarize(gctx, text)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		summary = out
		return nil
	})
	g.Go(func() error {
		out, err := workpool.Do(gctx, s.pool, func(ctx context.Context) ([]string, error) {
			return s.tagger.GenerateTags(ctx, text, s.tagCount)
		})
		if err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		tags = out
		return nil
	})
	g.Go(func() error {
		out, err := s.gw.Embed(gctx, text)
		if err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
		embedding = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", req.FileID, err)
	}

	metadata := map[string]string{
		"filename":  req.Filename,
		"user_id":   req.UserID,
		"mime_type": doc.MimeType,
	}
	if doc.Title != "" {
		metadata["title"] = doc.Title
	}
	if len(doc.Headings) > 0 {
		metadata["headings"] = strings.Join(doc.Headings, "; ")
	}

	// The write completes even if the caller goes away after the
	// embedding was computed.
	stored, err := s.index.Upsert(context.WithoutCancel(ctx), req.FileID, embedding, metadata, text)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", req.FileID, err)
	}

	s.logger.Info("file ingested",
		zap.String("file_id", req.FileID),
		zap.String("mime_type", doc.MimeType),
		zap.Int("text_chars", len(text)),
		zap.Int("tags", len(tags)),
		zap.Int("dimension", len(stored)),
	)

	if tags == nil {
		tags = []string{}
	}
	return &IngestResult{
		FileID:      req.FileID,
		Summary:     summary,
		Tags:        tags,
		Embedding:   stored,
		TextPreview: preview(text),
		MimeType:    doc.MimeType,
	}, nil
}

// Search embeds query and returns the closest stored files.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]storage.Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vec, err := s.gw.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	matches, err := s.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return matches, nil
}

// DeleteVector removes the stored embedding of fileID. Unknown ids are
// ignored. The delete runs to completion regardless of ctx cancellation.
func (s *Service) DeleteVector(ctx context.Context, fileID string) {
	s.index.Delete(context.WithoutCancel(ctx), fileID)
	s.logger.Info("vector deleted", zap.String("file_id", fileID))
}

// Chat answers question from the topK closest files. A blank question
// matches nothing and gets chat.NoContextAnswer.
func (s *Service) Chat(ctx context.Context, question string, topK int) (*chat.Answer, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return s.answerer.Ask(ctx, question, topK)
}

// Status reports the entry count and index health. A failing health check
// is reported in the result, not as an error.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	st := &Status{
		Backend:   s.gw.Backend(),
		Driver:    s.driver,
		CheckedAt: time.Now().UTC(),
	}
	if err := s.index.Health(ctx); err != nil {
		st.HealthNote = err.Error()
		return st, nil
	}
	st.Healthy = true

	n, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	st.Files = n
	return st, nil
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes])
}
