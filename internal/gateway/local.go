package gateway

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/localmodel"
)

// Local serves inference in-process. It cannot generate free-form answers.
type Local struct {
	embedder   localmodel.Embedder
	summarizer localmodel.Summarizer
	minWords   int
	maxWords   int
	logger     *zap.Logger
}

// NewLocal resolves the configured local models.
func NewLocal(cfg *config.Config, logger *zap.Logger) (*Local, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := localmodel.Options{OllamaURL: cfg.Local.OllamaURL, Logger: logger}

	emb, err := localmodel.ResolveEmbedder(cfg.Local.EmbeddingModel, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding model: %w", config.ErrConfiguration, err)
	}
	sum, err := localmodel.ResolveSummarizer(cfg.Local.SummarizationModel, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: summarization model: %w", config.ErrConfiguration, err)
	}

	logger.Info("local gateway ready",
		zap.String("embedding_model", emb.Name()),
		zap.String("summarization_model", sum.Name()),
	)
	return &Local{
		embedder:   emb,
		summarizer: sum,
		minWords:   cfg.SummaryMinLength,
		maxWords:   cfg.SummaryMaxLength,
		logger:     logger,
	}, nil
}

// NewLocalWith builds a Local from already constructed runtimes.
func NewLocalWith(emb localmodel.Embedder, sum localmodel.Summarizer, minWords, maxWords int, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{embedder: emb, summarizer: sum, minWords: minWords, maxWords: maxWords, logger: logger}
}

// Backend implements Gateway.
func (l *Local) Backend() config.Backend { return config.BackendLocal }

// Embed implements Gateway.
func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}
	vec, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s embed: %w", ErrProvider, l.embedder.Name(), err)
	}
	return vec, nil
}

// Summarize implements Gateway.
func (l *Local) Summarize(ctx context.Context, chunks []string) (string, error) {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := l.summarizer.Summarize(ctx, chunk, l.minWords, l.maxWords)
		if err != nil {
			return "", fmt.Errorf("%w: %s summarize chunk %d: %w", ErrProvider, l.summarizer.Name(), i, err)
		}
		parts = append(parts, strings.TrimSpace(out))
	}
	return strings.Join(parts, " "), nil
}

// Answer always fails with ErrUnsupported.
func (l *Local) Answer(ctx context.Context, query, docContext string) (string, error) {
	return "", ErrUnsupported
}
