// Package gateway exposes embedding, summarization and answer generation
// behind one interface, backed either by a hosted OpenAI-compatible API or by
// in-process models.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
)

var (
	// ErrProvider wraps any failed inference call. Calls are never retried.
	ErrProvider = errors.New("provider call failed")
	// ErrUnsupported is returned for operations a backend cannot perform.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// Gateway is the single entry point for model inference.
type Gateway interface {
	// Backend reports which variant serves the calls.
	Backend() config.Backend
	// Embed returns the embedding of text. Whitespace-only text yields an
	// empty embedding without contacting the backend.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Summarize summarizes each chunk and joins the results with a space.
	Summarize(ctx context.Context, chunks []string) (string, error)
	// Answer generates an answer to query grounded in docContext.
	Answer(ctx context.Context, query, docContext string) (string, error)
}

// New builds the variant selected by cfg.Backend.
func New(cfg *config.Config, logger *zap.Logger) (Gateway, error) {
	switch cfg.Backend {
	case config.BackendHosted:
		return NewHosted(cfg, logger)
	case config.BackendLocal:
		return NewLocal(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrConfiguration, cfg.Backend)
	}
}
