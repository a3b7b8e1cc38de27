// Package summarizer condenses documents of any length by summarizing
// overlapping word windows and joining the results.
package summarizer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bull/docintel/internal/chunker"
	"github.com/bull/docintel/internal/gateway"
)

// Summarizer splits text with the chunker and summarizes each window
// through the gateway.
type Summarizer struct {
	gw        gateway.Gateway
	chunkSize int
	overlap   int
	logger    *zap.Logger
}

// New creates a Summarizer using the given window size and overlap in words.
func New(gw gateway.Gateway, chunkSize, overlap int, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{gw: gw, chunkSize: chunkSize, overlap: overlap, logger: logger}
}

// Summarize returns one summary per window, in order, joined by a space.
// Blank text yields "" without touching the gateway.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	chunks := chunker.Split(text, s.chunkSize, s.overlap)
	if len(chunks) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.gw.Summarize(ctx, []string{chunk})
		if err != nil {
			return "", fmt.Errorf("summarize window %d of %d: %w", i+1, len(chunks), err)
		}
		parts = append(parts, strings.TrimSpace(out))
	}

	s.logger.Debug("document summarized",
		zap.Int("windows", len(chunks)),
		zap.Int("input_chars", len(text)),
	)
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}
