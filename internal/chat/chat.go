// Package chat answers questions from the indexed documents.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/gateway"
	"github.com/bull/docintel/internal/storage"
)

const (
	// NoContextAnswer is returned when no stored document matched.
	NoContextAnswer = "I could not find any relevant files for that question."

	contextSeparator = "\n---\n"
	fallbackPrefix   = "Here is what I found:\n"
	fallbackRunes    = 500
)

// Answer is the reply to one question.
type Answer struct {
	Answer     string              `json:"answer"`
	References []storage.Reference `json:"references"`
}

// Summarizer condenses text; the in-process backend uses it instead of a
// generative answer.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Answerer runs retrieval-augmented question answering.
type Answerer struct {
	gw         gateway.Gateway
	index      storage.Index
	summarizer Summarizer
	logger     *zap.Logger
}

// New creates an Answerer.
func New(gw gateway.Gateway, index storage.Index, summarizer Summarizer, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{gw: gw, index: index, summarizer: summarizer, logger: logger}
}

// Ask embeds the question, retrieves up to topK documents and answers from them.
func (a *Answerer) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	vec, err := a.gw.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	var matches []storage.Match
	if len(vec) > 0 {
		matches, err = a.index.Search(ctx, vec, topK)
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
	}

	sections := make([]string, 0, len(matches))
	refs := make([]storage.Reference, 0, len(matches))
	for _, m := range matches {
		if m.Text != "" {
			sections = append(sections, m.Text)
		}
		refs = append(refs, m.Ref())
	}
	docContext := strings.Join(sections, contextSeparator)

	if docContext == "" {
		return &Answer{Answer: NoContextAnswer, References: []storage.Reference{}}, nil
	}

	text, err := a.answer(ctx, question, docContext)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("question answered",
		zap.Int("matches", len(matches)),
		zap.Int("context_chars", len(docContext)),
		zap.String("backend", string(a.gw.Backend())),
	)
	return &Answer{Answer: text, References: refs}, nil
}

func (a *Answerer) answer(ctx context.Context, question, docContext string) (string, error) {
	if a.gw.Backend() == config.BackendHosted {
		out, err := a.gw.Answer(ctx, question, docContext)
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		if !errors.Is(err, gateway.ErrUnsupported) {
			return "", fmt.Errorf("generate answer: %w", err)
		}
	}

	summary, err := a.summarizer.Summarize(ctx, fmt.Sprintf("Question: %s\n\nContext:\n%s", question, docContext))
	if err != nil {
		return "", fmt.Errorf("summarize context: %w", err)
	}
	if summary != "" {
		return summary, nil
	}
	return fallbackPrefix + firstRunes(docContext, fallbackRunes), nil
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
