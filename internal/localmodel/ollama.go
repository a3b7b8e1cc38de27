package localmodel

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

const ollamaSummaryPrompt = "Summarise the following document section in 2-3 sentences:\n\n"

// Ollama serves embeddings and summaries from a locally running Ollama
// server. It satisfies both Embedder and Summarizer.
type Ollama struct {
	model  string
	llm    *ollama.LLM
	logger *zap.Logger
}

// NewOllama creates a client for model. The server is not contacted until
// the first call.
func NewOllama(model string, opts Options) (*Ollama, error) {
	llmOpts := []ollama.Option{ollama.WithModel(model)}
	if opts.OllamaURL != "" {
		llmOpts = append(llmOpts, ollama.WithServerURL(opts.OllamaURL))
	}

	llm, err := ollama.New(llmOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialize ollama model %s: %w", model, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{model: model, llm: llm, logger: logger}, nil
}

// Name returns the model identifier.
func (o *Ollama) Name() string { return ollamaPrefix + o.model }

// Embed requests a single embedding.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embedding: empty response")
	}
	return vectors[0], nil
}

// Summarize asks the model for a short summary and cuts it at maxWords.
// minWords is advisory for generative models and is not enforced.
func (o *Ollama) Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	var callOpts []llms.CallOption
	callOpts = append(callOpts, llms.WithTemperature(0))
	if maxWords > 0 {
		// Rough budget: a word is a little over one token.
		callOpts = append(callOpts, llms.WithMaxTokens(maxWords*2))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, ollamaSummaryPrompt+text, callOpts...)
	if err != nil {
		return "", fmt.Errorf("ollama summary: %w", err)
	}
	o.logger.Debug("ollama summary generated",
		zap.String("model", o.model),
		zap.Int("min_words", minWords),
		zap.Int("input_chars", len(text)),
	)
	return truncateWords(strings.TrimSpace(out), maxWords), nil
}
