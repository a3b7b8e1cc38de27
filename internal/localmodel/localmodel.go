// Package localmodel provides the in-process inference runtimes behind the
// local gateway backend: a feature-hashing embedder, an extractive
// summarizer and an Ollama client for operators running a model server.
package localmodel

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrUnknownModel is returned when a model identifier cannot be served in-process.
var ErrUnknownModel = errors.New("unknown local model")

const (
	hashingPrefix  = "builtin/hashing"
	extractiveID   = "builtin/extractive"
	ollamaPrefix   = "ollama:"
	defaultHashDim = 384
	maxHashDim     = 1 << 16
)

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer condenses one piece of text. minWords and maxWords bound the
// output length; zero disables a bound.
type Summarizer interface {
	Name() string
	Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error)
}

// Options carries what the Ollama runtime needs.
type Options struct {
	OllamaURL string
	Logger    *zap.Logger
}

// ResolveEmbedder maps a model identifier onto an embedding runtime.
//
// Recognised identifiers: "builtin/hashing" or "builtin/hashing-<dim>",
// and "ollama:<model>".
func ResolveEmbedder(id string, opts Options) (Embedder, error) {
	id = strings.TrimSpace(id)
	switch {
	case strings.HasPrefix(id, hashingPrefix):
		dim, err := parseHashDim(strings.TrimPrefix(id, hashingPrefix))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrUnknownModel, id, err)
		}
		return NewHashingEmbedder(dim), nil
	case strings.HasPrefix(id, ollamaPrefix):
		model := strings.TrimPrefix(id, ollamaPrefix)
		if model == "" {
			return nil, fmt.Errorf("%w: %q: empty ollama model name", ErrUnknownModel, id)
		}
		return NewOllama(model, opts)
	default:
		return nil, fmt.Errorf("%w: %q is not available in-process", ErrUnknownModel, id)
	}
}

// ResolveSummarizer maps a model identifier onto a summarization runtime.
//
// Recognised identifiers: "builtin/extractive" and "ollama:<model>".
func ResolveSummarizer(id string, opts Options) (Summarizer, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == extractiveID:
		return NewExtractiveSummarizer(), nil
	case strings.HasPrefix(id, ollamaPrefix):
		model := strings.TrimPrefix(id, ollamaPrefix)
		if model == "" {
			return nil, fmt.Errorf("%w: %q: empty ollama model name", ErrUnknownModel, id)
		}
		return NewOllama(model, opts)
	default:
		return nil, fmt.Errorf("%w: %q is not available in-process", ErrUnknownModel, id)
	}
}

func parseHashDim(suffix string) (int, error) {
	if suffix == "" {
		return defaultHashDim, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(suffix, "-"))
	if err != nil || !strings.HasPrefix(suffix, "-") {
		return 0, fmt.Errorf("bad dimension suffix %q", suffix)
	}
	if n <= 0 || n > maxHashDim {
		return 0, fmt.Errorf("dimension %d out of range", n)
	}
	return n, nil
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// tokenize lower-cases text and returns its letter/digit runs.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// truncateWords keeps the first n whitespace-separated words of s.
func truncateWords(s string, n int) string {
	if n <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}
