// Package tagger extracts short keyword tags from document text.
package tagger

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bull/docintel/internal/config"
	"github.com/bull/docintel/internal/localmodel"
)

// maxCandidates bounds how many distinct terms are embedded per document.
const maxCandidates = 64

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9_-]+`)

// Tagger ranks candidate terms either by similarity to the document
// embedding (when a keyword model is configured) or by frequency.
type Tagger struct {
	keywords   localmodel.Embedder
	defaultTop int
	logger     *zap.Logger
}

// New resolves cfg.Local.KeywordModel. An empty or "none" id, or one that
// cannot be served in-process, selects the frequency ranking.
func New(cfg *config.Config, logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tagger{defaultTop: cfg.DefaultTagCount, logger: logger}

	id := strings.TrimSpace(cfg.Local.KeywordModel)
	if id == "" || strings.EqualFold(id, "none") {
		logger.Info("keyword model disabled, using frequency tags")
		return t
	}
	emb, err := localmodel.ResolveEmbedder(id, localmodel.Options{OllamaURL: cfg.Local.OllamaURL, Logger: logger})
	if err != nil {
		logger.Warn("keyword model unavailable, using frequency tags", zap.String("model", id), zap.Error(err))
		return t
	}
	t.keywords = emb
	return t
}

// NewWith builds a Tagger around an explicit keyword embedder; nil selects
// the frequency ranking.
func NewWith(keywords localmodel.Embedder, defaultTop int, logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{keywords: keywords, defaultTop: defaultTop, logger: logger}
}

// UsesKeywordModel reports whether the embedding ranking is active.
func (t *Tagger) UsesKeywordModel() bool { return t.keywords != nil }

// GenerateTags returns up to topN tags, best first. topN <= 0 means the
// configured default.
func (t *Tagger) GenerateTags(ctx context.Context, text string, topN int) ([]string, error) {
	if topN <= 0 {
		topN = t.defaultTop
	}
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	terms := countTerms(text)
	if t.keywords != nil {
		tags, err := t.rankBySimilarity(ctx, text, terms, topN)
		if err == nil {
			return tags, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		t.logger.Warn("keyword model failed, using frequency tags",
			zap.String("model", t.keywords.Name()), zap.Error(err))
	}
	return top(terms, topN), nil
}

type term struct {
	word  string
	count int
	first int
	score float64
}

// countTerms tokenizes like the frequency ranking: lowercase runs of
// [a-zA-Z0-9_-], stopwords and tokens of three characters or fewer dropped.
// Terms come back in first-occurrence order.
func countTerms(text string) []*term {
	index := map[string]*term{}
	var terms []*term
	for i, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) <= 3 || isStopword(tok) {
			continue
		}
		if tm, ok := index[tok]; ok {
			tm.count++
			continue
		}
		tm := &term{word: tok, count: 1, first: i}
		index[tok] = tm
		terms = append(terms, tm)
	}
	return terms
}

// top returns the n most frequent terms, earlier terms winning ties.
func top(terms []*term, n int) []string {
	ranked := make([]*term, len(terms))
	copy(ranked, terms)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })

	out := make([]string, 0, min(n, len(ranked)))
	for _, tm := range ranked {
		if len(out) == n {
			break
		}
		out = append(out, tm.word)
	}
	return out
}

func (t *Tagger) rankBySimilarity(ctx context.Context, text string, terms []*term, n int) ([]string, error) {
	if len(terms) == 0 {
		return []string{}, nil
	}

	candidates := terms
	if len(candidates) > maxCandidates {
		candidates = make([]*term, len(terms))
		copy(candidates, terms)
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].count > candidates[j].count })
		candidates = candidates[:maxCandidates]
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].first < candidates[j].first })
	}

	doc, err := t.keywords.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	scored := make([]term, len(candidates))
	for i, tm := range candidates {
		vec, err := t.keywords.Embed(ctx, tm.word)
		if err != nil {
			return nil, err
		}
		scored[i] = term{word: tm.word, first: tm.first, score: cosine(doc, vec)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]string, 0, min(n, len(scored)))
	for _, tm := range scored {
		if len(out) == n {
			break
		}
		out = append(out, tm.word)
	}
	return out, nil
}
