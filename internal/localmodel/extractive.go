package localmodel

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// ExtractiveSummarizer ranks sentences by normalised word frequency and keeps
// the best ones, in document order, until the minimum length is reached.
type ExtractiveSummarizer struct{}

// NewExtractiveSummarizer creates the frequency-ranking summarizer.
func NewExtractiveSummarizer() *ExtractiveSummarizer {
	return &ExtractiveSummarizer{}
}

// Name returns the model identifier.
func (s *ExtractiveSummarizer) Name() string { return extractiveID }

// Summarize selects sentences until minWords is reached and cuts the result
// at maxWords.
func (s *ExtractiveSummarizer) Summarize(ctx context.Context, text string, minWords, maxWords int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	var sentences []string
	for _, raw := range sentencePattern.FindAllString(text, -1) {
		if s := strings.TrimSpace(raw); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return truncateWords(text, maxWords), nil
	}

	// Word frequencies over the whole text, stopwords filtered, scaled to [0,1].
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range tokenize(sent) {
			if isStopword(tok) {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
		words int
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := tokenize(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if len(toks) > 0 {
			score /= math.Sqrt(float64(len(toks)))
		}
		ranked[i] = scored{idx: i, score: score, words: len(strings.Fields(sent))}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var selected []int
	total := 0
	for _, r := range ranked {
		selected = append(selected, r.idx)
		total += r.words
		if total >= minWords {
			break
		}
	}
	sort.Ints(selected)

	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return truncateWords(strings.Join(out, " "), maxWords), nil
}
