package localmodel

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
)

// HashingEmbedder maps tokens into a fixed number of buckets with FNV-1a and
// weights them by sublinear term frequency. Output is L2-normalised, so the
// dot product of two embeddings is their cosine similarity.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates an embedder producing dim-sized vectors.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = defaultHashDim
	}
	return &HashingEmbedder{dim: dim}
}

// Name returns the model identifier.
func (e *HashingEmbedder) Name() string {
	return fmt.Sprintf("%s-%d", hashingPrefix, e.dim)
}

// Dimension returns the vector size.
func (e *HashingEmbedder) Dimension() int { return e.dim }

// Embed returns the normalised hashed term vector. Text without tokens
// yields an all-zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := contentTokens(tokenize(text))

	// Distinct tokens in first-seen order keep the float sums deterministic.
	counts := make(map[string]int, len(tokens))
	var order []string
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	acc := make([]float64, e.dim)
	for _, tok := range order {
		acc[e.bucket(tok)] += 1 + math.Log(float64(counts[tok]))
	}

	norm := 0.0
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dim)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

func (e *HashingEmbedder) bucket(tok string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	return int(h.Sum64() % uint64(e.dim))
}

// contentTokens drops stopwords unless nothing else is left.
func contentTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !isStopword(tok) {
			out = append(out, tok)
		}
	}
	if len(out) == 0 {
		return tokens
	}
	return out
}
