package chunker

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 500, 50))
	assert.Nil(t, Split("  \n\t ", 500, 50))
	assert.Nil(t, Chunks("", 10, 2))
}

func TestSplit_SingleWindow(t *testing.T) {
	chunks := Split("hello   world\n\nfoo", 500, 50)
	assert.Equal(t, []string{"hello world foo"}, chunks)
}

func TestSplit_Overlap(t *testing.T) {
	chunks := Split("a b c d e f g h i j", 4, 1)
	assert.Equal(t, []string{"a b c d", "d e f g", "g h i j"}, chunks)
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks := Split("a b c d e f g", 3, 0)
	assert.Equal(t, []string{"a b c", "d e f", "g"}, chunks)
}

// An overlap at least as large as the window must still make progress.
func TestSplit_OverlapNotSmallerThanSize(t *testing.T) {
	chunks := Split("a b c d e", 3, 5)
	assert.Equal(t, []string{"a b c", "b c d", "c d e"}, chunks)

	chunks = Split("a b c d", 2, 2)
	assert.Equal(t, []string{"a b", "b c", "c d"}, chunks)
}

func TestSplit_NonPositiveSize(t *testing.T) {
	assert.Equal(t, []string{"a b c"}, Split("a b c", 0, 0))
	assert.Equal(t, []string{"a b c"}, Split("a b c", -3, 1))
}

func TestSplit_NegativeOverlap(t *testing.T) {
	assert.Equal(t, []string{"a b", "c d"}, Split("a b c d", 2, -1))
}

func TestChunks_Indexes(t *testing.T) {
	chunks := Chunks("one two three four five", 2, 0)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, "five", chunks[2].Text)
}

// Dropping the overlapped prefix of every chunk after the first must give back
// the original word sequence.
func TestSplit_Reconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(300)
		words := make([]string, n)
		for i := range words {
			words[i] = vocab[rng.Intn(len(vocab))]
		}
		size := 1 + rng.Intn(40)
		overlap := rng.Intn(size)

		chunks := Split(strings.Join(words, " "), size, overlap)
		require.NotEmpty(t, chunks)
		assert.LessOrEqual(t, len(chunks), n)

		var rebuilt []string
		for i, c := range chunks {
			cw := strings.Fields(c)
			assert.LessOrEqual(t, len(cw), size)
			if i == 0 {
				rebuilt = append(rebuilt, cw...)
				continue
			}
			rebuilt = append(rebuilt, cw[overlap:]...)
		}
		assert.Equal(t, words, rebuilt, "size=%d overlap=%d n=%d", size, overlap, n)
	}
}

func TestSplit_TerminatesForLargeOverlap(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	chunks := Split(text, 10, 100)
	// Each window advances by one word.
	assert.Len(t, chunks, 991)
}
