// Package chunker splits text into overlapping word windows.
package chunker

import "strings"

// Chunk is one window of a split document.
type Chunk struct {
	Index int    // Position in document (0, 1, 2...)
	Text  string // Words of the window joined by single spaces
}

// Split tokenizes text on whitespace and returns windows of at most chunkSize
// words, each starting overlap words before the previous window's end.
//
// A chunkSize <= 0 yields a single window with every word; a negative overlap
// is treated as 0. The next window always starts at least one word after the
// previous one, so an overlap >= chunkSize still terminates.
func Split(text string, chunkSize, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = len(words)
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := min(start+chunkSize, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}

		next := max(end-overlap, 0)
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// Chunks is Split with positions attached.
func Chunks(text string, chunkSize, overlap int) []Chunk {
	parts := Split(text, chunkSize, overlap)
	if parts == nil {
		return nil
	}
	out := make([]Chunk, len(parts))
	for i, p := range parts {
		out[i] = Chunk{Index: i, Text: p}
	}
	return out
}
