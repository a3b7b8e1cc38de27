// Package mcp exposes the document index as Model Context Protocol tools.
package mcp

import "time"

// SearchFilesInput defines the input parameters for the search_files tool.
type SearchFilesInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"the semantic search query for finding relevant files"`
	// MaxResults is the maximum number of files to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of files to return (default 5)"`
	// MinScore is the minimum relevance threshold.
	MinScore float64 `json:"min_score,omitempty" jsonschema:"minimum cosine similarity between -1 and 1 (default: no threshold)"`
}

// SearchFilesOutput contains the search results.
type SearchFilesOutput struct {
	Results []FileResult `json:"results"`
	// Message provides informational context (e.g., "No matching files found").
	Message string `json:"message,omitempty"`
}

// FileResult represents a single stored file matched by semantic search.
type FileResult struct {
	FileID   string  `json:"file_id"`
	Score    float64 `json:"score"`
	Filename string  `json:"filename,omitempty"`
	Title    string  `json:"title,omitempty"`
	// Preview is the start of the stored text.
	Preview string `json:"preview"`
}

// AskFilesInput defines the input parameters for the ask_files tool.
type AskFilesInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed files"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of files to use as context (default 4)"`
}

// AskFilesOutput is the answer and the files it was drawn from.
type AskFilesOutput struct {
	Answer     string      `json:"answer"`
	References []Reference `json:"references"`
}

// Reference points at one file used as answer context.
type Reference struct {
	FileID string  `json:"file_id"`
	Score  float64 `json:"score"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the index.
type StatusOutput struct {
	Backend    string    `json:"backend"`
	Driver     string    `json:"driver"`
	TotalFiles int       `json:"total_files"`
	Healthy    bool      `json:"healthy"`
	HealthNote string    `json:"health_note,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}
