package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	defaultMaxResults = 5
	maxResultsLimit   = 20
	previewRunes      = 300
)

// handleSearch over-fetches when a score threshold is set so that
// filtering still leaves up to MaxResults files.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchFilesInput) (
	*mcp.CallToolResult, SearchFilesOutput, error,
) {
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	maxResults = min(maxResults, maxResultsLimit)

	fetch := maxResults
	if input.MinScore > 0 {
		fetch = maxResults * 3
	}

	matches, err := s.svc.Search(ctx, input.Query, fetch)
	if err != nil {
		s.logger.Warn("search_files failed", zap.Error(err))
		return nil, SearchFilesOutput{}, fmt.Errorf("search failed: %w", err)
	}

	results := make([]FileResult, 0, maxResults)
	for _, m := range matches {
		if input.MinScore > 0 && m.Score < input.MinScore {
			continue
		}
		results = append(results, FileResult{
			FileID:   m.FileID,
			Score:    m.Score,
			Filename: m.Metadata["filename"],
			Title:    m.Metadata["title"],
			Preview:  firstRunes(m.Text, previewRunes),
		})
		if len(results) == maxResults {
			break
		}
	}

	if len(results) == 0 {
		return nil, SearchFilesOutput{
			Results: []FileResult{},
			Message: "No matching files found. Try broader search terms.",
		}, nil
	}
	return nil, SearchFilesOutput{Results: results}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskFilesInput) (
	*mcp.CallToolResult, AskFilesOutput, error,
) {
	ans, err := s.svc.Chat(ctx, input.Question, input.TopK)
	if err != nil {
		s.logger.Warn("ask_files failed", zap.Error(err))
		return nil, AskFilesOutput{}, fmt.Errorf("ask failed: %w", err)
	}

	refs := make([]Reference, 0, len(ans.References))
	for _, r := range ans.References {
		refs = append(refs, Reference{FileID: r.FileID, Score: r.Score})
	}
	return nil, AskFilesOutput{Answer: ans.Answer, References: refs}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult, StatusOutput, error,
) {
	st, err := s.svc.Status(ctx)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("index_error: %w", err)
	}
	return nil, StatusOutput{
		Backend:    string(st.Backend),
		Driver:     st.Driver,
		TotalFiles: st.Files,
		Healthy:    st.Healthy,
		HealthNote: st.HealthNote,
		CheckedAt:  st.CheckedAt,
	}, nil
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
