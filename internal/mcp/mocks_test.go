package mcp

import (
	"context"

	"github.com/bull/docintel/internal/chat"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/storage"
)

type mockService struct {
	matches []storage.Match
	answer  *chat.Answer
	status  *indexer.Status
	err     error

	lastTopK int
}

func (m *mockService) Search(_ context.Context, _ string, topK int) ([]storage.Match, error) {
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

func (m *mockService) Chat(_ context.Context, _ string, topK int) (*chat.Answer, error) {
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockService) Status(context.Context) (*indexer.Status, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}
