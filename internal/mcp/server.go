package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/bull/docintel/internal/chat"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/storage"
)

// ErrMissingService is returned when NewServer is given no Service.
var ErrMissingService = errors.New("mcp: service is required")

// Service is the subset of indexer.Service the tools call.
type Service interface {
	Search(ctx context.Context, query string, topK int) ([]storage.Match, error)
	Chat(ctx context.Context, question string, topK int) (*chat.Answer, error)
	Status(ctx context.Context) (*indexer.Status, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	svc    Service
	logger *zap.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(svc Service, version string, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, ErrMissingService
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "docintel",
		Version: version,
	}, nil)

	s := &Server{server: server, svc: svc, logger: logger}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_files",
		Description: "Semantic search over the indexed files. Returns file ids, scores and a text preview.",
	}, s.handleSearch)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_files",
		Description: "Answer a question using the most relevant indexed files as context.",
	}, s.handleAsk)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report the inference backend, index driver, file count and index health.",
	}, s.handleStatus)

	return s, nil
}

// Run serves over stdio until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
