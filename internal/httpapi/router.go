// Package httpapi serves the document operations over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bull/docintel/internal/chat"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/storage"
)

// MaxUploadBytes bounds multipart request bodies.
const MaxUploadBytes = 50 << 20

// Service is the subset of indexer.Service served over HTTP.
type Service interface {
	Ingest(ctx context.Context, req indexer.IngestRequest) (*indexer.IngestResult, error)
	Search(ctx context.Context, query string, topK int) ([]storage.Match, error)
	DeleteVector(ctx context.Context, fileID string)
	Chat(ctx context.Context, question string, topK int) (*chat.Answer, error)
	Status(ctx context.Context) (*indexer.Status, error)
}

// Options configures the router.
type Options struct {
	Version     string
	CORSOrigins []string
	// MCP is mounted at /mcp when set.
	MCP            http.Handler
	RequestTimeout time.Duration
}

// API holds handler dependencies.
type API struct {
	svc     Service
	version string
	logger  *zap.Logger
}

// NewRouter configures all routes and middleware.
func NewRouter(svc Service, opts Options, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Minute
	}
	a := &API{svc: svc, version: opts.Version, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", a.rootHandler)
	r.Get("/health", a.healthHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))

		r.Post("/api/extract-text", a.extractTextHandler)
		r.Route("/api/ai", func(r chi.Router) {
			r.Post("/ingest", a.ingestHandler)
			r.Post("/search", a.searchHandler)
			r.Post("/chat", a.chatHandler)
			r.Delete("/vectors/{fileID}", a.deleteVectorHandler)
		})
	})

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "endpoint not found"})
	})

	return r
}
