package httpapi

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Index     string `json:"index"`
	Backend   string `json:"backend"`
	Timestamp string `json:"timestamp"`
}

// healthHandler checks index connectivity with a 3-second budget.
func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	response := HealthResponse{Timestamp: time.Now().UTC().Format(time.RFC3339)}

	st, err := a.svc.Status(ctx)
	if err != nil || st == nil || !st.Healthy {
		response.Status = "unhealthy"
		response.Index = "disconnected"
		if st != nil {
			response.Backend = string(st.Backend)
		}
		_ = WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Status = "healthy"
	response.Index = "connected"
	response.Backend = string(st.Backend)
	_ = WriteJSON(w, http.StatusOK, response)
}

// ServiceInfo is returned from the root path.
type ServiceInfo struct {
	Service  string   `json:"service"`
	Version  string   `json:"version"`
	Status   string   `json:"status"`
	Features []string `json:"features"`
}

func (a *API) rootHandler(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, ServiceInfo{
		Service: "docintel",
		Version: a.version,
		Status:  "running",
		Features: []string{
			"Text extraction from PDF, DOCX, HTML, Markdown and plain text",
			"Summaries and tags for uploaded files",
			"Semantic search over file embeddings",
			"Question answering over indexed files",
			"MCP tools at /mcp",
		},
	})
}
