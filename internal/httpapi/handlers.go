package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bull/docintel/internal/extract"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/storage"
)

// ExtractTextResponse is returned by POST /api/extract-text.
type ExtractTextResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
	MimeType string `json:"mime_type"`
}

// SearchRequest is the body of POST /api/ai/search.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k" validate:"gte=0,lte=100"`
}

// SearchResponse wraps search matches.
type SearchResponse struct {
	Results []storage.Match `json:"results"`
}

// ChatRequest is the body of POST /api/ai/chat.
type ChatRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k" validate:"gte=0,lte=100"`
}

type ingestForm struct {
	FileID string `validate:"required"`
	UserID string
}

func (a *API) extractTextHandler(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	text, mime, err := extract.ExtractText(data, filename)
	if err != nil {
		handleServiceError(w, err, a.logger)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ExtractTextResponse{Filename: filename, Text: text, MimeType: mime})
}

func (a *API) ingestHandler(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	form := ingestForm{FileID: r.FormValue("file_id"), UserID: r.FormValue("user_id")}
	if fields := validateStruct(form); fields != nil {
		_ = writeBadRequest(w, "invalid ingest form", fields)
		return
	}

	res, err := a.svc.Ingest(r.Context(), indexer.IngestRequest{
		FileID:   form.FileID,
		UserID:   form.UserID,
		Filename: filename,
		Data:     data,
	})
	if err != nil {
		handleServiceError(w, err, a.logger)
		return
	}
	_ = WriteJSON(w, http.StatusOK, res)
}

func (a *API) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	matches, err := a.svc.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		handleServiceError(w, err, a.logger)
		return
	}
	_ = WriteJSON(w, http.StatusOK, SearchResponse{Results: matches})
}

func (a *API) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !a.decodeBody(w, r, &req) {
		return
	}
	ans, err := a.svc.Chat(r.Context(), req.Question, req.TopK)
	if err != nil {
		handleServiceError(w, err, a.logger)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ans)
}

func (a *API) deleteVectorHandler(w http.ResponseWriter, r *http.Request) {
	a.svc.DeleteVector(r.Context(), chi.URLParam(r, "fileID"))
	w.WriteHeader(http.StatusNoContent)
}

// readUpload returns the multipart "file" field. It writes the error
// response itself and reports false on failure.
func (a *API) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "too_large", Message: err.Error()})
			return nil, "", false
		}
		_ = writeBadRequest(w, "expected multipart form: "+err.Error(), nil)
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = writeBadRequest(w, "missing file field", map[string]string{"file": "file is required"})
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.logger.Warn("read upload failed", zap.Error(err))
		_ = writeBadRequest(w, "could not read upload: "+err.Error(), nil)
		return nil, "", false
	}
	return data, header.Filename, true
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = writeBadRequest(w, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	if fields := validateStruct(dst); fields != nil {
		_ = writeBadRequest(w, "validation failed", fields)
		return false
	}
	return true
}
