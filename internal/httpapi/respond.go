package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bull/docintel/internal/extract"
	"github.com/bull/docintel/internal/gateway"
	"github.com/bull/docintel/internal/indexer"
	"github.com/bull/docintel/internal/storage"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteJSON writes data with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(data)
}

func writeBadRequest(w http.ResponseWriter, message string, fields map[string]string) error {
	return WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: message,
		Fields:  fields,
	})
}

// validateStruct returns per-field messages for the failed rules of s.
func validateStruct(s any) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = fmt.Sprintf("%s is required", fe.Field())
		case "gte":
			fields[fe.Field()] = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "lte":
			fields[fe.Field()] = fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		default:
			fields[fe.Field()] = fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		}
	}
	return fields
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, indexer.ErrInvalidInput), errors.Is(err, extract.ErrExtraction):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, gateway.ErrProvider):
		status, code = http.StatusBadGateway, "provider_error"
	case errors.Is(err, storage.ErrStorage):
		status, code = http.StatusServiceUnavailable, "index_unavailable"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}

	if werr := WriteJSON(w, status, ErrorResponse{Error: code, Message: err.Error()}); werr != nil {
		logger.Error("failed to write error response", zap.Error(werr))
	}
}
