package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/docintake/internal/common"
	"github.com/joseph-ayodele/docintake/internal/extract"
	"github.com/joseph-ayodele/docintake/internal/llm"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
}

// statusFor maps an error onto an HTTP status and a message safe to show
// the caller. Internal details stay in the logs.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, common.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "File exceeds the upload size limit"
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusBadRequest, "Invalid file type. Only PDF, DOCX, TXT, and image files (JPG, PNG, GIF, BMP, TIFF) are allowed."
	case errors.Is(err, extract.ErrExtractionFailed):
		return http.StatusBadRequest, "Failed to extract text from document. Please ensure the file is not corrupted."
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, llm.ErrAIRequestFailed):
		return http.StatusBadGateway, "Failed to generate AI summary. Please try again."
	case errors.Is(err, llm.ErrInvalidAIResponse):
		return http.StatusInternalServerError, "Failed to generate AI summary. Please try again."
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, common.ErrConflict):
		return http.StatusConflict, "This resource already exists"
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "http.error",
		"req_id", common.RequestIDFromContext(r.Context()),
		"user_id", common.UserIDFromContext(r.Context()),
		"role", common.UserRoleFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"err", err,
	)
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}
