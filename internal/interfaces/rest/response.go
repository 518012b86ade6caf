// Package rest holds the JSON envelope and error mapping shared by the HTTP
// handlers and middleware.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/pay-connector/internal/application"
	"github.com/DanielPopoola/pay-connector/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON wraps data in the success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// WriteError maps application errors to HTTP responses. Wrapped causes are
// logged but never written to the client.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	status := application.ToHTTPStatus(err)
	code := application.ToErrorCode(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "status", status, "error", err)
	} else {
		logger.Info("request rejected", "code", code, "status", status, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: publicMessage(err, status),
		},
	})
}

func publicMessage(err error, status int) string {
	if svcErr, ok := application.IsServiceError(err); ok {
		if svcErr.Code == application.ErrCodeInvalidInput && svcErr.Err != nil {
			return svcErr.Error()
		}
		return svcErr.Message
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}
