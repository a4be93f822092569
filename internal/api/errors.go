package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/codeeasy/internal/api/middleware"
	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// WriteError writes an error response and logs it at a level matching the
// status code.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		logAttrs = append(logAttrs, "request_id", requestID)
	}

	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// BadRequest writes a 400 response
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", message))
}

// NotFound writes a 404 response for resource
func NotFound(w http.ResponseWriter, r *http.Request, resource string) {
	WriteError(w, r, http.StatusNotFound, NewAPIError("NOT_FOUND", resource+" not found"))
}

// InternalError writes a 500 response without leaking cause
func InternalError(w http.ResponseWriter, r *http.Request, message string, cause error) {
	WriteError(w, r, http.StatusInternalServerError, NewAPIError("INTERNAL_ERROR", message).WithCause(cause))
}

// ServiceUnavailable writes a 503 response
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, message string, cause error) {
	WriteError(w, r, http.StatusServiceUnavailable, NewAPIError("SERVICE_UNAVAILABLE", message).WithCause(cause))
}

// ValidationFailed writes a 400 response for a rejected submission. An
// unsupported language lists the supported IDs in details.
func ValidationFailed(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := NewAPIError("VALIDATION_ERROR", err.Error()).WithCause(err)

	var langErr *domain.UnsupportedLanguageError
	var fieldErr *domain.ValidationError
	switch {
	case errors.As(err, &langErr):
		apiErr.Code = "UNSUPPORTED_LANGUAGE"
		apiErr.Details = map[string]any{"supportedLanguageIds": langErr.Supported}
	case errors.As(err, &fieldErr):
		apiErr.Details = map[string]string{"field": fieldErr.Field}
	}

	WriteError(w, r, http.StatusBadRequest, apiErr)
}

// catalogError maps catalog lookups onto 404 or 500.
func catalogError(w http.ResponseWriter, r *http.Request, resource string, err error) {
	switch {
	case errors.Is(err, domain.ErrTrackNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrExerciseNotFound),
		errors.Is(err, domain.ErrConceptNotFound):
		WriteError(w, r, http.StatusNotFound, NewAPIError("NOT_FOUND", resource+" not found").WithCause(err))
	default:
		InternalError(w, r, "failed to read "+resource, err)
	}
}
