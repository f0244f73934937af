// Package http provides the JSON API over the home, expense and catalog
// services.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"gastos/internal/core"
	"gastos/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       any
	headers    map[string]string
}

// errorBody is the shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the response. A nil body with a 204 status writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates a response carrying message in an error body.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NoContent is the response of successful deletes.
func NoContent() *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusNoContent)
}

// ErrorFor maps a service error to a response. Unknown errors are logged
// and reported without detail.
func ErrorFor(r *http.Request, err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("not found")
	case errors.Is(err, core.ErrNameTaken):
		return ConflictError(err.Error())
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, errValidation):
		return BadRequestError(err.Error())
	default:
		logger := log.NewStructuredLogger(log.FromContext(r.Context()).WithComponent(log.ComponentHTTP))
		logger.LogError(r.Context(), "Request failed", err, operationFor(r), log.LogFields{
			log.FieldMethod: r.Method,
			log.FieldPath:   r.URL.Path,
		})
		return InternalServerError("internal error")
	}
}

// operationFor names what a request does on its resource.
func operationFor(r *http.Request) string {
	switch r.Method {
	case http.MethodPost:
		if r.PathValue("id") != "" {
			return log.OpUpdate
		}
		return log.OpCreate
	case http.MethodPut:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	}
	if r.PathValue("id") == "" {
		return log.OpList
	}
	return log.OpRead
}
