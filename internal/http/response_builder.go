// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses. Every
// response uses the same envelope: {"status":"success","data":...} or
// {"status":"error","message":...}.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResponseBuilder provides a fluent API for building enveloped JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       envelope
	headers    map[string]string
}

// NewResponse creates a success response with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		body:       envelope{Status: statusSuccess},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload under "data".
func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.body.Data = data
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.body.Message = msg
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response. A 204 carries no body.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	writeJSON(w, b.statusCode, b.body)
}

// writeJSON writes v without the envelope.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse creates an error envelope with the given status.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	b := NewResponse().Status(statusCode)
	b.body = envelope{Status: statusError, Message: message}
	return b
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnauthorizedError creates a 401 Unauthorized error response.
func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error")
}

// ErrorFromDomain maps a service error to its status and client message.
// Unclassified errors become a generic 500.
func ErrorFromDomain(err error) *ResponseBuilder {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return BadRequestError(ve.Error())
	}

	status, ok := statusForKind(err)
	if !ok {
		return InternalServerError()
	}
	var de *core.Error
	if errors.As(err, &de) {
		return ErrorResponse(status, de.Message)
	}
	return ErrorResponse(status, defaultMessage(status))
}

func statusForKind(err error) (int, bool) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, true
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, true
	case errors.Is(err, core.ErrConflict):
		return http.StatusBadRequest, true
	}
	return 0, false
}

func defaultMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "Not found"
	case http.StatusForbidden:
		return "Not authorized"
	case http.StatusUnauthorized:
		return "Unauthorized"
	}
	return "Bad request"
}
