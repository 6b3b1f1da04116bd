// Package http serves the JSON API the UI shell drives the engine through.
//
// This file implements the Builder Pattern for constructing JSON responses.
// It keeps status codes, headers and body encoding consistent across handlers.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ResponseBuilder provides a fluent API for building JSON or plain text responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       []byte
	payload    any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the JSON body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.headers["Content-Type"] = "application/json"
	b.payload = v
	b.body = nil
	return b
}

// Text sets a plain text body.
func (b *ResponseBuilder) Text(s string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	b.body = []byte(s)
	b.payload = nil
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	body := b.body
	if b.payload != nil {
		encoded, err := json.Marshal(b.payload)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		body = append(encoded, '\n')
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// ServiceUnavailableError creates a 503 response for collaborators that are
// not configured.
func ServiceUnavailableError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// TooManyRequestsError creates a 429 response with a Retry-After hint.
func TooManyRequestsError(retryAfter string) *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", retryAfter)
}
