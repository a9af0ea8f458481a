// Package http provides the REST transport of the API.
//
// This file implements the Builder Pattern for JSON responses so every
// handler emits the same envelope.

package http

import (
	"encoding/json"
	"net/http"

	applog "projex/internal/log"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool     `json:"success"`
	Count   *int     `json:"count,omitempty"`
	Data    any      `json:"data,omitempty"`
	Token   string   `json:"token,omitempty"`
	User    any      `json:"user,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       envelope
	headers    map[string]string
}

// NewJSONResponse creates a successful response builder with 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       envelope{Success: true},
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.body.Data = v
	return b
}

// List sets a collection payload together with its count.
func (b *JSONResponseBuilder) List(v any, n int) *JSONResponseBuilder {
	b.body.Data = v
	b.body.Count = &n
	return b
}

func (b *JSONResponseBuilder) Token(token string) *JSONResponseBuilder {
	b.body.Token = token
	return b
}

func (b *JSONResponseBuilder) User(v any) *JSONResponseBuilder {
	b.body.User = v
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	b.body.Message = msg
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Failed to encode response", applog.FieldError, err)
	}
}

// ErrorResponse creates a failed response carrying a caller-facing message.
func ErrorResponse(statusCode int, message string, details ...string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode)
	b.body.Success = false
	b.body.Message = message
	b.body.Errors = details
	return b
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
