package api

import (
	"encoding/json"
	"net/http"
)

// Response is the standard API response wrapper.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error represents an API error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// Common error codes.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// ErrInternalServer is the fallback error for unexpected failures.
var ErrInternalServer = &Error{
	Code:    ErrCodeInternalError,
	Message: "Internal server error",
	Status:  http.StatusInternalServerError,
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Data: data})
}

// JSONError writes a JSON error response.
func JSONError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	json.NewEncoder(w).Encode(Response{Error: err})
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NewBadRequest creates a bad request error with a custom message.
func NewBadRequest(message string) *Error {
	return &Error{Code: ErrCodeBadRequest, Message: message, Status: http.StatusBadRequest}
}

// NewNotFound creates a not found error with a custom message.
func NewNotFound(message string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: message, Status: http.StatusNotFound}
}

// NewConflict creates a conflict error with a custom message.
func NewConflict(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, Status: http.StatusConflict}
}

// NewUpstreamError creates a bad gateway error for collaborator failures.
func NewUpstreamError(message string) *Error {
	return &Error{Code: ErrCodeUpstream, Message: message, Status: http.StatusBadGateway}
}
