// Package response provides standardized HTTP response formatting and error handling utilities.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	catalogerrors "github.com/listenupapp/bookcatalog/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Data    any                `json:"data,omitempty"`
	Details any                `json:"details,omitempty"`
	Error   string             `json:"error,omitempty"`
	Code    catalogerrors.Code `json:"code,omitempty"`
	Message string             `json:"message,omitempty"`
	Success bool               `json:"success"`
}

func write(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	write(w, status, Envelope{Success: status < 400, Data: data}, logger)
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a created response (201 Created).
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// NoContent writes a no content response (204 No Content).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	write(w, status, Envelope{Error: message}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Coded errors are mapped to their HTTP status, unknown errors become 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var coded *catalogerrors.Error
	if errors.As(err, &coded) {
		status := coded.HTTPStatus()
		if status >= http.StatusInternalServerError && logger != nil {
			logger.Error("Request failed", "code", coded.Code, "error", err)
		}
		write(w, status, Envelope{
			Error:   coded.Message,
			Code:    coded.Code,
			Details: coded.Details,
		}, logger)
		return
	}

	// Unknown error = 500
	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, "internal server error", logger)
}
