// Package errors defines the JSON error shape of the rates API and a
// small handler that logs and renders failures consistently across
// endpoints.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// APIError is the wire format for any failed request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates an APIError.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates an APIError carrying extra context.
func NewWithDetails(statusCode int, errorCode, message string, details any) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// ErrInternalServer is the fallback for errors no handler mapped.
var ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")

// InvalidPeriod flags a malformed YYYY-MM path parameter.
func InvalidPeriod(raw string, err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, "INVALID_PERIOD",
		fmt.Sprintf("invalid period %q, want YYYY-MM", raw), err.Error())
}

// PeriodNotFound flags a period with no extracted payload.
func PeriodNotFound(period string) *APIError {
	return NewWithDetails(http.StatusNotFound, "PERIOD_NOT_FOUND",
		fmt.Sprintf("no rate schedule for period %s", period), period)
}

// NoPayloads flags an empty store, which happens until the first
// refresh completes.
func NoPayloads() *APIError {
	return New(http.StatusNotFound, "NO_PAYLOADS", "no rate schedules extracted yet")
}

// Handler logs failed requests and renders their APIError.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates an error handler.
func NewHandler(logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger.With(slog.String("component", "error_handler"))}
}

// Handle renders err as an APIError. Errors without an APIError in
// their chain respond as internal server errors; their text stays in
// the logs, not the response.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = ErrInternalServer
	}

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.Int("status", apiErr.StatusCode),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		h.logger.WarnContext(r.Context(), "request rejected", attrs...)
	}

	if rerr := render.Render(w, r, apiErr); rerr != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}
