package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as JSON with a user-friendly message and action
//   - Sent with a status code derived from the error kind
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error kind
//  4. Error is mapped via core.MapError to get user-friendly message
//  5. Technical error is logged with request ID for correlation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/csvgenius/internal/core"
	"github.com/JonMunkholm/csvgenius/internal/logging"
)

var (
	// errRateLimited is reported by the per-IP limiter.
	errRateLimited = errors.New("rate limit exceeded")

	// errFileTooLarge wraps http.MaxBytesError so MapError can match it.
	errFileTooLarge = errors.New("file too large")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingFile),
		errors.Is(err, core.ErrMissingParameter),
		errors.Is(err, core.ErrInvalidSpec):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyRequests), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterBusy))
	}
	writeErrorMessage(w, r, status, err)
}

// retryAfterBusy is the Retry-After hint, in seconds, when no processing slot is free.
const retryAfterBusy = 5

// writeErrorMessage logs the technical error with context and writes the
// user-facing JSON body.
func writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, err error) {
	userMsg := core.MapError(err)
	logger := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error")
	} else {
		logger.Warn("request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}
