package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and request ID, then
// returned to the client as a user-facing message with a support code:
// an HTML fragment for HTMX requests, JSON otherwise.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/csvanomaly/internal/core"
	"github.com/JonMunkholm/csvanomaly/internal/logging"
	"github.com/JonMunkholm/csvanomaly/internal/web/templates"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Code    string `json:"code"`
	Action  string `json:"action,omitempty"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var perr *core.Error
	switch {
	case errors.As(err, &perr):
		return core.StatusCode(perr.Kind)
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	if isHTMX(r) {
		renderErrorPartial(w, r, msg, status)
		return
	}
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Details: core.ErrorDetail(err),
		Code:    msg.Code,
		Action:  msg.Action,
	})
}

// renderErrorPartial renders an HTMX error fragment. HTMX does not swap
// non-2xx responses by default, so the fragment is sent with 200 and the
// real status travels in a header.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Error-Status", http.StatusText(status))
	w.WriteHeader(http.StatusOK)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
