package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. The message code picks the HTTP status
//  5. Technical error + context is logged with request ID for correlation
//  6. User message is rendered as JSON, or as an HTML fragment for htmx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/carpenters/internal/core"
	"github.com/JonMunkholm/carpenters/internal/logging"
	"github.com/JonMunkholm/carpenters/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// codeStatus maps user message codes to HTTP status codes. Unlisted codes
// are server errors.
var codeStatus = map[string]int{
	"REQ001": http.StatusBadRequest,
	"MAP001": http.StatusConflict,
	"PRJ001": http.StatusConflict,
	"PRJ002": http.StatusBadRequest,
	"PRJ003": http.StatusNotFound,
	"PRJ004": http.StatusConflict,
	"EXP001": http.StatusNotFound,
	"EXP002": http.StatusUnprocessableEntity,
	"EXP003": http.StatusBadRequest,
	"EXP004": http.StatusNotFound,
	"OPS001": http.StatusConflict,
	"OPS002": http.StatusConflict,
	"OPS003": http.StatusGatewayTimeout,
	"MAP003": http.StatusBadGateway,
	"MAP004": http.StatusBadGateway,
	"DB001":  http.StatusServiceUnavailable,
	"DB002":  http.StatusServiceUnavailable,
}

// statusFor returns the HTTP status for a user message.
func statusFor(msg core.UserMessage) int {
	if status, ok := codeStatus[msg.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := core.MapError(err)
	statusCode := statusFor(userMsg)

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
		return
	}
	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// renderErrorPartial renders an htmx-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isHTMX checks if the request is an htmx request.
func isHTMX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}
