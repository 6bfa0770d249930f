package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and request ID, then
// mapped through mobility.MapError to the message the user sees: JSON for
// /api/ routes and clients asking for it, an HTML page otherwise.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/mobility/internal/logging"
	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/uploads"
	"github.com/JonMunkholm/mobility/internal/web/templates"
)

var (
	errNotFound    = errors.New("page not found")
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
)

func fileTooLarge(limit int64) error {
	return fmt.Errorf("file too large: limit is %d bytes", limit)
}

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		formatErr *mobility.FormatError
		schemaErr *mobility.SchemaError
		loadErr   *mobility.LoadError
	)

	switch {
	case errors.As(err, &formatErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &schemaErr), errors.As(err, &loadErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, uploads.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, mobility.ErrUnknownFlow), errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, mobility.ErrNoDataset), errors.Is(err, mobility.ErrNothingToExport):
		return http.StatusConflict
	case errors.Is(err, mobility.ErrInvalidSelection), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case strings.Contains(err.Error(), "file too large"):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message with status.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := mobility.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request error", attrs...)
	case !mobility.IsUserFacing(err):
		logger.Error("unmapped request error", attrs...)
	default:
		logger.Warn("request error", attrs...)
	}

	if wantsJSON(r) {
		writeJSON(w, status, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}

	s.renderHTML(w, r, status, templates.ErrorPage(s.chrome(), errorAlert(msg), "/"))
}

func errorAlert(msg mobility.UserMessage) templates.Alert {
	return templates.Alert{Severity: "error", Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// wantsJSON reports whether the client should get a JSON body.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
