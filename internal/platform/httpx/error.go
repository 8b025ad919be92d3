package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
)

// Machine-readable codes carried in the error envelope.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeSignatureInvalid  = "SIGNATURE_INVALID"
	CodeAlreadyPaid       = "ALREADY_PAID"
	CodeGateway           = "GATEWAY_ERROR"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	CodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeNotImplemented    = "NOT_IMPLEMENTED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is an HTTP failure rendered as {"success":false,"message":...,"code":...}.
type Error struct {
	Code    string
	Message string
	Status  int
	Cause   string
}

func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: oneLine(code, 80), Message: oneLine(message, 512), Status: status}
}

func (e Error) Error() string { return e.Code + ": " + e.Message }

// WithCause exposes the underlying error text under details.cause. Only used when the
// server runs with error exposure enabled.
func (e Error) WithCause(err error) Error {
	if err != nil {
		e.Cause = oneLine(err.Error(), 512)
	}
	return e
}

type envelope struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Code      string         `json:"code"`
	RequestID string         `json:"requestId,omitempty"`
	TraceID   string         `json:"traceId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// WriteError renders err with the request and trace ids from ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	body := envelope{
		Message:   err.Message,
		Code:      err.Code,
		RequestID: oneLine(middleware.GetReqID(ctx), 80),
		TraceID:   requestctx.TraceID(ctx),
	}
	if err.Cause != "" {
		body.Details = map[string]any{"cause": err.Cause}
	}
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	WriteJSON(w, status, body)
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func oneLine(s string, limit int) string {
	s = strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
	if len(s) > limit {
		s = s[:limit]
	}
	return s
}
