package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/auth"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
)

const defaultMaxBodySize = 16 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

// decodeRequest reads a JSON body into dst and runs struct validation. When optional is true an
// empty body leaves dst at its zero value. Errors are written to w; the return reports success.
func decodeRequest(w http.ResponseWriter, r *http.Request, limit int64, optional bool, dst any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, limit)
	switch {
	case errors.Is(err, errEmptyBody) && optional:
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodePayloadTooLarge, "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return false
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeValidation, err.Error(), http.StatusBadRequest))
		return false
	default:
		if err := json.Unmarshal(body, dst); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeValidation, "request body must be valid JSON", http.StatusBadRequest))
			return false
		}
	}
	if err := requestValidator.Struct(dst); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeValidation, describeValidation(err), http.StatusBadRequest))
		return false
	}
	return true
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "email":
			parts = append(parts, field+" must be a valid email")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// requireIdentity returns the authenticated caller or writes 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnauthenticated, "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	httpx.WriteJSON(w, status, payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

type contextKey string

const (
	storeModeContextKey    contextKey = "handlers/store-mode"
	exposeErrorsContextKey contextKey = "handlers/expose-errors"
)

// storeModeMiddleware advertises the active backend on every response.
func storeModeMiddleware(mode string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Store-Mode", mode)
			ctx := context.WithValue(r.Context(), storeModeContextKey, mode)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func storeModeFrom(ctx context.Context) string {
	mode, _ := ctx.Value(storeModeContextKey).(string)
	return mode
}

func exposeErrorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), exposeErrorsContextKey, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func exposeErrors(ctx context.Context) bool {
	expose, _ := ctx.Value(exposeErrorsContextKey).(bool)
	return expose
}
