package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/httpx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/platform/requestctx"
	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// writeServiceError maps service sentinels onto the public error envelope. Causes of 5xx
// responses are logged and only echoed to clients when the router exposes error details.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var gwErr *services.GatewayError
	var apiErr httpx.Error
	switch {
	case errors.Is(err, services.ErrValidation):
		apiErr = httpx.NewError(httpx.CodeValidation, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNotFound):
		apiErr = httpx.NewError(httpx.CodeNotFound, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrSignatureInvalid):
		apiErr = httpx.NewError(httpx.CodeSignatureInvalid, "payment signature verification failed", http.StatusBadRequest)
	case errors.Is(err, services.ErrAlreadyPaid):
		apiErr = httpx.NewError(httpx.CodeAlreadyPaid, "order has already been paid", http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidTransition):
		apiErr = httpx.NewError(httpx.CodeInvalidTransition, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrConflict):
		apiErr = httpx.NewError(httpx.CodeConflict, "request conflicts with the current state; retry", http.StatusConflict)
	case errors.As(err, &gwErr):
		if gwErr.Rejected {
			apiErr = httpx.NewError(httpx.CodeGateway, "payment gateway rejected the request", http.StatusBadRequest)
		} else {
			apiErr = httpx.NewError(httpx.CodeGateway, "payment gateway unavailable", http.StatusBadGateway)
		}
	case errors.Is(err, services.ErrStoreUnavailable):
		apiErr = httpx.NewError(httpx.CodeStoreUnavailable, "store unavailable", http.StatusInternalServerError)
	case errors.Is(err, context.DeadlineExceeded):
		apiErr = httpx.NewError(httpx.CodeInternal, "request timed out", http.StatusGatewayTimeout)
	default:
		apiErr = httpx.NewError(httpx.CodeInternal, "internal server error", http.StatusInternalServerError)
	}

	if apiErr.Status >= http.StatusInternalServerError || gwErr != nil {
		requestctx.Logger(ctx).Error("request failed", zap.Error(err), zap.Int("status", apiErr.Status))
		if exposeErrors(ctx) {
			apiErr = apiErr.WithCause(err)
		}
	}
	httpx.WriteError(ctx, w, apiErr)
}
