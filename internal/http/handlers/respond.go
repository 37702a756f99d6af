package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/postboard/internal/domain"
	"github.com/geocoder89/postboard/internal/http/middlewares"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	ctx.Header("WWW-Authenticate", "Bearer")
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

// RespondDomainError maps the domain error kinds onto HTTP statuses.
// Anything unclassified is logged and reported as a 500 with a generic
// message so store internals never leak to clients.
func RespondDomainError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		RespondBadRequest(ctx, publicMessage(err, domain.ErrBadRequest), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		RespondUnAuthorized(ctx, "unauthorized", "Could not validate credentials")
	case errors.Is(err, domain.ErrForbidden):
		RespondForbidden(ctx, "Not enough permissions")
	case errors.Is(err, domain.ErrNotFound):
		RespondNotFound(ctx, publicMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrConflict):
		RespondConflict(ctx, "conflict", publicMessage(err, domain.ErrConflict))
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), fallback, "err", err, "request_id", requestIDFrom(ctx))
		RespondInternal(ctx, fallback)
	}
}

// publicMessage drops the trailing category from a wrapped domain error,
// "post not found: not found" becomes "post not found".
func publicMessage(err error, kind error) string {
	return strings.TrimSuffix(err.Error(), ": "+kind.Error())
}
