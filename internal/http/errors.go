package http

import (
	"errors"
	"net/http"

	"projex/internal/core"
	applog "projex/internal/log"
	"projex/internal/middleware/trace"
)

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNotAuthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Unclassified failures are logged and reported
// with a generic message and the request id.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ctx := r.Context()

	if status == http.StatusInternalServerError {
		applog.FromContext(ctx).ErrorContext(ctx, "Request failed", applog.FieldError, err)
		var details []string
		if id := trace.GetRequestID(ctx); id != "" {
			details = append(details, "request id "+id)
		}
		ErrorResponse(status, "Server Error", details...).Write(w, r)
		return
	}

	msg, details := core.Message(err)
	applog.FromContext(ctx).DebugContext(ctx, "Request rejected", applog.FieldStatusCode, status, applog.FieldError, msg)
	ErrorResponse(status, msg, details...).Write(w, r)
}
