package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"permissions-manager/internal/domain"
	"permissions-manager/internal/middleware"
)

// errorResponse is the JSON envelope for every error the API returns.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a domain error onto an HTTP status and the {code, message}
// envelope. Unknown errors become 500 and are logged with the request id;
// their message is not leaked to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var notFound *domain.NotFoundError
	var unauthorized *domain.UnauthorizedError
	var forbidden *domain.ForbiddenError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError
	var compile *domain.CompileError
	var cascade *domain.CascadeIntegrityError

	var status int
	var body errorResponse

	switch {
	case errors.As(err, &validation):
		status, body = http.StatusBadRequest, errorResponse{Code: validation.Code, Message: validation.Message}
	case errors.As(err, &unauthorized):
		status, body = http.StatusUnauthorized, errorResponse{Code: unauthorized.Code, Message: unauthorized.Message}
	case errors.As(err, &forbidden):
		status, body = http.StatusForbidden, errorResponse{Code: forbidden.Code, Message: forbidden.Message}
	case errors.As(err, &notFound):
		status, body = http.StatusNotFound, errorResponse{Code: notFound.Code, Message: notFound.Message}
	case errors.As(err, &conflict):
		status, body = http.StatusConflict, errorResponse{Code: conflict.Code, Message: conflict.Message}
	case errors.As(err, &compile):
		status = http.StatusInternalServerError
		body = errorResponse{Code: domain.CodeGrantCompileFailed, Message: "grant document compilation failed"}
		logger.Error("grant compilation failed", "error", err, "field", compile.Field,
			"request_id", middleware.RequestIDFromContext(r.Context()))
	case errors.As(err, &cascade):
		status = http.StatusInternalServerError
		body = errorResponse{Code: "cascade-integrity", Message: "visibility invariant violated"}
		logger.Error("cascade integrity violation", "error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()))
	default:
		status = http.StatusInternalServerError
		body = errorResponse{Code: "internal", Message: "internal error"}
		logger.Error("unhandled error", "error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
