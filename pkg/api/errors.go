package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caseforge/caseforge/pkg/caseerrors"
	"github.com/caseforge/caseforge/pkg/services"
)

// errorResponse is the JSON body for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError classifies err by its caseerrors kind (or a
// services.ValidationError) and writes the matching status code and body.
// Unclassified errors are logged and reported as a generic 500, never
// leaking internal detail to the client.
func respondError(c *gin.Context, err error) {
	var validErr *services.ValidationError
	switch {
	case errors.As(err, &validErr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: validErr.Error()})
	case errors.Is(err, caseerrors.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, caseerrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, caseerrors.ErrUnauthorized):
		c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, caseerrors.ErrApprovalDenied):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, caseerrors.ErrDeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorResponse{Error: err.Error()})
	case errors.Is(err, caseerrors.ErrIntegrityViolation):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, caseerrors.ErrUpstream):
		slog.Error("upstream failure", "error", err)
		c.JSON(http.StatusBadGateway, errorResponse{Error: "upstream failure"})
	default:
		slog.Error("unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
