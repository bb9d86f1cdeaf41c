package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kickgym/internal/apperr"
	"kickgym/internal/logger"
)

// ErrorResponse is the failure body of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error" example:"insufficient_credits"`
	Message string `json:"message" example:"no session credits remaining"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error" example:"invalid_argument"`
	Message string            `json:"message" example:"validation failed"`
	Details []ValidationError `json:"details"`
}

// RespondError writes err as {error: kind, message}. Causes of storage and
// unknown failures are logged, never sent to the caller.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindStorageFailure || kind == apperr.KindUnknown {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"kind", string(kind),
			"error", err.Error(),
		)
	}
	c.JSON(kind.HTTPStatus(), ErrorResponse{
		Error:   string(kind),
		Message: apperr.Message(err),
	})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   string(apperr.KindInvalidArgument),
		Message: message,
	})
}
