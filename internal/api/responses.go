package api

import (
	"campusmarket/internal/apperr"
	"campusmarket/internal/logger"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string            `json:"error" example:"something went wrong"`
	Code    apperr.Kind       `json:"code,omitempty" example:"validation_error"`
	Details []ValidationError `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// RespondError writes err with the status code of its kind. Internal causes
// are logged and replaced by the public message.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), ErrorResponse{
		Error: apperr.Message(err),
		Code:  kind,
	})
}
