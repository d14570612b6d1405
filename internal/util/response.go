package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thecueroom/backend/internal/errors"
	"github.com/thecueroom/backend/internal/logger"
	"github.com/thecueroom/backend/internal/middleware"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body for every error status.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError writes the error as JSON and logs it, error level for
// 5xx and warn for 4xx.
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("field", apiErr.Field),
	}
	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Log.Error("API error", append(fields, zap.Int("status", apiErr.Status))...)
	case apiErr.Status >= http.StatusBadRequest:
		logger.Log.Warn("API error", fields...)
	}

	// Route template, not the raw URL, so the endpoint label stays bounded
	endpoint := c.FullPath()
	if endpoint == "" {
		endpoint = "unmatched"
	}
	middleware.RecordError(string(apiErr.Code), endpoint)

	c.JSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

func RespondForbidden(c *gin.Context, message ...string) {
	msg := "forbidden"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Forbidden(msg))
}

func RespondInternalError(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.InternalError(message))
}

func RespondConflict(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.Conflict(resource))
}

// RespondValidationError answers 422 with the offending field named.
func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
