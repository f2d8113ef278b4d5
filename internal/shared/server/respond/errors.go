package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/apperr"
	"intake-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Fail maps err onto the standardized error response. Errors that are not
// *apperr.Error are reported as internal without exposing their text.
func Fail(c *gin.Context, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		telemetry.Error("http.unhandled_error", map[string]any{
			"request_id": c.GetString("requestId"),
			"error":      err,
		})
		Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		return
	}
	if ae.Err != nil {
		telemetry.Error("http.error_cause", map[string]any{
			"request_id": c.GetString("requestId"),
			"code":       ae.Code,
			"error":      ae.Err,
		})
	}
	Error(c, ae.Kind.HTTPStatus(), ae.Code, ae.Message, ae.Details)
}
