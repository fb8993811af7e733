package respond

import (
	"github.com/gin-gonic/gin"

	"resume-roaster/internal/shared/telemetry"
)

// ErrorResponse is the error body returned by every endpoint. Code is the
// machine-readable kind; clients must branch on it rather than on Error text.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	Details     string `json:"details,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string) {
	Abort(c, status, ErrorResponse{Error: message, Code: code})
}

// Abort logs and sends a fully populated error body.
func Abort(c *gin.Context, status int, body ErrorResponse) {
	fields := map[string]any{
		"status":     status,
		"code":       body.Code,
		"message":    body.Error,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if body.Details != "" {
		fields["details"] = body.Details
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, body)
}
