package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Envelope wraps every JSON body the API writes. Exactly one of Data and
// Error is meaningful; Error is omitted on success.
type Envelope struct {
	Data     any        `json:"data"`
	Error    *ErrorBody `json:"error,omitempty"`
	Metadata Metadata   `json:"metadata"`
}

// ErrorBody carries a stable code, its English message and, for validation
// failures, per-field messages keyed by JSON name.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success writes data with the given status.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, envelope(c, data, nil))
}

// NoContent writes a bodiless 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail writes an error envelope for code.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, envelope(c, nil, errorBody(code, nil)))
}

// FailWithFields is Fail with per-field validation messages.
func FailWithFields(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	c.JSON(status, envelope(c, nil, errorBody(code, fields)))
}

// AbortFail is Fail for middleware: later handlers in the chain do not run.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, envelope(c, nil, errorBody(code, nil)))
}

func errorBody(code ErrCode, fields map[string]string) *ErrorBody {
	return &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields}
}

func envelope(c *gin.Context, data any, errBody *ErrorBody) Envelope {
	return Envelope{
		Data:  data,
		Error: errBody,
		Metadata: Metadata{
			RequestID: requestID(c),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// requestID falls back to a fresh id on routes mounted without
// RequestIDMiddleware.
func requestID(c *gin.Context) string {
	if id, ok := c.Get(ContextKeyRequestID); ok {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	return uuid.NewString()
}
