package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the standardized error envelope.
const (
	ErrOverloadedCode   = "OVERLOADED"
	ErrBadRequestCode   = "BAD_REQUEST"
	ErrTextTooLargeCode = "TEXT_TOO_LARGE"
	ErrTimeoutCode      = "TIMEOUT"
	ErrInternalCode     = "INTERNAL_ERROR"
	ErrUnauthorizedCode = "UNAUTHORIZED"
)

// RequestError is a request-scoped failure carrying an HTTP status and a
// stable machine code. Every failure path is fully recovered at the
// gateway boundary; no request crashes the process.
type RequestError struct {
	StatusCode int
	Code       string
	Reason     string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func NewRequestError(statusCode int, code, reason string, err error) *RequestError {
	return &RequestError{StatusCode: statusCode, Code: code, Reason: reason, Err: err}
}

// IsRequestError checks whether err is (or wraps) a RequestError.
func IsRequestError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// ErrorInfo is the JSON body of every error response.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// RetryAfterMS is set only on overload rejections.
	RetryAfterMS int `json:"retryAfterMs,omitempty"`
}

func respondError(c *gin.Context, reqErr *RequestError) {
	c.JSON(reqErr.StatusCode, gin.H{"error": ErrorInfo{
		Code:    reqErr.Code,
		Message: reqErr.Reason,
	}})
}

func respondOverload(c *gin.Context, retryAfterMS int) {
	seconds := (retryAfterMS + 999) / 1000
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", fmt.Sprintf("%d", seconds))
	c.JSON(http.StatusTooManyRequests, gin.H{"error": ErrorInfo{
		Code:         ErrOverloadedCode,
		Message:      "classification gateway is at capacity, retry later",
		RetryAfterMS: retryAfterMS,
	}})
}
