package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string, err error) *Error {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Conflict(message string, err error) *Error {
	return New(http.StatusConflict, message, err)
}

func Unavailable(message string, err error) *Error {
	return New(http.StatusServiceUnavailable, message, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Respond writes err as {"code":..,"message":..}; anything that is not an
// *Error becomes a 500.
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		appErr = Internal(err)
	}
	c.AbortWithStatusJSON(appErr.Code, appErr)
}

// ErrorMiddleware renders the last error pushed with c.Error, if the handler
// did not already write a response.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Respond(c, c.Errors.Last().Err)
	}
}
