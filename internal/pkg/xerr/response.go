package xerr

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// CodeError carries a business code through the service layer.
// It implements the error interface and unwraps to the underlying error.
type CodeError struct {
	Code int
	Err  error
}

func (e *CodeError) Error() string {
	return e.Err.Error()
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

func NewCodeError(code int, err error) *CodeError {
	return &CodeError{Code: code, Err: err}
}

// Is reports whether err matches target, unwrapping CodeError if needed.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Response is the uniform JSON envelope.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func JSONResponse(c *gin.Context, httpStatus, code int, message string, data any) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Success(c *gin.Context, httpStatus int, message string, data any) {
	JSONResponse(c, httpStatus, SuccessCode, message, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	JSONResponse(c, httpStatus, code, message, nil)
}

// AbortWithError sends an error response and stops the handler chain.
func AbortWithError(c *gin.Context, httpStatus, code int, message string) {
	Error(c, httpStatus, code, message)
	c.Abort()
}
