// Package httpx holds the JSON envelope shared by all HTTP handlers.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kodacci/o-monitor-rest/internal/apperr"
)

// Envelope wraps every response body.
type Envelope struct {
	Success bool       `json:"success"`
	Result  any        `json:"result,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	HTTPCode int          `json:"httpCode"`
	Details  ErrorDetails `json:"details"`
}

type ErrorDetails struct {
	Code        apperr.Code `json:"code"`
	Description string      `json:"description"`
	Message     string      `json:"message"`
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, result any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Result: result})
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, result any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Result: result})
}

// Fail aborts the request with an error envelope. The status and code come from the outermost
// apperr.Error in err's chain; causes are never written to the client.
func Fail(c *gin.Context, err error) {
	body := ErrorBodyOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(body.HTTPCode, Envelope{Success: false, Error: body})
}

// ErrorBodyOf builds the error part of the envelope for err.
func ErrorBodyOf(err error) *ErrorBody {
	code := apperr.CodeOf(err)
	msg := code.Description()
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		msg = e.Message
	}
	return &ErrorBody{
		HTTPCode: code.HTTPStatus(),
		Details:  ErrorDetails{Code: code, Description: code.Description(), Message: msg},
	}
}

// BadRequest aborts with BAD_REQUEST_PARAMETERS and message.
func BadRequest(c *gin.Context, message string) {
	Fail(c, apperr.New(apperr.CodeBadRequest, message))
}
