package httperr

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

// Respond renders an engine error with the status matching its kind.
func Respond(c *gin.Context, err error) {
	var be BusinessError
	if !errors.As(err, &be) {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		Internal(c, "internal_error", "erro interno")
		return
	}

	msg := be.Message
	if msg == "" {
		msg = be.Code
	}

	switch be.Kind {
	case KindNotFound:
		NotFound(c, be.Code, msg)
	case KindInvalidStage:
		Write(c, http.StatusUnprocessableEntity, be.Code, msg)
	default:
		BadRequest(c, be.Code, msg)
	}
}
