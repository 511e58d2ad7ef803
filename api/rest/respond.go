package rest

import (
	"errors"
	"net/http"

	"github.com/gamehive/server/social"
	"github.com/gin-gonic/gin"
)

// statusFor maps the domain error taxonomy to HTTP statuses. Anything
// outside the taxonomy is an unexpected storage failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, social.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, social.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, social.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, social.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error with its mapped status. Internal errors get a
// generic body; the cause is attached to the context for the request log.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
