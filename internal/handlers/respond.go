package handlers

import (
	"errors"
	"net/http"

	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Every response carries success, status and message; handlers add fields.

func ok(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"success": true, "status": "success", "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "status": "error", "message": message})
}

// authError maps the auth failure classes onto the wire. Not-found and bad
// codes are reported with 200 so every auth response has the same shape.
func authError(c *gin.Context, log *zap.Logger, err error) {
	var v *auth.ValidationError
	var rl *auth.RateLimitError

	switch {
	case errors.As(err, &v):
		fail(c, http.StatusBadRequest, v.Message)
	case errors.Is(err, auth.ErrAccountNotFound):
		fail(c, http.StatusOK, "Account not found")
	case errors.Is(err, auth.ErrInvalidOTP):
		fail(c, http.StatusOK, "Invalid OTP")
	case errors.As(err, &rl):
		fail(c, http.StatusTooManyRequests, rl.Message)
	case errors.Is(err, auth.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, "Too many OTP requests, try again later")
	default:
		internalError(c, log, err)
	}
}

func boardError(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, incidents.ErrIncidentNotFound), errors.Is(err, incidents.ErrResponderNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, incidents.ErrInvalidInput):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, incidents.ErrResponderUnavailable),
		errors.Is(err, incidents.ErrInvalidTransition),
		errors.Is(err, incidents.ErrNoPendingIncident):
		fail(c, http.StatusConflict, err.Error())
	default:
		internalError(c, log, err)
	}
}

func internalError(c *gin.Context, log *zap.Logger, err error) {
	_ = c.Error(err)
	log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	fail(c, http.StatusInternalServerError, "Something went wrong, please try again")
}
