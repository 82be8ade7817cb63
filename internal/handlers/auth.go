package handlers

import (
	"net/http"

	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EmailInput is accepted as JSON or form-encoded.
type EmailInput struct {
	Email string `json:"email" form:"email"`
}

type VerifyOTPInput struct {
	Email   string `json:"email" form:"email"`
	OTPCode string `json:"otp_code" form:"otp_code"`
}

// Login confirms the account exists and returns its public profile.
func Login(svc *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input EmailInput
		if err := c.ShouldBind(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		profile, err := svc.Login(c.Request.Context(), input.Email)
		if err != nil {
			authError(c, log, err)
			return
		}
		ok(c, "Login successful", gin.H{"user": profile})
	}
}

// SendOTP issues a login code for a registered email.
func SendOTP(svc *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input EmailInput
		if err := c.ShouldBind(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := svc.SendOTP(c.Request.Context(), input.Email)
		if err != nil {
			authError(c, log, err)
			return
		}

		var extra gin.H
		if res.Code != "" {
			extra = gin.H{"otp_code": res.Code}
		}
		ok(c, res.Message, extra)
	}
}

// VerifyOTP checks a submitted code and hands back a session token.
func VerifyOTP(svc *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input VerifyOTPInput
		if err := c.ShouldBind(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := svc.VerifyOTP(c.Request.Context(), input.Email, input.OTPCode)
		if err != nil {
			authError(c, log, err)
			return
		}
		ok(c, "OTP verified successfully", gin.H{"user": res.User, "token": res.Token})
	}
}
