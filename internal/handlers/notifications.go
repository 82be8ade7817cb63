package handlers

import (
	"net/http"
	"strings"

	"github.com/chachabrian/rescuelink-backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterFCMToken stores the device token used for assignment pushes.
func RegisterFCMToken(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			FCMToken string `json:"fcmToken" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "fcmToken is required")
			return
		}

		res := db.WithContext(c.Request.Context()).Model(&models.User{}).
			Where("id = ?", userID).
			Update("fcm_token", strings.TrimSpace(input.FCMToken))
		if res.Error != nil {
			internalError(c, log, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		ok(c, "FCM token registered", nil)
	}
}

// RemoveFCMToken stops pushes to the user's device, e.g. on logout.
func RemoveFCMToken(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		if err := db.WithContext(c.Request.Context()).Model(&models.User{}).
			Where("id = ?", userID).
			Update("fcm_token", "").Error; err != nil {
			internalError(c, log, err)
			return
		}
		ok(c, "FCM token removed", nil)
	}
}
