package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/chachabrian/rescuelink-backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetProfile retrieves the user's profile
func GetProfile(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "User not found")
				return
			}
			internalError(c, log, err)
			return
		}

		ok(c, "Profile loaded", gin.H{"user": user.Profile()})
	}
}

// UpdateProfile changes the display name. Email is the login identity and
// cannot be edited here.
func UpdateProfile(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			Name *string `json:"name" form:"name"`
		}
		if err := c.ShouldBind(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body")
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				fail(c, http.StatusNotFound, "User not found")
				return
			}
			internalError(c, log, err)
			return
		}

		if input.Name != nil {
			if err := db.WithContext(c.Request.Context()).Model(&user).Update("name", strings.TrimSpace(*input.Name)).Error; err != nil {
				internalError(c, log, err)
				return
			}
		}

		if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
			internalError(c, log, err)
			return
		}
		ok(c, "Profile updated", gin.H{"user": user.Profile()})
	}
}
