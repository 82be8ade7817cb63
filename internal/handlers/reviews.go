package handlers

import (
	"net/http"
	"strings"

	"github.com/chachabrian/rescuelink-backend/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateReviewInput struct {
	ResponderName string `json:"responderName" binding:"required"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment" binding:"max=1000"`
}

// ListReviews returns feedback newest first.
func ListReviews(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reviews []models.Review
		if err := db.WithContext(c.Request.Context()).
			Order("created_at DESC").Order("id DESC").
			Limit(100).
			Find(&reviews).Error; err != nil {
			internalError(c, log, err)
			return
		}
		ok(c, "Reviews loaded", gin.H{"reviews": reviews, "count": len(reviews)})
	}
}

func CreateReview(db *gorm.DB, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid review: "+err.Error())
			return
		}

		review := models.Review{
			UserID:        c.GetUint("userId"),
			ResponderName: strings.TrimSpace(input.ResponderName),
			Rating:        input.Rating,
			Comment:       strings.TrimSpace(input.Comment),
		}
		if err := db.WithContext(c.Request.Context()).Create(&review).Error; err != nil {
			internalError(c, log, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"status":  "success",
			"message": "Review submitted",
			"review":  review,
		})
	}
}
