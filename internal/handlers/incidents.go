package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/chachabrian/rescuelink-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PhotoStore persists an uploaded image and returns its public URL.
type PhotoStore interface {
	UploadImage(ctx context.Context, file *multipart.FileHeader, folder string) (string, error)
}

type ReportIncidentInput struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Category    incidents.Category `json:"category" binding:"required"`
	Priority    incidents.Priority `json:"priority" binding:"required"`
	Location    incidents.Location `json:"location"`
}

type UpdateStatusInput struct {
	Status incidents.Status `json:"status" binding:"required"`
}

// ListIncidents returns the board, optionally filtered by status and category.
func ListIncidents(board *incidents.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := board.Snapshot(incidents.Filter{
			Status:   incidents.Status(c.Query("status")),
			Category: incidents.Category(c.Query("category")),
		})
		ok(c, "Incidents loaded", gin.H{"incidents": list, "count": len(list)})
	}
}

func GetIncident(board *incidents.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		inc, err := board.Get(c.Param("id"))
		if err != nil {
			boardError(c, log, err)
			return
		}
		ok(c, "Incident loaded", gin.H{"incident": inc})
	}
}

func ReportIncident(board *incidents.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input ReportIncidentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid incident: "+err.Error())
			return
		}

		inc, err := board.Report(incidents.NewIncident{
			Title:       input.Title,
			Description: input.Description,
			Category:    input.Category,
			Priority:    input.Priority,
			Location:    input.Location,
			ReportedBy:  c.GetUint("userId"),
		})
		if err != nil {
			boardError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"status":   "success",
			"message":  "Incident reported",
			"incident": inc,
		})
	}
}

func UpdateIncidentStatus(board *incidents.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input UpdateStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "status is required")
			return
		}

		inc, err := board.UpdateStatus(c.Param("id"), input.Status)
		if err != nil {
			boardError(c, log, err)
			return
		}
		ok(c, "Incident updated", gin.H{"incident": inc})
	}
}

// UploadIncidentPhoto attaches a multipart "photo" to an incident.
func UploadIncidentPhoto(board *incidents.Board, store PhotoStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := board.Get(id); err != nil {
			boardError(c, log, err)
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			fail(c, http.StatusBadRequest, "photo file is required")
			return
		}
		if file.Size > services.MaxPhotoSize {
			fail(c, http.StatusBadRequest, "photo is too large")
			return
		}

		url, err := store.UploadImage(c.Request.Context(), file, "incidents")
		if err != nil {
			if errors.Is(err, services.ErrUnsupportedImage) {
				fail(c, http.StatusBadRequest, err.Error())
				return
			}
			internalError(c, log, err)
			return
		}

		inc, err := board.SetPhoto(id, url)
		if err != nil {
			boardError(c, log, err)
			return
		}
		ok(c, "Photo uploaded", gin.H{"incident": inc})
	}
}
