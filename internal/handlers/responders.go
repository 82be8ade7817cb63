package handlers

import (
	"net/http"

	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterResponderInput struct {
	Name     string             `json:"name" binding:"required"`
	Agency   incidents.Category `json:"agency" binding:"required"`
	Location incidents.Location `json:"location"`
}

type AvailabilityInput struct {
	Available *bool               `json:"available" binding:"required"`
	Location  *incidents.Location `json:"location"`
}

type AssignInput struct {
	// Empty picks the most urgent pending incident for the responder.
	IncidentID string `json:"incidentId"`
}

func ListResponders(board *incidents.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := board.Responders()
		ok(c, "Responders loaded", gin.H{"responders": list, "count": len(list)})
	}
}

// RegisterResponder puts a unit on the board, linked to the caller's account
// so assignments reach their device.
func RegisterResponder(board *incidents.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterResponderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "Invalid responder: "+err.Error())
			return
		}

		r, err := board.RegisterResponder(incidents.Responder{
			Name:     input.Name,
			Agency:   input.Agency,
			Location: input.Location,
			UserID:   c.GetUint("userId"),
		})
		if err != nil {
			boardError(c, log, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":   true,
			"status":    "success",
			"message":   "Responder registered",
			"responder": r,
		})
	}
}

func SetAvailability(board *incidents.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input AvailabilityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			fail(c, http.StatusBadRequest, "available is required")
			return
		}

		r, err := board.SetAvailability(c.Param("id"), *input.Available, input.Location)
		if err != nil {
			boardError(c, log, err)
			return
		}
		ok(c, "Availability updated", gin.H{"responder": r})
	}
}

// AssignResponder dispatches a responder, either to a named incident or to
// the best pending match for its agency.
func AssignResponder(board *incidents.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input AssignInput
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				fail(c, http.StatusBadRequest, "Invalid request body")
				return
			}
		}

		var (
			inc incidents.Incident
			err error
		)
		if input.IncidentID != "" {
			inc, err = board.Assign(input.IncidentID, c.Param("id"))
		} else {
			inc, err = board.AutoAssign(c.Param("id"))
		}
		if err != nil {
			boardError(c, log, err)
			return
		}
		ok(c, "Responder assigned", gin.H{"incident": inc})
	}
}
