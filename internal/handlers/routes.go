package handlers

import (
	"github.com/chachabrian/rescuelink-backend/internal/auth"
	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/chachabrian/rescuelink-backend/internal/middleware"
	"github.com/chachabrian/rescuelink-backend/internal/services"
	"github.com/chachabrian/rescuelink-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP surface needs. Hub and Photos may be nil, in
// which case their routes are not mounted.
type Deps struct {
	DB     *gorm.DB
	Auth   *auth.Service
	Tokens *utils.TokenManager
	Board  *incidents.Board
	Hub    *services.Hub
	Photos PhotoStore
	Log    *zap.Logger
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Auth endpoints answer on both the bare and the legacy .php paths.
	for _, prefix := range []struct{ login, send, verify string }{
		{"/login", "/send-otp", "/verify-otp"},
		{"/api/login.php", "/api/send-otp.php", "/api/verify-otp.php"},
	} {
		r.POST(prefix.login, Login(d.Auth, d.Log))
		r.POST(prefix.send, SendOTP(d.Auth, d.Log))
		r.POST(prefix.verify, VerifyOTP(d.Auth, d.Log))
	}

	api := r.Group("/api")
	authed := middleware.AuthMiddleware(d.Tokens)

	if d.Hub != nil {
		api.GET("/ws", authed, WebSocketHandler(d.Hub))
	}

	protected := api.Group("/")
	protected.Use(authed)
	{
		users := protected.Group("/users")
		{
			users.GET("/profile", GetProfile(d.DB, d.Log))
			users.PUT("/profile", UpdateProfile(d.DB, d.Log))
		}

		notifications := protected.Group("/notifications")
		{
			notifications.POST("/register-token", RegisterFCMToken(d.DB, d.Log))
			notifications.DELETE("/remove-token", RemoveFCMToken(d.DB, d.Log))
		}

		incidentRoutes := protected.Group("/incidents")
		{
			incidentRoutes.GET("", ListIncidents(d.Board))
			incidentRoutes.POST("", ReportIncident(d.Board, d.Log))
			incidentRoutes.GET("/:id", GetIncident(d.Board, d.Log))
			incidentRoutes.PATCH("/:id/status", UpdateIncidentStatus(d.Board, d.Log))
			if d.Photos != nil {
				incidentRoutes.POST("/:id/photo", UploadIncidentPhoto(d.Board, d.Photos, d.Log))
			}
		}

		responders := protected.Group("/responders")
		{
			responders.GET("", ListResponders(d.Board))
			responders.POST("", RegisterResponder(d.Board, d.Log))
			responders.POST("/:id/availability", SetAvailability(d.Board, d.Log))
			responders.POST("/:id/assign", AssignResponder(d.Board, d.Log))
		}

		reviews := protected.Group("/reviews")
		{
			reviews.GET("", ListReviews(d.DB, d.Log))
			reviews.POST("", CreateReview(d.DB, d.Log))
		}
	}
}
