package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/chachabrian/rescuelink-backend/internal/models"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Notifier delivers FCM pushes. A Notifier without credentials is a no-op.
type Notifier struct {
	client messageSender
	log    *zap.Logger
}

// NewNotifier initialises the Firebase Admin SDK from a service account file.
// An empty path disables push.
func NewNotifier(ctx context.Context, serviceAccountPath string, log *zap.Logger) (*Notifier, error) {
	if serviceAccountPath == "" {
		log.Warn("FIREBASE_SERVICE_ACCOUNT_PATH not set, push notifications disabled")
		return &Notifier{log: log}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting messaging client: %w", err)
	}
	log.Info("firebase cloud messaging initialized")
	return &Notifier{client: client, log: log}, nil
}

func (n *Notifier) Enabled() bool {
	return n.client != nil
}

// NotifyAssignment tells a responder's device which incident it was sent to
// and roughly how long the drive is. etaMinutes of zero is left out.
func (n *Notifier) NotifyAssignment(ctx context.Context, token string, inc incidents.Incident, etaMinutes int) error {
	if n.client == nil || token == "" {
		return nil
	}

	data := map[string]string{
		"type":       string(incidents.EventIncidentAssigned),
		"incidentId": inc.ID,
		"category":   string(inc.Category),
		"priority":   inc.Priority.String(),
		"lat":        fmt.Sprintf("%f", inc.Location.Lat),
		"lng":        fmt.Sprintf("%f", inc.Location.Lng),
	}
	body := inc.Title
	if etaMinutes > 0 {
		data["etaMinutes"] = strconv.Itoa(etaMinutes)
		body = fmt.Sprintf("%s (about %d min away)", inc.Title, etaMinutes)
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: fmt.Sprintf("New %s incident (%s)", inc.Category, inc.Priority),
			Body:  body,
		},
		Data:  data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             "rescuelink_dispatch",
				Sound:                 "default",
				DefaultSound:          true,
				Priority:              messaging.PriorityMax,
				Color:                 "#C62828",
				Tag:                   inc.ID,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:            "default",
					MutableContent:   true,
					ContentAvailable: true,
				},
			},
		},
	}

	id, err := n.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("sending assignment push: %w", err)
	}
	n.log.Debug("assignment push sent", zap.String("incident_id", inc.ID), zap.String("message_id", id))
	return nil
}

// AssignmentPusher returns a board subscriber that pushes every assignment to
// the responder's linked account. Delivery runs off the board's goroutine.
func AssignmentPusher(db *gorm.DB, n *Notifier) func(incidents.Event) {
	return func(ev incidents.Event) {
		if !n.Enabled() || ev.Type != incidents.EventIncidentAssigned || ev.Incident == nil || ev.Responder == nil {
			return
		}
		if ev.Responder.UserID == 0 {
			return
		}
		inc, userID, eta := *ev.Incident, ev.Responder.UserID, ev.ETAMinutes

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			var user models.User
			if err := db.WithContext(ctx).Select("id", "fcm_token").First(&user, userID).Error; err != nil {
				n.log.Warn("assignment push: responder account lookup failed", zap.Uint("user_id", userID), zap.Error(err))
				return
			}
			if err := n.NotifyAssignment(ctx, user.FCMToken, inc, eta); err != nil {
				n.log.Warn("assignment push failed", zap.Uint("user_id", userID), zap.Error(err))
			}
		}()
	}
}
