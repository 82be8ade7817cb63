package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chachabrian/rescuelink-backend/internal/incidents"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const IncidentUpdatesChannel = "incident:updates"

// NewRedisClient parses url and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	return client, nil
}

// Publisher fans incident events out over Redis pub/sub so other API
// replicas can relay them to their websocket clients.
type Publisher struct {
	client redis.Cmdable
}

func NewPublisher(client redis.Cmdable) *Publisher {
	return &Publisher{client: client}
}

// PublishIncidentUpdate publishes an incident event payload.
func (p *Publisher) PublishIncidentUpdate(ctx context.Context, eventType string, data interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, IncidentUpdatesChannel, payload).Err()
}

// Subscriber adapts the publisher to Board.Subscribe. Publish errors are
// logged; the local websocket feed still carries the event.
func (p *Publisher) Subscriber(log *zap.Logger) func(incidents.Event) {
	return func(ev incidents.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.PublishIncidentUpdate(ctx, string(ev.Type), ev); err != nil {
			log.Warn("publish incident update", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}
}
