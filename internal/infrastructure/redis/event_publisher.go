package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"silent-auction/internal/domain"
)

type EventPublisher struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	if channel == "" {
		channel = "bid_events"
	}
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}
