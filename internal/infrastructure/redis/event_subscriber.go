package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"silent-auction/internal/domain"
	"silent-auction/pkg/logger"
)

type EventSubscriber struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

func NewEventSubscriber(client *redis.Client, channel string, log logger.Logger) *EventSubscriber {
	if channel == "" {
		channel = "bid_events"
	}
	return &EventSubscriber{client: client, channel: channel, log: log}
}

// Subscribe blocks until ctx is cancelled, delivering each bid event to the
// handler. Malformed payloads and handler errors are logged and skipped.
func (s *EventSubscriber) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	s.log.Info("Subscribed to bid events", "channel", s.channel)

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.BidEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Error("Failed to parse bid event", "payload", msg.Payload, "error", err)
				continue
			}
			if err := handler(&event); err != nil {
				s.log.Error("Failed to handle bid event", "item_id", event.ItemID, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Bid event subscriber stopped")
			return ctx.Err()
		}
	}
}
