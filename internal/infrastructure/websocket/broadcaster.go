package websocket

import (
	"context"

	"silent-auction/internal/domain"
	"silent-auction/pkg/logger"
)

// Broadcaster bridges the redis bid-event stream to the websocket watchers,
// so every engine instance fans out admitted bids regardless of which
// instance accepted them.
type Broadcaster struct {
	subscriber domain.EventSubscriber
	manager    *ConnectionManager
	log        logger.Logger
}

func NewBroadcaster(subscriber domain.EventSubscriber, manager *ConnectionManager, log logger.Logger) *Broadcaster {
	return &Broadcaster{subscriber: subscriber, manager: manager, log: log}
}

type priceUpdate struct {
	ItemID           string `json:"item_id"`
	AliasID          string `json:"alias_id"`
	AmountCents      int64  `json:"amount_cents"`
	NextMinimumCents int64  `json:"next_minimum_cents"`
}

// Run blocks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, func(event *domain.BidEvent) error {
		return b.manager.BroadcastToItem(event.ItemID, priceUpdate{
			ItemID:           event.ItemID,
			AliasID:          event.AliasID,
			AmountCents:      event.AmountCents,
			NextMinimumCents: event.NextMinimumCents,
		})
	})
}
