package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"silent-auction/internal/domain"
)

// NotificationPublisher is the production NotificationDispatcher adapter: it
// hands typed messages to the out-of-process mailer over a redis channel.
// Template rendering and delivery are the mailer's concern, not the engine's.
type NotificationPublisher struct {
	client      *redis.Client
	channel     string
	adminEmails []string
}

func NewNotificationPublisher(client *redis.Client, channel string, adminEmails []string) *NotificationPublisher {
	if channel == "" {
		channel = "notifications"
	}
	return &NotificationPublisher{client: client, channel: channel, adminEmails: adminEmails}
}

type notificationMessage struct {
	Type       string      `json:"type"`
	Recipients []string    `json:"recipients"`
	Payload    interface{} `json:"payload"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (p *NotificationPublisher) publish(ctx context.Context, msgType string, recipients []string, payload interface{}) error {
	data, err := json.Marshal(notificationMessage{
		Type:       msgType,
		Recipients: recipients,
		Payload:    payload,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

func (p *NotificationPublisher) NotifyBidConfirmation(ctx context.Context, bidder *domain.Alias, item *domain.Item, amountCents int64) error {
	return p.publish(ctx, "bid_confirmation", []string{bidder.Email}, map[string]interface{}{
		"alias_id":     bidder.ID,
		"display_name": bidder.DisplayName,
		"item_id":      item.ID,
		"item_title":   item.Title,
		"slug":         item.Slug,
		"amount_cents": amountCents,
	})
}

func (p *NotificationPublisher) NotifyOutbid(ctx context.Context, previous *domain.Bid, item *domain.Item, newAmountCents int64) error {
	return p.publish(ctx, "outbid", []string{previous.Email}, map[string]interface{}{
		"alias_id":         previous.AliasID,
		"item_id":          item.ID,
		"item_title":       item.Title,
		"slug":             item.Slug,
		"previous_cents":   previous.AmountCents,
		"new_amount_cents": newAmountCents,
	})
}

func (p *NotificationPublisher) NotifyWinner(ctx context.Context, contact domain.WinnerContact, items []domain.WonItem) error {
	return p.publish(ctx, "winner", []string{contact.Email}, map[string]interface{}{
		"alias_id": contact.AliasID,
		"items":    items,
	})
}

func (p *NotificationPublisher) NotifyAdminsWinnersSummary(ctx context.Context, winners []domain.Winner) error {
	return p.publish(ctx, "winners_summary", p.adminEmails, map[string]interface{}{
		"winners": winners,
	})
}
