package domain

import (
	"context"
)

// Repository interfaces
type SettingsRepository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, settings *Settings) error
}

type ItemRepository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id string) (*Item, error)
	GetBySlug(ctx context.Context, slug string) (*Item, error)
	ListOpen(ctx context.Context) ([]*Item, error)

	// CloseAllOpen flips is_closed on every open item in a single atomic
	// statement and returns the items that were flipped by this call.
	// A second invocation returns an empty slice.
	CloseAllOpen(ctx context.Context) ([]*Item, error)

	// CloseItem conditionally closes a single item. Returns false when the
	// item was already closed.
	CloseItem(ctx context.Context, id string) (bool, error)
}

type BidRepository interface {
	Insert(ctx context.Context, bid *Bid) error

	// CurrentHigh returns the maximum-amount bid for an item, ties broken by
	// earliest created_at. Returns nil when the item has no bids.
	CurrentHigh(ctx context.Context, itemID string) (*Bid, error)

	HasBidFrom(ctx context.Context, itemID, aliasID string) (bool, error)
	CountByItem(ctx context.Context, itemID string) (int, error)
	ListByItem(ctx context.Context, itemID string) ([]*Bid, error)
}

// IdentityProvider resolves a bidder token to a verified alias. It is an
// external collaborator; bidders without a verified alias are rejected before
// any bid state is touched.
type IdentityProvider interface {
	ResolveVerifiedAlias(ctx context.Context, token string) (*Alias, error)
}

// NotificationDispatcher fans out emails. Every method is best-effort: a
// failure is logged or counted by the caller but never affects the bid or the
// close transition.
type NotificationDispatcher interface {
	NotifyBidConfirmation(ctx context.Context, bidder *Alias, item *Item, amountCents int64) error
	NotifyOutbid(ctx context.Context, previous *Bid, item *Item, newAmountCents int64) error
	NotifyWinner(ctx context.Context, contact WinnerContact, items []WonItem) error
	NotifyAdminsWinnersSummary(ctx context.Context, winners []Winner) error
}

// OutbidThrottle limits outbid notifications to at most one per item per
// rolling window, so a bidding war does not turn into a notification storm.
type OutbidThrottle interface {
	Allow(ctx context.Context, itemID string) (bool, error)
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventHandler func(event *BidEvent) error

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}
