package domain

import (
	"time"
)

// Settings is the auction-wide configuration singleton. It is mutated only
// through the admin surface and read by every bid admission and by the closer.
type Settings struct {
	AuctionStart        *time.Time
	AuctionDeadline     *time.Time
	AuctionClosed       bool
	PaymentInstructions string
	PickupInstructions  string
	ContactEmail        string
	UpdatedAt           time.Time
}

type Item struct {
	ID              string
	Slug            string
	Title           string
	Description     string
	OwnerID         string
	StartPriceCents int64
	IsClosed        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Bid rows are append-only. Outbidding is modeled by inserting a higher bid,
// never by mutating a prior one; the current high bid is always a derived read.
type Bid struct {
	ID          string
	ItemID      string
	AliasID     string
	Email       string
	AmountCents int64
	CreatedAt   time.Time
}

// Alias is a bidder's pseudonymous public identity, bound 1:1 to a verified
// email by the external identity provider. Raw names never appear on public
// surfaces.
type Alias struct {
	ID          string
	DisplayName string
	Email       string
}

// Winner is derived at close time: the current high bid of an item at the
// moment it was frozen. Items with zero bids have no winner.
type Winner struct {
	ItemID      string
	ItemTitle   string
	Slug        string
	AliasID     string
	Email       string
	AmountCents int64
}

// WonItem is one entry of a per-bidder winner notification. Notifications are
// grouped so a bidder who won several items receives a single message.
type WonItem struct {
	ItemID      string
	ItemTitle   string
	Slug        string
	AmountCents int64
}

// WinnerContact identifies the recipient of a grouped winner notification.
type WinnerContact struct {
	AliasID string
	Email   string
}

// BidEvent is published for every admitted bid and feeds the live price
// broadcast. Amounts are minor units (cents).
type BidEvent struct {
	ItemID           string    `json:"item_id"`
	Slug             string    `json:"slug"`
	AliasID          string    `json:"alias_id"`
	AmountCents      int64     `json:"amount_cents"`
	NextMinimumCents int64     `json:"next_minimum_cents"`
	CreatedAt        time.Time `json:"created_at"`
}
