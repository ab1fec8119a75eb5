package domain

import (
	"errors"
	"fmt"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrItemClosed      = errors.New("item is closed for bidding")
	ErrSlugTaken       = errors.New("item slug already in use")
	ErrNoVerifiedAlias = errors.New("bidder has no verified alias")
)

// WindowError rejects a bid because the auction window does not permit
// bidding right now. Retryable only after the window changes.
type WindowError struct {
	Reason WindowReason
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("auction window closed: %s", e.Reason)
}

type ValidationReason int

const (
	BidNonPositive ValidationReason = iota
	BidBelowMinimum
	BidNotOnIncrement
)

func (r ValidationReason) String() string {
	switch r {
	case BidNonPositive:
		return "non_positive"
	case BidBelowMinimum:
		return "below_minimum"
	case BidNotOnIncrement:
		return "not_on_increment"
	default:
		return "unknown"
	}
}

// ValidationError carries the current minimum acceptable amount so a client
// can immediately retry with a corrected bid.
type ValidationError struct {
	Reason       ValidationReason
	MinimumCents int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid bid amount: %s (minimum %d cents)", e.Reason, e.MinimumCents)
}
