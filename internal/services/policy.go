package services

import (
	"silent-auction/internal/domain"
)

// BidPolicy holds the bidding rules: a fixed global increment, applied in
// minor units (cents) to avoid floating-point drift.
type BidPolicy struct {
	incrementCents int64
}

func NewBidPolicy(incrementCents int64) BidPolicy {
	if incrementCents <= 0 {
		incrementCents = 500
	}
	return BidPolicy{incrementCents: incrementCents}
}

func (p BidPolicy) IncrementCents() int64 {
	return p.incrementCents
}

// MinimumAcceptable returns the smallest valid bid for an item. The first bid
// may equal the start price; every subsequent bid must exceed the current
// high bid by the increment.
func (p BidPolicy) MinimumAcceptable(item *domain.Item, currentHigh *domain.Bid) int64 {
	if currentHigh == nil {
		return item.StartPriceCents
	}
	return currentHigh.AmountCents + p.incrementCents
}

// NextMinimum is the threshold for the bid after an accepted one. Returned to
// the client so it can show the next minimum without a re-read.
func (p BidPolicy) NextMinimum(acceptedCents int64) int64 {
	return acceptedCents + p.incrementCents
}

// Validate checks a submitted amount against the current minimum. Accepted
// amounts sit on the increment lattice anchored at the minimum, which keeps
// the leaderboard on clean steps (no $5.01 bids).
func (p BidPolicy) Validate(amountCents, minimumCents int64) error {
	if amountCents <= 0 {
		return &domain.ValidationError{Reason: domain.BidNonPositive, MinimumCents: minimumCents}
	}
	if amountCents < minimumCents {
		return &domain.ValidationError{Reason: domain.BidBelowMinimum, MinimumCents: minimumCents}
	}
	if (amountCents-minimumCents)%p.incrementCents != 0 {
		return &domain.ValidationError{Reason: domain.BidNotOnIncrement, MinimumCents: minimumCents}
	}
	return nil
}
