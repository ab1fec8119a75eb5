package services

import (
	"context"
	"fmt"
	"time"

	"silent-auction/internal/domain"
	"silent-auction/pkg/logger"
	"silent-auction/pkg/utils"
)

// ItemRef addresses an item by id or by URL slug. ID wins when both are set.
type ItemRef struct {
	ID   string
	Slug string
}

func (r ItemRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Slug
}

// Admission is the successful outcome of PlaceBid.
type Admission struct {
	Bid              *domain.Bid
	NextMinimumCents int64
}

// ItemQuote is a read-model row for the public catalogue: the derived current
// price plus the threshold the next bid has to meet.
type ItemQuote struct {
	Item              *domain.Item
	CurrentPriceCents int64
	NextMinimumCents  int64
	BidCount          int
	LeaderAliasID     string
}

type ItemDetail struct {
	ItemQuote
	History []*domain.Bid
}

type AdmissionService struct {
	settings   domain.SettingsRepository
	items      domain.ItemRepository
	bids       domain.BidRepository
	identity   domain.IdentityProvider
	policy     BidPolicy
	dispatcher domain.NotificationDispatcher
	throttle   domain.OutbidThrottle
	events     domain.EventPublisher
	runner     TaskRunner
	log        logger.Logger
	now        func() time.Time
}

func NewAdmissionService(
	settings domain.SettingsRepository,
	items domain.ItemRepository,
	bids domain.BidRepository,
	identity domain.IdentityProvider,
	policy BidPolicy,
	dispatcher domain.NotificationDispatcher,
	throttle domain.OutbidThrottle,
	events domain.EventPublisher,
	runner TaskRunner,
	log logger.Logger,
) *AdmissionService {
	return &AdmissionService{
		settings:   settings,
		items:      items,
		bids:       bids,
		identity:   identity,
		policy:     policy,
		dispatcher: dispatcher,
		throttle:   throttle,
		events:     events,
		runner:     runner,
		log:        log,
		now:        time.Now,
	}
}

// PlaceBid admits a bid or rejects it with a typed domain error. The insert
// is the sole mutation; the current high bid stays a derived read so
// concurrent inserts can never desynchronize a cached aggregate. Notification
// side effects run strictly after the committed insert and never fail it.
func (s *AdmissionService) PlaceBid(ctx context.Context, ref ItemRef, token string, amountCents int64) (*Admission, error) {
	now := s.now()

	// Auction window first: a manually closed auction rejects before any
	// item or identity state is read.
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load auction settings: %w", err)
	}
	if window := domain.EvaluateWindow(settings, now); !window.Open {
		return nil, &domain.WindowError{Reason: window.Reason}
	}

	item, err := s.resolveItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	if item.IsClosed {
		// An item frozen by a prior cycle or a single-item close still
		// rejects even though the global window is open.
		return nil, domain.ErrItemClosed
	}

	// Identity before bid state: unverified bidders must never reach the
	// bid table.
	bidder, err := s.identity.ResolveVerifiedAlias(ctx, token)
	if err != nil {
		return nil, err
	}

	currentHigh, err := s.bids.CurrentHigh(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("read current high bid for item %s: %w", item.ID, err)
	}
	minimum := s.policy.MinimumAcceptable(item, currentHigh)
	if err := s.policy.Validate(amountCents, minimum); err != nil {
		return nil, err
	}

	hasPrior, err := s.bids.HasBidFrom(ctx, item.ID, bidder.ID)
	if err != nil {
		// Confirmation emails are best-effort; treat an inconclusive read
		// as "not first" rather than failing the bid.
		s.log.Warn("Could not determine first-bid status", "item_id", item.ID, "alias_id", bidder.ID, "error", err)
		hasPrior = true
	}

	bid := &domain.Bid{
		ID:          utils.GenerateID("bid"),
		ItemID:      item.ID,
		AliasID:     bidder.ID,
		Email:       bidder.Email,
		AmountCents: amountCents,
		CreatedAt:   now,
	}
	if err := s.bids.Insert(ctx, bid); err != nil {
		return nil, fmt.Errorf("insert bid for item %s: %w", item.ID, err)
	}

	nextMinimum := s.policy.NextMinimum(amountCents)
	s.log.Info("Bid admitted",
		"item_id", item.ID, "slug", item.Slug, "alias_id", bidder.ID,
		"amount_cents", amountCents, "next_minimum_cents", nextMinimum)

	s.runner.Run("bid-side-effects", func(taskCtx context.Context) error {
		s.dispatchBidSideEffects(taskCtx, item, bid, bidder, currentHigh, !hasPrior, nextMinimum)
		return nil
	})

	return &Admission{Bid: bid, NextMinimumCents: nextMinimum}, nil
}

func (s *AdmissionService) resolveItem(ctx context.Context, ref ItemRef) (*domain.Item, error) {
	if ref.ID != "" {
		return s.items.GetByID(ctx, ref.ID)
	}
	if ref.Slug != "" {
		return s.items.GetBySlug(ctx, ref.Slug)
	}
	return nil, domain.ErrItemNotFound
}

// dispatchBidSideEffects runs on the background queue. Every step is
// individually best-effort.
func (s *AdmissionService) dispatchBidSideEffects(
	ctx context.Context,
	item *domain.Item,
	bid *domain.Bid,
	bidder *domain.Alias,
	previousHigh *domain.Bid,
	confirm bool,
	nextMinimumCents int64,
) {
	if err := s.events.PublishBidEvent(ctx, &domain.BidEvent{
		ItemID:           item.ID,
		Slug:             item.Slug,
		AliasID:          bidder.ID,
		AmountCents:      bid.AmountCents,
		NextMinimumCents: nextMinimumCents,
		CreatedAt:        bid.CreatedAt,
	}); err != nil {
		s.log.Error("Failed to publish bid event", "item_id", item.ID, "error", err)
	}

	if confirm {
		if err := s.dispatcher.NotifyBidConfirmation(ctx, bidder, item, bid.AmountCents); err != nil {
			s.log.Error("Failed to send bid confirmation", "item_id", item.ID, "alias_id", bidder.ID, "error", err)
		}
	}

	if previousHigh == nil || previousHigh.AliasID == bidder.ID {
		return
	}
	allowed, err := s.throttle.Allow(ctx, item.ID)
	if err != nil {
		s.log.Error("Outbid throttle check failed", "item_id", item.ID, "error", err)
		return
	}
	if !allowed {
		s.log.Debug("Outbid notification throttled", "item_id", item.ID)
		return
	}
	if err := s.dispatcher.NotifyOutbid(ctx, previousHigh, item, bid.AmountCents); err != nil {
		s.log.Error("Failed to send outbid notification", "item_id", item.ID, "alias_id", previousHigh.AliasID, "error", err)
	}
}

// ListOpenItems returns the public catalogue with derived prices.
func (s *AdmissionService) ListOpenItems(ctx context.Context) ([]*ItemQuote, error) {
	items, err := s.items.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open items: %w", err)
	}

	quotes := make([]*ItemQuote, 0, len(items))
	for _, item := range items {
		quote, err := s.quote(ctx, item)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// ItemDetail returns one item with its derived price and bid history. The
// history exposes alias ids only, never emails.
func (s *AdmissionService) ItemDetail(ctx context.Context, ref ItemRef) (*ItemDetail, error) {
	item, err := s.resolveItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	quote, err := s.quote(ctx, item)
	if err != nil {
		return nil, err
	}
	history, err := s.bids.ListByItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("list bids for item %s: %w", item.ID, err)
	}
	return &ItemDetail{ItemQuote: *quote, History: history}, nil
}

func (s *AdmissionService) quote(ctx context.Context, item *domain.Item) (*ItemQuote, error) {
	currentHigh, err := s.bids.CurrentHigh(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("read current high bid for item %s: %w", item.ID, err)
	}
	count, err := s.bids.CountByItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("count bids for item %s: %w", item.ID, err)
	}
	quote := &ItemQuote{
		Item:              item,
		CurrentPriceCents: item.StartPriceCents,
		NextMinimumCents:  s.policy.MinimumAcceptable(item, currentHigh),
		BidCount:          count,
	}
	if currentHigh != nil {
		quote.CurrentPriceCents = currentHigh.AmountCents
		quote.LeaderAliasID = currentHigh.AliasID
	}
	return quote, nil
}
