package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"silent-auction/internal/domain"
	"silent-auction/pkg/logger"
)

type CloseState int

const (
	CloseBeforeDeadline CloseState = iota
	CloseAlreadyClosed
	CloseCompleted
)

func (s CloseState) String() string {
	switch s {
	case CloseBeforeDeadline:
		return "before_deadline"
	case CloseAlreadyClosed:
		return "already_closed"
	case CloseCompleted:
		return "closed"
	default:
		return "unknown"
	}
}

type CloseResult struct {
	State               CloseState
	Winners             []domain.Winner
	WinnersUnresolved   int
	NotificationsSent   int
	NotificationsFailed int
}

// Closer performs the one-way OPEN -> CLOSED transition for the whole auction
// (or, degenerately, a single item). It is the only writer of Item.IsClosed.
type Closer struct {
	settings   domain.SettingsRepository
	items      domain.ItemRepository
	bids       domain.BidRepository
	dispatcher domain.NotificationDispatcher
	log        logger.Logger
	now        func() time.Time
}

func NewCloser(
	settings domain.SettingsRepository,
	items domain.ItemRepository,
	bids domain.BidRepository,
	dispatcher domain.NotificationDispatcher,
	log logger.Logger,
) *Closer {
	return &Closer{
		settings:   settings,
		items:      items,
		bids:       bids,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// CloseAuction freezes every open item exactly once and resolves one winner
// per item. Safe to invoke speculatively: before the deadline (unless forced)
// and after a completed close it is a no-op. Notification failures are
// counted, never propagated; the authoritative outcome is "items are closed".
func (c *Closer) CloseAuction(ctx context.Context, force bool) (*CloseResult, error) {
	settings, err := c.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load auction settings: %w", err)
	}
	window := domain.EvaluateWindow(settings, c.now())
	if !force && window.Reason != domain.WindowDeadlinePassed && window.Reason != domain.WindowManuallyClosed {
		return &CloseResult{State: CloseBeforeDeadline}, nil
	}

	// Single conditional bulk update. Either every open item flips or none
	// does; a crash can never leave the auction half closed.
	closed, err := c.items.CloseAllOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("close open items: %w", err)
	}
	if len(closed) == 0 {
		return &CloseResult{State: CloseAlreadyClosed}, nil
	}
	c.log.Info("Auction closed", "items_closed", len(closed), "forced", force)

	// Items are already frozen; winner resolution past this point is
	// best-effort per item, never a failure of the close itself. A retry
	// would see ALREADY_CLOSED, so an error here must not eat the fan-out
	// for the items that did resolve.
	winners, unresolved := c.resolveWinners(ctx, closed)

	result := &CloseResult{State: CloseCompleted, Winners: winners, WinnersUnresolved: unresolved}
	c.notifyWinners(ctx, winners, result)
	return result, nil
}

// CloseItem is the degenerate one-item case of the same conditional-close
// rule, used by the admin surface.
func (c *Closer) CloseItem(ctx context.Context, itemID string) (*CloseResult, error) {
	item, err := c.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	flipped, err := c.items.CloseItem(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("close item %s: %w", item.ID, err)
	}
	if !flipped {
		return &CloseResult{State: CloseAlreadyClosed}, nil
	}
	c.log.Info("Item closed", "item_id", item.ID, "slug", item.Slug)

	winners, unresolved := c.resolveWinners(ctx, []*domain.Item{item})

	result := &CloseResult{State: CloseCompleted, Winners: winners, WinnersUnresolved: unresolved}
	c.notifyWinners(ctx, winners, result)
	return result, nil
}

// resolveWinners reads the high bid of each freshly closed item. Read
// failures are counted and logged per item so one bad read cannot discard
// the winners that did resolve.
func (c *Closer) resolveWinners(ctx context.Context, closed []*domain.Item) ([]domain.Winner, int) {
	winners := make([]domain.Winner, 0, len(closed))
	unresolved := 0
	for _, item := range closed {
		high, err := c.bids.CurrentHigh(ctx, item.ID)
		if err != nil {
			c.log.Error("Failed to resolve winner for closed item", "item_id", item.ID, "slug", item.Slug, "error", err)
			unresolved++
			continue
		}
		if high == nil {
			// No bids, no winner.
			continue
		}
		winners = append(winners, domain.Winner{
			ItemID:      item.ID,
			ItemTitle:   item.Title,
			Slug:        item.Slug,
			AliasID:     high.AliasID,
			Email:       high.Email,
			AmountCents: high.AmountCents,
		})
	}
	return winners, unresolved
}

// notifyWinners sends one grouped message per winning bidder plus a summary
// to the administrators, recording per-recipient outcomes on the result.
func (c *Closer) notifyWinners(ctx context.Context, winners []domain.Winner, result *CloseResult) {
	if len(winners) == 0 {
		return
	}

	byAlias := make(map[string][]domain.WonItem)
	contacts := make(map[string]domain.WinnerContact)
	for _, w := range winners {
		byAlias[w.AliasID] = append(byAlias[w.AliasID], domain.WonItem{
			ItemID:      w.ItemID,
			ItemTitle:   w.ItemTitle,
			Slug:        w.Slug,
			AmountCents: w.AmountCents,
		})
		contacts[w.AliasID] = domain.WinnerContact{AliasID: w.AliasID, Email: w.Email}
	}

	aliasIDs := make([]string, 0, len(byAlias))
	for aliasID := range byAlias {
		aliasIDs = append(aliasIDs, aliasID)
	}
	sort.Strings(aliasIDs)

	for _, aliasID := range aliasIDs {
		if err := c.dispatcher.NotifyWinner(ctx, contacts[aliasID], byAlias[aliasID]); err != nil {
			c.log.Error("Failed to notify winner", "alias_id", aliasID, "error", err)
			result.NotificationsFailed++
			continue
		}
		result.NotificationsSent++
	}

	if err := c.dispatcher.NotifyAdminsWinnersSummary(ctx, winners); err != nil {
		c.log.Error("Failed to send winners summary to admins", "error", err)
		result.NotificationsFailed++
	} else {
		result.NotificationsSent++
	}
}
