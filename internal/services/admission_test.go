package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"silent-auction/internal/domain"
	"silent-auction/pkg/logger"
)

type admissionFixture struct {
	svc        *AdmissionService
	settings   *memSettingsRepo
	items      *memItemRepo
	bids       *memBidRepo
	dispatcher *recordingDispatcher
	throttle   *stubThrottle
	events     *recordingPublisher
}

func newAdmissionFixture(t *testing.T, items ...*domain.Item) *admissionFixture {
	t.Helper()

	f := &admissionFixture{
		settings:   &memSettingsRepo{settings: openWindow()},
		items:      newMemItemRepo(items...),
		bids:       &memBidRepo{},
		dispatcher: newRecordingDispatcher(),
		throttle:   &stubThrottle{allow: true},
		events:     &recordingPublisher{},
	}
	identity := &stubIdentity{aliases: map[string]*domain.Alias{
		"token-ana":  {ID: "alias_ana", DisplayName: "Clever Fox", Email: "ana@example.com"},
		"token-ben":  {ID: "alias_ben", DisplayName: "Quiet Owl", Email: "ben@example.com"},
		"token-cleo": {ID: "alias_cleo", DisplayName: "Bold Crow", Email: "cleo@example.com"},
	}}
	f.svc = NewAdmissionService(
		f.settings, f.items, f.bids, identity,
		NewBidPolicy(500),
		f.dispatcher, f.throttle, f.events,
		syncRunner{}, logger.NewNop(),
	)
	f.svc.now = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func TestPlaceBidFirstBidAtStartPrice(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)

	adm, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)

	assert.Equal(t, int64(2000), adm.Bid.AmountCents)
	assert.Equal(t, "alias_ana", adm.Bid.AliasID)
	assert.Equal(t, int64(2500), adm.NextMinimumCents)

	// First bid on the item: confirmation, no outbid.
	assert.Equal(t, []string{"alias_ana"}, f.dispatcher.confirmations)
	assert.Empty(t, f.dispatcher.outbids)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, int64(2000), f.events.events[0].AmountCents)
	assert.Equal(t, int64(2500), f.events.events[0].NextMinimumCents)
}

func TestPlaceBidResolvesBySlug(t *testing.T) {
	item := testItem("signed-print", 1000)
	f := newAdmissionFixture(t, item)

	adm, err := f.svc.PlaceBid(context.Background(), ItemRef{Slug: "signed-print"}, "token-ana", 1000)
	require.NoError(t, err)
	assert.Equal(t, item.ID, adm.Bid.ItemID)
}

func TestPlaceBidWindowRejections(t *testing.T) {
	item := testItem("vintage-lamp", 2000)

	tests := []struct {
		name   string
		mutate func(*domain.Settings)
		reason domain.WindowReason
	}{
		{
			name:   "manually closed",
			mutate: func(s *domain.Settings) { s.AuctionClosed = true },
			reason: domain.WindowManuallyClosed,
		},
		{
			name: "not started",
			mutate: func(s *domain.Settings) {
				start := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
				s.AuctionStart = &start
			},
			reason: domain.WindowNotStarted,
		},
		{
			name: "deadline passed",
			mutate: func(s *domain.Settings) {
				deadline := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
				s.AuctionDeadline = &deadline
			},
			reason: domain.WindowDeadlinePassed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdmissionFixture(t, item)
			tt.mutate(&f.settings.settings)

			_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)

			var werr *domain.WindowError
			require.ErrorAs(t, err, &werr)
			assert.Equal(t, tt.reason, werr.Reason)
			assert.Empty(t, f.bids.bids)
		})
	}
}

func TestPlaceBidWindowCheckedBeforeItemLookup(t *testing.T) {
	f := newAdmissionFixture(t) // no items at all
	f.settings.settings.AuctionClosed = true

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: "item_missing"}, "token-ana", 2000)

	var werr *domain.WindowError
	require.ErrorAs(t, err, &werr)
	assert.NotErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPlaceBidUnknownItem(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: "item_missing"}, "token-ana", 2000)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	_, err = f.svc.PlaceBid(context.Background(), ItemRef{}, "token-ana", 2000)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestPlaceBidClosedItem(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	item.IsClosed = true
	f := newAdmissionFixture(t, item)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	assert.ErrorIs(t, err, domain.ErrItemClosed)
}

func TestPlaceBidUnverifiedBidder(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-unknown", 2000)
	assert.ErrorIs(t, err, domain.ErrNoVerifiedAlias)
	assert.Empty(t, f.bids.bids)
}

func TestPlaceBidValidationRejections(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)

	// Seed an existing high bid of $25.00.
	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2500)
	require.NoError(t, err)

	tests := []struct {
		name   string
		amount int64
		reason domain.ValidationReason
	}{
		{name: "matches current high", amount: 2500, reason: domain.BidBelowMinimum},
		{name: "above high but below increment", amount: 2700, reason: domain.BidBelowMinimum},
		{name: "off lattice", amount: 3250, reason: domain.BidNotOnIncrement},
		{name: "non positive", amount: -100, reason: domain.BidNonPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ben", tt.amount)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
			assert.Equal(t, int64(3000), verr.MinimumCents)
		})
	}

	// Only the seed bid persisted.
	assert.Len(t, f.bids.bids, 1)
}

func TestPlaceBidOutbidNotification(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ben", 2500)
	require.NoError(t, err)

	assert.Equal(t, []string{"alias_ana"}, f.dispatcher.outbids)
}

func TestPlaceBidNoOutbidWhenRaisingOwnBid(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2500)
	require.NoError(t, err)

	assert.Empty(t, f.dispatcher.outbids)
	assert.Zero(t, f.throttle.calls)
	// Confirmation only on the first bid from an alias.
	assert.Equal(t, []string{"alias_ana"}, f.dispatcher.confirmations)
}

func TestPlaceBidOutbidThrottled(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)
	f.throttle.allow = false

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ben", 2500)
	require.NoError(t, err)

	assert.Empty(t, f.dispatcher.outbids)
	assert.Equal(t, 1, f.throttle.calls)
}

func TestPlaceBidSucceedsWhenDispatcherFails(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)
	f.dispatcher.confirmErr = errors.New("smtp down")
	f.dispatcher.outbidErr = errors.New("smtp down")
	f.events.err = errors.New("redis down")

	adm, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)
	assert.NotNil(t, adm.Bid)
	assert.Len(t, f.bids.bids, 1)
}

func TestPlaceBidInsertFailureReturnsError(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)
	f.bids.insertErr = errors.New("connection reset")

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.Error(t, err)
	assert.Empty(t, f.dispatcher.confirmations)
	assert.Empty(t, f.events.events)
}

// staleHighRepo simulates two admissions reading the high bid before either
// insert lands, the worst-case concurrent interleaving.
type staleHighRepo struct {
	*memBidRepo
}

func (r *staleHighRepo) CurrentHigh(ctx context.Context, itemID string) (*domain.Bid, error) {
	return nil, nil
}

func TestPlaceBidConcurrentBidsBothPersist(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	inner := &memBidRepo{}
	identity := &stubIdentity{aliases: map[string]*domain.Alias{
		"token-ana": {ID: "alias_ana", Email: "ana@example.com"},
		"token-ben": {ID: "alias_ben", Email: "ben@example.com"},
	}}
	svc := NewAdmissionService(
		&memSettingsRepo{settings: openWindow()},
		newMemItemRepo(item),
		&staleHighRepo{memBidRepo: inner},
		identity,
		NewBidPolicy(500),
		newRecordingDispatcher(), &stubThrottle{allow: true}, &recordingPublisher{},
		syncRunner{}, logger.NewNop(),
	)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}

	// Both bids validate against the same pre-insert snapshot and both are
	// admitted. Neither overwrites the other.
	_, err := svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)
	_, err = svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ben", 3000)
	require.NoError(t, err)

	assert.Len(t, inner.bids, 2)
	high, err := inner.CurrentHigh(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), high.AmountCents)
	assert.Equal(t, "alias_ben", high.AliasID)
}

func TestListOpenItemsQuotes(t *testing.T) {
	lamp := testItem("vintage-lamp", 2000)
	print := testItem("signed-print", 1000)
	closed := testItem("sold-chair", 500)
	closed.IsClosed = true
	f := newAdmissionFixture(t, lamp, print, closed)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: lamp.ID}, "token-ana", 2000)
	require.NoError(t, err)

	quotes, err := f.svc.ListOpenItems(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	// Sorted by slug: signed-print first.
	assert.Equal(t, "signed-print", quotes[0].Item.Slug)
	assert.Equal(t, int64(1000), quotes[0].CurrentPriceCents)
	assert.Equal(t, int64(1000), quotes[0].NextMinimumCents)
	assert.Zero(t, quotes[0].BidCount)
	assert.Empty(t, quotes[0].LeaderAliasID)

	assert.Equal(t, "vintage-lamp", quotes[1].Item.Slug)
	assert.Equal(t, int64(2000), quotes[1].CurrentPriceCents)
	assert.Equal(t, int64(2500), quotes[1].NextMinimumCents)
	assert.Equal(t, 1, quotes[1].BidCount)
	assert.Equal(t, "alias_ana", quotes[1].LeaderAliasID)
}

func TestItemDetailIncludesHistory(t *testing.T) {
	item := testItem("vintage-lamp", 2000)
	f := newAdmissionFixture(t, item)

	_, err := f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ana", 2000)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(context.Background(), ItemRef{ID: item.ID}, "token-ben", 2500)
	require.NoError(t, err)

	detail, err := f.svc.ItemDetail(context.Background(), ItemRef{Slug: "vintage-lamp"})
	require.NoError(t, err)

	assert.Equal(t, int64(2500), detail.CurrentPriceCents)
	assert.Equal(t, "alias_ben", detail.LeaderAliasID)
	assert.Equal(t, 2, detail.BidCount)
	assert.Len(t, detail.History, 2)
}
