package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"silent-auction/internal/domain"
)

// In-memory collaborators shared by the service tests. They mirror the
// repository contracts, including the derived-high-bid ordering.

type memSettingsRepo struct {
	mu       sync.Mutex
	settings domain.Settings
	err      error
}

func (r *memSettingsRepo) Get(ctx context.Context) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	s := r.settings
	return &s, nil
}

func (r *memSettingsRepo) Update(ctx context.Context, settings *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = *settings
	return nil
}

type memItemRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Item
}

func newMemItemRepo(items ...*domain.Item) *memItemRepo {
	r := &memItemRepo{items: make(map[string]*domain.Item)}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *memItemRepo) Create(ctx context.Context, item *domain.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Slug == item.Slug {
			return domain.ErrSlugTaken
		}
	}
	r.items[item.ID] = item
	return nil
}

func (r *memItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

func (r *memItemRepo) GetBySlug(ctx context.Context, slug string) (*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Slug == slug {
			return item, nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r *memItemRepo) ListOpen(ctx context.Context) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var open []*domain.Item
	for _, item := range r.items {
		if !item.IsClosed {
			open = append(open, item)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Slug < open[j].Slug })
	return open, nil
}

func (r *memItemRepo) CloseAllOpen(ctx context.Context) ([]*domain.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed []*domain.Item
	for _, item := range r.items {
		if !item.IsClosed {
			item.IsClosed = true
			closed = append(closed, item)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].Slug < closed[j].Slug })
	return closed, nil
}

func (r *memItemRepo) CloseItem(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return false, domain.ErrItemNotFound
	}
	if item.IsClosed {
		return false, nil
	}
	item.IsClosed = true
	return true, nil
}

type memBidRepo struct {
	mu         sync.Mutex
	bids       []*domain.Bid
	insertErr  error
	highErr    error
	highErrFor map[string]error
	hasBidErr  error
	listErr    error
	insertHook func(*domain.Bid)
}

func (r *memBidRepo) Insert(ctx context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.bids = append(r.bids, bid)
	if r.insertHook != nil {
		r.insertHook(bid)
	}
	return nil
}

func (r *memBidRepo) CurrentHigh(ctx context.Context, itemID string) (*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.highErr != nil {
		return nil, r.highErr
	}
	if err, ok := r.highErrFor[itemID]; ok {
		return nil, err
	}
	var high *domain.Bid
	for _, bid := range r.bids {
		if bid.ItemID != itemID {
			continue
		}
		if high == nil ||
			bid.AmountCents > high.AmountCents ||
			(bid.AmountCents == high.AmountCents && bid.CreatedAt.Before(high.CreatedAt)) {
			high = bid
		}
	}
	return high, nil
}

func (r *memBidRepo) HasBidFrom(ctx context.Context, itemID, aliasID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasBidErr != nil {
		return false, r.hasBidErr
	}
	for _, bid := range r.bids {
		if bid.ItemID == itemID && bid.AliasID == aliasID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBidRepo) CountByItem(ctx context.Context, itemID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, bid := range r.bids {
		if bid.ItemID == itemID {
			count++
		}
	}
	return count, nil
}

func (r *memBidRepo) ListByItem(ctx context.Context, itemID string) ([]*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var bids []*domain.Bid
	for _, bid := range r.bids {
		if bid.ItemID == itemID {
			bids = append(bids, bid)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.After(bids[j].CreatedAt) })
	return bids, nil
}

type stubIdentity struct {
	aliases map[string]*domain.Alias
}

func (p *stubIdentity) ResolveVerifiedAlias(ctx context.Context, token string) (*domain.Alias, error) {
	alias, ok := p.aliases[token]
	if !ok {
		return nil, domain.ErrNoVerifiedAlias
	}
	return alias, nil
}

type recordingDispatcher struct {
	mu            sync.Mutex
	confirmations []string // alias ids
	outbids       []string // alias ids of the displaced bidder
	winners       map[string][]domain.WonItem
	summaries     [][]domain.Winner
	winnerErr     map[string]error
	summaryErr    error
	confirmErr    error
	outbidErr     error
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{winners: make(map[string][]domain.WonItem)}
}

func (d *recordingDispatcher) NotifyBidConfirmation(ctx context.Context, bidder *domain.Alias, item *domain.Item, amountCents int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.confirmErr != nil {
		return d.confirmErr
	}
	d.confirmations = append(d.confirmations, bidder.ID)
	return nil
}

func (d *recordingDispatcher) NotifyOutbid(ctx context.Context, previous *domain.Bid, item *domain.Item, newAmountCents int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outbidErr != nil {
		return d.outbidErr
	}
	d.outbids = append(d.outbids, previous.AliasID)
	return nil
}

func (d *recordingDispatcher) NotifyWinner(ctx context.Context, contact domain.WinnerContact, items []domain.WonItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.winnerErr[contact.AliasID]; ok {
		return err
	}
	d.winners[contact.AliasID] = items
	return nil
}

func (d *recordingDispatcher) NotifyAdminsWinnersSummary(ctx context.Context, winners []domain.Winner) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.summaryErr != nil {
		return d.summaryErr
	}
	d.summaries = append(d.summaries, winners)
	return nil
}

type stubThrottle struct {
	allow bool
	err   error
	calls int
}

func (t *stubThrottle) Allow(ctx context.Context, itemID string) (bool, error) {
	t.calls++
	if t.err != nil {
		return false, t.err
	}
	return t.allow, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
	err    error
}

func (p *recordingPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// syncRunner executes side-effect tasks inline so tests observe them
// deterministically.
type syncRunner struct{}

func (syncRunner) Run(name string, fn func(ctx context.Context) error) bool {
	_ = fn(context.Background())
	return true
}

type stubLeader struct {
	leader bool
	err    error
}

func (l *stubLeader) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, l.err
}

func (l *stubLeader) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	return l.leader, l.err
}

func (l *stubLeader) ReleaseLeadership(ctx context.Context, instanceID string) error {
	return l.err
}

type stubCloser struct {
	mu     sync.Mutex
	calls  int
	forced []bool
	result *CloseResult
	err    error
}

func (c *stubCloser) CloseAuction(ctx context.Context, force bool) (*CloseResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.forced = append(c.forced, force)
	if c.err != nil {
		return nil, c.err
	}
	if c.result != nil {
		return c.result, nil
	}
	return &CloseResult{State: CloseAlreadyClosed}, nil
}

func openWindow() domain.Settings {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return domain.Settings{AuctionStart: &start, AuctionDeadline: &deadline}
}

var itemSeq int

func testItem(slug string, startPriceCents int64) *domain.Item {
	itemSeq++
	return &domain.Item{
		ID:              fmt.Sprintf("item_%d", itemSeq),
		Slug:            slug,
		Title:           slug,
		StartPriceCents: startPriceCents,
	}
}
