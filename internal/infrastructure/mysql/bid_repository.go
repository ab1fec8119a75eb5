package mysql

import (
	"context"
	"database/sql"
	"errors"

	"silent-auction/internal/domain"
)

// BidRepository is append-only: bids are inserted, never updated or deleted.
// The current high bid is always derived with a max query, never cached in a
// writable column.
type BidRepository struct {
	db *sql.DB
}

func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Insert(ctx context.Context, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (id, item_id, alias_id, email, amount_cents, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		bid.ID, bid.ItemID, bid.AliasID, bid.Email, bid.AmountCents, bid.CreatedAt)
	return err
}

func (r *BidRepository) CurrentHigh(ctx context.Context, itemID string) (*domain.Bid, error) {
	query := `
        SELECT id, item_id, alias_id, email, amount_cents, created_at
        FROM bids WHERE item_id = ?
        ORDER BY amount_cents DESC, created_at ASC, id ASC
        LIMIT 1
    `

	var bid domain.Bid
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&bid.ID, &bid.ItemID, &bid.AliasID, &bid.Email, &bid.AmountCents, &bid.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) HasBidFrom(ctx context.Context, itemID, aliasID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bids WHERE item_id = ? AND alias_id = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, itemID, aliasID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *BidRepository) CountByItem(ctx context.Context, itemID string) (int, error) {
	query := `SELECT COUNT(*) FROM bids WHERE item_id = ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, itemID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BidRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.Bid, error) {
	query := `
        SELECT id, item_id, alias_id, email, amount_cents, created_at
        FROM bids WHERE item_id = ?
        ORDER BY created_at DESC, id DESC
    `

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(
			&bid.ID, &bid.ItemID, &bid.AliasID, &bid.Email, &bid.AmountCents, &bid.CreatedAt); err != nil {
			return nil, err
		}
		bids = append(bids, &bid)
	}
	return bids, rows.Err()
}
