package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"silent-auction/internal/domain"
)

// SettingsRepository persists the auction-wide settings singleton as a single
// row with a fixed primary key.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	query := `
        SELECT auction_start, auction_deadline, auction_closed,
               payment_instructions, pickup_instructions, contact_email, updated_at
        FROM auction_settings WHERE id = 1
    `

	var settings domain.Settings
	var start, deadline sql.NullTime

	err := r.db.QueryRowContext(ctx, query).Scan(
		&start, &deadline, &settings.AuctionClosed,
		&settings.PaymentInstructions, &settings.PickupInstructions,
		&settings.ContactEmail, &settings.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Nothing configured yet: no window constraints, auction open.
		return &domain.Settings{}, nil
	}
	if err != nil {
		return nil, err
	}

	if start.Valid {
		settings.AuctionStart = &start.Time
	}
	if deadline.Valid {
		settings.AuctionDeadline = &deadline.Time
	}
	return &settings, nil
}

func (r *SettingsRepository) Update(ctx context.Context, settings *domain.Settings) error {
	query := `
        INSERT INTO auction_settings
            (id, auction_start, auction_deadline, auction_closed,
             payment_instructions, pickup_instructions, contact_email, updated_at)
        VALUES (1, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            auction_start = VALUES(auction_start),
            auction_deadline = VALUES(auction_deadline),
            auction_closed = VALUES(auction_closed),
            payment_instructions = VALUES(payment_instructions),
            pickup_instructions = VALUES(pickup_instructions),
            contact_email = VALUES(contact_email),
            updated_at = VALUES(updated_at)
    `

	var start, deadline sql.NullTime
	if settings.AuctionStart != nil {
		start = sql.NullTime{Time: *settings.AuctionStart, Valid: true}
	}
	if settings.AuctionDeadline != nil {
		deadline = sql.NullTime{Time: *settings.AuctionDeadline, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		start, deadline, settings.AuctionClosed,
		settings.PaymentInstructions, settings.PickupInstructions,
		settings.ContactEmail, time.Now())
	return err
}
