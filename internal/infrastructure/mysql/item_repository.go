package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"silent-auction/internal/domain"
)

const mysqlErrDuplicateEntry = 1062

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := `
        INSERT INTO items (id, slug, title, description, owner_id, start_price_cents, is_closed, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Slug, item.Title, item.Description, item.OwnerID,
		item.StartPriceCents, item.IsClosed, item.CreatedAt, item.UpdatedAt)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
		return domain.ErrSlugTaken
	}
	return err
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	return r.getByColumn(ctx, "id", id)
}

func (r *ItemRepository) GetBySlug(ctx context.Context, slug string) (*domain.Item, error) {
	return r.getByColumn(ctx, "slug", slug)
}

func (r *ItemRepository) getByColumn(ctx context.Context, column, value string) (*domain.Item, error) {
	query := fmt.Sprintf(`
        SELECT id, slug, title, description, owner_id, start_price_cents, is_closed, created_at, updated_at
        FROM items WHERE %s = ?
    `, column)

	var item domain.Item
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&item.ID, &item.Slug, &item.Title, &item.Description, &item.OwnerID,
		&item.StartPriceCents, &item.IsClosed, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) ListOpen(ctx context.Context) ([]*domain.Item, error) {
	query := `
        SELECT id, slug, title, description, owner_id, start_price_cents, is_closed, created_at, updated_at
        FROM items WHERE is_closed = FALSE
        ORDER BY slug ASC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

// CloseAllOpen flips every open item inside one transaction: the open set is
// locked, then closed by a single conditional UPDATE. Items closed
// concurrently (e.g. a racing single-item close) are excluded by the
// is_closed guard, and a failure rolls everything back - there is no
// partially closed state.
func (r *ItemRepository) CloseAllOpen(ctx context.Context) ([]*domain.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
        SELECT id, slug, title, description, owner_id, start_price_cents, is_closed, created_at, updated_at
        FROM items WHERE is_closed = FALSE
        ORDER BY slug ASC
        FOR UPDATE
    `)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET is_closed = TRUE, updated_at = ? WHERE is_closed = FALSE`,
		time.Now()); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, item := range items {
		item.IsClosed = true
	}
	return items, nil
}

func (r *ItemRepository) CloseItem(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE items SET is_closed = TRUE, updated_at = ? WHERE id = ? AND is_closed = FALSE`,
		time.Now(), id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func scanItems(rows *sql.Rows) ([]*domain.Item, error) {
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.ID, &item.Slug, &item.Title, &item.Description, &item.OwnerID,
			&item.StartPriceCents, &item.IsClosed, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
