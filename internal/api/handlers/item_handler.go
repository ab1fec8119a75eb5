package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"silent-auction/internal/domain"
	"silent-auction/internal/services"
	"silent-auction/pkg/logger"
)

// ItemReader is the read-side slice of the admission service.
type ItemReader interface {
	ListOpenItems(ctx context.Context) ([]*services.ItemQuote, error)
	ItemDetail(ctx context.Context, ref services.ItemRef) (*services.ItemDetail, error)
}

type ItemHandler struct {
	items ItemReader
	log   logger.Logger
}

func NewItemHandler(items ItemReader, log logger.Logger) *ItemHandler {
	return &ItemHandler{items: items, log: log}
}

type itemView struct {
	ID           string          `json:"id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	StartPrice   decimal.Decimal `json:"start_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	NextMin      decimal.Decimal `json:"next_min"`
	BidCount     int             `json:"bid_count"`
	LeaderAlias  string          `json:"leader_alias,omitempty"`
	IsClosed     bool            `json:"is_closed"`
}

// bidView deliberately exposes the alias only; emails never leave the engine
// on public surfaces.
type bidView struct {
	AliasID   string          `json:"alias_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func toItemView(q *services.ItemQuote) itemView {
	return itemView{
		ID:           q.Item.ID,
		Slug:         q.Item.Slug,
		Title:        q.Item.Title,
		Description:  q.Item.Description,
		StartPrice:   fromCents(q.Item.StartPriceCents),
		CurrentPrice: fromCents(q.CurrentPriceCents),
		NextMin:      fromCents(q.NextMinimumCents),
		BidCount:     q.BidCount,
		LeaderAlias:  q.LeaderAliasID,
		IsClosed:     q.Item.IsClosed,
	}
}

func (h *ItemHandler) List(c echo.Context) error {
	quotes, err := h.items.ListOpenItems(c.Request().Context())
	if err != nil {
		h.log.Error("Failed to list items", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	views := make([]itemView, len(quotes))
	for i, q := range quotes {
		views[i] = toItemView(q)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(views),
		"items": views,
	})
}

func (h *ItemHandler) Detail(c echo.Context) error {
	ref := c.Param("ref")

	// A ref is tried as id first, then as slug.
	detail, err := h.items.ItemDetail(c.Request().Context(), services.ItemRef{ID: ref})
	if errors.Is(err, domain.ErrItemNotFound) {
		detail, err = h.items.ItemDetail(c.Request().Context(), services.ItemRef{Slug: ref})
	}
	if errors.Is(err, domain.ErrItemNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "item not found"})
	}
	if err != nil {
		h.log.Error("Failed to load item detail", "ref", ref, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	history := make([]bidView, len(detail.History))
	for i, bid := range detail.History {
		history[i] = bidView{
			AliasID:   bid.AliasID,
			Amount:    fromCents(bid.AmountCents),
			CreatedAt: bid.CreatedAt,
		}
	}

	view := toItemView(&detail.ItemQuote)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"item": view,
		"bids": history,
	})
}
