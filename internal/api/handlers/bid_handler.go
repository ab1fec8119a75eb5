package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"silent-auction/internal/domain"
	"silent-auction/internal/services"
	"silent-auction/pkg/logger"
)

// BidPlacer is the slice of the admission service the bid handler needs.
type BidPlacer interface {
	PlaceBid(ctx context.Context, ref services.ItemRef, token string, amountCents int64) (*services.Admission, error)
}

type BidHandler struct {
	admission BidPlacer
	items     ItemReader
	log       logger.Logger
}

func NewBidHandler(admission BidPlacer, items ItemReader, log logger.Logger) *BidHandler {
	return &BidHandler{admission: admission, items: items, log: log}
}

type PlaceBidRequest struct {
	ItemID      string          `json:"item_id"`
	Slug        string          `json:"slug"`
	Amount      decimal.Decimal `json:"amount"`
	BidderToken string          `json:"bidder_token"`
}

type PlaceBidResponse struct {
	OK          bool            `json:"ok"`
	BidID       string          `json:"bid_id"`
	NextMin     decimal.Decimal `json:"next_min"`
	NextMinCent int64           `json:"next_min_cents"`
}

type bidErrorResponse struct {
	OK      bool             `json:"ok"`
	Error   string           `json:"error"`
	Reason  string           `json:"reason,omitempty"`
	Minimum *decimal.Decimal `json:"minimum,omitempty"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	var req PlaceBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, bidErrorResponse{Error: "invalid request body"})
	}

	token := bearerToken(c.Request())
	if token == "" {
		token = req.BidderToken
	}
	if token == "" {
		return c.JSON(http.StatusUnauthorized, bidErrorResponse{Error: "bidder identity token required"})
	}

	amountCents, ok := toCents(req.Amount)
	if !ok {
		resp := bidErrorResponse{
			Error:  "amount must be a whole number of cents",
			Reason: domain.BidNotOnIncrement.String(),
		}
		// Best effort: the bid never reached admission, so look the minimum
		// up separately. A failed lookup only costs the field.
		ref := services.ItemRef{ID: req.ItemID, Slug: req.Slug}
		if detail, err := h.items.ItemDetail(c.Request().Context(), ref); err == nil {
			minimum := fromCents(detail.NextMinimumCents)
			resp.Minimum = &minimum
		}
		return c.JSON(http.StatusBadRequest, resp)
	}

	admission, err := h.admission.PlaceBid(c.Request().Context(),
		services.ItemRef{ID: req.ItemID, Slug: req.Slug}, token, amountCents)
	if err != nil {
		return h.writeBidError(c, err)
	}

	return c.JSON(http.StatusOK, PlaceBidResponse{
		OK:          true,
		BidID:       admission.Bid.ID,
		NextMin:     fromCents(admission.NextMinimumCents),
		NextMinCent: admission.NextMinimumCents,
	})
}

// writeBidError maps the domain error taxonomy onto HTTP statuses. Store
// failures stay opaque: logged with context, surfaced as a plain 500.
func (h *BidHandler) writeBidError(c echo.Context, err error) error {
	var windowErr *domain.WindowError
	if errors.As(err, &windowErr) {
		return c.JSON(http.StatusBadRequest, bidErrorResponse{
			Error:  "bidding is not open",
			Reason: windowErr.Reason.String(),
		})
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		minimum := fromCents(validationErr.MinimumCents)
		return c.JSON(http.StatusBadRequest, bidErrorResponse{
			Error:   "bid amount rejected",
			Reason:  validationErr.Reason.String(),
			Minimum: &minimum,
		})
	}

	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, bidErrorResponse{Error: "item not found"})
	case errors.Is(err, domain.ErrItemClosed):
		return c.JSON(http.StatusGone, bidErrorResponse{Error: "item is closed for bidding"})
	case errors.Is(err, domain.ErrNoVerifiedAlias):
		return c.JSON(http.StatusUnauthorized, bidErrorResponse{Error: "no verified alias; complete registration first"})
	}

	h.log.Error("Bid placement failed", "error", err)
	return c.JSON(http.StatusInternalServerError, bidErrorResponse{Error: "internal error"})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
