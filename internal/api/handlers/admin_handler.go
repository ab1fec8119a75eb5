package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"silent-auction/internal/domain"
	"silent-auction/internal/services"
	"silent-auction/pkg/logger"
	"silent-auction/pkg/utils"
)

// AuctionCloser is the slice of the closer the admin surface needs.
type AuctionCloser interface {
	CloseAuction(ctx context.Context, force bool) (*services.CloseResult, error)
	CloseItem(ctx context.Context, itemID string) (*services.CloseResult, error)
}

// AdminHandler serves the internal-only administrative surface: closing the
// auction, managing items and editing the auction settings. Administrator
// authentication is a network-boundary concern, not handled here.
type AdminHandler struct {
	closer   AuctionCloser
	items    domain.ItemRepository
	settings domain.SettingsRepository
	log      logger.Logger
}

func NewAdminHandler(
	closer AuctionCloser,
	items domain.ItemRepository,
	settings domain.SettingsRepository,
	log logger.Logger,
) *AdminHandler {
	return &AdminHandler{closer: closer, items: items, settings: settings, log: log}
}

func (h *AdminHandler) Register(r *mux.Router) {
	r.HandleFunc("/admin/close-auction", h.CloseAuction).Methods(http.MethodPost)
	r.HandleFunc("/admin/items", h.CreateItem).Methods(http.MethodPost)
	r.HandleFunc("/admin/items/{id}/close", h.CloseItem).Methods(http.MethodPost)
	r.HandleFunc("/admin/settings", h.GetSettings).Methods(http.MethodGet)
	r.HandleFunc("/admin/settings", h.UpdateSettings).Methods(http.MethodPatch)
}

type winnerView struct {
	ItemID    string          `json:"item_id"`
	ItemTitle string          `json:"item_title"`
	Slug      string          `json:"slug"`
	AliasID   string          `json:"alias_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type closeResultView struct {
	State               string       `json:"state"`
	Winners             []winnerView `json:"winners"`
	WinnersUnresolved   int          `json:"winners_unresolved"`
	NotificationsSent   int          `json:"notifications_sent"`
	NotificationsFailed int          `json:"notifications_failed"`
}

func toCloseResultView(result *services.CloseResult) closeResultView {
	winners := make([]winnerView, len(result.Winners))
	for i, w := range result.Winners {
		winners[i] = winnerView{
			ItemID:    w.ItemID,
			ItemTitle: w.ItemTitle,
			Slug:      w.Slug,
			AliasID:   w.AliasID,
			Amount:    fromCents(w.AmountCents),
		}
	}
	return closeResultView{
		State:               result.State.String(),
		Winners:             winners,
		WinnersUnresolved:   result.WinnersUnresolved,
		NotificationsSent:   result.NotificationsSent,
		NotificationsFailed: result.NotificationsFailed,
	}
}

func (h *AdminHandler) CloseAuction(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	result, err := h.closer.CloseAuction(r.Context(), force)
	if err != nil {
		h.log.Error("Close auction failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "close failed"})
		return
	}

	writeJSON(w, http.StatusOK, toCloseResultView(result))
}

func (h *AdminHandler) CloseItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	result, err := h.closer.CloseItem(r.Context(), itemID)
	if errors.Is(err, domain.ErrItemNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	if err != nil {
		h.log.Error("Close item failed", "item_id", itemID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "close failed"})
		return
	}

	writeJSON(w, http.StatusOK, toCloseResultView(result))
}

type createItemRequest struct {
	Slug        string          `json:"slug"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	OwnerID     string          `json:"owner_id"`
	StartPrice  decimal.Decimal `json:"start_price"`
}

func (h *AdminHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Slug == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "slug and title are required"})
		return
	}

	startPriceCents, ok := toCents(req.StartPrice)
	if !ok || startPriceCents < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_price must be a non-negative amount in whole cents"})
		return
	}

	now := time.Now()
	item := &domain.Item{
		ID:              utils.GenerateID("item"),
		Slug:            req.Slug,
		Title:           req.Title,
		Description:     req.Description,
		OwnerID:         req.OwnerID,
		StartPriceCents: startPriceCents,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.items.Create(r.Context(), item); err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "slug already in use"})
			return
		}
		h.log.Error("Failed to create item", "slug", req.Slug, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": item.ID, "slug": item.Slug})
}

type settingsView struct {
	AuctionStart        *time.Time `json:"auction_start"`
	AuctionDeadline     *time.Time `json:"auction_deadline"`
	AuctionClosed       bool       `json:"auction_closed"`
	PaymentInstructions string     `json:"payment_instructions"`
	PickupInstructions  string     `json:"pickup_instructions"`
	ContactEmail        string     `json:"contact_email"`
}

type updateSettingsRequest struct {
	AuctionStart        *time.Time `json:"auction_start"`
	AuctionDeadline     *time.Time `json:"auction_deadline"`
	AuctionClosed       *bool      `json:"auction_closed"`
	PaymentInstructions *string    `json:"payment_instructions"`
	PickupInstructions  *string    `json:"pickup_instructions"`
	ContactEmail        *string    `json:"contact_email"`
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.log.Error("Failed to load settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, settingsView{
		AuctionStart:        settings.AuctionStart,
		AuctionDeadline:     settings.AuctionDeadline,
		AuctionClosed:       settings.AuctionClosed,
		PaymentInstructions: settings.PaymentInstructions,
		PickupInstructions:  settings.PickupInstructions,
		ContactEmail:        settings.ContactEmail,
	})
}

// UpdateSettings applies a partial update; absent fields keep their current
// value. This is the sole mutation path for the auction window.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.log.Error("Failed to load settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if req.AuctionStart != nil {
		settings.AuctionStart = req.AuctionStart
	}
	if req.AuctionDeadline != nil {
		settings.AuctionDeadline = req.AuctionDeadline
	}
	if req.AuctionClosed != nil {
		settings.AuctionClosed = *req.AuctionClosed
	}
	if req.PaymentInstructions != nil {
		settings.PaymentInstructions = *req.PaymentInstructions
	}
	if req.PickupInstructions != nil {
		settings.PickupInstructions = *req.PickupInstructions
	}
	if req.ContactEmail != nil {
		settings.ContactEmail = *req.ContactEmail
	}

	if err := h.settings.Update(r.Context(), settings); err != nil {
		h.log.Error("Failed to update settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	h.log.Info("Auction settings updated", "closed", settings.AuctionClosed)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
