package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"silent-auction/internal/domain"
	ws "silent-auction/internal/infrastructure/websocket"
	"silent-auction/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The feed carries only public pseudonymous data.
		return true
	},
}

type LiveHandler struct {
	items   domain.ItemRepository
	manager *ws.ConnectionManager
	log     logger.Logger
}

func NewLiveHandler(items domain.ItemRepository, manager *ws.ConnectionManager, log logger.Logger) *LiveHandler {
	return &LiveHandler{items: items, manager: manager, log: log}
}

// Stream upgrades the request to a websocket and streams price updates for
// one item until the client disconnects.
func (h *LiveHandler) Stream(c echo.Context) error {
	ref := c.Param("ref")

	item, err := h.items.GetByID(c.Request().Context(), ref)
	if errors.Is(err, domain.ErrItemNotFound) {
		item, err = h.items.GetBySlug(c.Request().Context(), ref)
	}
	if errors.Is(err, domain.ErrItemNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "item not found"})
	}
	if err != nil {
		h.log.Error("Failed to load item for live feed", "ref", ref, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if item.IsClosed {
		return c.JSON(http.StatusGone, map[string]string{"error": "item is closed"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("Failed to upgrade live feed connection", "ref", ref, "error", err)
		return nil
	}

	watcher := ws.NewConnection(conn, item.ID, h.log)
	h.manager.Register(watcher)
	defer func() {
		h.manager.Unregister(watcher)
		watcher.Close()
	}()

	watcher.WaitForClose()
	return nil
}
