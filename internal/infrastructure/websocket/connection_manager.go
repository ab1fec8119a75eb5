package websocket

import (
	"encoding/json"
	"sync"

	"silent-auction/pkg/logger"
)

// ConnectionManager tracks live-feed watchers per item and broadcasts price
// updates to them.
type ConnectionManager struct {
	watchers map[string]map[*Connection]struct{} // itemID -> connections
	mutex    sync.RWMutex
	log      logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		watchers: make(map[string]map[*Connection]struct{}),
		log:      log,
	}
}

func (cm *ConnectionManager) Register(conn *Connection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	itemID := conn.ItemID()
	if cm.watchers[itemID] == nil {
		cm.watchers[itemID] = make(map[*Connection]struct{})
	}
	cm.watchers[itemID][conn] = struct{}{}

	cm.log.Debug("Watcher registered", "item_id", itemID, "watchers", len(cm.watchers[itemID]))
}

func (cm *ConnectionManager) Unregister(conn *Connection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	itemID := conn.ItemID()
	if conns, exists := cm.watchers[itemID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(cm.watchers, itemID)
		}
	}
	cm.log.Debug("Watcher unregistered", "item_id", itemID)
}

func (cm *ConnectionManager) connectionsFor(itemID string) []*Connection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	conns := make([]*Connection, 0, len(cm.watchers[itemID]))
	for conn := range cm.watchers[itemID] {
		conns = append(conns, conn)
	}
	return conns
}

// BroadcastToItem sends a message to every watcher of the item. Send
// failures are logged and skipped; a dead watcher must not block the rest.
func (cm *ConnectionManager) BroadcastToItem(itemID string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	for _, conn := range cm.connectionsFor(itemID) {
		if err := conn.Send(payload); err != nil {
			cm.log.Warn("Failed to send to watcher", "item_id", itemID, "error", err)
		}
	}
	return nil
}

func (cm *ConnectionManager) WatcherCount(itemID string) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.watchers[itemID])
}
