package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"silent-auction/pkg/logger"
)

// Connection wraps a gorilla websocket connection for one item watcher.
// Watchers are anonymous: the live feed is a public surface and carries only
// pseudonymous bid data.
type Connection struct {
	conn      *websocket.Conn
	itemID    string
	writeMu   sync.Mutex
	closeOnce sync.Once
	log       logger.Logger
}

func NewConnection(conn *websocket.Conn, itemID string, log logger.Logger) *Connection {
	return &Connection{conn: conn, itemID: itemID, log: log}
}

func (c *Connection) ItemID() string {
	return c.itemID
}

func (c *Connection) Send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// WaitForClose blocks reading the socket until the client disconnects.
// Inbound messages are discarded; the feed is one-way.
func (c *Connection) WaitForClose() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
