package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"silent-auction/pkg/logger"
)

func TestConnectionManagerRegistry(t *testing.T) {
	cm := NewConnectionManager(logger.NewNop())

	a := NewConnection(nil, "item_1", logger.NewNop())
	b := NewConnection(nil, "item_1", logger.NewNop())
	c := NewConnection(nil, "item_2", logger.NewNop())

	cm.Register(a)
	cm.Register(b)
	cm.Register(c)

	assert.Equal(t, 2, cm.WatcherCount("item_1"))
	assert.Equal(t, 1, cm.WatcherCount("item_2"))
	assert.Zero(t, cm.WatcherCount("item_3"))

	cm.Unregister(a)
	assert.Equal(t, 1, cm.WatcherCount("item_1"))

	// Unregistering twice is a no-op.
	cm.Unregister(a)
	assert.Equal(t, 1, cm.WatcherCount("item_1"))

	cm.Unregister(b)
	cm.Unregister(c)
	assert.Zero(t, cm.WatcherCount("item_1"))
	assert.Zero(t, cm.WatcherCount("item_2"))
}
