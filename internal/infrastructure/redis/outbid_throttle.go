package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// OutbidThrottle allows at most one outbid notification per item per rolling
// window. The SETNX+TTL pair makes the check-and-arm atomic across instances.
type OutbidThrottle struct {
	client *redis.Client
	window time.Duration
}

func NewOutbidThrottle(client *redis.Client, window time.Duration) *OutbidThrottle {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &OutbidThrottle{client: client, window: window}
}

func (t *OutbidThrottle) Allow(ctx context.Context, itemID string) (bool, error) {
	key := fmt.Sprintf("outbid:%s", itemID)
	return t.client.SetNX(ctx, key, 1, t.window).Result()
}
