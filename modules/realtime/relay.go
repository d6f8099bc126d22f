package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	redisutil "reelcraft-server/modules/common/redis"
)

// Channel - Redis pub/sub channel every instance listens on
const Channel = "video-status"

// Relay - feed Redis status events into the hub until ctx is cancelled
func Relay(ctx context.Context, rdb *redis.Client, hub *Hub) error {
	return redisutil.Subscribe(ctx, rdb, Channel, hub.Dispatch)
}

// LocalPublisher - single-instance fallback when Redis is unavailable
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(ctx context.Context, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	p.hub.Dispatch(payload)
	return nil
}
