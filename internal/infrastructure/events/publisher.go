// Package events delivers bridge events to observers. Delivery is
// fire-and-forget: a failed publish is logged and never fails the
// operation that produced the event.
package events

import (
	"context"
	"time"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	"github.com/bridge-service/bridge_service/internal/infrastructure/cache"
	"github.com/bridge-service/bridge_service/pkg/logger"
)

// Publisher is the event sink consumed by the domain services
type Publisher interface {
	Publish(ctx context.Context, event entities.BridgeEvent)
}

// RedisPublisher fans events out on a redis pub/sub channel and mirrors
// them into the structured log
type RedisPublisher struct {
	redis   cache.RedisClient
	channel string
	logger  *logger.Logger
}

// NewRedisPublisher creates a publisher on the given channel
func NewRedisPublisher(redis cache.RedisClient, channel string, logger *logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		redis:   redis,
		channel: channel,
		logger:  logger,
	}
}

// Publish emits the event. The redis leg is best-effort.
func (p *RedisPublisher) Publish(ctx context.Context, event entities.BridgeEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	p.logger.Info("Bridge event",
		"event_type", event.Type,
		"transfer_id", event.TransferID,
		"chain_id", event.ChainID,
		"account", event.Account,
		"amount", event.Amount,
		"fee", event.Fee,
	)

	if err := p.redis.Publish(ctx, p.channel, event); err != nil {
		p.logger.Warn("Failed to publish bridge event",
			"event_type", event.Type,
			"error", err,
		)
	}
}

// NopPublisher discards all events. Useful in tests.
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, entities.BridgeEvent) {}
