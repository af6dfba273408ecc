package authz

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// InvalidationChannel is the redis pub/sub channel carrying permission
// mapping invalidation signals between processes.
const InvalidationChannel = "revium:authz:invalidate"

// Invalidator propagates cache invalidation across processes via redis
// pub/sub. Role or grant writes call Publish; every process running Listen
// drops its cached mapping in response.
type Invalidator struct {
	client *redis.Client
	cache  *Cache
	logger *slog.Logger
}

// NewInvalidator constructs an Invalidator.
func NewInvalidator(client *redis.Client, cache *Cache, logger *slog.Logger) *Invalidator {
	return &Invalidator{client: client, cache: cache, logger: logger}
}

// Publish invalidates the local cache and broadcasts the signal. A broadcast
// failure is logged but does not undo the local invalidation.
func (i *Invalidator) Publish(ctx context.Context) {
	i.cache.Invalidate()
	if i.client == nil {
		return
	}
	if err := i.client.Publish(ctx, InvalidationChannel, "1").Err(); err != nil && i.logger != nil {
		i.logger.Warn("publish permission invalidation", slog.Any("error", err))
	}
}

// Listen consumes invalidation signals until the context is cancelled.
func (i *Invalidator) Listen(ctx context.Context) error {
	sub := i.client.Subscribe(ctx, InvalidationChannel)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			i.cache.Invalidate()
		}
	}
}
