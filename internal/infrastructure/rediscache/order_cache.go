package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "orderflow/internal/domain/order"
	"orderflow/internal/pkg/logging"
)

const keyPrefix = "orderflow:order"

// OrderCache is a read-through cache decorating an order repository. Writes
// go to the inner store first; cache population is best-effort and a cache
// outage never fails an operation.
type OrderCache struct {
	inner  domain.Repository
	client *redis.Client
	ttl    time.Duration
}

func New(inner domain.Repository, client *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
	}
}

var _ domain.Repository = (*OrderCache)(nil)

func (c *OrderCache) Create(ctx context.Context, order *domain.Order) error {
	if err := c.inner.Create(ctx, order); err != nil {
		return err
	}
	c.set(ctx, order)
	return nil
}

func (c *OrderCache) Get(ctx context.Context, id string) (*domain.Order, error) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Result()
	if err == nil {
		var order domain.Order
		if jsonErr := json.Unmarshal([]byte(raw), &order); jsonErr == nil {
			return &order, nil
		}
		// Corrupt entry: fall through to the store.
	} else if !errors.Is(err, redis.Nil) {
		logging.FromContext(ctx).Warn("order_cache_get_failed",
			zap.String("order_id", id),
			zap.Error(err),
		)
	}

	order, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, order)
	return order, nil
}

// ListByUser always hits the store; list results are not cached.
func (c *OrderCache) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return c.inner.ListByUser(ctx, userID)
}

func (c *OrderCache) Update(ctx context.Context, order *domain.Order) error {
	if err := c.inner.Update(ctx, order); err != nil {
		return err
	}
	c.set(ctx, order)
	return nil
}

func (c *OrderCache) set(ctx context.Context, order *domain.Order) {
	raw, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(order.ID), raw, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("order_cache_set_failed",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

func cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}
