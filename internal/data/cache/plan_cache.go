// Package cache keeps the data plan catalog in Redis so the purchase path and the
// public plan listing do not hit PostgreSQL on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vtu-wallet-ledger/internal/domain/product"
)

const (
	planKeyPrefix = "plan:"
	planListKey   = "plans:all"
)

// ErrCacheMiss is returned when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// PlanCache stores JSON encoded plans with a fixed TTL.
type PlanCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewPlanCache(logger *slog.Logger, client *redis.Client, ttl time.Duration) *PlanCache {
	return &PlanCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func planKey(id uuid.UUID) string {
	return planKeyPrefix + id.String()
}

func (c *PlanCache) GetPlan(ctx context.Context, id uuid.UUID) (*product.Plan, error) {
	var plan product.Plan
	if err := c.get(ctx, planKey(id), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (c *PlanCache) SetPlan(ctx context.Context, plan *product.Plan) error {
	return c.set(ctx, planKey(plan.ID), plan)
}

func (c *PlanCache) GetPlans(ctx context.Context) ([]*product.Plan, error) {
	var plans []*product.Plan
	if err := c.get(ctx, planListKey, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *PlanCache) SetPlans(ctx context.Context, plans []*product.Plan) error {
	return c.set(ctx, planListKey, plans)
}

// Invalidate drops the listing and the given plans.
func (c *PlanCache) Invalidate(ctx context.Context, ids ...uuid.UUID) error {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, planListKey)
	for _, id := range ids {
		keys = append(keys, planKey(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Failed to invalidate plan cache", "keys", keys, "error", err)
		return fmt.Errorf("failed to invalidate plan cache: %w", err)
	}
	return nil
}

func (c *PlanCache) get(ctx context.Context, key string, dest any) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to read %s from cache: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return nil
}

func (c *PlanCache) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to cache: %w", key, err)
	}
	return nil
}
