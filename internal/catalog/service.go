// Package catalog serves the data plan catalog, reading through the Redis cache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/data/cache"
	"github.com/vtu-wallet-ledger/internal/domain/money"
	"github.com/vtu-wallet-ledger/internal/domain/product"
)

var ErrInvalidPlan = errors.New("invalid data plan")

// PlanCache is the read-through cache in front of the plan repository.
type PlanCache interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*product.Plan, error)
	SetPlan(ctx context.Context, plan *product.Plan) error
	GetPlans(ctx context.Context) ([]*product.Plan, error)
	SetPlans(ctx context.Context, plans []*product.Plan) error
	Invalidate(ctx context.Context, ids ...uuid.UUID) error
}

// UpsertPlanInput is a plan as described by a provider feed or an operator.
type UpsertPlanInput struct {
	Provider       string
	ProviderPlanID string
	NetworkID      string
	NetworkName    string
	PlanSize       string
	PlanType       string
	Validity       string
	CostPrice      decimal.Decimal
	SellingPrice   decimal.Decimal
	ResellerPrice  *decimal.Decimal
}

type Service struct {
	plans  product.Repository
	cache  PlanCache
	logger *slog.Logger
}

func NewService(logger *slog.Logger, plans product.Repository, cache PlanCache) *Service {
	return &Service{
		plans:  plans,
		cache:  cache,
		logger: logger,
	}
}

// GetPlan returns a plan, preferring the cache. Cache failures are logged and ignored.
func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*product.Plan, error) {
	plan, err := s.cache.GetPlan(ctx, id)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Plan cache read failed", "plan_id", id.String(), "error", err)
	}

	plan, err = s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetPlan(ctx, plan); err != nil {
		s.logger.Warn("Plan cache write failed", "plan_id", id.String(), "error", err)
	}
	return plan, nil
}

func (s *Service) ListPlans(ctx context.Context) ([]*product.Plan, error) {
	plans, err := s.cache.GetPlans(ctx)
	if err == nil {
		return plans, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Plan list cache read failed", "error", err)
	}

	plans, err = s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []*product.Plan{}
	}
	if err := s.cache.SetPlans(ctx, plans); err != nil {
		s.logger.Warn("Plan list cache write failed", "error", err)
	}
	return plans, nil
}

// UpsertPlan validates and stores a plan. Only provider-side attributes of an existing
// plan are refreshed; its prices stay as an operator set them.
func (s *Service) UpsertPlan(ctx context.Context, in UpsertPlanInput) (*product.Plan, error) {
	if err := validatePlan(in); err != nil {
		return nil, err
	}

	now := time.Now()
	plan := &product.Plan{
		ID:             uuid.New(),
		Provider:       strings.ToLower(strings.TrimSpace(in.Provider)),
		ProviderPlanID: strings.TrimSpace(in.ProviderPlanID),
		NetworkID:      in.NetworkID,
		NetworkName:    in.NetworkName,
		PlanSize:       in.PlanSize,
		PlanType:       in.PlanType,
		Validity:       in.Validity,
		CostPrice:      in.CostPrice,
		SellingPrice:   in.SellingPrice,
		ResellerPrice:  in.ResellerPrice,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.plans.Upsert(ctx, plan); err != nil {
		return nil, err
	}

	s.invalidate(ctx, plan.ID)
	s.logger.Info("Data plan upserted", "plan_id", plan.ID.String(), "provider", plan.Provider, "provider_plan_id", plan.ProviderPlanID)
	return plan, nil
}

func (s *Service) UpdateSellingPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*product.Plan, error) {
	if err := money.RequirePositive(price); err != nil {
		return nil, err
	}

	plan, err := s.plans.UpdateSellingPrice(ctx, id, price)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.logger.Info("Data plan repriced", "plan_id", id.String(), "selling_price", price.String())
	return plan, nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("Plan cache invalidation failed", "plan_id", id.String(), "error", err)
	}
}

func validatePlan(in UpsertPlanInput) error {
	switch {
	case strings.TrimSpace(in.Provider) == "":
		return fmt.Errorf("%w: provider is required", ErrInvalidPlan)
	case strings.TrimSpace(in.ProviderPlanID) == "":
		return fmt.Errorf("%w: provider plan id is required", ErrInvalidPlan)
	case strings.TrimSpace(in.NetworkID) == "":
		return fmt.Errorf("%w: network id is required", ErrInvalidPlan)
	}
	if err := money.RequireNonNegative(in.CostPrice); err != nil {
		return fmt.Errorf("%w: cost price: %v", ErrInvalidPlan, err)
	}
	if err := money.RequirePositive(in.SellingPrice); err != nil {
		return fmt.Errorf("%w: selling price: %v", ErrInvalidPlan, err)
	}
	if in.ResellerPrice != nil {
		if err := money.RequirePositive(*in.ResellerPrice); err != nil {
			return fmt.Errorf("%w: reseller price: %v", ErrInvalidPlan, err)
		}
	}
	return nil
}
