// Package product describes the data plans the platform resells and how they are priced.
package product

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Plan is a provider data bundle with the platform's prices. CostPrice is what the
// provider charges; SellingPrice is what users pay.
type Plan struct {
	ID             uuid.UUID        `json:"id"`
	Provider       string           `json:"provider"`
	ProviderPlanID string           `json:"provider_plan_id"`
	NetworkID      string           `json:"network_id"`
	NetworkName    string           `json:"network_name"`
	PlanSize       string           `json:"plan_size"`
	PlanType       string           `json:"plan_type"`
	Validity       string           `json:"validity"`
	CostPrice      decimal.Decimal  `json:"cost_price"`
	SellingPrice   decimal.Decimal  `json:"selling_price"`
	ResellerPrice  *decimal.Decimal `json:"reseller_price,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// PriceFor returns the gross amount charged to a buyer. Resellers pay the reseller
// price when one is set.
func (p *Plan) PriceFor(reseller bool) decimal.Decimal {
	if reseller && p.ResellerPrice != nil && p.ResellerPrice.IsPositive() {
		return *p.ResellerPrice
	}
	return p.SellingPrice
}

// Margin is the profit recognised on a sale at the given price.
func (p *Plan) Margin(reseller bool) decimal.Decimal {
	return p.PriceFor(reseller).Sub(p.CostPrice)
}

// Repository defines plan persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)

	// Upsert inserts or refreshes a plan keyed by (provider, provider plan id) and
	// fills in the stored ID.
	Upsert(ctx context.Context, plan *Plan) error
	UpdateSellingPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*Plan, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrPlanNotFound indicates a missing plan
type ErrPlanNotFound struct {
	PlanID uuid.UUID
}

func (e ErrPlanNotFound) Error() string {
	return "data plan not found: " + e.PlanID.String()
}

// Is implements the errors.Is interface for ErrPlanNotFound
func (e ErrPlanNotFound) Is(target error) bool {
	t, ok := target.(ErrPlanNotFound)
	if !ok {
		return false
	}
	return t.PlanID == uuid.Nil || e.PlanID == t.PlanID
}
