package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

const planColumns = `id, provider, provider_plan_id, network_id, network_name, plan_size, plan_type, validity,
	cost_price, selling_price, reseller_price, created_at, updated_at`

// PlanRepository implements the product.Repository interface for PostgreSQL
type PlanRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPlanRepository creates a new PostgreSQL data plan repository
func NewPlanRepository(logger *slog.Logger, db *persistence.PostgresDB) product.Repository {
	return &PlanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PlanRepository) WithTx(tx pgx.Tx) product.Repository {
	return &PlanRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM data_plans WHERE id = $1`

	p, err := scanPlan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrPlanNotFound{PlanID: id}
		}
		r.logger.Error("Failed to get plan", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return p, nil
}

// List returns every plan grouped by network, cheapest first.
func (r *PlanRepository) List(ctx context.Context) ([]*product.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM data_plans ORDER BY network_name ASC, selling_price ASC`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list plans", "error", err)
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*product.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return plans, nil
}

// Upsert refreshes the provider-side attributes of a plan. The selling and reseller
// prices are only written on insert; afterwards they are owned by UpdateSellingPrice.
func (r *PlanRepository) Upsert(ctx context.Context, p *product.Plan) error {
	query := `
		INSERT INTO data_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (provider, provider_plan_id) DO UPDATE
		SET network_id = EXCLUDED.network_id,
		    network_name = EXCLUDED.network_name,
		    plan_size = EXCLUDED.plan_size,
		    plan_type = EXCLUDED.plan_type,
		    validity = EXCLUDED.validity,
		    cost_price = EXCLUDED.cost_price,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, selling_price, reseller_price, created_at
	`

	err := r.querier.QueryRow(ctx, query,
		p.ID,
		p.Provider,
		p.ProviderPlanID,
		p.NetworkID,
		p.NetworkName,
		p.PlanSize,
		p.PlanType,
		p.Validity,
		p.CostPrice,
		p.SellingPrice,
		p.ResellerPrice,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID, &p.SellingPrice, &p.ResellerPrice, &p.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to upsert plan", "provider", p.Provider, "provider_plan_id", p.ProviderPlanID, "error", err)
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) UpdateSellingPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*product.Plan, error) {
	query := `
		UPDATE data_plans
		SET selling_price = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + planColumns

	p, err := scanPlan(r.querier.QueryRow(ctx, query, price, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrPlanNotFound{PlanID: id}
		}
		r.logger.Error("Failed to update plan price", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to update plan price: %w", err)
	}
	return p, nil
}

func scanPlan(row pgx.Row) (*product.Plan, error) {
	var p product.Plan
	err := row.Scan(
		&p.ID,
		&p.Provider,
		&p.ProviderPlanID,
		&p.NetworkID,
		&p.NetworkName,
		&p.PlanSize,
		&p.PlanType,
		&p.Validity,
		&p.CostPrice,
		&p.SellingPrice,
		&p.ResellerPrice,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
