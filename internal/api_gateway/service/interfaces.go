package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/catalog"
	"github.com/vtu-wallet-ledger/internal/domain/history"
	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/purchase"
)

// UserService provisions users together with their wallets.
type UserService interface {
	// CreateUser stores the user and a zero-balance wallet atomically.
	// Returns ErrDuplicateEmail if the address is taken.
	CreateUser(ctx context.Context, fullName, email string, role user.Role) (*user.User, *wallet.Wallet, error)
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// WalletService moves money into and out of user wallets. Both movements are idempotent
// by TxRef.
type WalletService interface {
	Credit(ctx context.Context, req FundingRequest) (*FundingResult, error)
	Debit(ctx context.Context, req FundingRequest) (*FundingResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
}

// PurchaseService is satisfied by purchase.Orchestrator.
type PurchaseService interface {
	Buy(ctx context.Context, req purchase.Request) (*purchase.Result, error)
}

// PlanService is satisfied by catalog.Service.
type PlanService interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*product.Plan, error)
	ListPlans(ctx context.Context) ([]*product.Plan, error)
	UpsertPlan(ctx context.Context, in catalog.UpsertPlanInput) (*product.Plan, error)
	UpdateSellingPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*product.Plan, error)
}

// TransactionService reads transactions from the ledger store and user history from the
// read model.
type TransactionService interface {
	GetByTxRef(ctx context.Context, txRef string) (*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error)

	// History returns a page of the user's history, newest first, and the total count.
	History(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*history.Record, int64, error)
}

type LedgerService interface {
	GetLedger(ctx context.Context, id uuid.UUID) (*ledger.Ledger, []*ledger.Entry, error)
}

// AuditService is satisfied by audit.Service.
type AuditService interface {
	AuditBalances(ctx context.Context) (*audit.Report, error)
	InflowOutflow(ctx context.Context, timeframe string, from, to *time.Time) (*audit.FlowReport, error)
}
