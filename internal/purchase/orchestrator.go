// Package purchase runs data purchases as a two phase saga: the sale is posted and
// committed first, then the provider is called, and a failed call is compensated by a
// refund posting.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/accounting"
	"github.com/vtu-wallet-ledger/internal/domain/outbox"
	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/domain/shared"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
	"github.com/vtu-wallet-ledger/internal/platform/metrics"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
	"github.com/vtu-wallet-ledger/internal/provider"
)

const (
	MessageSucceeded = "Data purchase successful"
	MessageRefunded  = "Data purchase failed, amount refunded"
	MessagePending   = "Data purchase is still being processed"

	// UnreferencedDelivery stands in for the provider reference when a provider confirms
	// delivery without one.
	UnreferencedDelivery = "UNREFERENCED"
)

// Outcome labels for the purchases_total metric.
const (
	outcomeSuccess  = "success"
	outcomeRefunded = "refunded"
	outcomeRejected = "rejected"
	outcomeStuck    = "refund_failed"
)

var (
	ErrPurchaseInProgress = errors.New("a purchase with this reference is still in progress")
	ErrMissingRecipient   = errors.New("recipient phone number is required")
	ErrRefundFailed       = errors.New("purchase failed and the refund could not be posted")
)

// Stage is how far a purchase got. Only the last stage reached is reported.
type Stage string

const (
	StageInitiated        Stage = "INITIATED"
	StageAccountingPosted Stage = "ACCOUNTING_POSTED"
	StageProviderCalled   Stage = "PROVIDER_CALLED"
	StageSuccess          Stage = "SUCCESS"
	StageRefunded         Stage = "REFUNDED"
)

// Poster is the part of the accounting engine a purchase needs.
type Poster interface {
	RecordSale(ctx context.Context, tx pgx.Tx, sale accounting.Sale) (*accounting.Posting, error)
	RecordRefund(ctx context.Context, tx pgx.Tx, sale accounting.Sale) (*accounting.Posting, error)
}

type PlanSource interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*product.Plan, error)
}

type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type WalletSource interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
}

type ProviderResolver interface {
	Resolve(name string) (provider.Provider, error)
}

// Notifier is told about fulfilled purchases. It must not block and its failures never
// reach the buyer.
type Notifier interface {
	PurchaseCompleted(ctx context.Context, event *shared.PurchaseCompletedEvent)
}

// Request is one buy call. TxRef is the caller's idempotency key.
type Request struct {
	UserID        uuid.UUID
	PlanID        uuid.UUID
	Recipient     string
	TxRef         string
	PortedNumber  bool
	CorrelationID string
}

// Result is what the buyer is told. Success false with a nil error means the purchase
// was charged and then refunded.
type Result struct {
	Success     bool
	Stage       Stage
	Message     string
	Transaction *transaction.Transaction
	Balance     decimal.Decimal
	Replayed    bool
}

type Config struct {
	ProviderTimeout time.Duration
	Currency        string
}

type Orchestrator struct {
	db           persistence.TxExecutor
	poster       Poster
	users        UserSource
	wallets      WalletSource
	plans        PlanSource
	transactions transaction.Repository
	outbox       outbox.Repository
	providers    ProviderResolver
	notifier     Notifier
	cfg          Config
	logger       *slog.Logger
}

// NewOrchestrator creates an orchestrator that charges through poster and delivers
// through the resolved providers.
func NewOrchestrator(
	logger *slog.Logger,
	db persistence.TxExecutor,
	poster Poster,
	users UserSource,
	wallets WalletSource,
	plans PlanSource,
	transactions transaction.Repository,
	outboxRepo outbox.Repository,
	providers ProviderResolver,
	notifier Notifier,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		db:           db,
		poster:       poster,
		users:        users,
		wallets:      wallets,
		plans:        plans,
		transactions: transactions,
		outbox:       outboxRepo,
		providers:    providers,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logger,
	}
}

// Buy charges the user for a plan and asks the plan's provider to deliver it. A repeated
// TxRef returns the stored outcome instead of charging again.
func (o *Orchestrator) Buy(ctx context.Context, req Request) (*Result, error) {
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		return nil, ErrMissingRecipient
	}
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, transaction.ErrMissingTxRef
	}

	logger := o.logger.With("tx_ref", req.TxRef, "user_id", req.UserID.String())
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}

	if result, err := o.replay(ctx, req); result != nil || err != nil {
		return result, err
	}

	// INITIATED: everything needed to price and route the purchase.
	buyer, err := o.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	plan, err := o.plans.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	p, err := o.providers.Resolve(plan.Provider)
	if err != nil {
		return nil, err
	}
	userWallet, err := o.wallets.GetByUserID(ctx, buyer.ID)
	if err != nil {
		return nil, err
	}

	sale := accounting.Sale{
		UserID:      buyer.ID,
		Gross:       plan.PriceFor(buyer.IsReseller()),
		Cost:        plan.CostPrice,
		Description: fmt.Sprintf("%s %s %s data for %s", plan.NetworkName, plan.PlanSize, plan.PlanType, req.Recipient),
		CreatedBy:   buyer.ID.String(),
	}

	txn, err := transaction.New(req.TxRef, buyer.ID, userWallet.ID, sale.Gross, o.cfg.Currency, transaction.ChannelDataPurchase)
	if err != nil {
		return nil, err
	}
	planID := plan.ID
	txn.Cost = sale.Cost
	txn.Provider = p.Name()
	txn.PlanID = &planID
	txn.Recipient = req.Recipient

	// ACCOUNTING_POSTED: the PENDING row, the sale and its outbox record commit together.
	var posting *accounting.Posting
	err = o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		txns := o.transactions.WithTx(tx)
		if err := txns.Create(ctx, txn); err != nil {
			return err
		}

		var err error
		posting, err = o.poster.RecordSale(ctx, tx, sale)
		if err != nil {
			return err
		}
		if err := txns.AttachLedger(ctx, txn.ID, posting.LedgerID); err != nil {
			return err
		}
		txn.LedgerID = &posting.LedgerID
		return enqueue(ctx, o.outbox.WithTx(tx), txn)
	})
	if err != nil {
		if errors.Is(err, transaction.ErrDuplicateTxRef{}) {
			// Lost a race with a concurrent request carrying the same reference.
			result, err := o.replay(ctx, req)
			if result == nil && err == nil {
				return nil, ErrPurchaseInProgress
			}
			return result, err
		}
		metrics.RecordPurchase(p.Name(), outcomeRejected)
		logger.Warn("Purchase rejected", "plan_id", plan.ID.String(), "error", err)
		return nil, err
	}
	posting.ObserveCommitted()
	logger.Info("Purchase charged",
		"transaction_id", txn.ID.String(),
		"ledger_id", posting.LedgerID.String(),
		"amount", sale.Gross.String(),
		"provider", p.Name(),
	)

	// PROVIDER_CALLED: no locks are held while the provider works.
	start := time.Now()
	outcome, callErr := provider.TimedPurchase(ctx, p, o.cfg.ProviderTimeout, provider.PurchaseRequest{
		NetworkID:    plan.NetworkID,
		PlanID:       plan.ProviderPlanID,
		Recipient:    req.Recipient,
		TxRef:        req.TxRef,
		PortedNumber: req.PortedNumber,
	})
	metrics.RecordProviderCall(p.Name(), time.Since(start).Seconds())

	if callErr == nil && outcome.Success {
		return o.complete(ctx, logger, req, txn, buyer, plan, outcome, posting.UserBalance)
	}

	reason := "provider declined the purchase"
	switch {
	case callErr != nil:
		reason = callErr.Error()
	case outcome.Message != "":
		reason = outcome.Message
	}
	return o.compensate(ctx, logger, txn, sale, reason)
}

// complete settles a fulfilled purchase. The provider reference is written first so that
// a settle which fails here is finished as SUCCESS by Recovery. The provider has already
// delivered, so the purchase is reported as successful either way.
func (o *Orchestrator) complete(
	ctx context.Context,
	logger *slog.Logger,
	req Request,
	txn *transaction.Transaction,
	buyer *user.User,
	plan *product.Plan,
	outcome *provider.Outcome,
	balance decimal.Decimal,
) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	reference := outcome.Reference
	if reference == "" {
		reference = UnreferencedDelivery
	}
	if err := o.transactions.RecordProviderReference(ctx, txn.ID, reference); err != nil {
		logger.Error("Failed to record provider reference",
			"transaction_id", txn.ID.String(),
			"provider_reference", reference,
			"error", err,
		)
	}
	if err := txn.Complete(reference); err != nil {
		return nil, err
	}

	err := o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := o.transactions.WithTx(tx).Settle(ctx, txn); err != nil {
			return err
		}
		return enqueue(ctx, o.outbox.WithTx(tx), txn)
	})
	if err != nil {
		logger.Error("Failed to settle fulfilled purchase, left for recovery",
			"transaction_id", txn.ID.String(),
			"provider_reference", reference,
			"error", err,
		)
	}

	metrics.RecordPurchase(txn.Provider, outcomeSuccess)
	logger.Info("Purchase fulfilled", "transaction_id", txn.ID.String(), "provider_reference", reference)

	o.notifier.PurchaseCompleted(ctx, &shared.PurchaseCompletedEvent{
		TransactionID:     txn.ID,
		TxRef:             txn.TxRef,
		UserID:            buyer.ID,
		Email:             buyer.Email,
		FullName:          buyer.FullName,
		Network:           plan.NetworkName,
		PlanType:          plan.PlanType,
		PlanSize:          plan.PlanSize,
		Recipient:         txn.Recipient,
		Amount:            txn.Amount,
		Currency:          txn.Currency,
		ProviderReference: reference,
		CorrelationID:     req.CorrelationID,
		CompletedAt:       *txn.CompletedAt,
	})

	return &Result{
		Success:     true,
		Stage:       StageSuccess,
		Message:     MessageSucceeded,
		Transaction: txn,
		Balance:     balance,
	}, nil
}

// compensate reverses the sale and settles the transaction as FAILED. It runs to
// completion even if the caller has gone away.
func (o *Orchestrator) compensate(
	ctx context.Context,
	logger *slog.Logger,
	txn *transaction.Transaction,
	sale accounting.Sale,
	reason string,
) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	logger.Warn("Provider call failed, refunding", "transaction_id", txn.ID.String(), "reason", reason)

	if err := txn.Fail(reason); err != nil {
		return nil, err
	}
	sale.Description = "Refund: " + sale.Description

	var refund *accounting.Posting
	err := o.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		refund, err = o.poster.RecordRefund(ctx, tx, sale)
		if err != nil {
			return err
		}
		txn.RefundLedgerID = &refund.LedgerID
		if err := o.transactions.WithTx(tx).Settle(ctx, txn); err != nil {
			return err
		}
		return enqueue(ctx, o.outbox.WithTx(tx), txn)
	})
	if err != nil {
		metrics.RecordPurchase(txn.Provider, outcomeStuck)
		logger.Error("Refund failed, transaction left PENDING for recovery",
			"transaction_id", txn.ID.String(),
			"amount", sale.Gross.String(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}
	refund.ObserveCommitted()
	metrics.RecordPurchase(txn.Provider, outcomeRefunded)

	return &Result{
		Success:     false,
		Stage:       StageRefunded,
		Message:     MessageRefunded,
		Transaction: txn,
		Balance:     refund.UserBalance,
	}, nil
}

// replay returns the stored outcome for a reference that has been seen before, or nil
// when the reference is new.
func (o *Orchestrator) replay(ctx context.Context, req Request) (*Result, error) {
	existing, err := o.transactions.GetByTxRef(ctx, req.TxRef)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound{}) {
			return nil, nil
		}
		return nil, err
	}
	if !sameOrder(existing, req) {
		return nil, transaction.ErrTxRefConflict
	}
	if existing.Status == transaction.StatusPending {
		return nil, ErrPurchaseInProgress
	}

	result := &Result{
		Success:     existing.Status == transaction.StatusSuccess,
		Transaction: existing,
		Replayed:    true,
	}
	if result.Success {
		result.Stage, result.Message = StageSuccess, MessageSucceeded
	} else {
		result.Stage, result.Message = StageRefunded, MessageRefunded
	}
	if w, err := o.wallets.GetByUserID(ctx, existing.UserID); err == nil {
		result.Balance = w.Balance
	}
	return result, nil
}

// sameOrder reports whether a stored transaction is the purchase req asks for. The price
// is not compared since it may change between a first attempt and its retry.
func sameOrder(existing *transaction.Transaction, req Request) bool {
	return existing.UserID == req.UserID &&
		existing.Channel == transaction.ChannelDataPurchase &&
		existing.PlanID != nil && *existing.PlanID == req.PlanID &&
		existing.Recipient == req.Recipient
}

func enqueue(ctx context.Context, repo outbox.Repository, txn *transaction.Transaction) error {
	msg, err := outbox.NewTransactionRecorded(txn)
	if err != nil {
		return err
	}
	return repo.Create(ctx, msg)
}
