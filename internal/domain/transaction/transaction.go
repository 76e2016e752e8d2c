// Package transaction models the external-facing record of a purchase or wallet
// funding attempt. A transaction starts PENDING and settles exactly once.
package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of a transaction. SUCCESS and FAILED are terminal.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Channel is the business flow that produced the transaction.
type Channel string

const (
	ChannelDataPurchase     Channel = "DATA_PURCHASE"
	ChannelWalletFunding    Channel = "WALLET_FUNDING"
	ChannelWalletWithdrawal Channel = "WALLET_WITHDRAWAL"
)

var (
	ErrInvalidTransition = errors.New("transaction already settled")
	ErrMissingTxRef      = errors.New("transaction reference is required")
	ErrTxRefConflict     = errors.New("transaction reference belongs to another request")
)

// Transaction is the purchase/funding record exposed to callers, distinct from ledger entries.
type Transaction struct {
	ID                uuid.UUID       `json:"id"`
	TxRef             string          `json:"tx_ref"`
	UserID            uuid.UUID       `json:"user_id"`
	WalletID          uuid.UUID       `json:"wallet_id"`
	Amount            decimal.Decimal `json:"amount"`
	Cost              decimal.Decimal `json:"cost"`
	Currency          string          `json:"currency"`
	Status            Status          `json:"status"`
	Channel           Channel         `json:"channel"`
	Provider          string          `json:"provider,omitempty"`
	PlanID            *uuid.UUID      `json:"plan_id,omitempty"`
	Recipient         string          `json:"recipient,omitempty"`
	ProviderReference string          `json:"provider_reference,omitempty"`
	LedgerID          *uuid.UUID      `json:"ledger_id,omitempty"`
	RefundLedgerID    *uuid.UUID      `json:"refund_ledger_id,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

// New returns a PENDING transaction.
func New(txRef string, userID, walletID uuid.UUID, amount decimal.Decimal, currency string, channel Channel) (*Transaction, error) {
	if txRef == "" {
		return nil, ErrMissingTxRef
	}
	return &Transaction{
		ID:        uuid.New(),
		TxRef:     txRef,
		UserID:    userID,
		WalletID:  walletID,
		Amount:    amount,
		Cost:      decimal.Zero,
		Currency:  currency,
		Status:    StatusPending,
		Channel:   channel,
		CreatedAt: time.Now(),
	}, nil
}

// IsTerminal reports whether the transaction has settled.
func (t *Transaction) IsTerminal() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed
}

// Complete settles the transaction as SUCCESS.
func (t *Transaction) Complete(providerReference string) error {
	if t.IsTerminal() {
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = StatusSuccess
	t.ProviderReference = providerReference
	t.CompletedAt = &now
	return nil
}

// Fail settles the transaction as FAILED.
func (t *Transaction) Fail(message string) error {
	if t.IsTerminal() {
		return ErrInvalidTransition
	}
	now := time.Now()
	t.Status = StatusFailed
	t.ErrorMessage = message
	t.CompletedAt = &now
	return nil
}
