package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vtu-wallet-ledger/internal/audit"
	"github.com/vtu-wallet-ledger/internal/domain/ledger"
	"github.com/vtu-wallet-ledger/internal/domain/money"
	"github.com/vtu-wallet-ledger/internal/domain/product"
	"github.com/vtu-wallet-ledger/internal/domain/transaction"
	"github.com/vtu-wallet-ledger/internal/domain/user"
	"github.com/vtu-wallet-ledger/internal/domain/wallet"
)

// CreateUserRequest represents a request to register a user
type CreateUserRequest struct {
	FullName string `json:"full_name" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"omitempty,oneof=user reseller admin"`
}

// FundingRequest credits or debits a user wallet
type FundingRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"amount"`
	TxRef       string          `json:"tx_ref" binding:"required,max=64"`
	Description string          `json:"description" binding:"max=255"`
}

// PurchaseRequest buys one data plan for a phone number
type PurchaseRequest struct {
	PlanID       string `json:"plan_id" binding:"required,uuid"`
	Recipient    string `json:"recipient" binding:"required,ngphone"`
	TxRef        string `json:"tx_ref" binding:"required,max=64"`
	PortedNumber bool   `json:"ported_number"`
}

// UpsertPlanRequest syncs one plan from a provider feed
type UpsertPlanRequest struct {
	Provider       string           `json:"provider" binding:"required"`
	ProviderPlanID string           `json:"provider_plan_id" binding:"required"`
	NetworkID      string           `json:"network_id" binding:"required"`
	NetworkName    string           `json:"network_name"`
	PlanSize       string           `json:"plan_size"`
	PlanType       string           `json:"plan_type"`
	Validity       string           `json:"validity"`
	CostPrice      decimal.Decimal  `json:"cost_price" binding:"price"`
	SellingPrice   decimal.Decimal  `json:"selling_price" binding:"amount"`
	ResellerPrice  *decimal.Decimal `json:"reseller_price,omitempty" binding:"omitempty,amount"`
}

// UpdatePriceRequest changes a plan's selling price
type UpdatePriceRequest struct {
	SellingPrice decimal.Decimal `json:"selling_price" binding:"amount"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// TransactionListParams filters the admin transaction listing
type TransactionListParams struct {
	UserID string     `form:"user_id" binding:"omitempty,uuid"`
	Status string     `form:"status" binding:"omitempty,oneof=PENDING SUCCESS FAILED"`
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Skip   int        `form:"skip,default=0" binding:"min=0"`
	Take   int        `form:"take,default=20" binding:"min=1"`
}

// FlowParams selects the inflow/outflow report window
type FlowParams struct {
	Timeframe string     `form:"timeframe,default=day"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// UserResponse represents a user and their wallet in API responses
type UserResponse struct {
	ID        string          `json:"id"`
	FullName  string          `json:"full_name"`
	Email     string          `json:"email"`
	Role      string          `json:"role"`
	Wallet    *WalletResponse `json:"wallet,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// WalletResponse represents a wallet balance
type WalletResponse struct {
	ID        string `json:"id"`
	Balance   string `json:"balance"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                string `json:"id"`
	TxRef             string `json:"tx_ref"`
	UserID            string `json:"user_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	Channel           string `json:"channel"`
	Provider          string `json:"provider,omitempty"`
	PlanID            string `json:"plan_id,omitempty"`
	Recipient         string `json:"recipient,omitempty"`
	ProviderReference string `json:"provider_reference,omitempty"`
	LedgerID          string `json:"ledger_id,omitempty"`
	RefundLedgerID    string `json:"refund_ledger_id,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	CreatedAt         string `json:"created_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

// MovementResponse is returned by credit, debit and purchase
type MovementResponse struct {
	Success     bool                 `json:"success"`
	Stage       string               `json:"stage,omitempty"`
	Message     string               `json:"message,omitempty"`
	Balance     string               `json:"balance"`
	Replayed    bool                 `json:"replayed,omitempty"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// TransactionPage is one skip/take window of the admin listing
type TransactionPage struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Skip         int                    `json:"skip"`
	Take         int                    `json:"take"`
	Total        int64                  `json:"total"`
}

// PlanResponse represents a data plan
type PlanResponse struct {
	ID             string `json:"id"`
	Provider       string `json:"provider"`
	ProviderPlanID string `json:"provider_plan_id"`
	NetworkID      string `json:"network_id"`
	NetworkName    string `json:"network_name"`
	PlanSize       string `json:"plan_size"`
	PlanType       string `json:"plan_type"`
	Validity       string `json:"validity"`
	CostPrice      string `json:"cost_price"`
	SellingPrice   string `json:"selling_price"`
	ResellerPrice  string `json:"reseller_price,omitempty"`
}

// LedgerResponse represents a ledger with its entries
type LedgerResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   string          `json:"created_at"`
	Entries     []EntryResponse `json:"entries"`
}

type EntryResponse struct {
	ID        string `json:"id"`
	WalletID  string `json:"wallet_id"`
	Amount    string `json:"amount"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// AuditResponse represents the balance audit result
type AuditResponse struct {
	Matches        bool   `json:"matches"`
	UserTotal      string `json:"user_total"`
	LiabilityTotal string `json:"liability_total"`
	Difference     string `json:"difference"`
	CheckedAt      string `json:"checked_at"`
}

type FlowBucketResponse struct {
	Date    string `json:"date"`
	Inflow  string `json:"inflow"`
	Outflow string `json:"outflow"`
}

type FlowResponse struct {
	Timeframe    string               `json:"timeframe"`
	Buckets      []FlowBucketResponse `json:"buckets"`
	TotalInflow  string               `json:"total_inflow"`
	TotalOutflow string               `json:"total_outflow"`
}

// formatAmount renders d with at least two and at most money.Scale decimals.
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(money.Scale)
	for strings.HasSuffix(s, "0") && len(s)-strings.IndexByte(s, '.') > 3 {
		s = s[:len(s)-1]
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func mapUserToResponse(u *user.User, w *wallet.Wallet) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
	}
	if w != nil {
		wr := mapWalletToResponse(w)
		resp.Wallet = &wr
	}
	return resp
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID.String(),
		Balance:   formatAmount(w.Balance),
		UpdatedAt: formatTime(w.UpdatedAt),
	}
}

func mapTransactionToResponse(t *transaction.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	resp := &TransactionResponse{
		ID:                t.ID.String(),
		TxRef:             t.TxRef,
		UserID:            t.UserID.String(),
		Amount:            formatAmount(t.Amount),
		Currency:          t.Currency,
		Status:            string(t.Status),
		Channel:           string(t.Channel),
		Provider:          t.Provider,
		Recipient:         t.Recipient,
		ProviderReference: t.ProviderReference,
		ErrorMessage:      t.ErrorMessage,
		CreatedAt:         formatTime(t.CreatedAt),
	}
	if t.PlanID != nil {
		resp.PlanID = t.PlanID.String()
	}
	if t.LedgerID != nil {
		resp.LedgerID = t.LedgerID.String()
	}
	if t.RefundLedgerID != nil {
		resp.RefundLedgerID = t.RefundLedgerID.String()
	}
	if t.CompletedAt != nil {
		resp.CompletedAt = formatTime(*t.CompletedAt)
	}
	return resp
}

func mapTransactionsToResponse(txns []*transaction.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, mapTransactionToResponse(t))
	}
	return out
}

func mapPlanToResponse(p *product.Plan) PlanResponse {
	resp := PlanResponse{
		ID:             p.ID.String(),
		Provider:       p.Provider,
		ProviderPlanID: p.ProviderPlanID,
		NetworkID:      p.NetworkID,
		NetworkName:    p.NetworkName,
		PlanSize:       p.PlanSize,
		PlanType:       p.PlanType,
		Validity:       p.Validity,
		CostPrice:      formatAmount(p.CostPrice),
		SellingPrice:   formatAmount(p.SellingPrice),
	}
	if p.ResellerPrice != nil {
		resp.ResellerPrice = formatAmount(*p.ResellerPrice)
	}
	return resp
}

func mapLedgerToResponse(l *ledger.Ledger, entries []*ledger.Entry) LedgerResponse {
	resp := LedgerResponse{
		ID:          l.ID.String(),
		Description: l.Description,
		CreatedBy:   l.CreatedBy,
		CreatedAt:   formatTime(l.CreatedAt),
		Entries:     make([]EntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			ID:        e.ID.String(),
			WalletID:  e.WalletID.String(),
			Amount:    formatAmount(e.Amount),
			Type:      string(e.Type),
			CreatedAt: formatTime(e.CreatedAt),
		})
	}
	return resp
}

func mapAuditToResponse(r *audit.Report) AuditResponse {
	return AuditResponse{
		Matches:        r.Matches,
		UserTotal:      formatAmount(r.UserTotal),
		LiabilityTotal: formatAmount(r.LiabilityTotal),
		Difference:     formatAmount(r.Difference),
		CheckedAt:      formatTime(r.CheckedAt),
	}
}

func mapFlowsToResponse(r *audit.FlowReport) FlowResponse {
	resp := FlowResponse{
		Timeframe:    string(r.Timeframe),
		Buckets:      make([]FlowBucketResponse, 0, len(r.Buckets)),
		TotalInflow:  formatAmount(r.TotalInflow),
		TotalOutflow: formatAmount(r.TotalOutflow),
	}
	for _, b := range r.Buckets {
		resp.Buckets = append(resp.Buckets, FlowBucketResponse{
			Date:    formatTime(b.Date),
			Inflow:  formatAmount(b.Inflow),
			Outflow: formatAmount(b.Outflow),
		})
	}
	return resp
}
